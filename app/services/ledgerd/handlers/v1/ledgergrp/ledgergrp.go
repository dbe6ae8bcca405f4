// Package ledgergrp maintains the group of handlers for ledger access.
package ledgergrp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rsl37/GLX-Systems-Network-sub008/business/sys/store"
	v1 "github.com/rsl37/GLX-Systems-Network-sub008/business/web/v1"
	"github.com/rsl37/GLX-Systems-Network-sub008/foundation/events"
	"github.com/rsl37/GLX-Systems-Network-sub008/foundation/ledger"
	"github.com/rsl37/GLX-Systems-Network-sub008/foundation/ledger/record"
	"github.com/rsl37/GLX-Systems-Network-sub008/foundation/web"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	Ledger *ledger.Ledger
	WS     websocket.Upgrader
	Evts   *events.Events
}

// SubmitTransaction appends an auditable fact to the pending pool. The only
// failures a submitter can see are validation and oversize errors; mining and
// persistence failures are absorbed downstream.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var nt newTran
	if err := web.Decode(r, &nt); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	h.Log.Infow("submit tran", "traceid", v.TraceID, "type", nt.Type, "entity", nt.EntityType+":"+nt.EntityID)

	tx, err := h.Ledger.Submit(nt.Type, nt.EntityType, nt.EntityID, nt.Payload, nt.Creator)
	if err != nil {
		switch {
		case record.IsValidationError(err), ledger.IsOversizeError(err):
			return v1.NewRequestError(err, http.StatusBadRequest)
		case errors.Is(err, ledger.ErrShuttingDown), errors.Is(err, ledger.ErrNotInitialized):
			return v1.NewRequestError(err, http.StatusServiceUnavailable)
		default:
			return fmt.Errorf("submitting transaction: %w", err)
		}
	}

	return web.Respond(ctx, w, toTran(tx), http.StatusCreated)
}

// QueryTransaction returns a sealed transaction by its content hash.
func (h Handlers) QueryTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash := web.Param(r, "hash")

	tx, err := h.Ledger.QueryTransaction(ctx, hash)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return v1.NewRequestError(err, http.StatusNotFound)
		case store.IsPersistenceError(err):
			return v1.NewRequestError(err, http.StatusServiceUnavailable)
		default:
			return fmt.Errorf("querying transaction %s: %w", hash, err)
		}
	}

	return web.Respond(ctx, w, toTran(tx), http.StatusOK)
}

// EntityTransactions returns the bounded, newest-first transaction history
// for an entity.
func (h Handlers) EntityTransactions(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	entityType := web.Param(r, "type")
	entityID := web.Param(r, "id")

	txs, err := h.Ledger.QueryEntityTransactions(ctx, entityType, entityID)
	if err != nil {
		if store.IsPersistenceError(err) {
			return v1.NewRequestError(err, http.StatusServiceUnavailable)
		}
		return fmt.Errorf("querying entity %s[%s]: %w", entityType, entityID, err)
	}

	trans := make([]tran, len(txs))
	for i, tx := range txs {
		trans[i] = toTran(tx)
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// QueryBlock returns a block and its transactions by block number.
func (h Handlers) QueryBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	number, err := strconv.ParseUint(web.Param(r, "number"), 10, 64)
	if err != nil {
		return v1.NewRequestError(fmt.Errorf("invalid block number format: %w", err), http.StatusBadRequest)
	}

	blk, err := h.Ledger.GetBlock(ctx, number)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return v1.NewRequestError(err, http.StatusNotFound)
		case record.IsIntegrityError(err):
			return v1.NewRequestError(err, http.StatusConflict)
		case store.IsPersistenceError(err):
			return v1.NewRequestError(err, http.StatusServiceUnavailable)
		default:
			return fmt.Errorf("querying block %d: %w", number, err)
		}
	}

	return web.Respond(ctx, w, toBlock(blk), http.StatusOK)
}

// ValidateBlock runs the full block validation. Operational health checks
// poll this endpoint.
func (h Handlers) ValidateBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	number, err := strconv.ParseUint(web.Param(r, "number"), 10, 64)
	if err != nil {
		return v1.NewRequestError(fmt.Errorf("invalid block number format: %w", err), http.StatusBadRequest)
	}

	resp := struct {
		Number uint64 `json:"number"`
		Valid  bool   `json:"valid"`
		Reason string `json:"reason,omitempty"`
	}{
		Number: number,
		Valid:  true,
	}

	if err := h.Ledger.ValidateBlock(ctx, number); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return v1.NewRequestError(err, http.StatusNotFound)
		}

		resp.Valid = false
		resp.Reason = err.Error()
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Stats returns the aggregated chain statistics.
func (h Handlers) Stats(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	stats, err := h.Ledger.QueryStats(ctx)
	if err != nil {
		if store.IsPersistenceError(err) {
			return v1.NewRequestError(err, http.StatusServiceUnavailable)
		}
		return fmt.Errorf("querying stats: %w", err)
	}

	return web.Respond(ctx, w, stats, http.StatusOK)
}

// Events handles a web socket to provide ledger lifecycle events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}
