// Package v1 contains the full set of handler functions and routes supported
// by the v1 web api.
package v1

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/rsl37/GLX-Systems-Network-sub008/app/services/ledgerd/handlers/v1/ledgergrp"
	"github.com/rsl37/GLX-Systems-Network-sub008/foundation/events"
	"github.com/rsl37/GLX-Systems-Network-sub008/foundation/ledger"
	"github.com/rsl37/GLX-Systems-Network-sub008/foundation/web"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log    *zap.SugaredLogger
	Ledger *ledger.Ledger
	Evts   *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	lgh := ledgergrp.Handlers{
		Log:    cfg.Log,
		Ledger: cfg.Ledger,
		Evts:   cfg.Evts,
	}

	app.Handle(http.MethodPost, version, "/transactions", lgh.SubmitTransaction)
	app.Handle(http.MethodGet, version, "/transactions/:hash", lgh.QueryTransaction)
	app.Handle(http.MethodGet, version, "/entities/:type/:id/transactions", lgh.EntityTransactions)
	app.Handle(http.MethodGet, version, "/blocks/:number", lgh.QueryBlock)
	app.Handle(http.MethodGet, version, "/blocks/:number/validate", lgh.ValidateBlock)
	app.Handle(http.MethodGet, version, "/stats", lgh.Stats)
	app.Handle(http.MethodGet, version, "/events", lgh.Events)
}
