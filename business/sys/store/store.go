// Package store implements the persistence gateway for the ledger: durable,
// transactional storage of blocks and their transactions in the platform's
// relational database, with every call passing through a circuit breaker so
// a degraded store fails fast instead of hanging the mining path.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/rsl37/GLX-Systems-Network-sub008/foundation/ledger/record"
)

// ErrNotFound is returned when a requested block or transaction does not
// exist. Not-found is a normal outcome and never trips the breaker.
var ErrNotFound = errors.New("not found")

// PersistenceError indicates the gateway could not serve a call: the breaker
// is open or the database operation failed. Mining attempts abort early on
// this error and pending transactions stay queued for the next trigger.
type PersistenceError struct {
	Err error
}

// Error implements the error interface.
func (pe *PersistenceError) Error() string {
	return fmt.Sprintf("persistence gateway: %s", pe.Err)
}

// Unwrap exposes the underlying failure.
func (pe *PersistenceError) Unwrap() error {
	return pe.Err
}

// IsPersistenceError checks for a persistence error in the chain.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// =============================================================================

// Config represents the settings required to construct the gateway.
type Config struct {
	Log *zap.SugaredLogger
	DB  *sqlx.DB

	// Breaker settings: trip after BreakerFailures consecutive failures,
	// reject calls for BreakerCoolDown, then admit BreakerTrialQuota trial
	// calls which must all succeed to close again.
	BreakerFailures   uint32
	BreakerCoolDown   time.Duration
	BreakerTrialQuota uint32
}

// Store provides access to the blocks and transactions tables.
type Store struct {
	log     *zap.SugaredLogger
	db      *sqlx.DB
	breaker *gobreaker.CircuitBreaker
}

// New constructs a persistence gateway wrapped in a circuit breaker.
func New(cfg Config) *Store {
	settings := gobreaker.Settings{
		Name:        "ledger-store",
		MaxRequests: cfg.BreakerTrialQuota,
		Timeout:     cfg.BreakerCoolDown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			cfg.Log.Infow("store: breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	}

	return &Store{
		log:     cfg.Log,
		db:      cfg.DB,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// execute routes a gateway call through the circuit breaker, mapping breaker
// rejections and database failures to PersistenceError.
func (s *Store) execute(fn func() error) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, fn()
	})

	if err != nil {
		if errors.Is(err, ErrNotFound) || record.IsIntegrityError(err) {
			return err
		}
		return &PersistenceError{Err: err}
	}

	return nil
}

// =============================================================================

// WriteBlock persists a sealed block and all of its transactions as one
// transactional unit. Readers can never observe a partially persisted block.
func (s *Store) WriteBlock(ctx context.Context, block record.Block) error {
	return s.execute(func() error {
		dbTx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer dbTx.Rollback()

		const insertBlock = `
		INSERT INTO blocks
			(number, previous_hash, hash, timestamp, nonce, difficulty, merkle_root, tx_count)
		VALUES
			(:number, :previous_hash, :hash, :timestamp, :nonce, :difficulty, :merkle_root, :tx_count)`

		if _, err := dbTx.NamedExecContext(ctx, insertBlock, toDBBlock(block)); err != nil {
			return fmt.Errorf("insert block %d: %w", block.Header.Number, err)
		}

		const insertTran = `
		INSERT INTO transactions
			(id, block_number, position, hash, tx_type, entity_type, entity_id, payload, timestamp, creator)
		VALUES
			(:id, :block_number, :position, :hash, :tx_type, :entity_type, :entity_id, :payload, :timestamp, :creator)`

		for i, tx := range block.Trans {
			if _, err := dbTx.NamedExecContext(ctx, insertTran, toDBTran(block.Header.Number, i, tx)); err != nil {
				return fmt.Errorf("insert transaction %s: %w", tx.ID, err)
			}
		}

		if err := dbTx.Commit(); err != nil {
			return fmt.Errorf("commit block %d: %w", block.Header.Number, err)
		}

		return nil
	})
}

// QueryBlockByNumber performs a point lookup for a block and its
// transactions, re-verifying every hash carried by the rows.
func (s *Store) QueryBlockByNumber(ctx context.Context, number uint64) (record.Block, error) {
	var block record.Block

	err := s.execute(func() error {
		const qBlock = `
		SELECT number, previous_hash, hash, timestamp, nonce, difficulty, merkle_root, tx_count
		FROM blocks
		WHERE number = ?`

		var dbBlk dbBlock
		if err := s.db.GetContext(ctx, &dbBlk, s.db.Rebind(qBlock), number); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("query block %d: %w", number, err)
		}

		const qTrans = `
		SELECT id, block_number, position, hash, tx_type, entity_type, entity_id, payload, timestamp, creator
		FROM transactions
		WHERE block_number = ?
		ORDER BY position`

		var dbTrans []dbTran
		if err := s.db.SelectContext(ctx, &dbTrans, s.db.Rebind(qTrans), number); err != nil {
			return fmt.Errorf("query block %d transactions: %w", number, err)
		}

		blk, err := toRecordBlock(dbBlk, dbTrans)
		if err != nil {
			return err
		}

		block = blk
		return nil
	})

	return block, err
}

// QueryHead returns the head summary of the most recently persisted block.
// The exists flag reports false on an empty chain; only the one summary row
// is ever read, never the chain itself.
func (s *Store) QueryHead(ctx context.Context) (record.Head, bool, error) {
	var head record.Head
	var exists bool

	err := s.execute(func() error {
		const q = `
		SELECT number, hash, timestamp
		FROM blocks
		ORDER BY number DESC
		LIMIT 1`

		var row struct {
			Number    uint64 `db:"number"`
			Hash      string `db:"hash"`
			TimeStamp uint64 `db:"timestamp"`
		}
		if err := s.db.GetContext(ctx, &row, q); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("query head: %w", err)
		}

		head = record.Head{
			Number:    row.Number,
			Hash:      row.Hash,
			TimeStamp: row.TimeStamp,
		}
		exists = true
		return nil
	})

	return head, exists, err
}

// QueryTransactionByHash performs a point lookup for a single transaction.
func (s *Store) QueryTransactionByHash(ctx context.Context, hash string) (record.Tx, error) {
	var tran record.Tx

	err := s.execute(func() error {
		const q = `
		SELECT id, block_number, position, hash, tx_type, entity_type, entity_id, payload, timestamp, creator
		FROM transactions
		WHERE hash = ?`

		var dbTx dbTran
		if err := s.db.GetContext(ctx, &dbTx, s.db.Rebind(q), hash); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("query transaction %s: %w", hash, err)
		}

		tx, err := toRecordTran(dbTx)
		if err != nil {
			return err
		}

		tran = tx
		return nil
	})

	return tran, err
}

// QueryEntityTransactions returns the newest-first transactions recorded for
// an entity, capped at limit rows. Unbounded scans are not permitted on any
// request path.
func (s *Store) QueryEntityTransactions(ctx context.Context, entityType string, entityID string, limit int) ([]record.Tx, error) {
	var trans []record.Tx

	err := s.execute(func() error {
		const q = `
		SELECT id, block_number, position, hash, tx_type, entity_type, entity_id, payload, timestamp, creator
		FROM transactions
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY timestamp DESC, position DESC
		LIMIT ?`

		var dbTrans []dbTran
		if err := s.db.SelectContext(ctx, &dbTrans, s.db.Rebind(q), entityType, entityID, limit); err != nil {
			return fmt.Errorf("query entity %s[%s] transactions: %w", entityType, entityID, err)
		}

		result := make([]record.Tx, 0, len(dbTrans))
		for _, dbTx := range dbTrans {
			tx, err := toRecordTran(dbTx)
			if err != nil {
				return err
			}
			result = append(result, tx)
		}

		trans = result
		return nil
	})

	return trans, err
}

// Counts aggregates the persisted block and transaction totals.
func (s *Store) Counts(ctx context.Context) (blocks uint64, trans uint64, err error) {
	err = s.execute(func() error {
		if err := s.db.GetContext(ctx, &blocks, `SELECT COUNT(*) FROM blocks`); err != nil {
			return fmt.Errorf("count blocks: %w", err)
		}

		if err := s.db.GetContext(ctx, &trans, `SELECT COUNT(*) FROM transactions`); err != nil {
			return fmt.Errorf("count transactions: %w", err)
		}

		return nil
	})

	return blocks, trans, err
}
