// Package ledger is the core API for the tamper-evident transaction ledger.
// It owns the pending transaction pool and the chain head cache and composes
// the mining engine, the distributed mining lease and the persistence gateway
// into the submit, batch, mine, persist, publish flow.
package ledger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rsl37/GLX-Systems-Network-sub008/foundation/ledger/engine"
	"github.com/rsl37/GLX-Systems-Network-sub008/foundation/ledger/lease"
	"github.com/rsl37/GLX-Systems-Network-sub008/foundation/ledger/pool"
	"github.com/rsl37/GLX-Systems-Network-sub008/foundation/ledger/record"
)

// maxEntityResults caps entity history reads so no unbounded scan can reach
// the hot path.
const maxEntityResults = 100

// =============================================================================

// EventHandler defines a function that is called when events occur in the
// processing and persisting of blocks.
type EventHandler func(v string, args ...any)

// Storer represents the behavior the ledger requires from the persistence
// gateway. Every implementation is expected to persist a block and its
// transactions as one transactional unit.
type Storer interface {
	WriteBlock(ctx context.Context, block record.Block) error
	QueryBlockByNumber(ctx context.Context, number uint64) (record.Block, error)
	QueryHead(ctx context.Context) (record.Head, bool, error)
	QueryTransactionByHash(ctx context.Context, hash string) (record.Tx, error)
	QueryEntityTransactions(ctx context.Context, entityType string, entityID string, limit int) ([]record.Tx, error)
	Counts(ctx context.Context) (blocks uint64, trans uint64, err error)
}

// =============================================================================

// Status represents where the ledger is in its lifecycle.
type Status int32

// The set of lifecycle states. ShuttingDown is terminal.
const (
	StatusUninitialized Status = iota
	StatusInitializing
	StatusReady
	StatusMining
	StatusShuttingDown
)

// String implements the fmt.Stringer interface.
func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "UNINITIALIZED"
	case StatusInitializing:
		return "INITIALIZING"
	case StatusReady:
		return "READY"
	case StatusMining:
		return "MINING"
	case StatusShuttingDown:
		return "SHUTTING_DOWN"
	}
	return "UNKNOWN"
}

// =============================================================================

// Config represents the configuration required to construct the ledger.
type Config struct {
	Name      string
	Storer    Storer
	Locker    lease.Locker
	EvHandler EventHandler

	Difficulty        uint
	GenesisDifficulty uint
	MiningThreshold   int
	MaxTxPerBlock     int
	MaxTxSize         int
	MaxBlockSize      int
	MiningTimeout     time.Duration
	LeaseTTL          time.Duration
}

// Ledger manages the append-only chain of blocks for one ledger identity.
type Ledger struct {
	name              string
	storer            Storer
	locker            lease.Locker
	evHandler         EventHandler
	engine            *engine.Engine
	pending           *pool.Pool
	difficulty        uint
	genesisDifficulty uint
	miningThreshold   int
	maxTxPerBlock     int
	maxTxSize         int
	maxBlockSize      int
	miningTimeout     time.Duration
	leaseTTL          time.Duration

	// holderID identifies this process as the lease holder so a lease can
	// only ever be released by the process that acquired it.
	holderID string

	initOnce sync.Once
	initErr  error

	status atomic.Int32
	mining atomic.Bool
	wg     sync.WaitGroup

	mu    sync.RWMutex
	head  record.Head
	audit map[uint64]string
}

// New constructs a ledger. The ledger is not usable until Initialize has
// completed.
func New(cfg Config) *Ledger {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	l := Ledger{
		name:              cfg.Name,
		storer:            cfg.Storer,
		locker:            cfg.Locker,
		evHandler:         ev,
		engine:            engine.New(ev),
		pending:           pool.New(),
		difficulty:        cfg.Difficulty,
		genesisDifficulty: cfg.GenesisDifficulty,
		miningThreshold:   cfg.MiningThreshold,
		maxTxPerBlock:     cfg.MaxTxPerBlock,
		maxTxSize:         cfg.MaxTxSize,
		maxBlockSize:      cfg.MaxBlockSize,
		miningTimeout:     cfg.MiningTimeout,
		leaseTTL:          cfg.LeaseTTL,
		holderID:          uuid.NewString(),
		audit:             make(map[uint64]string),
	}

	return &l
}

// Initialize brings the ledger to the ready state, loading the existing head
// summary or mining the genesis block when the chain is empty. It is
// idempotent and safe under concurrent first calls: every caller awaits the
// same single in-flight initialization.
func (l *Ledger) Initialize(ctx context.Context) error {
	l.initOnce.Do(func() {
		l.initErr = l.initialize(ctx)
	})

	return l.initErr
}

// initialize performs the one-time startup work.
func (l *Ledger) initialize(ctx context.Context) error {
	l.status.Store(int32(StatusInitializing))
	l.evHandler("ledger: initialize: started: name[%s]", l.name)

	head, exists, err := l.storer.QueryHead(ctx)
	if err != nil {
		l.status.Store(int32(StatusUninitialized))
		return err
	}

	if !exists {
		l.evHandler("ledger: initialize: empty chain: mining genesis block")

		// The one accepted synchronous proof-of-work run: sealing genesis
		// at process bootstrap.
		genesis, err := record.Genesis(ctx, l.name, l.genesisDifficulty)
		if err != nil {
			l.status.Store(int32(StatusUninitialized))
			return err
		}

		if err := l.storer.WriteBlock(ctx, genesis); err != nil {

			// Another process cold-starting against the same empty store may
			// have sealed its genesis block first. The store is the arbiter:
			// adopt the chain that won the write instead of failing startup.
			rival, exists, qerr := l.storer.QueryHead(ctx)
			if qerr != nil || !exists {
				l.status.Store(int32(StatusUninitialized))
				return err
			}

			l.evHandler("ledger: initialize: genesis write conflict: adopting existing chain head[%d]", rival.Number)
			head = rival
		} else {
			head = record.HeadOf(genesis)
		}
	}

	l.mu.Lock()
	l.head = head
	l.mu.Unlock()

	l.status.Store(int32(StatusReady))
	l.evHandler("ledger: initialize: completed: head[%d] hash[%s]", head.Number, head.Hash)

	return nil
}

// Status reports the current lifecycle state.
func (l *Ledger) Status() Status {
	return Status(l.status.Load())
}

// Head returns the cached summary of the most recently persisted block.
func (l *Ledger) Head() record.Head {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.head
}

// Shutdown moves the ledger to its terminal state and waits for any in-flight
// asynchronous mining to finish.
func (l *Ledger) Shutdown() {
	l.evHandler("ledger: shutdown: started")
	defer l.evHandler("ledger: shutdown: completed")

	l.status.Store(int32(StatusShuttingDown))
	l.wg.Wait()
}

// =============================================================================

// Submit validates and appends a transaction to the pending pool. When the
// pool reaches the mining threshold a mining run is triggered asynchronously;
// the submitter is never blocked on, or failed by, downstream mining.
func (l *Ledger) Submit(txType string, entityType string, entityID string, payload []byte, creator string) (record.Tx, error) {
	switch l.Status() {
	case StatusReady, StatusMining:
	case StatusShuttingDown:
		return record.Tx{}, ErrShuttingDown
	default:
		return record.Tx{}, ErrNotInitialized
	}

	tx, err := record.NewTx(txType, entityType, entityID, payload, creator)
	if err != nil {
		return record.Tx{}, err
	}

	if size := tx.Size(); size > l.maxTxSize {
		return record.Tx{}, &OversizeError{Resource: "transaction", Size: size, Limit: l.maxTxSize}
	}

	count := l.pending.Append(tx)
	l.evHandler("ledger: submit: tx[%s] type[%s] entity[%s:%s] pending[%d]", tx.ID, tx.Type, tx.EntityType, tx.EntityID, count)

	if count >= l.miningThreshold {
		l.triggerMining()
	}

	return tx, nil
}

// triggerMining fires an asynchronous mining run. Failures are absorbed and
// logged; the next trigger retries whatever is still pending.
func (l *Ledger) triggerMining() {
	l.wg.Add(1)

	go func() {
		defer l.wg.Done()

		if _, err := l.MinePending(context.Background()); err != nil {
			switch {
			case isBenignMiningStop(err):
				l.evHandler("ledger: mining trigger: no-op: %s", err)
			default:
				l.evHandler("ledger: mining trigger: ERROR: %s", err)
			}
		}
	}()
}

// isBenignMiningStop reports whether a mining attempt ended in one of the
// by-design no-op outcomes.
func isBenignMiningStop(err error) bool {
	return err == nil ||
		errors.Is(err, ErrNoTransactions) ||
		errors.Is(err, ErrMiningInProgress) ||
		errors.Is(err, ErrLeaseHeld)
}
