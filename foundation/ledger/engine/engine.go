// Package engine provides the isolated mining engine. Sealing is the sole
// CPU-bound operation in an otherwise I/O-bound process, so it runs as its
// own unit of concurrency communicating by message passing. The engine does
// pure computation with no I/O: terminating it leaves nothing to clean up.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/rsl37/GLX-Systems-Network-sub008/foundation/ledger/record"
)

// ErrTimeout is returned when the engine exceeds its sealing deadline.
var ErrTimeout = errors.New("mining engine exceeded its deadline")

// =============================================================================

// Proposal carries everything the engine needs to seal the next block.
type Proposal struct {
	Number        uint64
	PrevBlockHash string
	TimeStamp     time.Time
	Trans         []record.Tx
	Difficulty    uint
}

// result carries the outcome of a sealing run back to the caller.
type result struct {
	block record.Block
	err   error
}

// =============================================================================

// Engine seals proposed blocks under a caller supplied deadline.
type Engine struct {
	evHandler func(v string, args ...any)
}

// New constructs a mining engine. The event handler receives the engine's
// lifecycle messages.
func New(evHandler func(v string, args ...any)) *Engine {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	return &Engine{
		evHandler: ev,
	}
}

// Seal performs the proof-of-work search for the proposal on a dedicated
// goroutine and waits for the sealed block under the context deadline. When
// the deadline expires the search is cancelled and no partial block escapes.
func (e *Engine) Seal(ctx context.Context, p Proposal) (record.Block, error) {
	e.evHandler("engine: seal: started: block[%d] txs[%d] difficulty[%d]", p.Number, len(p.Trans), p.Difficulty)
	defer e.evHandler("engine: seal: completed: block[%d]", p.Number)

	block, err := record.NewBlock(p.Number, p.PrevBlockHash, p.TimeStamp, p.Trans, p.Difficulty)
	if err != nil {
		return record.Block{}, err
	}

	// Buffered so the mining goroutine can always deliver and terminate,
	// even when the caller has already given up.
	resCh := make(chan result, 1)

	go func() {
		t := time.Now()
		err := block.Mine(ctx)
		e.evHandler("engine: seal: mining duration[%v]", time.Since(t))

		resCh <- result{block: block, err: err}
	}()

	select {
	case res := <-resCh:
		if res.err != nil {
			if errors.Is(res.err, context.DeadlineExceeded) {
				return record.Block{}, ErrTimeout
			}
			return record.Block{}, res.err
		}
		return res.block, nil

	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return record.Block{}, ErrTimeout
		}
		return record.Block{}, ctx.Err()
	}
}
