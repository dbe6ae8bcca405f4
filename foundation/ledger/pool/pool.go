// Package pool maintains the in-memory pending transaction pool for the
// ledger. The pool is process local and not durable: transactions lost on a
// crash before mining are expected to be resubmitted.
package pool

import (
	"sync"

	"github.com/rsl37/GLX-Systems-Network-sub008/foundation/ledger/record"
)

// Pool represents a FIFO queue of pending transactions with byte accounting.
type Pool struct {
	mu    sync.Mutex
	txs   []record.Tx
	bytes int
}

// New constructs an empty pending pool.
func New() *Pool {
	return &Pool{}
}

// Count returns the current number of pending transactions.
func (p *Pool) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.txs)
}

// SizeBytes returns the serialized size of all pending transactions.
func (p *Pool) SizeBytes() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.bytes
}

// Append adds a transaction to the back of the pool and returns the new
// pending count.
func (p *Pool) Append(tx record.Tx) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.txs = append(p.txs, tx)
	p.bytes += tx.Size()

	return len(p.txs)
}

// Drain removes and returns up to max transactions from the front of the
// pool in arrival order. A max below one drains nothing.
func (p *Pool) Drain(max int) []record.Tx {
	p.mu.Lock()
	defer p.mu.Unlock()

	if max <= 0 || len(p.txs) == 0 {
		return nil
	}

	if max > len(p.txs) {
		max = len(p.txs)
	}

	batch := make([]record.Tx, max)
	copy(batch, p.txs[:max])

	p.txs = append([]record.Tx{}, p.txs[max:]...)
	for _, tx := range batch {
		p.bytes -= tx.Size()
	}

	return batch
}

// Requeue returns a drained batch to the front of the pool, preserving the
// original arrival order. Used when mining aborts and the batch must not be
// lost.
func (p *Pool) Requeue(batch []record.Tx) {
	if len(batch) == 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.txs = append(append([]record.Tx{}, batch...), p.txs...)
	for _, tx := range batch {
		p.bytes += tx.Size()
	}
}

// Truncate clears all pending transactions from the pool.
func (p *Pool) Truncate() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.txs = nil
	p.bytes = 0
}
