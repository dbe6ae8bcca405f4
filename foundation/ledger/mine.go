package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rsl37/GLX-Systems-Network-sub008/foundation/ledger/engine"
	"github.com/rsl37/GLX-Systems-Network-sub008/foundation/ledger/record"
)

// MinePending attempts to seal the next block from the pending pool. The
// attempt is a no-op when this process is already mining, when another
// process holds the mining lease, or when nothing is pending. Whatever the
// outcome, the lease and the mining flag are released unconditionally.
func (l *Ledger) MinePending(ctx context.Context) (record.Block, error) {
	switch l.Status() {
	case StatusReady, StatusMining:
	case StatusShuttingDown:
		return record.Block{}, ErrShuttingDown
	default:
		return record.Block{}, ErrNotInitialized
	}

	// Reentrancy guard. One mining run per process at a time.
	if !l.mining.CompareAndSwap(false, true) {
		return record.Block{}, ErrMiningInProgress
	}
	l.status.Store(int32(StatusMining))
	defer func() {
		l.mining.Store(false)
		if l.Status() == StatusMining {
			l.status.Store(int32(StatusReady))
		}
	}()

	// Attempt the distributed lease. Contention means another process is
	// mining and this attempt ends immediately; there is no wait queue.
	acquired, err := l.locker.Acquire(ctx, l.leaseKey(), l.holderID, l.leaseTTL)
	if err != nil {
		return record.Block{}, fmt.Errorf("acquiring mining lease: %w", err)
	}
	if !acquired {
		return record.Block{}, ErrLeaseHeld
	}
	defer func() {
		// Release must survive an expired caller context, otherwise only
		// the TTL would free the lease.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := l.locker.Release(releaseCtx, l.leaseKey(), l.holderID); err != nil {
			l.evHandler("ledger: mine: WARNING: releasing lease: %s", err)
		}
	}()

	// The store is the arbiter of the chain tip across processes. Another
	// process may have sealed a block since this cache was last updated, so
	// refresh it under the lease before proposing the next number.
	head, exists, err := l.storer.QueryHead(ctx)
	if err != nil {
		return record.Block{}, fmt.Errorf("refreshing head: %w", err)
	}
	if !exists {
		return record.Block{}, ErrNotInitialized
	}

	l.mu.Lock()
	l.head = head
	l.mu.Unlock()

	batch := l.pending.Drain(l.maxTxPerBlock)
	if len(batch) == 0 {
		return record.Block{}, ErrNoTransactions
	}

	// Seal the largest prefix of the batch that fits under the block byte
	// ceiling and return the remainder to the front of the pool.
	seal, remainder, size := splitUnderCeiling(batch, l.maxBlockSize)
	if len(remainder) > 0 {
		l.pending.Requeue(remainder)
	}
	if len(seal) == 0 {
		return record.Block{}, &OversizeError{Resource: "block batch", Size: batch[0].Size(), Limit: l.maxBlockSize}
	}

	l.evHandler("ledger: mine: sealing block[%d] txs[%d] bytes[%d]", head.Number+1, len(seal), size)

	mineCtx, cancel := context.WithTimeout(ctx, l.miningTimeout)
	defer cancel()

	block, err := l.engine.Seal(mineCtx, engine.Proposal{
		Number:        head.Number + 1,
		PrevBlockHash: head.Hash,
		TimeStamp:     time.Now(),
		Trans:         seal,
		Difficulty:    l.difficulty,
	})
	if err != nil {
		l.pending.Requeue(seal)
		if errors.Is(err, engine.ErrTimeout) {
			l.evHandler("ledger: mine: TIMEOUT: block[%d] requeued txs[%d]", head.Number+1, len(seal))
			return record.Block{}, ErrMiningTimeout
		}
		return record.Block{}, fmt.Errorf("sealing block %d: %w", head.Number+1, err)
	}

	if err := l.storer.WriteBlock(ctx, block); err != nil {
		l.pending.Requeue(seal)
		return record.Block{}, fmt.Errorf("persisting block %d: %w", block.Header.Number, err)
	}

	l.mu.Lock()
	l.head = record.HeadOf(block)
	l.mu.Unlock()

	l.evHandler("ledger: mine: sealed block[%d] hash[%s] txs[%d]", block.Header.Number, block.Hash(), len(block.Trans))

	return block, nil
}

// leaseKey is the coordination cache key for this ledger's mining lease.
func (l *Ledger) leaseKey() string {
	return "ledger:mining:" + l.name
}

// splitUnderCeiling chooses the largest prefix of the batch whose combined
// serialized size stays under the byte ceiling, preserving FIFO order.
func splitUnderCeiling(batch []record.Tx, ceiling int) (seal []record.Tx, remainder []record.Tx, size int) {
	cut := 0
	for _, tx := range batch {
		txSize := tx.Size()
		if size+txSize > ceiling {
			break
		}
		size += txSize
		cut++
	}

	return batch[:cut], batch[cut:], size
}
