package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rsl37/GLX-Systems-Network-sub008/foundation/ledger/record"
)

// GetBlock reads a block through to persistence. Blocks are never cached in
// full so memory stays bounded as the chain grows. An integrity failure on
// load flags the block for manual audit.
func (l *Ledger) GetBlock(ctx context.Context, number uint64) (record.Block, error) {
	block, err := l.storer.QueryBlockByNumber(ctx, number)
	if err != nil {
		if record.IsIntegrityError(err) {
			l.flagForAudit(number, err)
		}
		return record.Block{}, err
	}

	return block, nil
}

// ValidateBlock fetches a block and its predecessor and runs the full block
// validation, chain link included.
func (l *Ledger) ValidateBlock(ctx context.Context, number uint64) error {
	block, err := l.GetBlock(ctx, number)
	if err != nil {
		return err
	}

	var previous *record.Block
	if number > 0 {
		prev, err := l.GetBlock(ctx, number-1)
		if err != nil {
			return fmt.Errorf("fetching predecessor of block %d: %w", number, err)
		}
		previous = &prev
	}

	if err := block.Validate(time.Now(), previous); err != nil {
		l.flagForAudit(number, err)
		return err
	}

	return nil
}

// QueryTransaction performs a point lookup for a sealed transaction by its
// content hash.
func (l *Ledger) QueryTransaction(ctx context.Context, hash string) (record.Tx, error) {
	return l.storer.QueryTransactionByHash(ctx, hash)
}

// QueryEntityTransactions returns the newest-first transactions recorded for
// an entity, capped so the result set stays bounded.
func (l *Ledger) QueryEntityTransactions(ctx context.Context, entityType string, entityID string) ([]record.Tx, error) {
	return l.storer.QueryEntityTransactions(ctx, entityType, entityID, maxEntityResults)
}

// =============================================================================

// Stats aggregates the operational view of the ledger.
type Stats struct {
	TotalBlocks       uint64      `json:"total_blocks"`
	TotalTransactions uint64      `json:"total_transactions"`
	PendingCount      int         `json:"pending_count"`
	Difficulty        uint        `json:"difficulty"`
	Head              record.Head `json:"head"`
	MiningInProgress  bool        `json:"mining_in_progress"`
	AuditFlagged      []uint64    `json:"audit_flagged,omitempty"`
}

// QueryStats aggregates block and transaction counts from persistence with
// the ledger's in-memory state.
func (l *Ledger) QueryStats(ctx context.Context) (Stats, error) {
	blocks, trans, err := l.storer.Counts(ctx)
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		TotalBlocks:       blocks,
		TotalTransactions: trans,
		PendingCount:      l.pending.Count(),
		Difficulty:        l.difficulty,
		Head:              l.Head(),
		MiningInProgress:  l.mining.Load(),
		AuditFlagged:      l.auditFlagged(),
	}, nil
}

// PendingCount reports the number of transactions waiting to be mined.
func (l *Ledger) PendingCount() int {
	return l.pending.Count()
}

// =============================================================================

// flagForAudit records a block number whose persisted content failed
// validation or integrity checks. Flagged ranges require manual audit and are
// never silently skipped.
func (l *Ledger) flagForAudit(number uint64, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.audit[number] = err.Error()
	l.evHandler("ledger: AUDIT: block[%d] flagged: %s", number, err)
}

// auditFlagged returns the block numbers currently flagged for audit.
func (l *Ledger) auditFlagged() []uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.audit) == 0 {
		return nil
	}

	numbers := make([]uint64, 0, len(l.audit))
	for number := range l.audit {
		numbers = append(numbers, number)
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })

	return numbers
}
