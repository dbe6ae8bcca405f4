package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/rsl37/GLX-Systems-Network-sub008/business/sys/store"
	"github.com/rsl37/GLX-Systems-Network-sub008/foundation/ledger/record"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

// testStore opens an in-process sqlite database and migrates the schema. The
// single connection keeps every call on the same in-memory database.
func testStore(t *testing.T) (*store.Store, *sqlx.DB) {
	t.Helper()

	db, err := sqlx.Connect("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("\t%s\tShould be able to open the database: %v", failed, err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s := store.New(store.Config{
		Log:               zap.NewNop().Sugar(),
		DB:                db,
		BreakerFailures:   3,
		BreakerCoolDown:   time.Minute,
		BreakerTrialQuota: 1,
	})

	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("\t%s\tShould be able to migrate the schema: %v", failed, err)
	}

	return s, db
}

func makeTx(t *testing.T, entityID string) record.Tx {
	t.Helper()

	tx, err := record.NewTx("deploy", "host", entityID, json.RawMessage(`{"region":"us-east"}`), "ci")
	if err != nil {
		t.Fatalf("\t%s\tShould be able to create a transaction: %v", failed, err)
	}

	return tx
}

func mineBlock(t *testing.T, number uint64, prevHash string, txs []record.Tx) record.Block {
	t.Helper()

	b, err := record.NewBlock(number, prevHash, time.Now(), txs, 1)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct block %d: %v", failed, number, err)
	}
	if err := b.Mine(context.Background()); err != nil {
		t.Fatalf("\t%s\tShould be able to mine block %d: %v", failed, number, err)
	}

	return b
}

// =============================================================================

func TestWriteReadBlock(t *testing.T) {
	t.Log("Given the need to persist and read back sealed blocks.")
	{
		ctx := context.Background()
		s, _ := testStore(t)

		txs := []record.Tx{makeTx(t, "host-01"), makeTx(t, "host-02"), makeTx(t, "host-03")}
		genesis := mineBlock(t, 0, record.ZeroHash, txs)

		t.Logf("\tTest 0:\tWhen writing a sealed block.")
		{
			if err := s.WriteBlock(ctx, genesis); err != nil {
				t.Fatalf("\t%s\tShould be able to write the block: %v", failed, err)
			}
			t.Logf("\t%s\tShould be able to write the block.", success)
		}

		t.Logf("\tTest 1:\tWhen reading the block back.")
		{
			back, err := s.QueryBlockByNumber(ctx, 0)
			if err != nil {
				t.Fatalf("\t%s\tShould be able to read the block: %v", failed, err)
			}
			t.Logf("\t%s\tShould be able to read the block.", success)

			if back.Hash() != genesis.Hash() {
				t.Errorf("\t%s\tShould recompute the identical block hash.", failed)
			} else {
				t.Logf("\t%s\tShould recompute the identical block hash.", success)
			}

			if len(back.Trans) != len(txs) {
				t.Fatalf("\t%s\tShould carry every transaction: got %d, exp %d", failed, len(back.Trans), len(txs))
			}
			for i := range txs {
				if back.Trans[i].ID != txs[i].ID {
					t.Fatalf("\t%s\tShould preserve transaction order at position %d.", failed, i)
				}
			}
			t.Logf("\t%s\tShould preserve transaction order.", success)
		}

		t.Logf("\tTest 2:\tWhen reading the head summary.")
		{
			head, exists, err := s.QueryHead(ctx)
			if err != nil {
				t.Fatalf("\t%s\tShould be able to query the head: %v", failed, err)
			}
			if !exists {
				t.Fatalf("\t%s\tShould report the chain exists.", failed)
			}
			t.Logf("\t%s\tShould report the chain exists.", success)

			if head.Number != 0 || head.Hash != genesis.Hash() {
				t.Errorf("\t%s\tShould summarize the newest block.", failed)
			} else {
				t.Logf("\t%s\tShould summarize the newest block.", success)
			}
		}

		t.Logf("\tTest 3:\tWhen looking up a transaction by hash.")
		{
			tx, err := s.QueryTransactionByHash(ctx, txs[1].TxHash)
			if err != nil {
				t.Fatalf("\t%s\tShould be able to look up the transaction: %v", failed, err)
			}
			if tx.ID != txs[1].ID {
				t.Errorf("\t%s\tShould return the matching transaction.", failed)
			} else {
				t.Logf("\t%s\tShould return the matching transaction.", success)
			}
		}

		t.Logf("\tTest 4:\tWhen the block or transaction does not exist.")
		{
			if _, err := s.QueryBlockByNumber(ctx, 99); !errors.Is(err, store.ErrNotFound) {
				t.Errorf("\t%s\tShould report not found for a missing block: %v", failed, err)
			} else {
				t.Logf("\t%s\tShould report not found for a missing block.", success)
			}

			if _, err := s.QueryTransactionByHash(ctx, record.ZeroHash); !errors.Is(err, store.ErrNotFound) {
				t.Errorf("\t%s\tShould report not found for a missing transaction: %v", failed, err)
			} else {
				t.Logf("\t%s\tShould report not found for a missing transaction.", success)
			}
		}
	}
}

func TestAtomicWrite(t *testing.T) {
	t.Log("Given the need to persist a block and its transactions atomically.")
	{
		ctx := context.Background()
		s, _ := testStore(t)

		shared := makeTx(t, "host-01")
		genesis := mineBlock(t, 0, record.ZeroHash, []record.Tx{shared})
		if err := s.WriteBlock(ctx, genesis); err != nil {
			t.Fatalf("\t%s\tShould be able to write the first block: %v", failed, err)
		}

		t.Logf("\tTest 0:\tWhen a transaction insert fails mid block.")
		{
			fresh := makeTx(t, "host-02")
			next := mineBlock(t, 1, genesis.Hash(), []record.Tx{fresh, shared})

			err := s.WriteBlock(ctx, next)
			if !store.IsPersistenceError(err) {
				t.Fatalf("\t%s\tShould report a persistence error: %v", failed, err)
			}
			t.Logf("\t%s\tShould report a persistence error.", success)

			if _, err := s.QueryBlockByNumber(ctx, 1); !errors.Is(err, store.ErrNotFound) {
				t.Errorf("\t%s\tShould leave no trace of the block: %v", failed, err)
			} else {
				t.Logf("\t%s\tShould leave no trace of the block.", success)
			}

			if _, err := s.QueryTransactionByHash(ctx, fresh.TxHash); !errors.Is(err, store.ErrNotFound) {
				t.Errorf("\t%s\tShould roll back the rows inserted before the failure: %v", failed, err)
			} else {
				t.Logf("\t%s\tShould roll back the rows inserted before the failure.", success)
			}

			blocks, trans, err := s.Counts(ctx)
			if err != nil {
				t.Fatalf("\t%s\tShould be able to count: %v", failed, err)
			}
			if blocks != 1 || trans != 1 {
				t.Errorf("\t%s\tShould keep the totals unchanged: blocks %d, trans %d", failed, blocks, trans)
			} else {
				t.Logf("\t%s\tShould keep the totals unchanged.", success)
			}
		}
	}
}

func TestEntityQuery(t *testing.T) {
	t.Log("Given the need to read an entity's history newest first.")
	{
		ctx := context.Background()
		s, _ := testStore(t)

		var txs []record.Tx
		for i := 0; i < 5; i++ {
			txs = append(txs, makeTx(t, "host-01"))
		}
		txs = append(txs, makeTx(t, "host-99"))

		block := mineBlock(t, 0, record.ZeroHash, txs)
		if err := s.WriteBlock(ctx, block); err != nil {
			t.Fatalf("\t%s\tShould be able to write the block: %v", failed, err)
		}

		t.Logf("\tTest 0:\tWhen the history exceeds the limit.")
		{
			trans, err := s.QueryEntityTransactions(ctx, "host", "host-01", 3)
			if err != nil {
				t.Fatalf("\t%s\tShould be able to query the entity: %v", failed, err)
			}

			if len(trans) != 3 {
				t.Fatalf("\t%s\tShould cap the result at the limit: got %d", failed, len(trans))
			}
			t.Logf("\t%s\tShould cap the result at the limit.", success)

			// Same second timestamps fall back to position order, so the
			// newest transactions for the entity come back first.
			if trans[0].ID != txs[4].ID {
				t.Errorf("\t%s\tShould order newest first.", failed)
			} else {
				t.Logf("\t%s\tShould order newest first.", success)
			}
		}

		t.Logf("\tTest 1:\tWhen the entity has no history.")
		{
			trans, err := s.QueryEntityTransactions(ctx, "host", "host-77", 10)
			if err != nil {
				t.Fatalf("\t%s\tShould not error on an unknown entity: %v", failed, err)
			}
			if len(trans) != 0 {
				t.Errorf("\t%s\tShould return an empty history.", failed)
			} else {
				t.Logf("\t%s\tShould return an empty history.", success)
			}
		}
	}
}

func TestIntegrityOnLoad(t *testing.T) {
	t.Log("Given the need to distrust rows coming back from storage.")
	{
		ctx := context.Background()
		s, db := testStore(t)

		block := mineBlock(t, 0, record.ZeroHash, []record.Tx{makeTx(t, "host-01")})
		if err := s.WriteBlock(ctx, block); err != nil {
			t.Fatalf("\t%s\tShould be able to write the block: %v", failed, err)
		}

		t.Logf("\tTest 0:\tWhen a persisted row is altered underneath the gateway.")
		{
			if _, err := db.ExecContext(ctx, `UPDATE transactions SET entity_id = 'host-intruder'`); err != nil {
				t.Fatalf("\t%s\tShould be able to corrupt the row: %v", failed, err)
			}

			if _, err := s.QueryBlockByNumber(ctx, 0); !record.IsIntegrityError(err) {
				t.Errorf("\t%s\tShould refuse to serve the corrupted block: %v", failed, err)
			} else {
				t.Logf("\t%s\tShould refuse to serve the corrupted block.", success)
			}
		}
	}
}

func TestBreaker(t *testing.T) {
	t.Log("Given the need to fail fast when the database is degraded.")
	{
		ctx := context.Background()
		s, db := testStore(t)

		t.Logf("\tTest 0:\tWhen consecutive calls fail.")
		{
			db.Close()

			for i := 0; i < 3; i++ {
				if _, _, err := s.QueryHead(ctx); !store.IsPersistenceError(err) {
					t.Fatalf("\t%s\tShould report a persistence error on failure %d: %v", failed, i, err)
				}
			}
			t.Logf("\t%s\tShould report a persistence error on each failure.", success)

			_, _, err := s.QueryHead(ctx)
			if !errors.Is(err, gobreaker.ErrOpenState) {
				t.Errorf("\t%s\tShould reject the next call with an open breaker: %v", failed, err)
			} else {
				t.Logf("\t%s\tShould reject the next call with an open breaker.", success)
			}

			if !store.IsPersistenceError(err) {
				t.Errorf("\t%s\tShould still surface the rejection as a persistence error.", failed)
			} else {
				t.Logf("\t%s\tShould still surface the rejection as a persistence error.", success)
			}
		}
	}
}

func TestNotFoundDoesNotTrip(t *testing.T) {
	t.Log("Given the need to keep misses from tripping the breaker.")
	{
		ctx := context.Background()
		s, _ := testStore(t)

		t.Logf("\tTest 0:\tWhen many lookups miss in a row.")
		{
			for i := 0; i < 10; i++ {
				hash := fmt.Sprintf("0x%064d", i)
				if _, err := s.QueryTransactionByHash(ctx, hash); !errors.Is(err, store.ErrNotFound) {
					t.Fatalf("\t%s\tShould report not found on miss %d: %v", failed, i, err)
				}
			}
			t.Logf("\t%s\tShould report not found on every miss.", success)

			if _, _, err := s.QueryHead(ctx); err != nil {
				t.Errorf("\t%s\tShould keep serving calls with a closed breaker: %v", failed, err)
			} else {
				t.Logf("\t%s\tShould keep serving calls with a closed breaker.", success)
			}
		}
	}
}
