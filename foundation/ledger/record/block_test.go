package record_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rsl37/GLX-Systems-Network-sub008/foundation/ledger/record"
)

// testDifficulty keeps proof-of-work fast enough for the unit tests while
// still exercising the nonce search.
const testDifficulty = 1

func makeTxs(t *testing.T, n int) []record.Tx {
	t.Helper()

	txs := make([]record.Tx, n)
	for i := range txs {
		tx, err := record.NewTx("deploy", "host", "host-"+strings.Repeat("7", i+1), nil, "ci")
		if err != nil {
			t.Fatalf("\t%s\tShould be able to create transaction %d: %v", failed, i, err)
		}
		txs[i] = tx
	}

	return txs
}

func mineBlock(t *testing.T, number uint64, prevHash string, txs []record.Tx) record.Block {
	t.Helper()

	b, err := record.NewBlock(number, prevHash, time.Now(), txs, testDifficulty)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct block %d: %v", failed, number, err)
	}

	if err := b.Mine(context.Background()); err != nil {
		t.Fatalf("\t%s\tShould be able to mine block %d: %v", failed, number, err)
	}

	return b
}

// =============================================================================

func TestBlockMine(t *testing.T) {
	t.Log("Given the need to seal a block with proof-of-work.")
	{
		t.Logf("\tTest 0:\tWhen mining at difficulty %d.", testDifficulty)
		{
			b := mineBlock(t, 0, record.ZeroHash, makeTxs(t, 3))
			t.Logf("\t%s\tShould be able to mine the block.", success)

			hash := b.Hash()
			if !strings.HasPrefix(hash, "0x"+strings.Repeat("0", testDifficulty)) {
				t.Errorf("\t%s\tShould produce a hash satisfying the difficulty: %s", failed, hash)
			} else {
				t.Logf("\t%s\tShould produce a hash satisfying the difficulty.", success)
			}

			if err := b.Validate(time.Now(), nil); err != nil {
				t.Errorf("\t%s\tShould produce a valid block: %v", failed, err)
			} else {
				t.Logf("\t%s\tShould produce a valid block.", success)
			}
		}

		t.Logf("\tTest 1:\tWhen the context is cancelled mid search.")
		{
			b, err := record.NewBlock(0, record.ZeroHash, time.Now(), makeTxs(t, 1), 16)
			if err != nil {
				t.Fatalf("\t%s\tShould be able to construct the block: %v", failed, err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			if err := b.Mine(ctx); err == nil {
				t.Errorf("\t%s\tShould abandon the search.", failed)
			} else {
				t.Logf("\t%s\tShould abandon the search.", success)
			}
		}
	}
}

func TestBlockValidate(t *testing.T) {
	t.Log("Given the need to validate the invariants of a sealed block.")
	{
		genesis := mineBlock(t, 0, record.ZeroHash, makeTxs(t, 1))
		next := mineBlock(t, 1, genesis.Hash(), makeTxs(t, 4))

		t.Logf("\tTest 0:\tWhen the chain link holds.")
		{
			if err := next.Validate(time.Now(), &genesis); err != nil {
				t.Errorf("\t%s\tShould validate against its parent: %v", failed, err)
			} else {
				t.Logf("\t%s\tShould validate against its parent.", success)
			}
		}

		t.Logf("\tTest 1:\tWhen a sealed transaction is altered.")
		{
			tampered := next
			tampered.Trans = make([]record.Tx, len(next.Trans))
			copy(tampered.Trans, next.Trans)
			tampered.Trans[2].EntityID = "host-intruder"

			err := tampered.Validate(time.Now(), &genesis)
			if err == nil || !strings.Contains(err.Error(), "merkle root") {
				t.Errorf("\t%s\tShould fail on the merkle root: %v", failed, err)
			} else {
				t.Logf("\t%s\tShould fail on the merkle root.", success)
			}
		}

		t.Logf("\tTest 2:\tWhen the block number skips ahead.")
		{
			skipped := mineBlock(t, 5, genesis.Hash(), makeTxs(t, 1))

			if err := skipped.Validate(time.Now(), &genesis); !record.IsValidationError(err) {
				t.Errorf("\t%s\tShould reject the non-consecutive number: %v", failed, err)
			} else {
				t.Logf("\t%s\tShould reject the non-consecutive number.", success)
			}
		}

		t.Logf("\tTest 3:\tWhen the previous hash does not match.")
		{
			broken := mineBlock(t, 1, record.ZeroHash, makeTxs(t, 1))

			if err := broken.Validate(time.Now(), &genesis); !record.IsValidationError(err) {
				t.Errorf("\t%s\tShould reject the broken link: %v", failed, err)
			} else {
				t.Logf("\t%s\tShould reject the broken link.", success)
			}
		}

		t.Logf("\tTest 4:\tWhen the nonce is altered after sealing.")
		{
			tampered := next
			tampered.Header.Nonce += 12345

			if err := tampered.Validate(time.Now(), &genesis); !record.IsValidationError(err) {
				t.Errorf("\t%s\tShould reject the unsatisfied proof-of-work: %v", failed, err)
			} else {
				t.Logf("\t%s\tShould reject the unsatisfied proof-of-work.", success)
			}
		}
	}
}

func TestGenesis(t *testing.T) {
	t.Log("Given the need to bootstrap a new chain.")
	{
		t.Logf("\tTest 0:\tWhen mining the genesis block.")
		{
			b, err := record.Genesis(context.Background(), "glx-ledger", testDifficulty)
			if err != nil {
				t.Fatalf("\t%s\tShould be able to mine the genesis block: %v", failed, err)
			}
			t.Logf("\t%s\tShould be able to mine the genesis block.", success)

			if b.Header.Number != 0 {
				t.Errorf("\t%s\tShould carry block number 0: got %d", failed, b.Header.Number)
			} else {
				t.Logf("\t%s\tShould carry block number 0.", success)
			}

			if b.Header.PrevBlockHash != record.ZeroHash {
				t.Errorf("\t%s\tShould link to the zero hash.", failed)
			} else {
				t.Logf("\t%s\tShould link to the zero hash.", success)
			}

			if len(b.Trans) != 1 {
				t.Errorf("\t%s\tShould carry the single bootstrap transaction: got %d", failed, len(b.Trans))
			} else {
				t.Logf("\t%s\tShould carry the single bootstrap transaction.", success)
			}
		}
	}
}

func TestBlockDataRoundTrip(t *testing.T) {
	t.Log("Given the need to move a block through serialization.")
	{
		b := mineBlock(t, 0, record.ZeroHash, makeTxs(t, 2))

		t.Logf("\tTest 0:\tWhen the serialized form is untouched.")
		{
			data, err := json.Marshal(record.NewBlockData(b))
			if err != nil {
				t.Fatalf("\t%s\tShould be able to marshal the block: %v", failed, err)
			}

			var bd record.BlockData
			if err := json.Unmarshal(data, &bd); err != nil {
				t.Fatalf("\t%s\tShould be able to unmarshal the block: %v", failed, err)
			}

			back, err := record.ToBlock(bd)
			if err != nil {
				t.Fatalf("\t%s\tShould be able to convert the data back: %v", failed, err)
			}
			t.Logf("\t%s\tShould be able to convert the data back.", success)

			if back.Hash() != b.Hash() {
				t.Errorf("\t%s\tShould preserve the block hash.", failed)
			} else {
				t.Logf("\t%s\tShould preserve the block hash.", success)
			}
		}

		t.Logf("\tTest 1:\tWhen the stored hash does not match the content.")
		{
			bd := record.NewBlockData(b)
			bd.Header.Nonce++

			if _, err := record.ToBlock(bd); !record.IsIntegrityError(err) {
				t.Errorf("\t%s\tShould refuse to accept the block: %v", failed, err)
			} else {
				t.Logf("\t%s\tShould refuse to accept the block.", success)
			}
		}
	}
}
