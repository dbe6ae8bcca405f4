package pool_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/rsl37/GLX-Systems-Network-sub008/foundation/ledger/pool"
	"github.com/rsl37/GLX-Systems-Network-sub008/foundation/ledger/record"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

func makeTxs(t *testing.T, n int) []record.Tx {
	t.Helper()

	txs := make([]record.Tx, n)
	for i := range txs {
		tx, err := record.NewTx("deploy", "host", fmt.Sprintf("host-%04d", i), nil, "ci")
		if err != nil {
			t.Fatalf("\t%s\tShould be able to create transaction %d: %v", failed, i, err)
		}
		txs[i] = tx
	}

	return txs
}

// =============================================================================

func TestPoolOrdering(t *testing.T) {
	t.Log("Given the need to keep pending transactions in arrival order.")
	{
		txs := makeTxs(t, 5)

		p := pool.New()
		for _, tx := range txs {
			p.Append(tx)
		}

		t.Logf("\tTest 0:\tWhen draining a partial batch.")
		{
			batch := p.Drain(3)
			if len(batch) != 3 {
				t.Fatalf("\t%s\tShould drain exactly 3 transactions: got %d", failed, len(batch))
			}
			t.Logf("\t%s\tShould drain exactly 3 transactions.", success)

			for i := range batch {
				if batch[i].ID != txs[i].ID {
					t.Fatalf("\t%s\tShould preserve arrival order at position %d.", failed, i)
				}
			}
			t.Logf("\t%s\tShould preserve arrival order.", success)

			if p.Count() != 2 {
				t.Errorf("\t%s\tShould leave the remainder pending: got %d", failed, p.Count())
			} else {
				t.Logf("\t%s\tShould leave the remainder pending.", success)
			}
		}

		t.Logf("\tTest 1:\tWhen requeueing an aborted batch.")
		{
			batch := p.Drain(2)
			p.Requeue(batch)

			again := p.Drain(2)
			for i := range again {
				if again[i].ID != batch[i].ID {
					t.Fatalf("\t%s\tShould return the batch to the front in order.", failed)
				}
			}
			t.Logf("\t%s\tShould return the batch to the front in order.", success)
		}

		t.Logf("\tTest 2:\tWhen draining more than is pending.")
		{
			p.Truncate()
			p.Append(txs[0])

			if batch := p.Drain(100); len(batch) != 1 {
				t.Errorf("\t%s\tShould drain only what is pending: got %d", failed, len(batch))
			} else {
				t.Logf("\t%s\tShould drain only what is pending.", success)
			}

			if batch := p.Drain(100); batch != nil {
				t.Errorf("\t%s\tShould drain nothing from an empty pool.", failed)
			} else {
				t.Logf("\t%s\tShould drain nothing from an empty pool.", success)
			}
		}
	}
}

func TestPoolAccounting(t *testing.T) {
	t.Log("Given the need to account for the byte size of pending work.")
	{
		txs := makeTxs(t, 4)

		p := pool.New()
		exp := 0
		for _, tx := range txs {
			p.Append(tx)
			exp += tx.Size()
		}

		t.Logf("\tTest 0:\tWhen transactions accumulate.")
		{
			if p.SizeBytes() != exp {
				t.Errorf("\t%s\tShould track the serialized size: got %d, exp %d", failed, p.SizeBytes(), exp)
			} else {
				t.Logf("\t%s\tShould track the serialized size.", success)
			}
		}

		t.Logf("\tTest 1:\tWhen transactions drain and requeue.")
		{
			batch := p.Drain(2)
			drained := txs[0].Size() + txs[1].Size()

			if p.SizeBytes() != exp-drained {
				t.Errorf("\t%s\tShould release the drained bytes: got %d, exp %d", failed, p.SizeBytes(), exp-drained)
			} else {
				t.Logf("\t%s\tShould release the drained bytes.", success)
			}

			p.Requeue(batch)
			if p.SizeBytes() != exp {
				t.Errorf("\t%s\tShould restore the requeued bytes: got %d, exp %d", failed, p.SizeBytes(), exp)
			} else {
				t.Logf("\t%s\tShould restore the requeued bytes.", success)
			}
		}

		t.Logf("\tTest 2:\tWhen the pool is truncated.")
		{
			p.Truncate()
			if p.Count() != 0 || p.SizeBytes() != 0 {
				t.Errorf("\t%s\tShould reset both counters.", failed)
			} else {
				t.Logf("\t%s\tShould reset both counters.", success)
			}
		}
	}
}

func TestPoolConcurrency(t *testing.T) {
	t.Log("Given the need to accept submissions from many goroutines.")
	{
		t.Logf("\tTest 0:\tWhen 50 goroutines append concurrently.")
		{
			txs := makeTxs(t, 50)

			p := pool.New()
			var wg sync.WaitGroup
			wg.Add(len(txs))
			for _, tx := range txs {
				go func(tx record.Tx) {
					defer wg.Done()
					p.Append(tx)
				}(tx)
			}
			wg.Wait()

			if p.Count() != len(txs) {
				t.Errorf("\t%s\tShould hold every submission: got %d, exp %d", failed, p.Count(), len(txs))
			} else {
				t.Logf("\t%s\tShould hold every submission.", success)
			}
		}
	}
}
