package mempool_test

import (
	"testing"

	"github.com/dxidlabs/ledger/foundation/blockchain/database"
	"github.com/dxidlabs/ledger/foundation/blockchain/mempool"
	"github.com/dxidlabs/ledger/foundation/blockchain/mempool/selector"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func tran(memo string, fee uint64) database.Tx {
	return database.Tx{
		Outputs: []database.TxOutput{{Address: database.Address{7}, Amount: 100}},
		Fee:     fee,
		Memo:    memo,
	}
}

func TestCRUD(t *testing.T) {
	type table struct {
		name     string
		strategy string
		txs      []database.Tx
		best     []string
	}

	tt := []table{
		{
			name:     "fee",
			strategy: selector.StrategyFee,
			txs:      []database.Tx{tran("1", 10), tran("2", 50), tran("3", 100), tran("4", 10)},
			best:     []string{"3", "2", "1", "4"},
		},
		{
			name:     "fifo",
			strategy: selector.StrategyFIFO,
			txs:      []database.Tx{tran("1", 10), tran("2", 50), tran("3", 100), tran("4", 10)},
			best:     []string{"1", "2", "3", "4"},
		},
	}

	t.Log("Given the need to validate mempool api.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a set of transaction.", testID)
			{
				f := func(t *testing.T) {
					mp, err := mempool.NewWithStrategy(tst.strategy)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to construct the mempool: %s", failed, testID, err)
					}

					for _, tx := range tst.txs {
						if _, err := mp.Upsert(tx); err != nil {
							t.Fatalf("\t%s\tTest %d:\tShould be able to add new transaction: %s", failed, testID, err)
						}
						t.Logf("\t%s\tTest %d:\tShould be able to add new transaction: %s", success, testID, tx.Memo)
					}

					n, err := mp.Upsert(tst.txs[0])
					if err != nil || n != len(tst.txs) {
						t.Fatalf("\t%s\tTest %d:\tShould not grow the pool on a repeat upsert, got %d.", failed, testID, n)
					}
					t.Logf("\t%s\tTest %d:\tShould not grow the pool on a repeat upsert.", success, testID)

					for i, tx := range mp.Copy() {
						if tx.Memo != tst.txs[i].Memo {
							t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, tx.Memo)
							t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, tst.txs[i].Memo)
							t.Fatalf("\t%s\tTest %d:\tShould get back the arrival order.", failed, testID)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould get back the arrival order.", success, testID)

					for i, tx := range mp.PickBest(-1) {
						if tx.Memo != tst.best[i] {
							t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, tx.Memo)
							t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, tst.best[i])
							t.Fatalf("\t%s\tTest %d:\tShould get back the right order.", failed, testID)
						}
						t.Logf("\t%s\tTest %d:\tShould get back the right order: fee[%d]", success, testID, tx.Fee)
					}

					if got := len(mp.PickBest(2)); got != 2 {
						t.Fatalf("\t%s\tTest %d:\tShould be able to pick two transactions, got %d.", failed, testID, got)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to pick two transactions.", success, testID)

					mp.Delete(mp.Copy()[1])
					if mp.Count() != 3 {
						t.Fatalf("\t%s\tTest %d:\tShould be able to remove a transaction.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to remove a transaction.", success, testID)

					mp.Truncate()
					if mp.Count() != 0 {
						t.Fatalf("\t%s\tTest %d:\tShould be able to truncate mempool.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to truncate mempool.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}

	t.Log("Given the need to reject bad input.")
	{
		mp, err := mempool.New()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct the mempool: %s", failed, err)
		}

		if _, err := mp.Upsert(database.Tx{}); err == nil {
			t.Fatalf("\t%s\tShould reject an empty transaction.", failed)
		}
		t.Logf("\t%s\tShould reject an empty transaction.", success)

		if _, err := mempool.NewWithStrategy("unknown"); err == nil {
			t.Fatalf("\t%s\tShould reject an unknown strategy.", failed)
		}
		t.Logf("\t%s\tShould reject an unknown strategy.", success)
	}
}
