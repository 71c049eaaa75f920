// Package selector provides different transaction selecting algorithms.
package selector

import (
	"fmt"
	"slices"

	"github.com/dxidlabs/ledger/foundation/blockchain/database"
)

// List of different select strategies.
const (
	StrategyFee  = "fee"
	StrategyFIFO = "fifo"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyFee:  feeSelect,
	StrategyFIFO: fifoSelect,
}

// Func defines a function that takes the mempool transactions in arrival
// order and selects howMany of them in an order based on the functions
// strategy. All selector functions MUST place a transaction after any pool
// transaction whose outputs it spends. Receiving -1 for howMany must return
// all the transactions in the strategies ordering.
type Func func(transactions []database.Tx, howMany int) []database.Tx

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}

// =============================================================================

// candidate pairs a transaction with its hash so it is computed once.
type candidate struct {
	hash database.Hash
	tx   database.Tx
}

// pick takes transactions in the priority order provided, skipping over any
// transaction that spends the output of a pool transaction not yet picked.
func pick(ordered []database.Tx, howMany int) []database.Tx {
	if howMany < 0 || howMany > len(ordered) {
		howMany = len(ordered)
	}

	remaining := make([]candidate, len(ordered))
	inPool := make(map[database.Hash]struct{}, len(ordered))
	for i, tx := range ordered {
		remaining[i] = candidate{hash: tx.TxHash(), tx: tx}
		inPool[remaining[i].hash] = struct{}{}
	}

	picked := make(map[database.Hash]struct{}, howMany)
	ready := func(c candidate) bool {
		for _, in := range c.tx.Inputs {
			if _, exists := inPool[in.PrevTx]; !exists {
				continue
			}
			if _, done := picked[in.PrevTx]; !done {
				return false
			}
		}
		return true
	}

	final := make([]database.Tx, 0, howMany)
	for len(final) < howMany {
		idx := slices.IndexFunc(remaining, ready)
		if idx == -1 {
			break
		}

		final = append(final, remaining[idx].tx)
		picked[remaining[idx].hash] = struct{}{}
		remaining = slices.Delete(remaining, idx, idx+1)
	}

	return final
}
