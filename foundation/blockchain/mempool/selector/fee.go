package selector

import (
	"cmp"
	"slices"

	"github.com/dxidlabs/ledger/foundation/blockchain/database"
)

// feeSelect returns transactions with the best fee first. Transactions with
// the same fee keep their arrival order.
var feeSelect = func(txs []database.Tx, howMany int) []database.Tx {

	/*
		arrival: A fee[5], B fee[20], C fee[20] spends B, D fee[50] spends A
		sorted:  D fee[50], B fee[20], C fee[20], A fee[5]
		picked:  B, C, A, D
	*/

	sorted := slices.Clone(txs)
	slices.SortStableFunc(sorted, func(a, b database.Tx) int {
		return cmp.Compare(b.Fee, a.Fee)
	})

	return pick(sorted, howMany)
}
