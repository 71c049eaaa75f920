package selector

import (
	"github.com/dxidlabs/ledger/foundation/blockchain/database"
)

// fifoSelect returns transactions in the order they arrived.
var fifoSelect = func(txs []database.Tx, howMany int) []database.Tx {
	return pick(txs, howMany)
}
