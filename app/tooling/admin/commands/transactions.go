package commands

import (
	"fmt"

	"github.com/dxidlabs/ledger/foundation/blockchain/database"
	"github.com/dxidlabs/ledger/foundation/blockchain/state"
	"github.com/dxidlabs/ledger/foundation/nameservice"
)

// Transactions prints the transactions in the chain, optionally only the
// blocks that involve one account.
func Transactions(account string, ns *nameservice.NameService, st *state.State) error {
	var blocks []database.Block
	var err error

	switch account {
	case "":
		blocks, err = st.QueryBlocksByNumber(0, state.QueryLatest)
	default:
		var addr database.Address
		if addr, err = ns.Address(account); err != nil {
			return err
		}
		blocks, err = st.QueryBlocksByAddress(addr)
	}
	if err != nil {
		return err
	}

	for _, block := range blocks {
		fmt.Printf("Block: %d  Hash: %s  Validator: %s\n", block.Header.Height, block.PowHash, ns.Lookup(block.Header.Validator))

		for _, tx := range block.Transactions() {
			fmt.Printf("  Tx: %s  Inputs: %d  Fee: %d  Memo: %q\n", tx.TxHash(), len(tx.Inputs), tx.Fee, tx.Memo)
			for _, out := range tx.Outputs {
				fmt.Printf("    To: %s  Name: %s  Amount: %d\n", out.Address, ns.Lookup(out.Address), out.Amount)
			}
		}
	}

	return nil
}
