// Package commands contains the functionality for the admin tool.
package commands

import (
	"fmt"

	"github.com/dxidlabs/ledger/foundation/blockchain/state"
	"github.com/dxidlabs/ledger/foundation/nameservice"
)

// Balances prints the current set of balances, optionally for one account
// by name or hex address.
func Balances(account string, ns *nameservice.NameService, st *state.State) error {
	latest := st.RetrieveLatestBlock()
	fmt.Printf("LatestBlock: %d  Hash: %s\n\n", latest.Header.Height, latest.PowHash)

	if account != "" {
		addr, err := ns.Address(account)
		if err != nil {
			return err
		}

		printBalance(ns, st.QueryBalance(addr))
		return nil
	}

	for _, bal := range st.QueryBalances() {
		printBalance(ns, bal)
	}

	return nil
}

// Supply prints the issuance counters.
func Supply(st *state.State) {
	sup := st.QuerySupply()
	fmt.Printf("Height: %d  TotalIssued: %d  IssuedRewards: %d  MaxSupply: %d\n",
		sup.Height, sup.TotalIssued, sup.IssuedRewards, sup.MaxSupply)
}

func printBalance(ns *nameservice.NameService, bal state.Balance) {
	fmt.Printf("Account: %s  Name: %s  Balance: %d  Spendable: %d  Stake: %d\n",
		bal.Address, ns.Lookup(bal.Address), bal.Balance, bal.Spendable, bal.Stake)
}
