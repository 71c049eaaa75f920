// This program is a wallet for building, signing, and submitting ledger
// transactions to a node.
package main

import "github.com/dxidlabs/ledger/app/tooling/wallet/cmd"

func main() {
	cmd.Execute()
}
