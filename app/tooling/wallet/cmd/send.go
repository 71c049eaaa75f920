package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"slices"
	"time"

	"github.com/dxidlabs/ledger/foundation/blockchain/database"
	"github.com/dxidlabs/ledger/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

var (
	to     string
	amount uint64
	fee    uint64
	memo   string
)

// ErrInsufficientFunds is returned when the unspent outputs of the account
// can't cover the amount and fee.
var ErrInsufficientFunds = errors.New("insufficient funds")

// sendCmd represents the send command.
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send transaction",
	Run: func(cmd *cobra.Command, args []string) {
		provider, kp, err := loadAccount()
		if err != nil {
			log.Fatal(err)
		}

		toAddr, err := database.ToAddress(to)
		if err != nil {
			log.Fatal(err)
		}

		from := kp.Address()

		var outs []database.OutputRef
		if err := call(http.MethodGet, "/v1/outputs/list/"+from.String(), nil, &outs); err != nil {
			log.Fatal(err)
		}

		tx, err := buildTx(provider, kp, outs, toAddr, amount, fee, uint64(time.Now().UnixNano()), memo)
		if err != nil {
			log.Fatal(err)
		}

		data, err := json.Marshal(tx)
		if err != nil {
			log.Fatal(err)
		}

		var resp struct {
			Status string        `json:"status"`
			Hash   database.Hash `json:"hash"`
		}
		if err := call(http.MethodPost, "/v1/tx/submit", bytes.NewReader(data), &resp); err != nil {
			log.Fatal(err)
		}

		fmt.Println(resp.Status)
		fmt.Println(resp.Hash)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Address to send to.")
	sendCmd.Flags().Uint64VarP(&amount, "amount", "v", 0, "Amount to send.")
	sendCmd.Flags().Uint64VarP(&fee, "fee", "f", 0, "Fee paid to the block proposer.")
	sendCmd.Flags().StringVarP(&memo, "memo", "m", "", "Memo to attach to the transaction.")
	sendCmd.MarkFlagRequired("to")
	sendCmd.MarkFlagRequired("amount")
}

// =============================================================================

// selectOutputs picks the largest outputs first until the target is covered
// and returns them with their total.
func selectOutputs(outs []database.OutputRef, target uint64) ([]database.OutputRef, uint64, error) {
	sorted := slices.Clone(outs)
	slices.SortStableFunc(sorted, func(a, b database.OutputRef) int {
		switch {
		case a.Amount > b.Amount:
			return -1
		case a.Amount < b.Amount:
			return 1
		}
		return 0
	})

	var picked []database.OutputRef
	var total uint64
	for _, out := range sorted {
		if total >= target && len(picked) > 0 {
			break
		}

		sum, ok := database.AddUint64(total, out.Amount)
		if !ok {
			break
		}

		total = sum
		picked = append(picked, out)
	}

	if total < target || len(picked) == 0 {
		return nil, 0, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, total, target)
	}

	return picked, total, nil
}

// buildTx constructs and signs a transaction paying the amount to the
// address from the unspent outputs of the key pair. Any surplus above the
// amount and fee is sent back to the key pair's address as change.
func buildTx(provider signature.Provider, kp signature.KeyPair, outs []database.OutputRef, toAddr database.Address, amount uint64, fee uint64, nonce uint64, memo string) (database.Tx, error) {
	if amount == 0 {
		return database.Tx{}, errors.New("amount must be greater than zero")
	}

	target, ok := database.AddUint64(amount, fee)
	if !ok {
		return database.Tx{}, errors.New("amount plus fee overflows")
	}

	picked, total, err := selectOutputs(outs, target)
	if err != nil {
		return database.Tx{}, err
	}

	inputs := make([]database.TxInput, len(picked))
	for i, out := range picked {
		inputs[i] = database.TxInput{
			PrevTx:      out.PrevTx,
			OutputIndex: out.OutputIndex,
			PublicKey:   kp.PublicKey,
		}
	}

	outputs := []database.TxOutput{
		{Address: toAddr, Amount: amount},
	}
	if change := total - target; change > 0 {
		from, err := provider.AddressFromPublicKey(kp.PublicKey)
		if err != nil {
			return database.Tx{}, err
		}
		outputs = append(outputs, database.TxOutput{Address: from, Amount: change})
	}

	tx, err := database.NewTx(inputs, outputs, fee, nonce, memo)
	if err != nil {
		return database.Tx{}, err
	}

	for i := range tx.Inputs {
		if err := tx.Sign(provider, i, kp.SecretKey); err != nil {
			return database.Tx{}, fmt.Errorf("signing input %d: %w", i, err)
		}
	}

	return tx, nil
}
