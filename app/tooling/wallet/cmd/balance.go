package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

// balanceCmd represents the balance command.
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance.",
	Run: func(cmd *cobra.Command, args []string) {
		provider, kp, err := loadAccount()
		if err != nil {
			log.Fatal(err)
		}

		addr, err := provider.AddressFromPublicKey(kp.PublicKey)
		if err != nil {
			log.Fatal(err)
		}

		var balances struct {
			Height   uint64 `json:"height"`
			Balances []struct {
				Balance   uint64 `json:"balance"`
				Spendable uint64 `json:"spendable"`
				Stake     uint64 `json:"stake"`
			} `json:"balances"`
		}
		if err := call(http.MethodGet, "/v1/balances/list/"+addr.String(), nil, &balances); err != nil {
			log.Fatal(err)
		}

		fmt.Println("For Account:", addr)
		fmt.Println("Height:     ", balances.Height)
		if len(balances.Balances) > 0 {
			bal := balances.Balances[0]
			fmt.Println("Balance:    ", bal.Balance)
			fmt.Println("Spendable:  ", bal.Spendable)
			fmt.Println("Stake:      ", bal.Stake)
		}
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}
