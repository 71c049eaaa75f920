package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/dxidlabs/ledger/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

// generateCmd represents the generate command.
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate new key pair",
	Run: func(cmd *cobra.Command, args []string) {
		provider, err := signature.Retrieve(scheme)
		if err != nil {
			log.Fatal(err)
		}

		kp, err := provider.GenerateKey()
		if err != nil {
			log.Fatal(err)
		}

		if err := os.MkdirAll(accountPath, 0755); err != nil {
			log.Fatal(err)
		}

		path := getKeyPath()
		if _, err := os.Stat(path); err == nil {
			log.Fatalf("key file %s already exists", path)
		}

		if err := signature.SaveKey(path, kp.SecretKey); err != nil {
			log.Fatal(err)
		}

		fmt.Println(kp.Address())
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
}
