// Package cmd contains the wallet app.
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dxidlabs/ledger/foundation/blockchain/signature"
	"github.com/dxidlabs/ledger/foundation/nameservice"
	"github.com/spf13/cobra"
)

var (
	accountName string
	accountPath string
	scheme      string
	url         string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Simple wallet for the ledger",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&accountName, "account", "a", "private", "Name of the account key file.")
	rootCmd.PersistentFlags().StringVarP(&accountPath, "account-path", "p", "zblock/accounts/", "Path to the directory with the account key files.")
	rootCmd.PersistentFlags().StringVarP(&scheme, "scheme", "s", signature.SchemeED25519, "Crypto scheme of the network.")
	rootCmd.PersistentFlags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
}

func getKeyPath() string {
	name := accountName
	if !strings.HasSuffix(name, nameservice.KeyExt) {
		name += nameservice.KeyExt
	}
	return filepath.Join(accountPath, name)
}

// loadAccount loads the secret key of the selected account and derives its
// key pair with the selected scheme.
func loadAccount() (signature.Provider, signature.KeyPair, error) {
	provider, err := signature.Retrieve(scheme)
	if err != nil {
		return nil, signature.KeyPair{}, err
	}

	secretKey, err := signature.LoadKey(getKeyPath())
	if err != nil {
		return nil, signature.KeyPair{}, err
	}

	publicKey, err := provider.PublicKey(secretKey)
	if err != nil {
		return nil, signature.KeyPair{}, err
	}

	kp := signature.KeyPair{
		PublicKey: publicKey,
		SecretKey: secretKey,
	}

	return provider, kp, nil
}

// =============================================================================

var client = http.Client{
	Timeout: 10 * time.Second,
}

// call sends a request to the node and decodes the response.
func call(method string, path string, body io.Reader, dataRecv any) error {
	req, err := http.NewRequest(method, url+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var er struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil || er.Error == "" {
			return fmt.Errorf("node responded %s", resp.Status)
		}
		return errors.New(er.Error)
	}

	if dataRecv != nil {
		return json.NewDecoder(resp.Body).Decode(dataRecv)
	}

	return nil
}
