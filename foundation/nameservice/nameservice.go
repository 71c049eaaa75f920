// Package nameservice reads the zblock/accounts folder and creates a name
// service lookup for the known accounts.
package nameservice

import (
	"fmt"
	"io/fs"
	"maps"
	"path/filepath"
	"strings"

	"github.com/dxidlabs/ledger/foundation/blockchain/database"
	"github.com/dxidlabs/ledger/foundation/blockchain/signature"
)

// KeyExt is the file extension for secret key files.
const KeyExt = ".key"

// NameService maintains a map of addresses for name lookup.
type NameService struct {
	accounts map[database.Address]string
	names    map[string]database.Address
}

// New constructs a Name Service with the accounts found under root. Each key
// file is named after its account and addresses are derived with the
// specified provider.
func New(root string, provider signature.Provider) (*NameService, error) {
	ns := NameService{
		accounts: make(map[database.Address]string),
		names:    make(map[string]database.Address),
	}

	fn := func(fileName string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if d.IsDir() || filepath.Ext(fileName) != KeyExt {
			return nil
		}

		secretKey, err := signature.LoadKey(fileName)
		if err != nil {
			return err
		}

		publicKey, err := provider.PublicKey(secretKey)
		if err != nil {
			return fmt.Errorf("key file %s: %w", fileName, err)
		}

		addr, err := provider.AddressFromPublicKey(publicKey)
		if err != nil {
			return fmt.Errorf("key file %s: %w", fileName, err)
		}

		name := strings.TrimSuffix(filepath.Base(fileName), KeyExt)
		ns.accounts[addr] = name
		ns.names[name] = addr

		return nil
	}

	if err := filepath.WalkDir(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified address.
func (ns *NameService) Lookup(addr database.Address) string {
	name, exists := ns.accounts[addr]
	if !exists {
		return addr.String()
	}
	return name
}

// Address resolves an account name or a hex address into an address.
func (ns *NameService) Address(nameOrHex string) (database.Address, error) {
	if addr, exists := ns.names[nameOrHex]; exists {
		return addr, nil
	}

	addr, err := database.ToAddress(nameOrHex)
	if err != nil {
		return database.Address{}, fmt.Errorf("unknown account %q", nameOrHex)
	}

	return addr, nil
}

// Copy returns a copy of the map of names and addresses.
func (ns *NameService) Copy() map[database.Address]string {
	return maps.Clone(ns.accounts)
}
