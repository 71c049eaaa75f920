// Package signature provides the cryptographic providers used by the ledger
// for deriving addresses, signing and verifying messages, and hashing block
// headers.
package signature

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dxidlabs/ledger/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"lukechampine.com/blake3"
)

// Set of supported signature schemes.
const (
	SchemeED25519    = "ed25519"
	SchemeDilithium3 = "dilithium3"
	SchemeSecp256k1  = "secp256k1"
)

// Provider represents the full set of behavior a signature scheme provides.
// It satisfies the database.Crypto capability and adds key management.
type Provider interface {
	database.Crypto
	Scheme() string
	GenerateKey() (KeyPair, error)
	PublicKey(secretKey []byte) ([]byte, error)
}

// KeyPair represents a secret key and the public key derived from it.
type KeyPair struct {
	PublicKey []byte
	SecretKey []byte
}

// Address derives the address for the key pair.
func (kp KeyPair) Address() database.Address {
	return Address(kp.PublicKey)
}

// Retrieve returns the provider for the specified scheme.
func Retrieve(scheme string) (Provider, error) {
	switch strings.ToLower(scheme) {
	case SchemeED25519, "":
		return ED25519(), nil
	case SchemeDilithium3:
		return Dilithium3(), nil
	case SchemeSecp256k1:
		return Secp256k1(), nil
	}

	return nil, fmt.Errorf("unknown signature scheme %q", scheme)
}

// =============================================================================

// Address returns the blake3 digest of the public key. Every provider derives
// addresses this way.
func Address(publicKey []byte) database.Address {
	return blake3.Sum256(publicKey)
}

// HashHeader returns the blake3 digest of the JSON encoding of the header.
func HashHeader(header database.BlockHeader) database.Hash {
	data, err := json.Marshal(header)
	if err != nil {
		return database.ZeroHash
	}

	return blake3.Sum256(data)
}

// =============================================================================

// LoadKey reads a hex encoded secret key from the specified file.
func LoadKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	sk, err := hexutil.Decode(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("decoding key file %s: %w", path, err)
	}

	return sk, nil
}

// SaveKey writes the secret key hex encoded to the specified file.
func SaveKey(path string, secretKey []byte) error {
	return os.WriteFile(path, []byte(hexutil.Encode(secretKey)), 0600)
}
