package signature

import (
	"errors"
	"fmt"

	"github.com/dxidlabs/ledger/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/crypto"
	"lukechampine.com/blake3"
)

// secp256k1Provider implements a Provider using the go-ethereum secp256k1
// support. Messages are hashed with blake3 before signing, signatures are
// the 64 byte [R|S] form, and public keys are 33 byte compressed points.
type secp256k1Provider struct{}

// Secp256k1 constructs the secp256k1 provider.
func Secp256k1() Provider {
	return secp256k1Provider{}
}

// Scheme returns the name of the signature scheme.
func (secp256k1Provider) Scheme() string {
	return SchemeSecp256k1
}

// GenerateKey produces a new key pair.
func (p secp256k1Provider) GenerateKey() (KeyPair, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return KeyPair{}, err
	}

	kp := KeyPair{
		PublicKey: crypto.CompressPubkey(&privateKey.PublicKey),
		SecretKey: crypto.FromECDSA(privateKey),
	}

	return kp, nil
}

// PublicKey derives the compressed public key for the secret key.
func (secp256k1Provider) PublicKey(secretKey []byte) ([]byte, error) {
	privateKey, err := crypto.ToECDSA(secretKey)
	if err != nil {
		return nil, err
	}

	return crypto.CompressPubkey(&privateKey.PublicKey), nil
}

// AddressFromPublicKey derives the address for the compressed public key.
func (secp256k1Provider) AddressFromPublicKey(publicKey []byte) (database.Address, error) {
	if _, err := crypto.DecompressPubkey(publicKey); err != nil {
		return database.Address{}, fmt.Errorf("bad secp256k1 public key: %w", err)
	}

	return Address(publicKey), nil
}

// VerifySignature checks the [R|S] signature of the message.
func (secp256k1Provider) VerifySignature(publicKey []byte, message []byte, sig []byte) (bool, error) {
	if _, err := crypto.DecompressPubkey(publicKey); err != nil {
		return false, fmt.Errorf("bad secp256k1 public key: %w", err)
	}

	if len(sig) != crypto.RecoveryIDOffset {
		return false, fmt.Errorf("bad secp256k1 signature length %d", len(sig))
	}

	digest := blake3.Sum256(message)
	return crypto.VerifySignature(publicKey, digest[:], sig), nil
}

// SignMessage signs the blake3 digest of the message.
func (secp256k1Provider) SignMessage(secretKey []byte, message []byte) ([]byte, error) {
	privateKey, err := crypto.ToECDSA(secretKey)
	if err != nil {
		return nil, err
	}

	digest := blake3.Sum256(message)
	sig, err := crypto.Sign(digest[:], privateKey)
	if err != nil {
		return nil, err
	}

	if len(sig) != crypto.SignatureLength {
		return nil, errors.New("unexpected signature length")
	}

	// Drop the recovery id, the public key travels with the input.
	return sig[:crypto.RecoveryIDOffset], nil
}

// HashBlockHeader returns the digest for the header.
func (secp256k1Provider) HashBlockHeader(header database.BlockHeader) database.Hash {
	return HashHeader(header)
}
