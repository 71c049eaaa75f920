package signature

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/cloudflare/circl/sign"
	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"github.com/cloudflare/circl/sign/ed25519"
	"github.com/dxidlabs/ledger/foundation/blockchain/database"
)

// circlProvider implements a Provider over a circl signature scheme. Secret
// keys are the seed the key pair is derived from.
type circlProvider struct {
	name   string
	scheme sign.Scheme
}

// ED25519 constructs the ed25519 provider.
func ED25519() Provider {
	return &circlProvider{name: SchemeED25519, scheme: ed25519.Scheme()}
}

// Dilithium3 constructs the post-quantum dilithium mode 3 provider.
func Dilithium3() Provider {
	return &circlProvider{name: SchemeDilithium3, scheme: mode3.Scheme()}
}

// Scheme returns the name of the signature scheme.
func (p *circlProvider) Scheme() string {
	return p.name
}

// GenerateKey produces a new key pair from a random seed.
func (p *circlProvider) GenerateKey() (KeyPair, error) {
	seed := make([]byte, p.scheme.SeedSize())
	if _, err := rand.Read(seed); err != nil {
		return KeyPair{}, err
	}

	pk, err := p.PublicKey(seed)
	if err != nil {
		return KeyPair{}, err
	}

	return KeyPair{PublicKey: pk, SecretKey: seed}, nil
}

// PublicKey derives the public key for the specified secret key.
func (p *circlProvider) PublicKey(secretKey []byte) ([]byte, error) {
	pub, _, err := p.derive(secretKey)
	if err != nil {
		return nil, err
	}

	return pub.MarshalBinary()
}

// AddressFromPublicKey derives the address for the public key. The key
// must be a valid encoding for the scheme.
func (p *circlProvider) AddressFromPublicKey(publicKey []byte) (database.Address, error) {
	if len(publicKey) != p.scheme.PublicKeySize() {
		return database.Address{}, fmt.Errorf("bad %s public key length %d", p.name, len(publicKey))
	}

	return Address(publicKey), nil
}

// VerifySignature checks the signature of the message. An error is returned
// when the key or signature can't be decoded.
func (p *circlProvider) VerifySignature(publicKey []byte, message []byte, sig []byte) (bool, error) {
	pub, err := p.scheme.UnmarshalBinaryPublicKey(publicKey)
	if err != nil {
		return false, fmt.Errorf("bad %s public key: %w", p.name, err)
	}

	if len(sig) != p.scheme.SignatureSize() {
		return false, fmt.Errorf("bad %s signature length %d", p.name, len(sig))
	}

	return p.scheme.Verify(pub, message, sig, nil), nil
}

// SignMessage signs the message with the secret key.
func (p *circlProvider) SignMessage(secretKey []byte, message []byte) ([]byte, error) {
	_, priv, err := p.derive(secretKey)
	if err != nil {
		return nil, err
	}

	return p.scheme.Sign(priv, message, nil), nil
}

// HashBlockHeader returns the digest for the header.
func (p *circlProvider) HashBlockHeader(header database.BlockHeader) database.Hash {
	return HashHeader(header)
}

// derive expands the seed into the key pair.
func (p *circlProvider) derive(seed []byte) (sign.PublicKey, sign.PrivateKey, error) {
	if len(seed) != p.scheme.SeedSize() {
		return nil, nil, errors.New("bad secret key length")
	}

	pub, priv := p.scheme.DeriveKey(seed)
	return pub, priv, nil
}
