package database

// Crypto represents the cryptographic capability the ledger depends on for
// deriving addresses, checking signatures, and hashing block headers. Every
// node in a network must use an implementation that produces identical
// results for the same inputs.
type Crypto interface {
	AddressFromPublicKey(publicKey []byte) (Address, error)
	VerifySignature(publicKey []byte, message []byte, sig []byte) (bool, error)
	SignMessage(secretKey []byte, message []byte) ([]byte, error)
	HashBlockHeader(header BlockHeader) Hash
}
