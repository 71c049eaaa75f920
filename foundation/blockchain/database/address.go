package database

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// HashLength is the size in bytes of every digest used by the ledger.
const HashLength = 32

// =============================================================================

// Address represents the identity of a value holder. It is the 32 byte digest
// of a public key and must only be produced by a Crypto implementation.
type Address [HashLength]byte

// ZeroAddress represents an address that was never derived.
var ZeroAddress Address

// ToAddress converts a hex-encoded string into an address. The string must
// carry the 0x prefix and represent exactly 32 bytes.
func ToAddress(hex string) (Address, error) {
	var a Address
	if err := decodeFixed(hex, a[:]); err != nil {
		return Address{}, fmt.Errorf("invalid address format: %w", err)
	}

	return a, nil
}

// String implements the fmt.Stringer interface.
func (a Address) String() string {
	return hexutil.Encode(a[:])
}

// IsZero reports whether this address is the zero address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Compare provides an ordering of addresses by their raw bytes.
func (a Address) Compare(b Address) int {
	return bytes.Compare(a[:], b[:])
}

// MarshalText implements the encoding.TextMarshaler interface.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (a *Address) UnmarshalText(text []byte) error {
	v, err := ToAddress(string(text))
	if err != nil {
		return err
	}

	*a = v
	return nil
}

// =============================================================================

// Hash represents a 32 byte digest such as a transaction or header hash.
type Hash [HashLength]byte

// ZeroHash represents a hash that is all zeros.
var ZeroHash Hash

// ToHash converts a hex-encoded string into a hash.
func ToHash(hex string) (Hash, error) {
	var h Hash
	if err := decodeFixed(hex, h[:]); err != nil {
		return Hash{}, fmt.Errorf("invalid hash format: %w", err)
	}

	return h, nil
}

// BytesToHash copies the specified bytes into a hash. The bytes must be
// exactly 32 bytes long.
func BytesToHash(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashLength {
		return Hash{}, fmt.Errorf("invalid hash length, got %d, exp %d", len(b), HashLength)
	}

	copy(h[:], b)
	return h, nil
}

// String implements the fmt.Stringer interface.
func (h Hash) String() string {
	return hexutil.Encode(h[:])
}

// IsZero reports whether this hash is all zeros.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// MarshalText implements the encoding.TextMarshaler interface.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (h *Hash) UnmarshalText(text []byte) error {
	v, err := ToHash(string(text))
	if err != nil {
		return err
	}

	*h = v
	return nil
}

// =============================================================================

// decodeFixed decodes the hex string into dst and requires an exact fit.
func decodeFixed(hex string, dst []byte) error {
	b, err := hexutil.Decode(hex)
	if err != nil {
		return err
	}

	if len(b) != len(dst) {
		return fmt.Errorf("wrong length, got %d, exp %d", len(b), len(dst))
	}

	copy(dst, b)
	return nil
}
