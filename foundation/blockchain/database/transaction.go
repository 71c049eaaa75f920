package database

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"lukechampine.com/blake3"
)

// TxInput references a prior output being spent along with the proof that
// the spender owns it.
type TxInput struct {
	PrevTx      Hash          `json:"prev_tx"`      // Hash of the transaction that created the output.
	OutputIndex uint32        `json:"output_index"` // Index of the output inside that transaction.
	Signature   hexutil.Bytes `json:"signature"`    // Signature over the signing message for this input.
	PublicKey   hexutil.Bytes `json:"public_key"`   // Public key the owning address was derived from.
}

// TxOutput represents a spendable unit of value.
type TxOutput struct {
	Address Address `json:"address"`
	Amount  uint64  `json:"amount"`
}

// =============================================================================

// Tx represents a transfer of value from a set of prior outputs to a new set
// of outputs. The content hash of the transaction is its identity.
type Tx struct {
	Inputs  []TxInput  `json:"inputs"`
	Outputs []TxOutput `json:"outputs"`
	Fee     uint64     `json:"fee"`
	Nonce   uint64     `json:"nonce"`
	Memo    string     `json:"memo,omitempty"`
}

// NewTx constructs a new unsigned transaction.
func NewTx(inputs []TxInput, outputs []TxOutput, fee uint64, nonce uint64, memo string) (Tx, error) {
	if len(inputs) == 0 && len(outputs) == 0 {
		return Tx{}, errors.New("transaction must have inputs or outputs")
	}

	tx := Tx{
		Inputs:  inputs,
		Outputs: outputs,
		Fee:     fee,
		Nonce:   nonce,
		Memo:    memo,
	}

	return tx, nil
}

// IsEmpty reports whether the transaction has no inputs and no outputs.
func (tx Tx) IsEmpty() bool {
	return len(tx.Inputs) == 0 && len(tx.Outputs) == 0
}

// TxHash returns the identity of the transaction, the blake3 digest of the
// canonical encoding of the whole transaction.
func (tx Tx) TxHash() Hash {
	return hashJSON(tx)
}

// SigHash returns the digest that input signatures commit to. It is the hash
// of the transaction with every input signature blanked.
func (tx Tx) SigHash() Hash {
	stripped := tx
	stripped.Inputs = make([]TxInput, len(tx.Inputs))
	for i, in := range tx.Inputs {
		in.Signature = nil
		stripped.Inputs[i] = in
	}

	return hashJSON(stripped)
}

// Sign uses the specified secret key to sign the input at the specified
// index. The public key for the input must already be set.
func (tx *Tx) Sign(crypto Crypto, index int, secretKey []byte) error {
	if index < 0 || index >= len(tx.Inputs) {
		return fmt.Errorf("input index %d out of range", index)
	}

	in := tx.Inputs[index]
	msg := SigningMessage(in.PrevTx, in.OutputIndex, tx.SigHash())

	sig, err := crypto.SignMessage(secretKey, msg)
	if err != nil {
		return err
	}

	tx.Inputs[index].Signature = sig
	return nil
}

// TotalOutput sums the output amounts. The boolean is false on overflow.
func (tx Tx) TotalOutput() (uint64, bool) {
	var total uint64
	for _, out := range tx.Outputs {
		sum, ok := AddUint64(total, out.Amount)
		if !ok {
			return 0, false
		}
		total = sum
	}

	return total, true
}

// Hash implements the merkle Hashable interface for providing a hash
// of a transaction.
func (tx Tx) Hash() ([]byte, error) {
	h := tx.TxHash()
	return h[:], nil
}

// Equals implements the merkle Hashable interface for providing an equality
// check between two transactions. Transactions are equal when their content
// hashes match.
func (tx Tx) Equals(otherTx Tx) bool {
	return tx.TxHash() == otherTx.TxHash()
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s:in[%d]:out[%d]:fee[%d]", tx.TxHash(), len(tx.Inputs), len(tx.Outputs), tx.Fee)
}

// =============================================================================

// SigningMessage constructs the message signed by the owner of a spent
// output: previous tx hash, output index as little-endian u32, and the
// signature hash of the spending transaction.
func SigningMessage(prevTx Hash, outputIndex uint32, sigHash Hash) []byte {
	msg := make([]byte, 0, HashLength+4+HashLength)
	msg = append(msg, prevTx[:]...)
	msg = binary.LittleEndian.AppendUint32(msg, outputIndex)
	msg = append(msg, sigHash[:]...)

	return msg
}

// AddUint64 adds two amounts and reports false when the sum overflows.
func AddUint64(a uint64, b uint64) (uint64, bool) {
	sum := a + b
	return sum, sum >= a
}

// hashJSON returns the blake3 digest of the JSON encoding of the value.
func hashJSON(value any) Hash {
	data, err := json.Marshal(value)
	if err != nil {
		return ZeroHash
	}

	return blake3.Sum256(data)
}
