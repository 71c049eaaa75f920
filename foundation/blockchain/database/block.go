package database

import (
	"fmt"

	"github.com/dxidlabs/ledger/foundation/blockchain/merkle"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	PrevBlockHash Hash    `json:"prev_block_hash"` // Header hash of the previous block in the chain.
	MerkleRoot    Hash    `json:"merkle_root"`     // Merkle root of the transactions in this block.
	Height        uint64  `json:"height"`          // Block number in the chain.
	TimeStamp     uint64  `json:"timestamp"`       // Unix seconds when the block was proposed.
	Difficulty    uint64  `json:"difficulty"`      // Larger values produce a smaller PoW target.
	Nonce         uint64  `json:"nonce"`           // Value identified to solve the PoW puzzle.
	Validator     Address `json:"validator"`       // Address receiving the block reward.
	StakeWeight   uint64  `json:"stake_weight"`    // Validator's stake at proposal time.
}

// Block represents a group of transactions batched together.
type Block struct {
	Header       BlockHeader
	MerkleTree   *merkle.Tree[Tx]
	PowHash      Hash
	ValidatorSig []byte
}

// NewBlock constructs a block from a header and its transactions. The header
// merkle root is left as provided.
func NewBlock(header BlockHeader, txs []Tx) (Block, error) {
	tree, err := merkle.NewTree(txs)
	if err != nil {
		return Block{}, err
	}

	b := Block{
		Header:     header,
		MerkleTree: tree,
	}

	return b, nil
}

// Transactions returns the transactions held by the block in order.
func (b Block) Transactions() []Tx {
	if b.MerkleTree == nil {
		return nil
	}

	return b.MerkleTree.Values()
}

// Hash returns the unique hash for the block using the header digest
// provided by the crypto implementation.
func (b Block) Hash(crypto Crypto) Hash {
	return crypto.HashBlockHeader(b.Header)
}

// MerkleRoot computes the merkle root of the specified transactions. An
// empty set produces the zero hash and a single transaction produces its
// own hash.
func MerkleRoot(txs []Tx) (Hash, error) {
	tree, err := merkle.NewTree(txs)
	if err != nil {
		return ZeroHash, err
	}

	return BytesToHash(tree.MerkleRoot)
}

// ComputedMerkleRoot recomputes the merkle root from the transactions held
// by the block.
func (b Block) ComputedMerkleRoot() (Hash, error) {
	return MerkleRoot(b.Transactions())
}

// String implements the fmt.Stringer interface for logging.
func (b Block) String() string {
	return fmt.Sprintf("blk[%d]:txs[%d]:pow[%s]", b.Header.Height, len(b.Transactions()), b.PowHash)
}

// =============================================================================

// BlockData represents what can be serialized to disk and over the network.
type BlockData struct {
	Hash         Hash          `json:"hash"`
	Header       BlockHeader   `json:"block"`
	Trans        []Tx          `json:"trans"`
	ValidatorSig hexutil.Bytes `json:"validator_signature"`
}

// NewBlockData constructs block data from a block.
func NewBlockData(block Block) BlockData {
	blockData := BlockData{
		Hash:         block.PowHash,
		Header:       block.Header,
		Trans:        block.Transactions(),
		ValidatorSig: block.ValidatorSig,
	}

	return blockData
}

// ToBlock converts a storage block into a database block.
func ToBlock(blockData BlockData) (Block, error) {
	block, err := NewBlock(blockData.Header, blockData.Trans)
	if err != nil {
		return Block{}, err
	}

	block.PowHash = blockData.Hash
	block.ValidatorSig = blockData.ValidatorSig

	return block, nil
}
