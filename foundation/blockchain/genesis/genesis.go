// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/dxidlabs/ledger/foundation/blockchain/database"
)

// Genesis represents the genesis file.
type Genesis struct {
	Date          time.Time                   `json:"date"`
	ChainID       uint16                      `json:"chain_id"`        // The chain id represents an unique id for this running instance.
	TransPerBlock uint16                      `json:"trans_per_block"` // The maximum number of transactions that can be in a block.
	Difficulty    uint64                      `json:"difficulty"`      // How difficult it needs to be to solve the work problem.
	Economics     database.TokenEconomics     `json:"economics"`       // Issuance policy for the life of the chain.
	Validator     database.Address            `json:"validator"`       // Receives the reward for the genesis block.
	Stakes        map[database.Address]uint64 `json:"stakes"`          // Stake ledger the consensus engine starts with.
	Balances      map[database.Address]uint64 `json:"balances"`        // Allocations made by the genesis block.
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	err = json.Unmarshal(content, &genesis)
	if err != nil {
		return Genesis{}, err
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, fmt.Errorf("genesis file %s: %w", path, err)
	}

	return genesis, nil
}

// Validate checks the genesis values can start a chain.
func (g Genesis) Validate() error {
	if err := g.Economics.Validate(); err != nil {
		return err
	}

	if g.TransPerBlock == 0 {
		return errors.New("trans per block must be greater than zero")
	}

	var total uint64
	for addr, amount := range g.Balances {
		sum, ok := database.AddUint64(total, amount)
		if !ok {
			return fmt.Errorf("allocation to %s overflows the total", addr)
		}
		total = sum
	}

	if total > g.Economics.MaxSupply {
		return fmt.Errorf("allocations %d exceed max supply %d", total, g.Economics.MaxSupply)
	}

	return nil
}

// Allocation returns the transaction that credits the genesis balances.
// Outputs are ordered by address so every node builds the same transaction.
// The boolean is false when there is nothing to allocate.
func (g Genesis) Allocation() (database.Tx, bool) {
	addrs := make([]database.Address, 0, len(g.Balances))
	for addr, amount := range g.Balances {
		if amount == 0 {
			continue
		}
		addrs = append(addrs, addr)
	}

	if len(addrs) == 0 {
		return database.Tx{}, false
	}

	slices.SortFunc(addrs, func(a, b database.Address) int {
		return a.Compare(b)
	})

	outputs := make([]database.TxOutput, len(addrs))
	for i, addr := range addrs {
		outputs[i] = database.TxOutput{Address: addr, Amount: g.Balances[addr]}
	}

	tx := database.Tx{
		Outputs: outputs,
		Memo:    fmt.Sprintf("genesis:%d", g.ChainID),
	}

	return tx, true
}

// Block constructs the height zero block. It carries no proof of work, the
// pow hash is simply the digest of its header.
func (g Genesis) Block(crypto database.Crypto) (database.Block, error) {
	var txs []database.Tx
	if tx, ok := g.Allocation(); ok {
		txs = append(txs, tx)
	}

	root, err := database.MerkleRoot(txs)
	if err != nil {
		return database.Block{}, err
	}

	header := database.BlockHeader{
		MerkleRoot:  root,
		Height:      0,
		TimeStamp:   uint64(g.Date.UTC().Unix()),
		Difficulty:  g.Difficulty,
		Validator:   g.Validator,
		StakeWeight: g.Stakes[g.Validator],
	}

	block, err := database.NewBlock(header, txs)
	if err != nil {
		return database.Block{}, err
	}
	block.PowHash = crypto.HashBlockHeader(header)

	return block, nil
}
