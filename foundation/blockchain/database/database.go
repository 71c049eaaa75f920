// Package database defines the ledger data model: addresses, transactions,
// blocks, chain state, and token economics. It also provides access to the
// storage collaborator that persists blocks.
package database

import (
	"errors"
	"sync"
)

// ErrNotFound is returned by storage when a block does not exist.
var ErrNotFound = errors.New("block not found")

// Storage interface represents the behavior required to be implemented by any
// package providing support for reading and writing the blockchain. Blocks
// are stored from height 1, the genesis block is rebuilt from the genesis
// file. GetBlock returns an error wrapping ErrNotFound for a missing block.
type Storage interface {
	Write(blockData BlockData) error
	GetBlock(num uint64) (BlockData, error)
	ForEach() Iterator
	Close() error
	Reset() error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over the blocks. Next returns an error
// and Done reports true once the end of the chain is reached.
type Iterator interface {
	Next() (BlockData, error)
	Done() bool
}

// =============================================================================

// DatabaseIterator walks the stored blocks converting them into blocks.
type DatabaseIterator struct {
	iterator Iterator
}

// Next retrieves the next block from storage.
func (di *DatabaseIterator) Next() (Block, error) {
	blockData, err := di.iterator.Next()
	if err != nil {
		return Block{}, err
	}

	return ToBlock(blockData)
}

// Done returns the end of chain value.
func (di *DatabaseIterator) Done() bool {
	return di.iterator.Done()
}

// =============================================================================

// Database manages access to the stored blocks and tracks the latest block
// that was written.
type Database struct {
	mu          sync.RWMutex
	latestBlock Block
	storage     Storage
}

// New constructs a database over the specified storage.
func New(storage Storage) *Database {
	return &Database{
		storage: storage,
	}
}

// Close closes the underlying storage.
func (db *Database) Close() error {
	return db.storage.Close()
}

// Reset clears the stored blocks and the latest block.
func (db *Database) Reset() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.latestBlock = Block{}
	return db.storage.Reset()
}

// UpdateLatestBlock provides safe access to update the latest block.
func (db *Database) UpdateLatestBlock(block Block) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.latestBlock = block
}

// LatestBlock returns the latest block.
func (db *Database) LatestBlock() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.latestBlock
}

// Write adds a new block to the chain.
func (db *Database) Write(block Block) error {
	return db.storage.Write(NewBlockData(block))
}

// ForEach returns an iterator to walk through all the blocks
// starting with block number 1.
func (db *Database) ForEach() DatabaseIterator {
	return DatabaseIterator{iterator: db.storage.ForEach()}
}

// GetBlock searches the blockchain to locate and return the
// contents of the specified block by number.
func (db *Database) GetBlock(num uint64) (Block, error) {
	blockData, err := db.storage.GetBlock(num)
	if err != nil {
		return Block{}, err
	}

	return ToBlock(blockData)
}
