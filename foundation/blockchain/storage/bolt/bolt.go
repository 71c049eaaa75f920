// Package bolt implements the ability to read and write blocks to a single
// bolt database file keyed by block number.
package bolt

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dxidlabs/ledger/foundation/blockchain/database"
	bolt "go.etcd.io/bbolt"
)

// blocksBucket holds every block keyed by its big-endian block number.
var blocksBucket = []byte("blocks")

// Bolt represents the serialization implementation for reading and storing
// blocks in a bolt database. This implements the database.Storage interface.
type Bolt struct {
	db *bolt.DB
}

// New opens or creates the bolt database at the specified path.
func New(dbPath string) (*Bolt, error) {
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db %s: %w", dbPath, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(blocksBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Bolt{db: db}, nil
}

// Close releases the database file.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// Write stores the block under its block number.
func (b *Bolt) Write(blockData database.BlockData) error {
	data, err := json.Marshal(blockData)
	if err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(blocksBucket).Put(key(blockData.Header.Height), data)
	})
}

// GetBlock locates and returns the contents of the specified block by number.
func (b *Bolt) GetBlock(num uint64) (database.BlockData, error) {
	var blockData database.BlockData

	err := b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(blocksBucket).Get(key(num))
		if data == nil {
			return fmt.Errorf("block %d: %w", num, database.ErrNotFound)
		}

		// The slice is only valid inside the transaction.
		if err := json.Unmarshal(data, &blockData); err != nil {
			return fmt.Errorf("decoding block %d: %w", num, err)
		}

		return nil
	})
	if err != nil {
		return database.BlockData{}, err
	}

	return blockData, nil
}

// ForEach returns an iterator to walk through all the blocks
// starting with block number 1.
func (b *Bolt) ForEach() database.Iterator {
	return &boltIterator{storage: b}
}

// Reset drops every stored block.
func (b *Bolt) Reset() error {
	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(blocksBucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}

		_, err := tx.CreateBucket(blocksBucket)
		return err
	})
}

// key encodes the block number so keys sort in block order.
func key(num uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, num)
}

// =============================================================================

// boltIterator represents the iteration implementation for walking
// through and reading blocks. This implements the database Iterator
// interface.
type boltIterator struct {
	storage *Bolt  // Access to the bolt storage API.
	current uint64 // Current block number being iterated over.
	eoc     bool   // Represents the iterator is at the end of the chain.
}

// Next retrieves the next block.
func (bi *boltIterator) Next() (database.BlockData, error) {
	if bi.eoc {
		return database.BlockData{}, errors.New("end of chain")
	}

	bi.current++
	blockData, err := bi.storage.GetBlock(bi.current)
	if errors.Is(err, database.ErrNotFound) {
		bi.eoc = true
	}

	return blockData, err
}

// Done returns the end of chain value.
func (bi *boltIterator) Done() bool {
	return bi.eoc
}
