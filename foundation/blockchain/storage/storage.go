// Package storage selects the block storage backend for a node.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dxidlabs/ledger/foundation/blockchain/database"
	"github.com/dxidlabs/ledger/foundation/blockchain/storage/bolt"
	"github.com/dxidlabs/ledger/foundation/blockchain/storage/disk"
	"github.com/dxidlabs/ledger/foundation/blockchain/storage/memory"
)

// Set of supported storage backends.
const (
	KindMemory = "memory"
	KindDisk   = "disk"
	KindBolt   = "bolt"
)

// Open constructs the storage backend of the specified kind. For disk the
// path is the directory holding the block files, for bolt it is the
// directory holding the blocks.db file.
func Open(kind string, path string) (database.Storage, error) {
	switch kind {
	case KindMemory:
		return memory.New()

	case KindDisk:
		return disk.New(path)

	case KindBolt:
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, err
		}
		return bolt.New(filepath.Join(path, "blocks.db"))
	}

	return nil, fmt.Errorf("unknown storage kind %q", kind)
}
