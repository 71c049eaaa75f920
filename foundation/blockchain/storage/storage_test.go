package storage_test

import (
	"errors"
	"testing"

	"github.com/dxidlabs/ledger/foundation/blockchain/database"
	"github.com/dxidlabs/ledger/foundation/blockchain/storage"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func block(t *testing.T, height uint64) database.Block {
	txs := []database.Tx{
		{
			Outputs: []database.TxOutput{{Address: database.Address{byte(height)}, Amount: height * 10}},
			Nonce:   height,
		},
	}

	root, err := database.MerkleRoot(txs)
	if err != nil {
		t.Fatalf("Should be able to compute the merkle root: %s", err)
	}

	blk, err := database.NewBlock(database.BlockHeader{Height: height, MerkleRoot: root}, txs)
	if err != nil {
		t.Fatalf("Should be able to construct block %d: %s", height, err)
	}
	blk.PowHash = database.Hash{byte(height), 0xAA}

	return blk
}

func TestStorage(t *testing.T) {
	kinds := []string{storage.KindMemory, storage.KindDisk, storage.KindBolt}

	t.Log("Given the need to read and write blocks.")
	{
		for testID, kind := range kinds {
			t.Logf("\tTest %d:\tWhen handling %s storage.", testID, kind)
			{
				f := func(t *testing.T) {
					strg, err := storage.Open(kind, t.TempDir())
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to open the storage: %s", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to open the storage.", success, testID)

					db := database.New(strg)
					defer db.Close()

					for h := uint64(1); h <= 3; h++ {
						if err := db.Write(block(t, h)); err != nil {
							t.Fatalf("\t%s\tTest %d:\tShould be able to write block %d: %s", failed, testID, h, err)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould be able to write three blocks.", success, testID)

					got, err := db.GetBlock(2)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to read block 2: %s", failed, testID, err)
					}

					exp := block(t, 2)
					if got.PowHash != exp.PowHash || got.Header != exp.Header {
						t.Fatalf("\t%s\tTest %d:\tShould get block 2 back unchanged.", failed, testID)
					}

					root, err := got.ComputedMerkleRoot()
					if err != nil || root != exp.Header.MerkleRoot {
						t.Fatalf("\t%s\tTest %d:\tShould rebuild the same merkle tree.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get block 2 back unchanged.", success, testID)

					if _, err := db.GetBlock(4); !errors.Is(err, database.ErrNotFound) {
						t.Fatalf("\t%s\tTest %d:\tShould get not found for block 4, got %v.", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould get not found for block 4.", success, testID)

					var heights []uint64
					iter := db.ForEach()
					for blk, err := iter.Next(); !iter.Done(); blk, err = iter.Next() {
						if err != nil {
							t.Fatalf("\t%s\tTest %d:\tShould be able to iterate: %s", failed, testID, err)
						}
						heights = append(heights, blk.Header.Height)
					}

					if len(heights) != 3 || heights[0] != 1 || heights[2] != 3 {
						t.Fatalf("\t%s\tTest %d:\tShould iterate blocks 1 to 3, got %v.", failed, testID, heights)
					}
					t.Logf("\t%s\tTest %d:\tShould iterate blocks 1 to 3.", success, testID)

					if err := db.Reset(); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to reset: %s", failed, testID, err)
					}

					if _, err := db.GetBlock(1); !errors.Is(err, database.ErrNotFound) {
						t.Fatalf("\t%s\tTest %d:\tShould have no blocks after a reset.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould have no blocks after a reset.", success, testID)
				}

				t.Run(kind, f)
			}
		}
	}

	t.Log("Given the need to reject an unknown backend.")
	{
		if _, err := storage.Open("postgres", t.TempDir()); err == nil {
			t.Fatalf("\t%s\tShould reject an unknown storage kind.", failed)
		}
		t.Logf("\t%s\tShould reject an unknown storage kind.", success)
	}
}

func TestBoltReopen(t *testing.T) {
	t.Log("Given the need to keep blocks in a bolt file across restarts.")
	{
		dir := t.TempDir()

		strg, err := storage.Open(storage.KindBolt, dir)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to open the storage: %s", failed, err)
		}

		db := database.New(strg)
		for h := uint64(1); h <= 2; h++ {
			if err := db.Write(block(t, h)); err != nil {
				t.Fatalf("\t%s\tShould be able to write block %d: %s", failed, h, err)
			}
		}
		if err := db.Close(); err != nil {
			t.Fatalf("\t%s\tShould be able to close the storage: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to write and close.", success)

		strg, err = storage.Open(storage.KindBolt, dir)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to reopen the storage: %s", failed, err)
		}

		db = database.New(strg)
		defer db.Close()

		got, err := db.GetBlock(2)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to read block 2 after reopening: %s", failed, err)
		}
		if got.PowHash != block(t, 2).PowHash {
			t.Fatalf("\t%s\tShould get block 2 back unchanged after reopening.", failed)
		}
		t.Logf("\t%s\tShould get block 2 back unchanged after reopening.", success)
	}
}
