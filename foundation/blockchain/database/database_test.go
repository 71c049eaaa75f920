package database_test

import (
	"encoding/json"
	"testing"

	"github.com/dxidlabs/ledger/foundation/blockchain/database"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

func Test_AddressText(t *testing.T) {
	t.Log("Given the need to encode addresses as hex text.")
	{
		var a database.Address
		a[0], a[31] = 0xAB, 0x01

		data, err := json.Marshal(a)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to marshal the address: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to marshal the address.", success)

		exp := `"0xab00000000000000000000000000000000000000000000000000000000000001"`
		if string(data) != exp {
			t.Logf("\t%s\tgot: %s", failed, data)
			t.Logf("\t%s\texp: %s", failed, exp)
			t.Fatalf("\t%s\tShould get the 0x prefixed hex form.", failed)
		}
		t.Logf("\t%s\tShould get the 0x prefixed hex form.", success)

		var got database.Address
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("\t%s\tShould be able to unmarshal the address: %v", failed, err)
		}
		if got != a {
			t.Fatalf("\t%s\tShould get the same address back.", failed)
		}
		t.Logf("\t%s\tShould get the same address back.", success)

		if _, err := database.ToAddress("0xabcd"); err == nil {
			t.Fatalf("\t%s\tShould reject an address of the wrong length.", failed)
		}
		t.Logf("\t%s\tShould reject an address of the wrong length.", success)
	}
}

func Test_TxHashing(t *testing.T) {
	t.Log("Given the need to identify transactions by content.")
	{
		tx := database.Tx{
			Inputs: []database.TxInput{
				{PrevTx: database.Hash{1}, OutputIndex: 0, PublicKey: []byte{1, 2, 3}},
			},
			Outputs: []database.TxOutput{
				{Address: database.Address{2}, Amount: 10},
			},
			Fee:   1,
			Nonce: 7,
		}

		h1 := tx.TxHash()
		s1 := tx.SigHash()

		signed := tx
		signed.Inputs = []database.TxInput{tx.Inputs[0]}
		signed.Inputs[0].Signature = []byte{9, 9, 9}

		if signed.TxHash() == h1 {
			t.Fatalf("\t%s\tShould get a new identity once the signature is set.", failed)
		}
		t.Logf("\t%s\tShould get a new identity once the signature is set.", success)

		if signed.SigHash() != s1 {
			t.Fatalf("\t%s\tShould keep the same signature hash.", failed)
		}
		t.Logf("\t%s\tShould keep the same signature hash.", success)

		other := tx
		other.Nonce = 8
		if other.TxHash() == h1 {
			t.Fatalf("\t%s\tShould get a different hash for a different nonce.", failed)
		}
		t.Logf("\t%s\tShould get a different hash for a different nonce.", success)

		data, err := json.Marshal(signed)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to marshal the transaction: %v", failed, err)
		}

		var decoded database.Tx
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("\t%s\tShould be able to unmarshal the transaction: %v", failed, err)
		}
		if decoded.TxHash() != signed.TxHash() {
			t.Fatalf("\t%s\tShould keep the same hash after a round trip.", failed)
		}
		t.Logf("\t%s\tShould keep the same hash after a round trip.", success)
	}
}

func Test_SigningMessage(t *testing.T) {
	t.Log("Given the need to build the message an input owner signs.")
	{
		msg := database.SigningMessage(database.Hash{0xAA}, 0x01020304, database.Hash{0xBB})

		if len(msg) != 68 {
			t.Fatalf("\t%s\tShould get a 68 byte message, got %d.", failed, len(msg))
		}
		t.Logf("\t%s\tShould get a 68 byte message.", success)

		if msg[0] != 0xAA || msg[32] != 0x04 || msg[35] != 0x01 || msg[36] != 0xBB {
			t.Fatalf("\t%s\tShould lay out prev tx, little endian index, and sig hash: %x", failed, msg)
		}
		t.Logf("\t%s\tShould lay out prev tx, little endian index, and sig hash.", success)
	}
}

func Test_MerkleRoot(t *testing.T) {
	t.Log("Given the need to commit to the transactions of a block.")
	{
		root, err := database.MerkleRoot(nil)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to compute an empty root: %v", failed, err)
		}
		if root != database.ZeroHash {
			t.Fatalf("\t%s\tShould get the zero hash for no transactions: %s", failed, root)
		}
		t.Logf("\t%s\tShould get the zero hash for no transactions.", success)

		tx := database.Tx{Outputs: []database.TxOutput{{Address: database.Address{1}, Amount: 10}}}
		root, err = database.MerkleRoot([]database.Tx{tx})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to compute a single root: %v", failed, err)
		}
		if root != tx.TxHash() {
			t.Fatalf("\t%s\tShould get the transaction hash for a single transaction.", failed)
		}
		t.Logf("\t%s\tShould get the transaction hash for a single transaction.", success)
	}
}

func Test_BlockData(t *testing.T) {
	t.Log("Given the need to serialize blocks for storage.")
	{
		txs := []database.Tx{
			{Outputs: []database.TxOutput{{Address: database.Address{1}, Amount: 10}}},
			{Outputs: []database.TxOutput{{Address: database.Address{2}, Amount: 20}}},
			{Outputs: []database.TxOutput{{Address: database.Address{3}, Amount: 30}}},
		}

		root, err := database.MerkleRoot(txs)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to compute the root: %v", failed, err)
		}

		block, err := database.NewBlock(database.BlockHeader{Height: 4, MerkleRoot: root}, txs)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct the block: %v", failed, err)
		}
		block.PowHash = database.Hash{7}

		data, err := json.Marshal(database.NewBlockData(block))
		if err != nil {
			t.Fatalf("\t%s\tShould be able to marshal the block: %v", failed, err)
		}

		var blockData database.BlockData
		if err := json.Unmarshal(data, &blockData); err != nil {
			t.Fatalf("\t%s\tShould be able to unmarshal the block: %v", failed, err)
		}

		got, err := database.ToBlock(blockData)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to convert back to a block: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to convert back to a block.", success)

		if got.PowHash != block.PowHash || got.Header != block.Header {
			t.Fatalf("\t%s\tShould keep the header and pow hash.", failed)
		}
		t.Logf("\t%s\tShould keep the header and pow hash.", success)

		computed, err := got.ComputedMerkleRoot()
		if err != nil || computed != root {
			t.Fatalf("\t%s\tShould recompute the same merkle root: %v", failed, err)
		}
		t.Logf("\t%s\tShould recompute the same merkle root.", success)

		if len(got.Transactions()) != 3 {
			t.Fatalf("\t%s\tShould get all three transactions back.", failed)
		}
		t.Logf("\t%s\tShould get all three transactions back.", success)
	}
}

func Test_ChainState(t *testing.T) {
	t.Log("Given the need to snapshot and query chain state.")
	{
		owner := database.Address{1}

		cs := database.NewChainState()
		cs.Balances[owner] = 50
		cs.PendingOutputs[database.Hash{1}] = []database.TxOutput{{Address: owner, Amount: 20}, {Address: database.Address{2}, Amount: 5}}
		cs.PendingOutputs[database.Hash{2}] = []database.TxOutput{{Address: owner, Amount: 0}, {Address: owner, Amount: 30}}

		clone := cs.Clone()
		clone.Balances[owner] = 0
		clone.PendingOutputs[database.Hash{1}][0].Amount = 0
		clone.Commit(9)

		if cs.Balance(owner) != 50 || cs.PendingOutputs[database.Hash{1}][0].Amount != 20 || cs.Height != 0 {
			t.Fatalf("\t%s\tShould not change the original through the clone.", failed)
		}
		t.Logf("\t%s\tShould not change the original through the clone.", success)

		if s := cs.Spendable(owner); s != 50 {
			t.Fatalf("\t%s\tShould get 50 spendable, got %d.", failed, s)
		}
		t.Logf("\t%s\tShould get 50 spendable.", success)

		refs := cs.Outputs(owner)
		if len(refs) != 2 {
			t.Fatalf("\t%s\tShould get two unspent outputs, got %d.", failed, len(refs))
		}
		if refs[0].PrevTx != (database.Hash{1}) || refs[1].PrevTx != (database.Hash{2}) || refs[1].OutputIndex != 1 {
			t.Fatalf("\t%s\tShould get the outputs in hash and index order: %+v", failed, refs)
		}
		t.Logf("\t%s\tShould get the outputs in hash and index order.", success)
	}
}

func Test_Reward(t *testing.T) {
	te := database.TokenEconomics{
		MaxSupply:   1_000_000,
		BaseReward:  1_000,
		Schedule:    database.HalvingSchedule{TargetInterval: 10, SupplyThreshold: 100_000},
		TreasuryBps: 500,
	}

	type table struct {
		name   string
		height uint64
		issued uint64
		reward uint64
	}

	tt := []table{
		{name: "start", height: 0, issued: 0, reward: 1_000},
		{name: "before-interval", height: 9, issued: 0, reward: 1_000},
		{name: "first-interval", height: 10, issued: 0, reward: 500},
		{name: "third-interval", height: 30, issued: 0, reward: 125},
		{name: "supply-wins", height: 10, issued: 300_000, reward: 125},
		{name: "height-wins", height: 40, issued: 100_000, reward: 62},
		{name: "past-width", height: 10 * 64, issued: 0, reward: 0},
		{name: "far-past-width", height: 10 * 1_000, issued: 0, reward: 0},
	}

	t.Log("Given the need to calculate the block reward.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling height %d with %d issued.", testID, tst.height, tst.issued)
			{
				f := func(t *testing.T) {
					if r := te.Reward(tst.height, tst.issued); r != tst.reward {
						t.Fatalf("\t%s\tTest %d:\tShould get a reward of %d, got %d.", failed, testID, tst.reward, r)
					}
					t.Logf("\t%s\tTest %d:\tShould get a reward of %d.", success, testID, tst.reward)
				}

				t.Run(tst.name, f)
			}
		}
	}

	t.Log("Given the need for the reward to never increase.")
	{
		prev := te.Reward(0, 0)
		for h := uint64(1); h < 1_000; h++ {
			r := te.Reward(h, 0)
			if r > prev {
				t.Fatalf("\t%s\tShould not increase with height, height %d.", failed, h)
			}
			prev = r
		}
		t.Logf("\t%s\tShould not increase with height.", success)

		prev = te.Reward(0, 0)
		for issued := uint64(0); issued < 10_000_000; issued += 7_919 {
			r := te.Reward(0, issued)
			if r > prev {
				t.Fatalf("\t%s\tShould not increase with issued supply, issued %d.", failed, issued)
			}
			prev = r
		}
		t.Logf("\t%s\tShould not increase with issued supply.", success)
	}

	t.Log("Given the need to split the reward with the treasury.")
	{
		treasury, miner := te.TreasuryCut(1_000)
		if treasury != 50 || miner != 950 {
			t.Fatalf("\t%s\tShould get 50/950, got %d/%d.", failed, treasury, miner)
		}
		t.Logf("\t%s\tShould get 50/950.", success)

		treasury, miner = te.TreasuryCut(^uint64(0))
		if treasury+miner != ^uint64(0) {
			t.Fatalf("\t%s\tShould split the largest reward without overflow.", failed)
		}
		t.Logf("\t%s\tShould split the largest reward without overflow.", success)
	}
}
