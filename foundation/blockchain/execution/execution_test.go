package execution_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/dxidlabs/ledger/foundation/blockchain/database"
	"github.com/dxidlabs/ledger/foundation/blockchain/execution"
	"github.com/dxidlabs/ledger/foundation/blockchain/signature"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

var economics = database.TokenEconomics{
	MaxSupply:        210_000_000_000,
	BaseReward:       500_000,
	Schedule:         database.HalvingSchedule{TargetInterval: 10, SupplyThreshold: 1_000_000_000},
	TreasuryBps:      500,
	AllocationHeight: 0,
}

// =============================================================================

func Test_GenesisAllocation(t *testing.T) {
	t.Log("Given the need to apply a genesis block with an allocation.")
	{
		crypto := signature.ED25519()
		engine := execution.New(crypto, economics)

		alloc := database.Tx{
			Outputs: []database.TxOutput{{Address: database.Address{2}, Amount: 10}},
			Nonce:   1,
			Memo:    "genesis",
		}
		block := newBlock(t, 0, database.Address{9}, alloc)

		state := database.NewChainState()
		if err := engine.ApplyBlock(state, block); err != nil {
			t.Fatalf("\t%s\tShould be able to apply the block: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to apply the block.", success)

		if b := state.Balance(database.Address{2}); b != 10 {
			t.Fatalf("\t%s\tShould credit the allocation, got %d.", failed, b)
		}
		t.Logf("\t%s\tShould credit the allocation.", success)

		reward := engine.CurrentReward(0, 0)
		_, miner := economics.TreasuryCut(reward)
		if b := state.Balance(database.Address{9}); b != miner {
			t.Fatalf("\t%s\tShould pay the validator %d, got %d.", failed, miner, b)
		}
		t.Logf("\t%s\tShould pay the validator the reward less the treasury cut.", success)

		if state.TotalIssued != reward || state.IssuedRewards != reward {
			t.Fatalf("\t%s\tShould issue the full reward, got %d/%d.", failed, state.TotalIssued, state.IssuedRewards)
		}
		t.Logf("\t%s\tShould issue the full reward.", success)

		if err := engine.ApplyBlock(state, block); !errors.Is(err, execution.ErrUnexpectedHeight) {
			t.Fatalf("\t%s\tShould reject a second genesis block: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a second genesis block.", success)
	}
}

func Test_Spend(t *testing.T) {
	t.Log("Given the need to spend an output.")
	{
		c := newChain(t)

		tx := c.spend(t, c.alice, 0, []database.TxOutput{
			{Address: c.bob.Address(), Amount: 60},
			{Address: c.alice.Address(), Amount: 30},
		}, 10)

		if err := c.engine.ApplyBlock(c.state, newBlock(t, 1, database.Address{9}, tx)); err != nil {
			t.Fatalf("\t%s\tShould be able to apply the spend: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to apply the spend.", success)

		if b := c.state.Balance(c.bob.Address()); b != 60 {
			t.Fatalf("\t%s\tShould credit bob 60, got %d.", failed, b)
		}
		t.Logf("\t%s\tShould credit bob 60.", success)

		if b := c.state.Balance(c.alice.Address()); b != 130 {
			t.Fatalf("\t%s\tShould never debit the credited balance, got %d.", failed, b)
		}
		t.Logf("\t%s\tShould never debit the credited balance.", success)

		if s := c.state.Spendable(c.alice.Address()); s != 30 {
			t.Fatalf("\t%s\tShould leave alice 30 spendable, got %d.", failed, s)
		}
		t.Logf("\t%s\tShould leave alice 30 spendable.", success)

		if amt := c.state.PendingOutputs[c.funding][0].Amount; amt != 0 {
			t.Fatalf("\t%s\tShould zero the spent output, got %d.", failed, amt)
		}
		t.Logf("\t%s\tShould zero the spent output.", success)

		again := c.spend(t, c.alice, 0, []database.TxOutput{{Address: c.bob.Address(), Amount: 1}}, 0)
		c.state.Commit(1)
		err := c.engine.ApplyBlock(c.state, newBlock(t, 2, database.Address{9}, again))
		if !errors.Is(err, execution.ErrInsufficientInput) {
			t.Fatalf("\t%s\tShould reject spending a zeroed output: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject spending a zeroed output.", success)
	}
}

func Test_DoubleSpendInBlock(t *testing.T) {
	t.Log("Given the need to reject two spends of one output in a block.")
	{
		c := newChain(t)
		before := c.state.Clone()

		tx1 := c.spend(t, c.alice, 0, []database.TxOutput{{Address: c.bob.Address(), Amount: 50}}, 0)
		tx2 := c.spend(t, c.alice, 0, []database.TxOutput{{Address: c.carol.Address(), Amount: 50}}, 0)

		err := c.engine.ApplyBlock(c.state, newBlock(t, 1, database.Address{9}, tx1, tx2))
		if !errors.Is(err, execution.ErrDoubleSpend) {
			t.Fatalf("\t%s\tShould get a double spend error: %v", failed, err)
		}
		t.Logf("\t%s\tShould get a double spend error.", success)

		if c.state.Balance(c.bob.Address()) != 0 || c.state.Balance(c.carol.Address()) != 0 {
			t.Fatalf("\t%s\tShould not credit either transaction.", failed)
		}
		t.Logf("\t%s\tShould not credit either transaction.", success)

		if c.state.TotalIssued != before.TotalIssued || c.state.PendingOutputs[c.funding][0].Amount != 100 {
			t.Fatalf("\t%s\tShould leave the state untouched.", failed)
		}
		t.Logf("\t%s\tShould leave the state untouched.", success)
	}
}

func Test_TransactionErrors(t *testing.T) {
	type table struct {
		name  string
		build func(c *chain, t *testing.T) database.Tx
		err   error
	}

	tt := []table{
		{
			name:  "empty",
			build: func(c *chain, t *testing.T) database.Tx { return database.Tx{Nonce: 1} },
			err:   execution.ErrEmptyTransaction,
		},
		{
			name: "insufficient",
			build: func(c *chain, t *testing.T) database.Tx {
				return c.spend(t, c.alice, 0, []database.TxOutput{{Address: c.bob.Address(), Amount: 95}}, 6)
			},
			err: execution.ErrInsufficientInput,
		},
		{
			name: "not-owned",
			build: func(c *chain, t *testing.T) database.Tx {
				return c.spend(t, c.bob, 0, []database.TxOutput{{Address: c.bob.Address(), Amount: 10}}, 0)
			},
			err: execution.ErrInputNotOwned,
		},
		{
			name: "bad-signature",
			build: func(c *chain, t *testing.T) database.Tx {
				tx := c.spend(t, c.alice, 0, []database.TxOutput{{Address: c.bob.Address(), Amount: 10}}, 0)
				tx.Outputs[0].Amount = 90
				return tx
			},
			err: execution.ErrInvalidSignature,
		},
		{
			name: "missing-tx",
			build: func(c *chain, t *testing.T) database.Tx {
				c.funding = database.Hash{0xEE}
				return c.spend(t, c.alice, 0, []database.TxOutput{{Address: c.bob.Address(), Amount: 10}}, 0)
			},
			err: execution.ErrMissingPreviousTx,
		},
		{
			name: "missing-index",
			build: func(c *chain, t *testing.T) database.Tx {
				return c.spend(t, c.alice, 3, []database.TxOutput{{Address: c.bob.Address(), Amount: 10}}, 0)
			},
			err: execution.ErrMissingOutputIndex,
		},
		{
			name: "output-overflow",
			build: func(c *chain, t *testing.T) database.Tx {
				return c.spend(t, c.alice, 0, []database.TxOutput{
					{Address: c.bob.Address(), Amount: ^uint64(0)},
					{Address: c.bob.Address(), Amount: 1},
				}, 0)
			},
			err: execution.ErrOutputOverflow,
		},
		{
			name: "late-allocation",
			build: func(c *chain, t *testing.T) database.Tx {
				return database.Tx{Outputs: []database.TxOutput{{Address: c.bob.Address(), Amount: 10}}}
			},
			err: execution.ErrAllocationNotAllowed,
		},
	}

	t.Log("Given the need to reject invalid transactions.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a %s transaction.", testID, tst.name)
			{
				f := func(t *testing.T) {
					c := newChain(t)
					tx := tst.build(c, t)

					err := c.engine.ApplyBlock(c.state, newBlock(t, 1, database.Address{9}, tx))
					if !errors.Is(err, tst.err) {
						t.Fatalf("\t%s\tTest %d:\tShould get %q, got %v.", failed, testID, tst.err, err)
					}
					t.Logf("\t%s\tTest %d:\tShould get %q.", success, testID, tst.err)

					if c.state.Balance(c.bob.Address()) != 0 {
						t.Fatalf("\t%s\tTest %d:\tShould not credit any output.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould not credit any output.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_Overflows(t *testing.T) {
	const maxAmount = ^uint64(0)

	type table struct {
		name  string
		setup func(c *chain, t *testing.T) []database.Tx
		err   error
	}

	tt := []table{
		{
			name: "input",
			setup: func(c *chain, t *testing.T) []database.Tx {
				big := database.Hash{0xAB}
				c.state.PendingOutputs[big] = []database.TxOutput{
					{Address: c.alice.Address(), Amount: maxAmount},
					{Address: c.alice.Address(), Amount: 1},
				}

				tx := database.Tx{
					Inputs: []database.TxInput{
						{PrevTx: big, OutputIndex: 0, PublicKey: c.alice.PublicKey},
						{PrevTx: big, OutputIndex: 1, PublicKey: c.alice.PublicKey},
					},
					Outputs: []database.TxOutput{{Address: c.bob.Address(), Amount: 1}},
					Nonce:   1,
				}
				for i := range tx.Inputs {
					if err := tx.Sign(c.crypto, i, c.alice.SecretKey); err != nil {
						t.Fatalf("Should be able to sign the transaction: %s", err)
					}
				}

				return []database.Tx{tx}
			},
			err: execution.ErrInputOverflow,
		},
		{
			name: "output-credit",
			setup: func(c *chain, t *testing.T) []database.Tx {
				c.state.Balances[c.bob.Address()] = maxAmount
				return []database.Tx{c.spend(t, c.alice, 0, []database.TxOutput{{Address: c.bob.Address(), Amount: 5}}, 0)}
			},
			err: execution.ErrBalanceOverflow,
		},
		{
			name: "reward-credit",
			setup: func(c *chain, t *testing.T) []database.Tx {
				c.state.Balances[database.Address{9}] = maxAmount
				return nil
			},
			err: execution.ErrBalanceOverflow,
		},
		{
			name: "issued-rewards",
			setup: func(c *chain, t *testing.T) []database.Tx {
				c.state.IssuedRewards = maxAmount
				return nil
			},
			err: execution.ErrIssuanceOverflow,
		},
	}

	t.Log("Given the need to reject amounts that overflow.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a %s overflow.", testID, tst.name)
			{
				f := func(t *testing.T) {
					c := newChain(t)
					txs := tst.setup(c, t)
					before := c.state.Clone()

					err := c.engine.ApplyBlock(c.state, newBlock(t, 1, database.Address{9}, txs...))
					if !errors.Is(err, tst.err) {
						t.Fatalf("\t%s\tTest %d:\tShould get %q, got %v.", failed, testID, tst.err, err)
					}
					t.Logf("\t%s\tTest %d:\tShould get %q.", success, testID, tst.err)

					if !reflect.DeepEqual(before, c.state) {
						t.Fatalf("\t%s\tTest %d:\tShould leave every balance and output untouched.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould leave every balance and output untouched.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_DuplicateTransaction(t *testing.T) {
	t.Log("Given the need to reject a transaction whose hash is already recorded.")
	{
		c := newChain(t)
		alloc := database.Tx{Outputs: []database.TxOutput{{Address: c.alice.Address(), Amount: 100}}}
		before := c.state.Clone()

		err := c.engine.ApplyTransaction(c.state, 0, alloc, make(execution.SpentSet))
		if !errors.Is(err, execution.ErrDuplicateTransaction) {
			t.Fatalf("\t%s\tShould get a duplicate transaction error: %v", failed, err)
		}
		t.Logf("\t%s\tShould get a duplicate transaction error.", success)

		if !reflect.DeepEqual(before, c.state) {
			t.Fatalf("\t%s\tShould not credit the allocation twice.", failed)
		}
		t.Logf("\t%s\tShould not credit the allocation twice.", success)
	}
}

func Test_BlockErrors(t *testing.T) {
	t.Log("Given the need to reject invalid blocks.")
	{
		c := newChain(t)

		block := newBlock(t, 1, database.Address{9})
		block.Header.MerkleRoot = database.Hash{1}
		if err := c.engine.ApplyBlock(c.state, block); !errors.Is(err, execution.ErrInvalidMerkleRoot) {
			t.Fatalf("\t%s\tShould reject a bad merkle root: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a bad merkle root.", success)

		if err := c.engine.ApplyBlock(c.state, newBlock(t, 5, database.Address{9})); !errors.Is(err, execution.ErrUnexpectedHeight) {
			t.Fatalf("\t%s\tShould reject a height gap: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a height gap.", success)

		if err := c.engine.ApplyBlock(c.state, newBlock(t, 1, database.Address{9})); err != nil {
			t.Fatalf("\t%s\tShould accept an empty block at the next height: %v", failed, err)
		}
		t.Logf("\t%s\tShould accept an empty block at the next height.", success)
	}
}

func Test_SupplyCap(t *testing.T) {
	t.Log("Given the need to cap issued supply at the max supply.")
	{
		te := database.TokenEconomics{MaxSupply: 150, BaseReward: 100}
		engine := execution.New(signature.ED25519(), te)
		state := database.NewChainState()

		for h := uint64(1); h <= 3; h++ {
			if err := engine.ApplyBlock(state, newBlock(t, h, database.Address{9})); err != nil {
				t.Fatalf("\t%s\tShould be able to apply block %d: %v", failed, h, err)
			}
			state.Commit(h)
		}

		if state.TotalIssued != 150 {
			t.Fatalf("\t%s\tShould cap total issued at 150, got %d.", failed, state.TotalIssued)
		}
		t.Logf("\t%s\tShould cap total issued at the max supply.", success)

		if state.IssuedRewards != 300 {
			t.Fatalf("\t%s\tShould count every reward in issued rewards, got %d.", failed, state.IssuedRewards)
		}
		t.Logf("\t%s\tShould count every reward in issued rewards.", success)
	}
}

// =============================================================================

type chain struct {
	engine  *execution.Engine
	crypto  signature.Provider
	state   *database.ChainState
	alice   signature.KeyPair
	bob     signature.KeyPair
	carol   signature.KeyPair
	funding database.Hash
	nonce   uint64
}

// newChain applies a genesis block that allocates 100 to alice.
func newChain(t *testing.T) *chain {
	crypto := signature.ED25519()

	keys := make([]signature.KeyPair, 3)
	for i := range keys {
		kp, err := crypto.GenerateKey()
		if err != nil {
			t.Fatalf("Should be able to generate a key: %s", err)
		}
		keys[i] = kp
	}

	alloc := database.Tx{Outputs: []database.TxOutput{{Address: keys[0].Address(), Amount: 100}}}

	c := chain{
		engine:  execution.New(crypto, economics),
		crypto:  crypto,
		state:   database.NewChainState(),
		alice:   keys[0],
		bob:     keys[1],
		carol:   keys[2],
		funding: alloc.TxHash(),
	}

	if err := c.engine.ApplyBlock(c.state, newBlock(t, 0, database.Address{9}, alloc)); err != nil {
		t.Fatalf("Should be able to apply genesis: %s", err)
	}

	return &c
}

// spend builds a transaction signed by the key pair spending the funding
// output at the specified index.
func (c *chain) spend(t *testing.T, kp signature.KeyPair, index uint32, outputs []database.TxOutput, fee uint64) database.Tx {
	c.nonce++

	tx := database.Tx{
		Inputs:  []database.TxInput{{PrevTx: c.funding, OutputIndex: index, PublicKey: kp.PublicKey}},
		Outputs: outputs,
		Fee:     fee,
		Nonce:   c.nonce,
	}

	if err := tx.Sign(c.crypto, 0, kp.SecretKey); err != nil {
		t.Fatalf("Should be able to sign the transaction: %s", err)
	}

	return tx
}

func newBlock(t *testing.T, height uint64, validator database.Address, txs ...database.Tx) database.Block {
	root, err := database.MerkleRoot(txs)
	if err != nil {
		t.Fatalf("Should be able to compute the merkle root: %s", err)
	}

	block, err := database.NewBlock(database.BlockHeader{Height: height, MerkleRoot: root, Validator: validator}, txs)
	if err != nil {
		t.Fatalf("Should be able to construct the block: %s", err)
	}

	return block
}
