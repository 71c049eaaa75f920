package worker_test

import (
	"testing"
	"time"

	"github.com/dxidlabs/ledger/foundation/blockchain/database"
	"github.com/dxidlabs/ledger/foundation/blockchain/genesis"
	"github.com/dxidlabs/ledger/foundation/blockchain/signature"
	"github.com/dxidlabs/ledger/foundation/blockchain/state"
	"github.com/dxidlabs/ledger/foundation/blockchain/storage/memory"
	"github.com/dxidlabs/ledger/foundation/blockchain/worker"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Mining(t *testing.T) {
	crypto := signature.ED25519()

	miner, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("Should be able to generate a key: %s", err)
	}
	payee, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("Should be able to generate a key: %s", err)
	}

	storage, err := memory.New()
	if err != nil {
		t.Fatalf("Should be able to open memory storage: %s", err)
	}

	gen := genesis.Genesis{
		Date:          time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		ChainID:       1,
		TransPerBlock: 10,
		Difficulty:    1,
		Economics: database.TokenEconomics{
			MaxSupply:  1_000_000,
			BaseReward: 100,
		},
		Validator: miner.Address(),
		Stakes:    map[database.Address]uint64{miner.Address(): 10},
		Balances:  map[database.Address]uint64{miner.Address(): 1_000},
	}

	ev := func(v string, args ...any) { t.Logf(v, args...) }

	st, err := state.New(state.Config{
		Beneficiary:    miner.Address(),
		Host:           "localhost:9080",
		Genesis:        gen,
		Crypto:         crypto,
		Storage:        storage,
		SelectStrategy: "fifo",
		EvHandler:      ev,
	})
	if err != nil {
		t.Fatalf("Should be able to start the node: %s", err)
	}

	t.Log("Given the need to mine submitted transactions in the background.")
	{
		w := worker.Run(st, ev)
		defer st.Shutdown()

		if st.Worker != w {
			t.Fatalf("\t%s\tShould register the worker with the state.", failed)
		}
		t.Logf("\t%s\tShould register the worker with the state.", success)

		outs := st.QueryOutputs(miner.Address())
		if len(outs) != 1 {
			t.Fatalf("\t%s\tShould find the genesis output, got %d.", failed, len(outs))
		}

		in := database.TxInput{
			PrevTx:      outs[0].PrevTx,
			OutputIndex: outs[0].OutputIndex,
			PublicKey:   miner.PublicKey,
		}
		out := database.TxOutput{Address: payee.Address(), Amount: 999}

		tx, err := database.NewTx([]database.TxInput{in}, []database.TxOutput{out}, 1, 1, "")
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct a tx: %s", failed, err)
		}
		if err := tx.Sign(crypto, 0, miner.SecretKey); err != nil {
			t.Fatalf("\t%s\tShould be able to sign a tx: %s", failed, err)
		}

		if err := st.UpsertWalletTransaction(tx); err != nil {
			t.Fatalf("\t%s\tShould be able to submit the tx: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to submit the tx.", success)

		deadline := time.Now().Add(30 * time.Second)
		for st.RetrieveLatestBlock().Header.Height == 0 {
			if time.Now().After(deadline) {
				t.Fatalf("\t%s\tShould mine a block in the background.", failed)
			}
			time.Sleep(10 * time.Millisecond)
		}
		t.Logf("\t%s\tShould mine a block in the background.", success)

		if got := st.QueryBalance(payee.Address()).Spendable; got != 999 {
			t.Fatalf("\t%s\tShould pay the payee 999, got %d.", failed, got)
		}
		t.Logf("\t%s\tShould pay the payee 999.", success)
	}
}

func Test_MiningWaitsForStake(t *testing.T) {
	crypto := signature.ED25519()

	miner, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("Should be able to generate a key: %s", err)
	}
	payee, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("Should be able to generate a key: %s", err)
	}

	storage, err := memory.New()
	if err != nil {
		t.Fatalf("Should be able to open memory storage: %s", err)
	}

	gen := genesis.Genesis{
		Date:          time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		ChainID:       1,
		TransPerBlock: 10,
		Difficulty:    1,
		Economics: database.TokenEconomics{
			MaxSupply:  1_000_000,
			BaseReward: 100,
		},
		Validator: payee.Address(),
		Stakes:    map[database.Address]uint64{payee.Address(): 10},
		Balances:  map[database.Address]uint64{miner.Address(): 1_000},
	}

	ev := func(v string, args ...any) { t.Logf(v, args...) }

	st, err := state.New(state.Config{
		Beneficiary:    miner.Address(),
		Host:           "localhost:9080",
		Genesis:        gen,
		Crypto:         crypto,
		Storage:        storage,
		SelectStrategy: "fifo",
		EvHandler:      ev,
	})
	if err != nil {
		t.Fatalf("Should be able to start the node: %s", err)
	}

	t.Log("Given a beneficiary with no stake and a pending transaction.")
	{
		worker.Run(st, ev)
		defer st.Shutdown()

		outs := st.QueryOutputs(miner.Address())
		if len(outs) != 1 {
			t.Fatalf("\t%s\tShould find the genesis output, got %d.", failed, len(outs))
		}

		in := database.TxInput{
			PrevTx:      outs[0].PrevTx,
			OutputIndex: outs[0].OutputIndex,
			PublicKey:   miner.PublicKey,
		}
		out := database.TxOutput{Address: payee.Address(), Amount: 999}

		tx, err := database.NewTx([]database.TxInput{in}, []database.TxOutput{out}, 1, 1, "")
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct a tx: %s", failed, err)
		}
		if err := tx.Sign(crypto, 0, miner.SecretKey); err != nil {
			t.Fatalf("\t%s\tShould be able to sign a tx: %s", failed, err)
		}

		if err := st.UpsertWalletTransaction(tx); err != nil {
			t.Fatalf("\t%s\tShould be able to submit the tx: %s", failed, err)
		}

		time.Sleep(200 * time.Millisecond)

		if h := st.RetrieveLatestBlock().Header.Height; h != 0 {
			t.Fatalf("\t%s\tShould hold mining while unstaked, got height %d.", failed, h)
		}
		if n := st.QueryMempoolLength(); n != 1 {
			t.Fatalf("\t%s\tShould keep the tx in the mempool, got %d.", failed, n)
		}
		t.Logf("\t%s\tShould hold mining while unstaked.", success)

		st.Stake(miner.Address(), 5)

		deadline := time.Now().Add(30 * time.Second)
		for st.RetrieveLatestBlock().Header.Height == 0 {
			if time.Now().After(deadline) {
				t.Fatalf("\t%s\tShould mine once the beneficiary is staked.", failed)
			}
			time.Sleep(10 * time.Millisecond)
		}
		t.Logf("\t%s\tShould mine once the beneficiary is staked.", success)

		if got := st.RetrieveLatestBlock().Header.StakeWeight; got != 5 {
			t.Fatalf("\t%s\tShould record the stake weight 5, got %d.", failed, got)
		}
		t.Logf("\t%s\tShould record the stake weight 5.", success)
	}
}
