package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dxidlabs/ledger/foundation/blockchain/consensus"
	"github.com/dxidlabs/ledger/foundation/blockchain/state"
)

// miningOperations handles mining.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case <-w.startMining:
			if !w.isShutdown() {
				w.runMiningOperation()
			}
		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation solves the proof of work for the best transactions in
// the mempool and commits the block. It only runs while the beneficiary holds
// stake, since a block from an unstaked validator fails the stake gate.
func (w *Worker) runMiningOperation() {
	w.evHandler("worker: runMiningOperation: MINING: started")
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	if !w.readyToMine() {
		return
	}

	// Transactions that arrived while mining need another round.
	defer w.signalIfPending()

	// A cancel left over from a block processed while idle is stale.
	select {
	case <-w.cancelMining:
		w.evHandler("worker: runMiningOperation: MINING: drained cancel channel")
	default:
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wait chan struct{}
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		defer cancel()

		select {
		case wait = <-w.cancelMining:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: requested")
		case <-ctx.Done():
		}
	}()

	go func() {
		defer wg.Done()
		defer cancel()

		w.mineAndPropose(ctx)
	}()

	wg.Wait()

	// ProcessProposedBlock holds this G until its block is committed so the
	// next round builds on top of it.
	if wait != nil {
		w.evHandler("worker: runMiningOperation: MINING: termination signal: waiting")
		<-wait
		w.evHandler("worker: runMiningOperation: MINING: termination signal: received")
	}
}

// readyToMine checks there is work to do and the beneficiary can pass the
// stake gate.
func (w *Worker) readyToMine() bool {
	if length := w.state.QueryMempoolLength(); length == 0 {
		w.evHandler("worker: runMiningOperation: MINING: no transactions to mine: Txs[%d]", length)
		return false
	}

	beneficiary := w.state.RetrieveBeneficiary()
	if stake := w.state.QueryBalance(beneficiary).Stake; stake == 0 {
		w.evHandler("worker: runMiningOperation: MINING: HOLD: beneficiary[%s] has no stake", beneficiary)
		return false
	}

	return true
}

// mineAndPropose mines one block and sends it to the known peers.
func (w *Worker) mineAndPropose(ctx context.Context) {
	t := time.Now()
	block, err := w.state.MineNewBlock(ctx)
	w.evHandler("worker: runMiningOperation: MINING: mining duration[%v]", time.Since(t))

	if err != nil {
		switch {
		case errors.Is(err, state.ErrNoTransactions):
			w.evHandler("worker: runMiningOperation: MINING: WARNING: no transactions in mempool")
		case errors.Is(err, consensus.ErrValidatorNotStaked):
			w.evHandler("worker: runMiningOperation: MINING: WARNING: stake withdrawn while mining")
		case ctx.Err() != nil:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: complete")
		default:
			w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", err)
		}
		return
	}

	w.evHandler("worker: runMiningOperation: MINING: mined: blk[%d]: txs[%d]: stake[%d]", block.Header.Height, len(block.Transactions()), block.Header.StakeWeight)

	// Peers that miss the block pick it up on their next sync.
	if err := w.state.NetSendBlockToPeers(block); err != nil {
		w.evHandler("worker: runMiningOperation: MINING: NetSendBlockToPeers: WARNING %s", err)
	}
}

// signalIfPending starts another round when the mempool still holds
// transactions.
func (w *Worker) signalIfPending() {
	if length := w.state.QueryMempoolLength(); length > 0 {
		w.evHandler("worker: runMiningOperation: MINING: signal new mining operation: Txs[%d]", length)
		w.SignalStartMining()
	}
}
