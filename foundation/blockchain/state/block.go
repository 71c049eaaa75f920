package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"

	"github.com/dxidlabs/ledger/foundation/blockchain/database"
	"github.com/dxidlabs/ledger/foundation/blockchain/execution"
)

// Set of errors returned when a block can't be added to the chain.
var (
	ErrNoTransactions    = errors.New("no transactions in mempool")
	ErrPrevBlockMismatch = errors.New("previous block hash mismatch")
	ErrPowHashMismatch   = errors.New("pow hash does not match header")
)

// =============================================================================

// MineNewBlock attempts to create a new block with a proper hash that can become
// the next block in the chain.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: check mempool count")

	// Are there enough transactions in the pool.
	if s.mempool.Count() == 0 {
		return database.Block{}, ErrNoTransactions
	}

	s.evHandler("state: MineNewBlock: MINING: select transactions")

	// Pick the best transactions from the mempool and drop the ones that
	// can no longer be applied.
	trans := s.applicable(s.mempool.PickBest(int(s.genesis.TransPerBlock)))
	if len(trans) == 0 {
		return database.Block{}, ErrNoTransactions
	}

	s.evHandler("state: MineNewBlock: MINING: perform POW: txs[%d]", len(trans))

	// Attempt to create a new block by solving the POW puzzle. This can be cancelled.
	block, err := s.consensus.ProposeBlock(ctx, s.db.LatestBlock().Header, trans, s.beneficiary)
	if err != nil {
		return database.Block{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	s.evHandler("state: MineNewBlock: MINING: validate and update database")

	// Validate the block and then update the blockchain database.
	if err := s.validateUpdateDatabase(block); err != nil {
		return database.Block{}, err
	}

	return block, nil
}

// ProcessProposedBlock takes a block received from a peer, validates it and
// if that passes, adds the block to the local blockchain.
func (s *State) ProcessProposedBlock(block database.Block) error {
	s.evHandler("state: ProcessProposedBlock: started: prevBlk[%s]: newBlk[%s]: numTrans[%d]", block.Header.PrevBlockHash, block.PowHash, len(block.Transactions()))
	defer s.evHandler("state: ProcessProposedBlock: completed: newBlk[%s]", block.PowHash)

	// If the runMiningOperation function is being executed it needs to stop
	// immediately. The G executing runMiningOperation will not return from the
	// function until done is called. That allows this function to complete
	// its state changes before a new mining operation takes place.
	done := s.Worker.SignalCancelMining()
	defer func() {
		s.evHandler("state: ProcessProposedBlock: signal runMiningOperation to terminate")
		done()
	}()

	// Validate the block and then update the blockchain database.
	return s.validateUpdateDatabase(block)
}

// =============================================================================

// validateUpdateDatabase takes the block and validates the block against the
// consensus rules. If the block passes, then the state of the node is updated
// including adding the block to storage.
func (s *State) validateUpdateDatabase(block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evHandler("state: validateUpdateDatabase: validate block")

	if err := s.consensus.ValidateBlock(block); err != nil {
		return err
	}

	if err := s.checkLinkage(s.db.LatestBlock(), block); err != nil {
		return err
	}

	s.evHandler("state: validateUpdateDatabase: apply transactions and reward")

	// Apply against a copy so nothing changes if the block can't be written.
	next := s.chain.Clone()
	if err := s.execution.ApplyBlock(next, block); err != nil {
		return err
	}
	next.Commit(block.Header.Height)

	s.evHandler("state: validateUpdateDatabase: write to storage")

	// Write the new block to the chain in storage.
	if err := s.db.Write(block); err != nil {
		return err
	}

	s.chain = next
	s.db.UpdateLatestBlock(block)
	s.consensus.Commit(block.Header.Height)

	s.evHandler("state: validateUpdateDatabase: remove from mempool")

	for _, tx := range block.Transactions() {
		s.evHandler("state: validateUpdateDatabase: tx[%s] remove", tx)
		s.mempool.Delete(tx)
	}

	// Send an event about this new block.
	s.blockEvent(block)

	return nil
}

// checkLinkage verifies the block extends the previous block and carries the
// digest of its own header as its pow hash.
func (s *State) checkLinkage(prev database.Block, block database.Block) error {
	if exp := s.crypto.HashBlockHeader(prev.Header); block.Header.PrevBlockHash != exp {
		return fmt.Errorf("%w: got %s, exp %s", ErrPrevBlockMismatch, block.Header.PrevBlockHash, exp)
	}

	if exp := s.crypto.HashBlockHeader(block.Header); block.PowHash != exp {
		return fmt.Errorf("%w: got %s, exp %s", ErrPowHashMismatch, block.PowHash, exp)
	}

	return nil
}

// applicable dry runs the transactions in order against a copy of the chain
// state at the next height. Transactions that fail are removed from the
// mempool and left out of the result.
func (s *State) applicable(txs []database.Tx) []database.Tx {
	s.mu.RLock()
	scratch := s.chain.Clone()
	s.mu.RUnlock()

	height := scratch.Height + 1
	spent := make(execution.SpentSet)

	var valid []database.Tx
	for _, tx := range txs {

		// A failed transaction leaves its inputs in the spent set it was
		// given, so every attempt runs against its own copy.
		try := maps.Clone(spent)
		if err := s.execution.ApplyTransaction(scratch, height, tx, try); err != nil {
			s.evHandler("state: applicable: WARNING: tx[%s] dropped: %s", tx, err)
			s.mempool.Delete(tx)
			continue
		}

		spent = try
		valid = append(valid, tx)
	}

	return valid
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block) {
	blockHeaderJSON, err := json.Marshal(block.Header)
	if err != nil {
		blockHeaderJSON = fmt.Appendf(nil, "%q", err.Error())
	}

	blockTransJSON, err := json.Marshal(block.Transactions())
	if err != nil {
		blockTransJSON = fmt.Appendf(nil, "%q", err.Error())
	}

	s.evHandler(`viewer: block: {"hash":%q,"header":%s,"trans":%s}`, block.PowHash, string(blockHeaderJSON), string(blockTransJSON))
}
