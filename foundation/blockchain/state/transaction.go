package state

import (
	"github.com/dxidlabs/ledger/foundation/blockchain/database"
	"github.com/dxidlabs/ledger/foundation/blockchain/execution"
)

// UpsertWalletTransaction accepts a transaction from a wallet for inclusion.
func (s *State) UpsertWalletTransaction(tx database.Tx) error {
	if err := s.validateTransaction(tx); err != nil {
		return err
	}

	if _, err := s.mempool.Upsert(tx); err != nil {
		return err
	}

	s.Worker.SignalShareTx(tx)
	s.Worker.SignalStartMining()

	return nil
}

// UpsertNodeTransaction accepts a transaction from a node for inclusion.
func (s *State) UpsertNodeTransaction(tx database.Tx) error {
	if err := s.validateTransaction(tx); err != nil {
		return err
	}

	if _, err := s.mempool.Upsert(tx); err != nil {
		return err
	}

	s.Worker.SignalStartMining()

	return nil
}

// =============================================================================

// validateTransaction dry runs the transaction against a copy of the chain
// state at the next height. Transactions that spend outputs created by other
// transactions still in the mempool can't be checked this way and are
// accepted when their inputs reference an unknown transaction.
func (s *State) validateTransaction(tx database.Tx) error {
	if tx.IsEmpty() {
		return execution.ErrEmptyTransaction
	}

	s.mu.RLock()
	scratch := s.chain.Clone()
	s.mu.RUnlock()

	for _, in := range tx.Inputs {
		if _, exists := scratch.PendingOutputs[in.PrevTx]; !exists && s.inMempool(in.PrevTx) {
			return nil
		}
	}

	return s.execution.ApplyTransaction(scratch, scratch.Height+1, tx, make(execution.SpentSet))
}

// inMempool reports whether a transaction with the specified hash is waiting
// in the mempool.
func (s *State) inMempool(hash database.Hash) bool {
	for _, tx := range s.mempool.Copy() {
		if tx.TxHash() == hash {
			return true
		}
	}

	return false
}
