// Package execution applies blocks of transactions to the chain state,
// enforcing value conservation, double-spend prevention, and the token
// issuance schedule.
package execution

import (
	"errors"
	"fmt"

	"github.com/dxidlabs/ledger/foundation/blockchain/database"
)

// Set of errors returned when a block or transaction can't be applied.
var (
	ErrInvalidMerkleRoot      = errors.New("invalid merkle root")
	ErrUnexpectedHeight       = errors.New("unexpected height")
	ErrEmptyTransaction       = errors.New("empty transaction")
	ErrDoubleSpend            = errors.New("double spend")
	ErrMissingPreviousTx      = errors.New("missing previous tx")
	ErrMissingOutputIndex     = errors.New("missing output index")
	ErrOutputIndexOutOfBounds = errors.New("output index out of bounds")
	ErrInputNotOwned          = errors.New("input not owned by signer")
	ErrInvalidSignature       = errors.New("invalid signature")
	ErrInputOverflow          = errors.New("input overflow")
	ErrOutputOverflow         = errors.New("output overflow")
	ErrInsufficientInput      = errors.New("insufficient input")
	ErrBalanceOverflow        = errors.New("balance overflow")
	ErrIssuanceOverflow       = errors.New("issuance overflow")
	ErrAllocationNotAllowed   = errors.New("allocation not allowed")
	ErrDuplicateTransaction   = errors.New("duplicate transaction")
)

// OutPoint identifies a single output of a prior transaction.
type OutPoint struct {
	PrevTx      database.Hash
	OutputIndex uint32
}

// SpentSet tracks the outputs consumed while applying one block.
type SpentSet map[OutPoint]struct{}

// =============================================================================

// Engine applies blocks to the chain state. It holds no mutable state of its
// own and is safe for concurrent use against different chain states.
type Engine struct {
	crypto    database.Crypto
	economics database.TokenEconomics
}

// New constructs an execution engine for the specified crypto capability and
// token economics.
func New(crypto database.Crypto, economics database.TokenEconomics) *Engine {
	return &Engine{
		crypto:    crypto,
		economics: economics,
	}
}

// Economics returns the token economics used by the engine.
func (e *Engine) Economics() database.TokenEconomics {
	return e.economics
}

// CurrentReward returns the block reward for the specified height given the
// supply already issued.
func (e *Engine) CurrentReward(height uint64, totalIssued uint64) uint64 {
	return e.economics.Reward(height, totalIssued)
}

// ApplyBlock applies every transaction in the block in order and then pays
// the block reward to the validator. The state is only changed when the
// whole block applies. Advancing state.Height is left to the caller.
func (e *Engine) ApplyBlock(state *database.ChainState, block database.Block) error {
	txs := block.Transactions()

	root, err := database.MerkleRoot(txs)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidMerkleRoot, err)
	}

	if root != block.Header.MerkleRoot {
		return fmt.Errorf("%w: got %s, exp %s", ErrInvalidMerkleRoot, root, block.Header.MerkleRoot)
	}

	if err := e.checkHeight(state, block.Header.Height); err != nil {
		return err
	}

	scratch := state.Clone()
	spent := make(SpentSet)

	for i, tx := range txs {
		if err := e.ApplyTransaction(scratch, block.Header.Height, tx, spent); err != nil {
			return fmt.Errorf("tx[%d]: %w", i, err)
		}
	}

	if err := e.applyReward(scratch, block.Header); err != nil {
		return err
	}

	*state = *scratch

	return nil
}

// ApplyTransaction validates the transaction against the state and, only if
// every check passes, credits its outputs, zeroes the outputs it consumes,
// and records its outputs as spendable.
func (e *Engine) ApplyTransaction(state *database.ChainState, height uint64, tx database.Tx, spent SpentSet) error {
	if tx.IsEmpty() {
		return ErrEmptyTransaction
	}

	if state.Balances == nil {
		state.Balances = make(map[database.Address]uint64)
	}
	if state.PendingOutputs == nil {
		state.PendingOutputs = make(map[database.Hash][]database.TxOutput)
	}

	txHash := tx.TxHash()
	if _, exists := state.PendingOutputs[txHash]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTransaction, txHash)
	}

	if len(tx.Inputs) == 0 {
		if height > e.economics.AllocationHeight {
			return fmt.Errorf("%w: height %d is past allocation height %d", ErrAllocationNotAllowed, height, e.economics.AllocationHeight)
		}

		if tx.Fee != 0 {
			return fmt.Errorf("%w: allocation can't carry a fee", ErrAllocationNotAllowed)
		}
	}

	// Inputs are added to the spent set as they are checked. A transaction
	// that fails leaves its entries behind, which aborts the block anyway.
	sigHash := tx.SigHash()
	var inputTotal uint64

	for i, in := range tx.Inputs {
		op := OutPoint{PrevTx: in.PrevTx, OutputIndex: in.OutputIndex}
		if _, exists := spent[op]; exists {
			return fmt.Errorf("%w: input[%d] %s:%d", ErrDoubleSpend, i, in.PrevTx, in.OutputIndex)
		}
		spent[op] = struct{}{}

		outputs, exists := state.PendingOutputs[in.PrevTx]
		if !exists {
			return fmt.Errorf("%w: input[%d] %s", ErrMissingPreviousTx, i, in.PrevTx)
		}

		if int(in.OutputIndex) >= len(outputs) {
			return fmt.Errorf("%w: %w: input[%d] index %d, outputs %d", ErrMissingOutputIndex, ErrOutputIndexOutOfBounds, i, in.OutputIndex, len(outputs))
		}
		prevOut := outputs[in.OutputIndex]

		owner, err := e.crypto.AddressFromPublicKey(in.PublicKey)
		if err != nil {
			return fmt.Errorf("%w: input[%d]: %s", ErrInputNotOwned, i, err)
		}

		if owner != prevOut.Address {
			return fmt.Errorf("%w: input[%d] signer %s, owner %s", ErrInputNotOwned, i, owner, prevOut.Address)
		}

		msg := database.SigningMessage(in.PrevTx, in.OutputIndex, sigHash)
		ok, err := e.crypto.VerifySignature(in.PublicKey, msg, in.Signature)
		if err != nil {
			return fmt.Errorf("%w: input[%d]: %s", ErrInvalidSignature, i, err)
		}

		if !ok {
			return fmt.Errorf("%w: input[%d]", ErrInvalidSignature, i)
		}

		sum, ok := database.AddUint64(inputTotal, prevOut.Amount)
		if !ok {
			return fmt.Errorf("%w: input[%d]", ErrInputOverflow, i)
		}
		inputTotal = sum
	}

	outputTotal, ok := tx.TotalOutput()
	if !ok {
		return ErrOutputOverflow
	}

	if len(tx.Inputs) > 0 {
		required, ok := database.AddUint64(outputTotal, tx.Fee)
		if !ok {
			return fmt.Errorf("%w: outputs plus fee", ErrOutputOverflow)
		}

		if inputTotal < required {
			return fmt.Errorf("%w: inputs %d, outputs %d, fee %d", ErrInsufficientInput, inputTotal, outputTotal, tx.Fee)
		}
	}

	// Check every credit before touching the balances.
	credits := make(map[database.Address]uint64, len(tx.Outputs))
	for _, out := range tx.Outputs {
		current, exists := credits[out.Address]
		if !exists {
			current = state.Balances[out.Address]
		}

		sum, ok := database.AddUint64(current, out.Amount)
		if !ok {
			return fmt.Errorf("%w: %s", ErrBalanceOverflow, out.Address)
		}
		credits[out.Address] = sum
	}

	for addr, balance := range credits {
		state.Balances[addr] = balance
	}

	for _, in := range tx.Inputs {
		state.PendingOutputs[in.PrevTx][in.OutputIndex].Amount = 0
	}

	outputs := make([]database.TxOutput, len(tx.Outputs))
	copy(outputs, tx.Outputs)
	state.PendingOutputs[txHash] = outputs

	return nil
}

// =============================================================================

// checkHeight requires the block to extend the last committed height. The
// genesis block is only accepted by an empty state.
func (e *Engine) checkHeight(state *database.ChainState, height uint64) error {
	if height == 0 {
		if state.Height != 0 || state.IssuedRewards != 0 || len(state.PendingOutputs) != 0 {
			return fmt.Errorf("%w: genesis on a state at height %d", ErrUnexpectedHeight, state.Height)
		}
		return nil
	}

	if height != state.Height+1 {
		return fmt.Errorf("%w: got %d, exp %d", ErrUnexpectedHeight, height, state.Height+1)
	}

	return nil
}

// applyReward pays the validator the reward less the treasury cut and
// updates the issuance counters. Total issued is capped at the max supply
// while issued rewards counts the full reward.
func (e *Engine) applyReward(state *database.ChainState, header database.BlockHeader) error {
	reward := e.CurrentReward(header.Height, state.TotalIssued)
	_, minerReward := e.economics.TreasuryCut(reward)

	balance, ok := database.AddUint64(state.Balances[header.Validator], minerReward)
	if !ok {
		return fmt.Errorf("%w: validator %s", ErrBalanceOverflow, header.Validator)
	}

	issuedRewards, ok := database.AddUint64(state.IssuedRewards, reward)
	if !ok {
		return ErrIssuanceOverflow
	}

	totalIssued, ok := database.AddUint64(state.TotalIssued, reward)
	if !ok || totalIssued > e.economics.MaxSupply {
		totalIssued = e.economics.MaxSupply
	}

	state.Balances[header.Validator] = balance
	state.IssuedRewards = issuedRewards
	state.TotalIssued = totalIssued

	return nil
}
