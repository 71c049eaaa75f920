package database

import (
	"cmp"
	"maps"
	"slices"
)

// ChainState represents the ledger snapshot produced by applying blocks in
// order. It has no lock of its own, the owner must serialize access.
type ChainState struct {
	Balances       map[Address]uint64  `json:"balances"`
	PendingOutputs map[Hash][]TxOutput `json:"pending_outputs"`
	TotalIssued    uint64              `json:"total_issued"`
	IssuedRewards  uint64              `json:"issued_rewards"`
	Height         uint64              `json:"height"`
}

// NewChainState constructs an empty chain state.
func NewChainState() *ChainState {
	return &ChainState{
		Balances:       make(map[Address]uint64),
		PendingOutputs: make(map[Hash][]TxOutput),
	}
}

// Clone makes a deep copy of the chain state.
func (cs *ChainState) Clone() *ChainState {
	clone := ChainState{
		Balances:       maps.Clone(cs.Balances),
		PendingOutputs: make(map[Hash][]TxOutput, len(cs.PendingOutputs)),
		TotalIssued:    cs.TotalIssued,
		IssuedRewards:  cs.IssuedRewards,
		Height:         cs.Height,
	}

	if clone.Balances == nil {
		clone.Balances = make(map[Address]uint64)
	}

	for hash, outputs := range cs.PendingOutputs {
		clone.PendingOutputs[hash] = slices.Clone(outputs)
	}

	return &clone
}

// Commit records the specified height as the last committed height.
func (cs *ChainState) Commit(height uint64) {
	cs.Height = height
}

// Balance returns the credited balance for the specified address.
func (cs *ChainState) Balance(address Address) uint64 {
	return cs.Balances[address]
}

// Spendable sums the unspent outputs owned by the specified address. Spent
// outputs are kept with a zero amount so they contribute nothing.
func (cs *ChainState) Spendable(address Address) uint64 {
	var total uint64
	for _, outputs := range cs.PendingOutputs {
		for _, out := range outputs {
			if out.Address != address {
				continue
			}

			sum, ok := AddUint64(total, out.Amount)
			if !ok {
				return ^uint64(0)
			}
			total = sum
		}
	}

	return total
}

// OutputRef identifies an unspent output owned by an address.
type OutputRef struct {
	PrevTx      Hash   `json:"prev_tx"`
	OutputIndex uint32 `json:"output_index"`
	Amount      uint64 `json:"amount"`
}

// Outputs returns the unspent outputs owned by the specified address ordered
// by transaction hash and index.
func (cs *ChainState) Outputs(address Address) []OutputRef {
	var refs []OutputRef
	for hash, outputs := range cs.PendingOutputs {
		for i, out := range outputs {
			if out.Address != address || out.Amount == 0 {
				continue
			}

			refs = append(refs, OutputRef{
				PrevTx:      hash,
				OutputIndex: uint32(i),
				Amount:      out.Amount,
			})
		}
	}

	slices.SortFunc(refs, func(a, b OutputRef) int {
		if c := slices.Compare(a.PrevTx[:], b.PrevTx[:]); c != 0 {
			return c
		}
		return cmp.Compare(a.OutputIndex, b.OutputIndex)
	})

	return refs
}
