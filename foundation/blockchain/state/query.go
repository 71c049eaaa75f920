package state

import (
	"slices"

	"github.com/dxidlabs/ledger/foundation/blockchain/consensus"
	"github.com/dxidlabs/ledger/foundation/blockchain/database"
)

// QueryLatest represents to query the latest block in the chain.
const QueryLatest = ^uint64(0) >> 1

// Balance represents what the chain knows about an address.
type Balance struct {
	Address   database.Address `json:"address"`
	Balance   uint64           `json:"balance"`
	Spendable uint64           `json:"spendable"`
	Stake     uint64           `json:"stake"`
}

// Supply represents the issuance counters of the chain.
type Supply struct {
	Height        uint64 `json:"height"`
	TotalIssued   uint64 `json:"total_issued"`
	IssuedRewards uint64 `json:"issued_rewards"`
	MaxSupply     uint64 `json:"max_supply"`
}

// Reward represents the reward paid for a block at a given height.
type Reward struct {
	Height    uint64 `json:"height"`
	Reward    uint64 `json:"reward"`
	Treasury  uint64 `json:"treasury"`
	Validator uint64 `json:"validator"`
}

// =============================================================================

// QueryBalance returns the balance information for the specified address.
func (s *State) QueryBalance(addr database.Address) Balance {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Balance{
		Address:   addr,
		Balance:   s.chain.Balance(addr),
		Spendable: s.chain.Spendable(addr),
		Stake:     s.consensus.StakeOf(addr),
	}
}

// QueryBalances returns the balance information for every credited address.
func (s *State) QueryBalances() []Balance {
	s.mu.RLock()
	defer s.mu.RUnlock()

	balances := make([]Balance, 0, len(s.chain.Balances))
	for addr, amount := range s.chain.Balances {
		balances = append(balances, Balance{
			Address:   addr,
			Balance:   amount,
			Spendable: s.chain.Spendable(addr),
			Stake:     s.consensus.StakeOf(addr),
		})
	}

	sortBalances(balances)

	return balances
}

// QueryOutputs returns the unspent outputs owned by the specified address.
func (s *State) QueryOutputs(addr database.Address) []database.OutputRef {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.chain.Outputs(addr)
}

// QuerySupply returns the issuance counters.
func (s *State) QuerySupply() Supply {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Supply{
		Height:        s.chain.Height,
		TotalIssued:   s.chain.TotalIssued,
		IssuedRewards: s.chain.IssuedRewards,
		MaxSupply:     s.genesis.Economics.MaxSupply,
	}
}

// QueryReward returns the reward a block at the specified height would pay
// given the supply issued so far.
func (s *State) QueryReward(height uint64) Reward {
	s.mu.RLock()
	issued := s.chain.TotalIssued
	s.mu.RUnlock()

	reward := s.execution.CurrentReward(height, issued)
	treasury, validator := s.execution.Economics().TreasuryCut(reward)

	return Reward{
		Height:    height,
		Reward:    reward,
		Treasury:  treasury,
		Validator: validator,
	}
}

// QueryConsensus returns a snapshot of the consensus state.
func (s *State) QueryConsensus() consensus.State {
	return s.consensus.State()
}

// QueryProposer draws the next proposer weighted by stake.
func (s *State) QueryProposer() (database.Address, error) {
	return s.consensus.SelectProposer()
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// QueryBlocksByNumber returns the set of blocks based on block numbers. Block
// zero is the genesis block.
func (s *State) QueryBlocksByNumber(from uint64, to uint64) ([]database.Block, error) {
	latest := s.db.LatestBlock().Header.Height

	if from == QueryLatest {
		from = latest
		to = from
	}
	if to == QueryLatest || to > latest {
		to = latest
	}

	var out []database.Block
	for i := from; i <= to; i++ {
		if i == 0 {
			out = append(out, s.genesisBlock)
			continue
		}

		block, err := s.db.GetBlock(i)
		if err != nil {
			s.evHandler("state: QueryBlocksByNumber: ERROR: %s", err)
			return nil, err
		}
		out = append(out, block)
	}

	return out, nil
}

// QueryBlocksByAddress returns the set of blocks that pay the specified
// address or were proposed by it.
func (s *State) QueryBlocksByAddress(addr database.Address) ([]database.Block, error) {
	var blocks []database.Block

	iter := s.db.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return nil, err
		}

		if block.Header.Validator == addr || pays(block, addr) {
			blocks = append(blocks, block)
		}
	}

	return blocks, nil
}

// pays reports whether any transaction in the block credits the address.
func pays(block database.Block, addr database.Address) bool {
	for _, tx := range block.Transactions() {
		for _, out := range tx.Outputs {
			if out.Address == addr {
				return true
			}
		}
	}

	return false
}

func sortBalances(balances []Balance) {
	slices.SortFunc(balances, func(a, b Balance) int {
		return a.Address.Compare(b.Address)
	})
}
