package state

import "github.com/dxidlabs/ledger/foundation/blockchain/database"

// Stake bonds the amount to the address. Stake isn't drawn from the ledger
// balances, it is bookkeeping kept by consensus. Staking can release a
// beneficiary that was holding mining for lack of stake.
func (s *State) Stake(addr database.Address, amount uint64) {
	s.consensus.Stake(addr, amount)
	s.stakeEvent("stake", addr, amount)

	if addr == s.beneficiary {
		s.Worker.SignalStartMining()
	}
}

// Unstake releases the amount from the address.
func (s *State) Unstake(addr database.Address, amount uint64) error {
	if err := s.consensus.Unstake(addr, amount); err != nil {
		return err
	}

	s.stakeEvent("unstake", addr, amount)

	return nil
}

// Slash removes up to the amount from the address as a penalty.
func (s *State) Slash(addr database.Address, amount uint64) {
	s.consensus.Slash(addr, amount)
	s.stakeEvent("slash", addr, amount)
}

// SetDifficulty changes the difficulty used for new blocks mined by this node.
func (s *State) SetDifficulty(difficulty uint64) {
	s.consensus.SetDifficulty(difficulty)
}

func (s *State) stakeEvent(action string, addr database.Address, amount uint64) {
	s.evHandler(`viewer: stake: {"action":%q,"address":%q,"amount":%d,"total":%d}`, action, addr, amount, s.consensus.StakeOf(addr))
}
