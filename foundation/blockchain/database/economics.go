package database

import (
	"errors"
	"math/bits"
)

// BasisPoints is the denominator for the treasury ratio.
const BasisPoints = 10_000

// HalvingSchedule defines when the block reward is cut in half. A zero
// value for either field disables that trigger.
type HalvingSchedule struct {
	TargetInterval  uint64 `json:"target_interval"`  // Blocks between height based halvings.
	SupplyThreshold uint64 `json:"supply_threshold"` // Issued supply per supply based halving.
}

// TokenEconomics represents the immutable issuance policy for a chain.
type TokenEconomics struct {
	MaxSupply        uint64          `json:"max_supply"`
	BaseReward       uint64          `json:"base_reward"`
	Schedule         HalvingSchedule `json:"schedule"`
	TreasuryBps      uint16          `json:"treasury_ratio_bps"`
	AllocationHeight uint64          `json:"allocation_height"` // Last height accepting input-less allocations.
}

// Validate checks the policy values are internally consistent.
func (te TokenEconomics) Validate() error {
	if te.TreasuryBps > BasisPoints {
		return errors.New("treasury ratio can't exceed 10000 basis points")
	}

	if te.MaxSupply == 0 {
		return errors.New("max supply must be greater than zero")
	}

	return nil
}

// Halvings returns the number of halvings in effect for the specified height
// and issued supply. The larger of the height and supply counts wins.
func (te TokenEconomics) Halvings(height uint64, issued uint64) uint64 {
	var byHeight uint64
	if te.Schedule.TargetInterval > 0 {
		byHeight = height / te.Schedule.TargetInterval
	}

	var bySupply uint64
	if te.Schedule.SupplyThreshold > 0 {
		bySupply = issued / te.Schedule.SupplyThreshold
	}

	return max(byHeight, bySupply)
}

// Reward returns the block reward for the specified height and issued
// supply. Shifting past the width of the amount produces zero.
func (te TokenEconomics) Reward(height uint64, issued uint64) uint64 {
	halvings := te.Halvings(height, issued)
	if halvings >= 64 {
		return 0
	}

	return te.BaseReward >> halvings
}

// TreasuryCut splits the reward into the treasury cut, truncated toward
// zero, and the remainder that goes to the validator.
func (te TokenEconomics) TreasuryCut(reward uint64) (treasury uint64, miner uint64) {
	bps := min(uint64(te.TreasuryBps), BasisPoints)

	hi, lo := bits.Mul64(reward, bps)
	treasury, _ = bits.Div64(hi, lo, BasisPoints)

	return treasury, reward - treasury
}
