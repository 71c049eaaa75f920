// Package consensus implements the hybrid proof of work and proof of stake
// rules that decide which blocks are acceptable. It owns the stake ledger
// that determines which validators are eligible to propose blocks.
package consensus

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"maps"
	mrand "math/rand/v2"
	"sync"
	"time"

	"github.com/dxidlabs/ledger/foundation/blockchain/database"
)

// DefaultDifficulty is the difficulty used when none is configured.
const DefaultDifficulty = 0x00ff_ffff

// Set of errors returned by the consensus engine.
var (
	ErrUnexpectedHeight   = errors.New("unexpected height")
	ErrPowTargetNotMet    = errors.New("pow target not met")
	ErrValidatorNotStaked = errors.New("validator not staked")
	ErrMerkleMismatch     = errors.New("merkle mismatch")
	ErrInsufficientStake  = errors.New("insufficient stake")
	ErrNoEligibleProposer = errors.New("no eligible proposer")
)

// EventHandler defines a function that is called when events
// occur in the processing of blocks.
type EventHandler func(v string, args ...any)

// =============================================================================

// State represents the consensus bookkeeping. A State returned by the engine
// is a snapshot and is safe to read without holding any lock.
type State struct {
	Difficulty uint64                      `json:"difficulty"`
	Stakes     map[database.Address]uint64 `json:"stakes"`
	LastHeight uint64                      `json:"last_height"`
}

// Config represents the configuration required to start the engine.
type Config struct {
	Crypto      database.Crypto
	Difficulty  uint64
	Stakes      map[database.Address]uint64
	LastHeight  uint64
	EvHandler   EventHandler
	NonceSource func() uint64
	RandReader  io.Reader
	Now         func() time.Time
}

// Engine decides which blocks are acceptable and maintains the stake ledger.
// Readers run concurrently with each other, writers are serialized.
type Engine struct {
	crypto      database.Crypto
	evHandler   EventHandler
	nonceSource func() uint64
	randReader  io.Reader
	now         func() time.Time

	mu    sync.RWMutex
	state State
}

// New constructs a consensus engine for use.
func New(cfg Config) (*Engine, error) {
	if cfg.Crypto == nil {
		return nil, errors.New("crypto capability is required")
	}

	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	difficulty := cfg.Difficulty
	if difficulty == 0 {
		difficulty = DefaultDifficulty
	}

	nonceSource := cfg.NonceSource
	if nonceSource == nil {
		nonceSource = mrand.Uint64
	}

	randReader := cfg.RandReader
	if randReader == nil {
		randReader = rand.Reader
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	stakes := maps.Clone(cfg.Stakes)
	if stakes == nil {
		stakes = make(map[database.Address]uint64)
	}

	e := Engine{
		crypto:      cfg.Crypto,
		evHandler:   ev,
		nonceSource: nonceSource,
		randReader:  randReader,
		now:         now,
		state: State{
			Difficulty: difficulty,
			Stakes:     stakes,
			LastHeight: cfg.LastHeight,
		},
	}

	return &e, nil
}

// State returns a consistent snapshot of the consensus state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return State{
		Difficulty: e.state.Difficulty,
		Stakes:     maps.Clone(e.state.Stakes),
		LastHeight: e.state.LastHeight,
	}
}

// StakeOf returns the amount staked by the specified address.
func (e *Engine) StakeOf(addr database.Address) uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.state.Stakes[addr]
}

// Commit records the height of a block the caller has committed. Validation
// never advances the height on its own.
func (e *Engine) Commit(height uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.LastHeight = height
}

// SetDifficulty changes the difficulty used for new proposals.
func (e *Engine) SetDifficulty(difficulty uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.Difficulty = difficulty
}

// =============================================================================

// Stake adds the amount to the address's stake, saturating at the maximum.
func (e *Engine) Stake(addr database.Address, amount uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sum, ok := database.AddUint64(e.state.Stakes[addr], amount)
	if !ok {
		sum = ^uint64(0)
	}

	e.state.Stakes[addr] = sum
	e.evHandler("consensus: Stake: addr[%s]: amount[%d]: total[%d]", addr, amount, sum)
}

// Unstake removes exactly the amount from the address's stake. It fails when
// the address holds less than the amount.
func (e *Engine) Unstake(addr database.Address, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.state.Stakes[addr]
	if current < amount {
		return fmt.Errorf("%w: staked %d, requested %d", ErrInsufficientStake, current, amount)
	}

	e.setStake(addr, current-amount)
	e.evHandler("consensus: Unstake: addr[%s]: amount[%d]: total[%d]", addr, amount, current-amount)

	return nil
}

// Slash removes up to the amount from the address's stake. An address with
// no stake is left alone.
func (e *Engine) Slash(addr database.Address, amount uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	current, exists := e.state.Stakes[addr]
	if !exists {
		return
	}

	remaining := current - min(current, amount)
	e.setStake(addr, remaining)
	e.evHandler("consensus: Slash: addr[%s]: amount[%d]: total[%d]", addr, amount, remaining)
}

// setStake records the stake. An entry that reaches zero stays in the ledger
// and is ineligible to propose. The caller must hold the write lock.
func (e *Engine) setStake(addr database.Address, amount uint64) {
	e.state.Stakes[addr] = amount
}

// =============================================================================

// ValidateBlock checks the block passes the height, proof of work, stake, and
// merkle rules. It is a pure predicate over the current state.
func (e *Engine) ValidateBlock(block database.Block) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	header := block.Header

	e.evHandler("consensus: ValidateBlock: validate: blk[%d]: check: block number is the next number", header.Height)

	if exp := e.state.LastHeight + 1; header.Height != exp {
		return fmt.Errorf("%w: got %d, exp %d", ErrUnexpectedHeight, header.Height, exp)
	}

	e.evHandler("consensus: ValidateBlock: validate: blk[%d]: check: block hash meets the pow target", header.Height)

	if !Solved(e.crypto.HashBlockHeader(header), header.Difficulty) {
		return fmt.Errorf("%w: difficulty %d", ErrPowTargetNotMet, header.Difficulty)
	}

	e.evHandler("consensus: ValidateBlock: validate: blk[%d]: check: validator is staked", header.Height)

	if e.state.Stakes[header.Validator] == 0 {
		return fmt.Errorf("%w: %s", ErrValidatorNotStaked, header.Validator)
	}

	e.evHandler("consensus: ValidateBlock: validate: blk[%d]: check: merkle root does match transactions", header.Height)

	root, err := block.ComputedMerkleRoot()
	if err != nil {
		return fmt.Errorf("%w: %s", ErrMerkleMismatch, err)
	}

	if root != header.MerkleRoot {
		return fmt.Errorf("%w: got %s, exp %s", ErrMerkleMismatch, root, header.MerkleRoot)
	}

	return nil
}
