// Package state is the core API for the blockchain and implements all the
// business rules and processing. It owns the chain state and coordinates the
// consensus and execution engines with the mempool and block storage.
package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dxidlabs/ledger/foundation/blockchain/consensus"
	"github.com/dxidlabs/ledger/foundation/blockchain/database"
	"github.com/dxidlabs/ledger/foundation/blockchain/execution"
	"github.com/dxidlabs/ledger/foundation/blockchain/genesis"
	"github.com/dxidlabs/ledger/foundation/blockchain/mempool"
	"github.com/dxidlabs/ledger/foundation/blockchain/peer"
)

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining, peer updates, and transaction sharing.
type Worker interface {
	Shutdown()
	Sync()
	SignalStartMining()
	SignalCancelMining() (done func())
	SignalShareTx(tx database.Tx)
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Beneficiary    database.Address
	Host           string
	Genesis        genesis.Genesis
	Crypto         database.Crypto
	Storage        database.Storage
	SelectStrategy string
	KnownPeers     *peer.PeerSet
	EvHandler      EventHandler
	NonceSource    func() uint64
}

// State manages the blockchain database.
type State struct {
	beneficiary database.Address
	host        string
	evHandler   EventHandler
	crypto      database.Crypto

	knownPeers *peer.PeerSet
	genesis    genesis.Genesis
	mempool    *mempool.Mempool
	db         *database.Database
	consensus  *consensus.Engine
	execution  *execution.Engine

	mu           sync.RWMutex
	chain        *database.ChainState
	genesisBlock database.Block

	Worker Worker
}

// New constructs a new blockchain for data management. The genesis block is
// applied and every block found in storage is replayed on top of it.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if cfg.Crypto == nil || cfg.Storage == nil {
		return nil, errors.New("crypto and storage are required")
	}

	if err := cfg.Genesis.Validate(); err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}

	knownPeers := cfg.KnownPeers
	if knownPeers == nil {
		knownPeers = peer.NewPeerSet()
	}

	// Construct a mempool with the specified select strategy.
	mp, err := mempool.NewWithStrategy(cfg.SelectStrategy)
	if err != nil {
		return nil, err
	}

	cons, err := consensus.New(consensus.Config{
		Crypto:      cfg.Crypto,
		Difficulty:  cfg.Genesis.Difficulty,
		Stakes:      cfg.Genesis.Stakes,
		EvHandler:   consensus.EventHandler(ev),
		NonceSource: cfg.NonceSource,
	})
	if err != nil {
		return nil, err
	}

	exec := execution.New(cfg.Crypto, cfg.Genesis.Economics)

	// The genesis block is rebuilt from the genesis file on every start and
	// is never written to storage.
	genesisBlock, err := cfg.Genesis.Block(cfg.Crypto)
	if err != nil {
		return nil, fmt.Errorf("genesis block: %w", err)
	}

	chain := database.NewChainState()
	if err := exec.ApplyBlock(chain, genesisBlock); err != nil {
		return nil, fmt.Errorf("applying genesis block: %w", err)
	}
	chain.Commit(0)

	db := database.New(cfg.Storage)
	db.UpdateLatestBlock(genesisBlock)

	s := State{
		beneficiary: cfg.Beneficiary,
		host:        cfg.Host,
		evHandler:   ev,
		crypto:      cfg.Crypto,

		knownPeers: knownPeers,
		genesis:    cfg.Genesis,
		mempool:    mp,
		db:         db,
		consensus:  cons,
		execution:  exec,

		chain:        chain,
		genesisBlock: genesisBlock,

		Worker: noWorker{},
	}

	if err := s.replay(); err != nil {
		return nil, err
	}

	// The call to worker.Run replaces the placeholder worker and starts
	// everything up and running for the node.

	return &s, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all blockchain writing activity.
	s.Worker.Shutdown()

	// Make sure the database file is properly closed.
	return s.db.Close()
}

// Truncate resets the chain both in storage and in memory back to the
// genesis block. The stake ledger is left alone.
func (s *State) Truncate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chain := database.NewChainState()
	if err := s.execution.ApplyBlock(chain, s.genesisBlock); err != nil {
		return err
	}
	chain.Commit(0)

	if err := s.db.Reset(); err != nil {
		return err
	}

	s.mempool.Truncate()
	s.chain = chain
	s.db.UpdateLatestBlock(s.genesisBlock)
	s.consensus.Commit(0)

	return nil
}

// =============================================================================

// replay applies the blocks found in storage. Stored blocks were validated
// when they were committed, so only the chain linkage and proof of work are
// checked before applying them. The stake ledger isn't persisted which means
// the stake gate can't be checked again.
func (s *State) replay() error {
	s.evHandler("state: replay: started")

	var count int
	iter := s.db.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return fmt.Errorf("replay: %w", err)
		}

		latest := s.db.LatestBlock()
		if err := s.checkLinkage(latest, block); err != nil {
			return fmt.Errorf("replay: blk[%d]: %w", block.Header.Height, err)
		}

		if !consensus.Solved(block.PowHash, block.Header.Difficulty) {
			return fmt.Errorf("replay: blk[%d]: %w", block.Header.Height, consensus.ErrPowTargetNotMet)
		}

		if err := s.execution.ApplyBlock(s.chain, block); err != nil {
			return fmt.Errorf("replay: blk[%d]: %w", block.Header.Height, err)
		}

		s.chain.Commit(block.Header.Height)
		s.consensus.Commit(block.Header.Height)
		s.db.UpdateLatestBlock(block)
		count++
	}

	s.evHandler("state: replay: completed: blocks[%d]: height[%d]", count, s.chain.Height)

	return nil
}

// =============================================================================

// noWorker is used until a worker registers itself with the state.
type noWorker struct{}

func (noWorker) Shutdown() {}
func (noWorker) Sync() {}
func (noWorker) SignalStartMining() {}
func (noWorker) SignalCancelMining() func() { return func() {} }
func (noWorker) SignalShareTx(tx database.Tx) {}
