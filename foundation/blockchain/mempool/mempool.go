// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"cmp"
	"errors"
	"slices"
	"sync"

	"github.com/dxidlabs/ledger/foundation/blockchain/database"
	"github.com/dxidlabs/ledger/foundation/blockchain/mempool/selector"
)

// entry records when a transaction arrived.
type entry struct {
	tx  database.Tx
	seq uint64
}

// Mempool represents a cache of transactions keyed by transaction hash and
// kept in arrival order.
type Mempool struct {
	mu       sync.RWMutex
	pool     map[database.Hash]entry
	seq      uint64
	selectFn selector.Func
}

// New constructs a new mempool using the default select strategy.
func New() (*Mempool, error) {
	return NewWithStrategy(selector.StrategyFee)
}

// NewWithStrategy constructs a new mempool with specified select strategy.
func NewWithStrategy(strategy string) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	mp := Mempool{
		pool:     make(map[database.Hash]entry),
		selectFn: selectFn,
	}

	return &mp, nil
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Upsert adds or replaces a transaction from the mempool. A transaction that
// is already in the pool keeps its place in the arrival order.
func (mp *Mempool) Upsert(tx database.Tx) (int, error) {
	if tx.IsEmpty() {
		return 0, errors.New("empty transaction")
	}

	hash := tx.TxHash()

	mp.mu.Lock()
	defer mp.mu.Unlock()

	if e, exists := mp.pool[hash]; exists {
		mp.pool[hash] = entry{tx: tx, seq: e.seq}
		return len(mp.pool), nil
	}

	mp.seq++
	mp.pool[hash] = entry{tx: tx, seq: mp.seq}

	return len(mp.pool), nil
}

// Delete removed a transaction from the mempool.
func (mp *Mempool) Delete(tx database.Tx) {
	hash := tx.TxHash()

	mp.mu.Lock()
	defer mp.mu.Unlock()

	delete(mp.pool, hash)
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[database.Hash]entry)
}

// Copy returns the transactions in the pool in arrival order.
func (mp *Mempool) Copy() []database.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return mp.ordered()
}

// PickBest uses the configured select strategy to return the next set
// of transactions for the next block. Pass -1 for all of them.
func (mp *Mempool) PickBest(howMany int) []database.Tx {
	mp.mu.RLock()
	txs := mp.ordered()
	mp.mu.RUnlock()

	return mp.selectFn(txs, howMany)
}

// =============================================================================

// ordered returns the pool in arrival order. The caller must hold a lock.
func (mp *Mempool) ordered() []database.Tx {
	entries := make([]entry, 0, len(mp.pool))
	for _, e := range mp.pool {
		entries = append(entries, e)
	}

	slices.SortFunc(entries, func(a, b entry) int {
		return cmp.Compare(a.seq, b.seq)
	})

	txs := make([]database.Tx, len(entries))
	for i, e := range entries {
		txs[i] = e.tx
	}

	return txs
}
