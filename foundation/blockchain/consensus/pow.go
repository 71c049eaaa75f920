package consensus

import (
	"context"

	"github.com/dxidlabs/ledger/foundation/blockchain/database"
	"github.com/holiman/uint256"
)

// maxUint128 is the largest value a PoW digest can take.
var maxUint128 = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 128), 1)

// Target returns the PoW target for the difficulty. Larger difficulties
// produce smaller targets: target = (2^128 - 1) / (difficulty + 1).
func Target(difficulty uint64) *uint256.Int {
	divisor := new(uint256.Int).AddUint64(uint256.NewInt(difficulty), 1)
	return new(uint256.Int).Div(maxUint128, divisor)
}

// PowValue interprets the first 16 bytes of the header hash as a
// little-endian 128 bit number.
func PowValue(hash database.Hash) *uint256.Int {
	var be [16]byte
	for i := range be {
		be[i] = hash[15-i]
	}

	return new(uint256.Int).SetBytes(be[:])
}

// Solved reports whether the header hash is strictly below the target for
// the difficulty.
func Solved(hash database.Hash, difficulty uint64) bool {
	return PowValue(hash).Lt(Target(difficulty))
}

// =============================================================================

// ProposeBlock constructs the next block on top of the previous header and
// searches for a nonce that solves the PoW puzzle. Each attempt draws a new
// random nonce. The search only ends when a solution is found or the
// context is cancelled. Proposing with zero stake is allowed here, such a
// block fails validation.
func (e *Engine) ProposeBlock(ctx context.Context, prev database.BlockHeader, txs []database.Tx, validator database.Address) (database.Block, error) {
	e.mu.RLock()
	difficulty := e.state.Difficulty
	stakeWeight := e.state.Stakes[validator]
	e.mu.RUnlock()

	root, err := database.MerkleRoot(txs)
	if err != nil {
		return database.Block{}, err
	}

	header := database.BlockHeader{
		PrevBlockHash: e.crypto.HashBlockHeader(prev),
		MerkleRoot:    root,
		Height:        prev.Height + 1,
		TimeStamp:     uint64(e.now().UTC().Unix()),
		Difficulty:    difficulty,
		Validator:     validator,
		StakeWeight:   stakeWeight,
	}

	block, err := database.NewBlock(header, txs)
	if err != nil {
		return database.Block{}, err
	}

	if err := e.performPOW(ctx, &block); err != nil {
		return database.Block{}, err
	}

	return block, nil
}

// performPOW does the work of mining to find a valid hash for the specified
// block. Pointer semantics are being used since a nonce is being discovered.
func (e *Engine) performPOW(ctx context.Context, b *database.Block) error {
	e.evHandler("consensus: PerformPOW: MINING: started: blk[%d]: difficulty[%d]", b.Header.Height, b.Header.Difficulty)
	defer e.evHandler("consensus: PerformPOW: MINING: completed")

	for _, tx := range b.Transactions() {
		e.evHandler("consensus: PerformPOW: MINING: tx[%s]", tx)
	}

	target := Target(b.Header.Difficulty)

	var attempts uint64
	for {
		attempts++
		if attempts%1_000_000 == 0 {
			e.evHandler("consensus: PerformPOW: MINING: attempts[%d]", attempts)
		}

		// Did we timeout trying to solve the problem.
		if ctx.Err() != nil {
			e.evHandler("consensus: PerformPOW: MINING: CANCELLED")
			return ctx.Err()
		}

		b.Header.Nonce = e.nonceSource()

		hash := e.crypto.HashBlockHeader(b.Header)
		if !PowValue(hash).Lt(target) {
			continue
		}

		b.PowHash = hash

		e.evHandler("consensus: PerformPOW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]", b.Header.PrevBlockHash, hash)
		e.evHandler("consensus: PerformPOW: MINING: attempts[%d]", attempts)

		return nil
	}
}
