package consensus

import (
	"crypto/rand"
	"fmt"
	"slices"

	"github.com/dxidlabs/ledger/foundation/blockchain/database"
	"github.com/holiman/uint256"
)

// SelectProposer draws a validator with probability proportional to its share
// of the total stake. Addresses are walked in byte order so the same draw
// selects the same validator on every node.
func (e *Engine) SelectProposer() (database.Address, error) {
	st := e.State()
	return selectWeighted(st.Stakes, func(total *uint256.Int) (*uint256.Int, error) {
		n, err := rand.Int(e.randReader, total.ToBig())
		if err != nil {
			return nil, err
		}

		draw, overflow := uint256.FromBig(n)
		if overflow {
			return nil, fmt.Errorf("draw %s overflows", n)
		}

		return draw, nil
	})
}

// selectWeighted walks the stakes accumulating until the draw falls inside
// an address's range. The draw function must return a value in [0, total).
func selectWeighted(stakes map[database.Address]uint64, draw func(total *uint256.Int) (*uint256.Int, error)) (database.Address, error) {
	addrs := make([]database.Address, 0, len(stakes))
	total := new(uint256.Int)
	for addr, stake := range stakes {
		if stake == 0 {
			continue
		}

		addrs = append(addrs, addr)
		total.Add(total, uint256.NewInt(stake))
	}

	if total.IsZero() {
		return database.Address{}, ErrNoEligibleProposer
	}

	slices.SortFunc(addrs, func(a, b database.Address) int {
		return a.Compare(b)
	})

	pick, err := draw(total)
	if err != nil {
		return database.Address{}, err
	}

	cumulative := new(uint256.Int)
	for _, addr := range addrs {
		cumulative.Add(cumulative, uint256.NewInt(stakes[addr]))
		if pick.Lt(cumulative) {
			return addr, nil
		}
	}

	return database.Address{}, ErrNoEligibleProposer
}
