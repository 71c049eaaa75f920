// Package query provides support for parsing query values taken from the
// route of a request.
package query

import (
	"errors"
	"strconv"

	"github.com/dxidlabs/ledger/foundation/blockchain/state"
)

// Latest is the route value naming the latest block.
const Latest = "latest"

// BlockRange converts the from and to route values into block numbers. An
// empty value or "latest" means the latest block.
func BlockRange(fromStr string, toStr string) (uint64, uint64, error) {
	from, err := blockNumber(fromStr)
	if err != nil {
		return 0, 0, err
	}

	to, err := blockNumber(toStr)
	if err != nil {
		return 0, 0, err
	}

	if from > to {
		return 0, 0, errors.New("from greater than to")
	}

	return from, to, nil
}

func blockNumber(s string) (uint64, error) {
	if s == Latest || s == "" {
		return state.QueryLatest, nil
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.New("invalid block number " + strconv.Quote(s))
	}

	return n, nil
}
