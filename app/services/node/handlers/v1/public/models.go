package public

import (
	"github.com/dxidlabs/ledger/foundation/blockchain/database"
	"github.com/dxidlabs/ledger/foundation/nameservice"
)

type balance struct {
	Address   database.Address `json:"address"`
	Name      string           `json:"name"`
	Balance   uint64           `json:"balance"`
	Spendable uint64           `json:"spendable"`
	Stake     uint64           `json:"stake"`
}

type balances struct {
	LatestBlock database.Hash `json:"latest_block"`
	Height      uint64        `json:"height"`
	Uncommitted int           `json:"uncommitted"`
	Balances    []balance     `json:"balances"`
}

type status struct {
	LatestBlock database.Hash    `json:"latest_block"`
	Height      uint64           `json:"height"`
	Uncommitted int              `json:"uncommitted"`
	Beneficiary database.Address `json:"beneficiary"`
	Difficulty  uint64           `json:"difficulty"`
	TotalIssued uint64           `json:"total_issued"`
	MaxSupply   uint64           `json:"max_supply"`
	KnownPeers  int              `json:"known_peers"`
}

type output struct {
	Address database.Address `json:"address"`
	Name    string           `json:"name"`
	Amount  uint64           `json:"amount"`
}

type input struct {
	PrevTx      database.Hash `json:"prev_tx"`
	OutputIndex uint32        `json:"output_index"`
}

type tx struct {
	Hash    database.Hash `json:"hash"`
	Inputs  []input       `json:"inputs"`
	Outputs []output      `json:"outputs"`
	Fee     uint64        `json:"fee"`
	Nonce   uint64        `json:"nonce"`
	Memo    string        `json:"memo,omitempty"`
}

type block struct {
	Hash          database.Hash    `json:"hash"`
	PrevBlockHash database.Hash    `json:"prev_block_hash"`
	MerkleRoot    database.Hash    `json:"merkle_root"`
	Height        uint64           `json:"height"`
	TimeStamp     uint64           `json:"timestamp"`
	Difficulty    uint64           `json:"difficulty"`
	Nonce         uint64           `json:"nonce"`
	Validator     database.Address `json:"validator"`
	ValidatorName string           `json:"validator_name"`
	StakeWeight   uint64           `json:"stake_weight"`
	Transactions  []tx             `json:"trans"`
}

type proposer struct {
	Address database.Address `json:"address"`
	Name    string           `json:"name"`
	Stake   uint64           `json:"stake"`
}

// =============================================================================

func toTx(ns *nameservice.NameService, dbTx database.Tx) tx {
	ins := make([]input, len(dbTx.Inputs))
	for i, in := range dbTx.Inputs {
		ins[i] = input{
			PrevTx:      in.PrevTx,
			OutputIndex: in.OutputIndex,
		}
	}

	outs := make([]output, len(dbTx.Outputs))
	for i, out := range dbTx.Outputs {
		outs[i] = output{
			Address: out.Address,
			Name:    ns.Lookup(out.Address),
			Amount:  out.Amount,
		}
	}

	return tx{
		Hash:    dbTx.TxHash(),
		Inputs:  ins,
		Outputs: outs,
		Fee:     dbTx.Fee,
		Nonce:   dbTx.Nonce,
		Memo:    dbTx.Memo,
	}
}

func toBlock(ns *nameservice.NameService, blk database.Block) block {
	dbTxs := blk.Transactions()

	trans := make([]tx, len(dbTxs))
	for i, dbTx := range dbTxs {
		trans[i] = toTx(ns, dbTx)
	}

	return block{
		Hash:          blk.PowHash,
		PrevBlockHash: blk.Header.PrevBlockHash,
		MerkleRoot:    blk.Header.MerkleRoot,
		Height:        blk.Header.Height,
		TimeStamp:     blk.Header.TimeStamp,
		Difficulty:    blk.Header.Difficulty,
		Nonce:         blk.Header.Nonce,
		Validator:     blk.Header.Validator,
		ValidatorName: ns.Lookup(blk.Header.Validator),
		StakeWeight:   blk.Header.StakeWeight,
		Transactions:  trans,
	}
}

func toBlocks(ns *nameservice.NameService, blks []database.Block) []block {
	out := make([]block, len(blks))
	for i, blk := range blks {
		out[i] = toBlock(ns, blk)
	}
	return out
}
