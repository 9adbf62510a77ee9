// Package ledger implements the chain data model, validation rules,
// stake-weighted proposer election and block assembly described in
// spec.md section 3 and 4.2.
package ledger

import "strings"

// TxKind identifies the semantics of a transaction. ContractDeploy and
// ContractCall are reserved slots; their evaluation is undefined per
// spec.md's non-goals.
type TxKind string

const (
	KindTransfer       TxKind = "transfer"
	KindReward         TxKind = "reward"
	KindStake          TxKind = "stake"
	KindUnstake        TxKind = "unstake"
	KindContractDeploy TxKind = "contract_deploy"
	KindContractCall   TxKind = "contract_call"
)

// NetworkSender is the synthetic sender address reward transactions
// carry. Reward transactions are exempt from signature checks.
const NetworkSender = "network"

// GenesisProposer is the well-known proposer literal the genesis block
// carries in place of a real validator address.
const GenesisProposer = "AURUM_GENESIS"

// ZeroHash is the 64-character all-zero hex string used as the genesis
// parent hash and as the Merkle root of an empty transaction list.
var ZeroHash = strings.Repeat("0", 64)

// Params are the chain parameters fixed at genesis (spec.md section 6).
type Params struct {
	NetworkID                    string `json:"networkId"`
	BlockTimeMillis               int64  `json:"blockTime"`
	BlockReward                  uint64 `json:"blockReward"`
	MinStake                     uint64 `json:"minStake"`
	MaxSupply                    uint64 `json:"maxSupply"`
	InitialSupply                uint64 `json:"initialSupply"`
	DifficultyAdjustmentInterval int    `json:"difficultyAdjustmentInterval"`
	GenesisTimestamp             int64  `json:"genesisTimestamp"`
	MaxBlockTx                   int    `json:"-"`
}

// DefaultParams returns the parameters named in spec.md section 6, with
// MaxBlockTx (not part of the wire-visible genesis record) set to a
// conservative default.
func DefaultParams(networkID string, genesisTimestamp int64) Params {
	return Params{
		NetworkID:                    networkID,
		BlockTimeMillis:              15000,
		BlockReward:                  5,
		MinStake:                     1000,
		MaxSupply:                    100_000_000,
		InitialSupply:                10_000_000,
		DifficultyAdjustmentInterval: 2016,
		GenesisTimestamp:             genesisTimestamp,
		MaxBlockTx:                  500,
	}
}

// Account is created lazily the first time an address is mentioned as a
// sender or recipient. It is deleted only when a reorg rewinds the block
// that created it.
type Account struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
	Sequence uint64 `json:"sequence"`
	Staked  uint64 `json:"staked"`
}

// Transaction is an immutable signed record. Identifier is the content
// hash over every field except Signature.
type Transaction struct {
	ID        string `json:"id"`
	Kind      TxKind `json:"kind"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
	Fee       uint64 `json:"fee"`
	Timestamp int64  `json:"timestamp"`
	Payload   []byte `json:"payload,omitempty"`
	Sequence  uint64 `json:"sequence"`
	Signature []byte `json:"signature,omitempty"`
}

// canonicalTx is the field-ordered, signature-less view of a Transaction
// used for both the content hash (ID) and the signing message. Declaring
// this once and reusing it for hashing and signing is the correctness
// requirement in spec.md section 4.1 — an ad-hoc alternate encoding here
// would silently break signature verification on every other node.
type canonicalTx struct {
	Kind      TxKind `json:"kind"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
	Fee       uint64 `json:"fee"`
	Timestamp int64  `json:"timestamp"`
	Payload   []byte `json:"payload,omitempty"`
	Sequence  uint64 `json:"sequence"`
}

// BlockHeader carries everything needed to validate and chain a block.
type BlockHeader struct {
	Height     uint64 `json:"height"`
	ParentID   string `json:"parentId"`
	Timestamp  int64  `json:"timestamp"`
	MerkleRoot string `json:"merkleRoot"`
	Proposer   string `json:"proposer"`
	Nonce      uint32 `json:"nonce"`
}

// canonicalHeader is the field-ordered view of BlockHeader signed by the
// proposer and hashed to produce the next block's ParentID.
type canonicalHeader struct {
	Height     uint64 `json:"height"`
	ParentID   string `json:"parentId"`
	Timestamp  int64  `json:"timestamp"`
	MerkleRoot string `json:"merkleRoot"`
	Proposer   string `json:"proposer"`
	Nonce      uint32 `json:"nonce"`
}

// Block is a header, its ordered transactions, and the proposer's
// signature over the header bytes.
type Block struct {
	Header       BlockHeader   `json:"header"`
	Transactions []Transaction `json:"transactions"`
	Signature    []byte        `json:"signature,omitempty"`
}

// Validator is a staking account eligible to produce blocks once active.
type Validator struct {
	Address          string `json:"address"`
	Stake            uint64 `json:"stake"`
	Active           bool   `json:"active"`
	LastProducedHeight uint64 `json:"lastProducedHeight"`
	BlocksProduced   uint64 `json:"blocksProduced"`
	RegisteredAt     int64  `json:"registeredAt"`
	PublicKey        []byte `json:"publicKey,omitempty"`
}
