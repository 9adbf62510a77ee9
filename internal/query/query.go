// Package query exposes read-only projections over a Ledger: node
// status, chain info, block and transaction lookups, and address views.
// Nothing here mutates state — it is the surface the API and CLI read
// commands are built on.
package query

import (
	"github.com/aurum-chain/aurum/internal/chainerr"
	"github.com/aurum-chain/aurum/internal/ledger"
	"github.com/aurum-chain/aurum/internal/persistence"
)

// Service answers read-only questions about a ledger's current state.
type Service struct {
	ledger *ledger.Ledger
	store  *persistence.Store
}

// New creates a query Service over l. store may be nil, in which case
// TransactionByID only ever sees the pending pool — the node wires a
// real store in so confirmed transactions stay reachable after they
// leave the pool.
func New(l *ledger.Ledger, store *persistence.Store) *Service {
	return &Service{ledger: l, store: store}
}

// Status summarizes the node's view of the chain for a health endpoint.
type Status struct {
	NetworkID   string `json:"networkId"`
	Height      uint64 `json:"height"`
	TipHash     string `json:"tipHash"`
	PendingTxs  int    `json:"pendingTxs"`
	TotalSupply uint64 `json:"totalSupply"`
}

// Status returns the current node status.
func (s *Service) Status() Status {
	return Status{
		NetworkID:   s.ledger.Params().NetworkID,
		Height:      s.ledger.Height(),
		TipHash:     s.ledger.TipHash(),
		PendingTxs:  s.ledger.Pool().Len(),
		TotalSupply: s.ledger.TotalSupply(),
	}
}

// ChainInfo describes the chain's fixed parameters alongside its live
// height, for clients that want both in one call.
type ChainInfo struct {
	Params ledger.Params `json:"params"`
	Height uint64        `json:"height"`
}

// ChainInfo returns the chain's parameters and current height.
func (s *Service) ChainInfo() ChainInfo {
	return ChainInfo{Params: s.ledger.Params(), Height: s.ledger.Height()}
}

// BlockView is a block together with the confirmation count derived
// from how far behind the tip it sits.
type BlockView struct {
	Block         *ledger.Block `json:"block"`
	Confirmations uint64        `json:"confirmations"`
}

func (s *Service) view(b *ledger.Block) BlockView {
	height := s.ledger.Height()
	var confirmations uint64
	if height >= b.Header.Height {
		confirmations = height - b.Header.Height + 1
	}
	return BlockView{Block: b, Confirmations: confirmations}
}

// LatestBlock returns the current tip.
func (s *Service) LatestBlock() BlockView {
	return s.view(s.ledger.Tip())
}

// BlockByHeight looks up a main-chain block by height.
func (s *Service) BlockByHeight(height uint64) (BlockView, error) {
	b, ok := s.ledger.BlockByHeight(height)
	if !ok {
		return BlockView{}, chainerr.Newf(chainerr.InvalidHeight, "no block at height %d", height)
	}
	return s.view(b), nil
}

// BlockByHash looks up any known block, main chain or not, by its
// header hash.
func (s *Service) BlockByHash(hash string) (BlockView, error) {
	b, ok := s.ledger.BlockByHash(hash)
	if !ok {
		return BlockView{}, chainerr.New(chainerr.InvalidParent, "unknown block hash")
	}
	return s.view(b), nil
}

// TransactionView is a confirmed transaction with its confirming block's
// identity and confirmation depth, or a pooled transaction with zero
// confirmations.
type TransactionView struct {
	Transaction   ledger.Transaction `json:"transaction"`
	BlockHash     string             `json:"blockHash,omitempty"`
	BlockHeight   uint64             `json:"blockHeight,omitempty"`
	Confirmations uint64             `json:"confirmations"`
	Pending       bool               `json:"pending"`
}

// TransactionByID looks a transaction up first in the pending pool, then
// falls back to the durable store for one already confirmed into a
// block. The pool is checked first since it is cheaper and catches the
// common case of a transaction a client just submitted.
func (s *Service) TransactionByID(id string) (TransactionView, error) {
	if tx, ok := s.ledger.Pool().Get(id); ok {
		return TransactionView{Transaction: tx, Pending: true}, nil
	}
	if s.store == nil {
		return TransactionView{}, chainerr.New(chainerr.InvalidParent, "transaction not found in pool")
	}
	ref, ok := s.store.TransactionRef(id)
	if !ok {
		return TransactionView{}, chainerr.New(chainerr.InvalidParent, "transaction not found")
	}
	block, err := s.store.BlockByHash(ref.BlockHash)
	if err != nil {
		return TransactionView{}, err
	}
	if ref.Index < 0 || ref.Index >= len(block.Transactions) {
		return TransactionView{}, chainerr.New(chainerr.InvalidParent, "transaction index out of range for its block")
	}
	tx := block.Transactions[ref.Index]
	height := s.ledger.Height()
	var confirmations uint64
	if height >= ref.Height {
		confirmations = height - ref.Height + 1
	}
	return TransactionView{
		Transaction:   tx,
		BlockHash:     ref.BlockHash,
		BlockHeight:   ref.Height,
		Confirmations: confirmations,
		Pending:       false,
	}, nil
}

// AddressView answers "what does this node know about this address".
type AddressView struct {
	Account   ledger.Account      `json:"account"`
	Validator *ledger.Validator   `json:"validator,omitempty"`
}

// AddressByID returns the account state and, if the address is staking,
// its validator record.
func (s *Service) AddressByID(address string) AddressView {
	view := AddressView{Account: s.ledger.Account(address)}
	if v, ok := s.ledger.Validator(address); ok {
		view.Validator = &v
	}
	return view
}

// Validators returns every validator currently on record.
func (s *Service) Validators() []ledger.Validator {
	return s.ledger.Validators()
}
