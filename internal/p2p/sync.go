package p2p

import (
	"time"

	"go.uber.org/zap"

	"github.com/aurum-chain/aurum/internal/ledger"
)

// RequestBlocks asks address for up to maxBlocks starting at fromHeight
// and blocks until the peer answers or the request times out. This is
// the batch catch-up primitive SyncFrom loops over. The node never starts
// a sync by itself, not even when a peer's handshake announces a greater
// chain height.
func (s *Server) RequestBlocks(address string, fromHeight uint64, maxBlocks int) ([]*ledger.Block, error) {
	req, err := NewEnvelope(TypeGetBlocks, s.config.NodeID, time.Now().Unix(), GetBlocksPayload{
		FromHeight: fromHeight,
		MaxBlocks:  maxBlocks,
	})
	if err != nil {
		return nil, err
	}
	resp, err := s.reqresp.SendRequest(address, req)
	if err != nil {
		return nil, err
	}
	env := resp.(*Envelope)
	var payload BlocksPayload
	if err := env.Parse(&payload); err != nil {
		return nil, err
	}
	return payload.Blocks, nil
}

// RequestTransactions asks address for every transaction currently in
// its pool, the companion to RequestBlocks a freshly-synced node uses to
// repopulate its own pool instead of waiting for the next broadcast of
// each one individually.
func (s *Server) RequestTransactions(address string) ([]*ledger.Transaction, error) {
	req, err := NewEnvelope(TypeGetTransactions, s.config.NodeID, time.Now().Unix(), GetTransactionsPayload{})
	if err != nil {
		return nil, err
	}
	resp, err := s.reqresp.SendRequest(address, req)
	if err != nil {
		return nil, err
	}
	env := resp.(*Envelope)
	var payload TransactionsPayload
	if err := env.Parse(&payload); err != nil {
		return nil, err
	}
	return payload.Transactions, nil
}

// SyncFrom pulls every block address has beyond the local tip, applying
// each as it arrives, until the peer has nothing more or a batch comes
// back short (signalling the peer's own tip was reached), then pulls
// address's pool so a freshly-synced node doesn't start with an empty
// mempool.
func (s *Server) SyncFrom(address string) error {
	for {
		height := s.config.Ledger.Height() + 1
		batch, err := s.RequestBlocks(address, height, 500)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			break
		}
		for _, b := range batch {
			if _, err := s.config.Ledger.AppendBlock(b); err != nil {
				return err
			}
		}
		if len(batch) < 500 {
			break
		}
	}

	txs, err := s.RequestTransactions(address)
	if err != nil {
		return err
	}
	for _, tx := range txs {
		if err := s.config.Ledger.InsertTransaction(*tx); err != nil {
			s.log.Debug("skipping transaction from peer pool sync", zap.Error(err))
		}
	}
	return nil
}
