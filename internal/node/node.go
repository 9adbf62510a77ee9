// Package node wires a ledger, the gossip server, persistence and the
// query/API surface into one running full node, the way the teacher's
// FullNode orchestrates its own store, block processor and p2p server.
package node

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/aurum-chain/aurum/api"
	"github.com/aurum-chain/aurum/internal/config"
	"github.com/aurum-chain/aurum/internal/crypto"
	"github.com/aurum-chain/aurum/internal/keystore"
	"github.com/aurum-chain/aurum/internal/ledger"
	"github.com/aurum-chain/aurum/internal/p2p"
	"github.com/aurum-chain/aurum/internal/persistence"
	"github.com/aurum-chain/aurum/internal/query"
)

const snapshotFileName = "snapshot.json"

// Node is a running Aurum full node: ledger, gossip, persistence, the
// read-only query surface and, optionally, a validator loop producing
// blocks on its own stake-weighted turn.
type Node struct {
	cfg config.Config
	log *zap.Logger

	ledger *ledger.Ledger
	store  *persistence.Store
	query  *query.Service

	p2pServer *p2p.Server
	discovery *p2p.Discovery
	apiServer *api.Server

	events *blockAppliedQueue

	validatorPriv    crypto.PrivateKey
	validatorEnabled bool

	stop chan struct{}
}

// New builds a Node from cfg, opening its data directory and restoring
// ledger state from the latest snapshot plus any blocks written after
// it, instead of replaying gossip from genesis on every restart.
func New(cfg config.Config, nodeID string, logger *zap.Logger) (*Node, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.With(zap.String("component", "node"))

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("node: data dir: %w", err)
	}

	store, err := persistence.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	n := &Node{
		cfg:    cfg,
		log:    log,
		store:  store,
		events: newBlockAppliedQueue(log),
		stop:   make(chan struct{}),
	}

	if err := n.restoreLedger(); err != nil {
		store.Close()
		return nil, err
	}
	n.query = query.New(n.ledger, n.store)

	n.p2pServer = p2p.NewServer(p2p.Config{
		ListenAddr:     cfg.P2PListenAddr,
		NodeID:         nodeID,
		NetworkID:      cfg.NetworkID,
		MaxPeers:       cfg.MaxPeers,
		Ledger:         n.ledger,
		Logger:         logger,
		OnBlockApplied: n.events.publish,
	})
	n.discovery = p2p.NewDiscovery(n.p2pServer, cfg.SeedPeers)
	n.apiServer = api.NewServer(cfg.APIListenAddr, n.query, n.ledger, logger)

	return n, nil
}

// restoreLedger seeds n.ledger from the latest snapshot (if any) and
// then replays every block persisted after the snapshot height, so a
// restart re-validates at least the tail of the chain rather than
// trusting the whole snapshot blindly.
func (n *Node) restoreLedger() error {
	snapPath := filepath.Join(n.cfg.DataDir, snapshotFileName)
	snap, found, err := persistence.ReadSnapshot(snapPath)
	if err != nil {
		return fmt.Errorf("node: reading snapshot: %w", err)
	}

	params := ledger.DefaultParams(n.cfg.NetworkID, time.Now().Unix())

	if !found {
		n.ledger = ledger.New(params)
		return n.replayFrom(0)
	}

	head, err := n.store.BlockByHeight(snap.Height)
	if err != nil {
		n.log.Warn("snapshot present but head block missing, rebuilding from genesis", zap.Error(err))
		n.ledger = ledger.New(params)
		return n.replayFrom(0)
	}

	n.ledger = ledger.New(params)
	n.ledger.RestoreTrustedHead(head, snap.Accounts, snap.Validators, snap.MintedReward)
	if err := n.replayFrom(snap.Height + 1); err != nil {
		return err
	}
	n.restorePool(snap.PendingTransactions)
	return nil
}

// restorePool re-inserts transactions that were still pooled at the time
// the snapshot was taken. A transaction that landed in a block during
// replay, or whose sender sequence has since moved on, is skipped rather
// than treated as a restore failure.
func (n *Node) restorePool(pending []ledger.Transaction) {
	for _, tx := range pending {
		if err := n.ledger.InsertTransaction(tx); err != nil {
			n.log.Debug("skipping pooled transaction from snapshot", zap.String("id", tx.ID), zap.Error(err))
		}
	}
}

func (n *Node) replayFrom(height uint64) error {
	for h := height; ; h++ {
		block, err := n.store.BlockByHeight(h)
		if err != nil {
			return nil
		}
		if _, err := n.ledger.AppendBlock(block); err != nil {
			return fmt.Errorf("node: replaying block %d: %w", h, err)
		}
	}
}

// EnableValidator unlocks the wallet at address in the node's wallet
// directory with password and arms the validator loop. Must be called
// before Start.
func (n *Node) EnableValidator(address, password string) error {
	priv, _, err := keystore.LoadWallet(n.cfg.WalletDir, address, password)
	if err != nil {
		return err
	}
	n.validatorPriv = priv
	n.validatorEnabled = true
	n.cfg.ValidatorAddress = address
	return nil
}

// Start brings every subsystem up: gossip, discovery, the API server,
// the persistence consumer, and — if armed — the validator loop. It
// returns once startup has been kicked off; subsystems keep running in
// their own goroutines until Stop.
func (n *Node) Start() error {
	if err := n.p2pServer.Start(); err != nil {
		return fmt.Errorf("node: starting p2p server: %w", err)
	}
	time.Sleep(100 * time.Millisecond)
	n.discovery.Start()
	n.apiServer.Start()

	go n.consumeAppliedBlocks()
	go n.evictExpiredTransactions()

	if n.validatorEnabled {
		go n.runValidatorLoop()
	}

	n.log.Info("node started",
		zap.String("networkId", n.cfg.NetworkID),
		zap.String("p2pAddr", n.cfg.P2PListenAddr),
		zap.String("apiAddr", n.cfg.APIListenAddr),
		zap.Bool("validator", n.validatorEnabled))
	return nil
}

// Stop gracefully shuts every subsystem down.
func (n *Node) Stop(ctx context.Context) error {
	close(n.stop)
	n.discovery.Stop()
	if err := n.apiServer.Stop(ctx); err != nil {
		n.log.Warn("api server shutdown", zap.Error(err))
	}
	if err := n.p2pServer.Stop(ctx); err != nil {
		n.log.Warn("p2p server shutdown", zap.Error(err))
	}
	if err := n.store.Sync(); err != nil {
		n.log.Warn("persistence sync", zap.Error(err))
	}
	if err := n.store.Close(); err != nil {
		n.log.Warn("persistence close", zap.Error(err))
	}
	n.log.Info("node stopped")
	return nil
}

// consumeAppliedBlocks is the single reader of the block-applied event
// queue: it persists every newly-applied block and, every
// SnapshotInterval blocks, writes a fresh state snapshot.
func (n *Node) consumeAppliedBlocks() {
	for {
		select {
		case <-n.stop:
			return
		case block := <-n.events.ch:
			n.persistApplied(block)
		}
	}
}

func (n *Node) persistApplied(block *ledger.Block) {
	if err := n.store.PutBlock(block); err != nil {
		n.log.Error("failed to persist block", zap.Uint64("height", block.Header.Height), zap.Error(err))
		return
	}
	interval := n.cfg.SnapshotInterval
	if interval <= 0 {
		interval = 100
	}
	if block.Header.Height%uint64(interval) == 0 {
		n.writeSnapshot(block.Header.Height)
	}
}

// evictExpiredTransactions periodically clears stale unconfirmed
// transactions from the mempool so a sender who never gets confirmed
// doesn't hold a pool slot (and their sequence number) forever.
func (n *Node) evictExpiredTransactions() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-n.stop:
			return
		case <-ticker.C:
			if evicted := n.ledger.Pool().EvictExpired(); evicted > 0 {
				n.log.Debug("evicted expired pool transactions", zap.Int("count", evicted))
			}
		}
	}
}

// Ledger exposes the underlying ledger, for the CLI's local
// transaction-submission path and tests.
func (n *Node) Ledger() *ledger.Ledger { return n.ledger }

// Query exposes the read-only query service.
func (n *Node) Query() *query.Service { return n.query }
