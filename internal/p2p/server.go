package p2p

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aurum-chain/aurum/internal/chainerr"
	"github.com/aurum-chain/aurum/internal/ledger"
	"github.com/aurum-chain/aurum/internal/p2p/reqresp"
)

// Config wires a Server to the rest of the node.
type Config struct {
	ListenAddr string
	NodeID     string
	NetworkID  string
	MaxPeers   int
	Ledger     *ledger.Ledger
	Logger     *zap.Logger

	// OnBlockApplied, if set, is called after a gossiped block is
	// accepted onto the main chain — the orchestrator's hook for
	// bridging gossip into its own typed event channels instead of the
	// server reaching into node internals directly.
	OnBlockApplied func(*ledger.Block)
}

// Server accepts inbound WebSocket peers, maintains outbound
// connections, and gossips blocks and transactions between them.
type Server struct {
	config Config
	log    *zap.Logger

	peers    *PeerManager
	dedup    *dedupper
	reqresp  *reqresp.Client
	upgrader websocket.Upgrader

	httpServer *http.Server
}

// NewServer builds a Server ready to Start. MaxPeers defaults to 8 if
// unset, matching the teacher's peer manager default.
func NewServer(cfg Config) *Server {
	if cfg.MaxPeers == 0 {
		cfg.MaxPeers = 8
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		config:   cfg,
		log:      log.With(zap.String("component", "p2p")),
		peers:    NewPeerManager(cfg.MaxPeers),
		dedup:    newDedupper(),
		upgrader: websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
	}
	s.reqresp = reqresp.New(reqresp.DefaultConfig(), s)
	return s
}

// SendTo implements reqresp.Sender by writing directly to a connected
// peer's outbox.
func (s *Server) SendTo(address string, msg reqresp.Message) error {
	env, ok := msg.(*Envelope)
	if !ok {
		return chainerr.New(chainerr.StorageFailure, "p2p: not an envelope")
	}
	peer, ok := s.peers.Get(address)
	if !ok {
		return chainerr.Newf(chainerr.StorageFailure, "p2p: peer %s not connected", address)
	}
	peer.enqueue(env)
	return nil
}

// Start begins accepting inbound peer connections on cfg.ListenAddr.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/gossip", s.handleUpgrade)
	s.httpServer = &http.Server{Addr: s.config.ListenAddr, Handler: mux}

	s.log.Info("p2p server listening", zap.String("addr", s.config.ListenAddr))
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("p2p server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Stop notifies every connected peer that the session is ending and
// gracefully shuts down the listener.
func (s *Server) Stop(ctx context.Context) error {
	s.DisconnectAll("shutdown")
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// DisconnectAll sends every connected peer a Disconnect message carrying
// reason, the graceful counterpart to the read loop just noticing a
// closed socket.
func (s *Server) DisconnectAll(reason string) {
	env, err := NewEnvelope(TypeDisconnect, s.config.NodeID, time.Now().Unix(), DisconnectPayload{Reason: reason})
	if err != nil {
		return
	}
	for _, peer := range s.peers.Connected() {
		peer.enqueue(env)
	}
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", zap.Error(err))
		return
	}
	s.adopt(r.RemoteAddr, conn, true)
}

// Dial opens an outbound gossip connection to address (host:port).
func (s *Server) Dial(address string) error {
	url := "ws://" + address + "/gossip"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return err
	}
	s.adopt(address, conn, false)
	return nil
}

// adopt registers conn under address, sends the handshake if we dialed
// out, and spawns the read loop.
func (s *Server) adopt(address string, conn *websocket.Conn, inbound bool) {
	peer := s.peers.Add(address, conn)
	if peer == nil {
		s.log.Debug("rejecting peer, table full or already known", zap.String("addr", address))
		conn.Close()
		return
	}
	peer.Status = StatusConnected

	if !inbound {
		s.sendHandshake(peer)
	}
	go s.readLoop(peer)
}

func (s *Server) sendHandshake(peer *Peer) {
	hs := HandshakePayload{
		NodeID:      s.config.NodeID,
		NetworkID:   s.config.NetworkID,
		ChainHeight: s.config.Ledger.Height(),
		ListenAddr:  s.config.ListenAddr,
		Version:     "1",
	}
	env, err := NewEnvelope(TypeHandshake, s.config.NodeID, time.Now().Unix(), hs)
	if err != nil {
		s.log.Error("failed to build handshake", zap.Error(err))
		return
	}
	peer.enqueue(env)
}

func (s *Server) readLoop(peer *Peer) {
	defer func() {
		peer.Status = StatusDisconnected
		s.peers.Remove(peer.Address)
	}()
	for {
		var env Envelope
		if err := peer.conn.ReadJSON(&env); err != nil {
			s.log.Debug("peer read loop ended", zap.String("addr", peer.Address), zap.Error(err))
			return
		}
		peer.LastSeen = time.Now()
		s.dispatch(peer, &env)
	}
}

// dispatch first offers env to the request/response correlator; if it
// is not claimed as a reply, it is handled as a fresh inbound message.
func (s *Server) dispatch(peer *Peer, env *Envelope) {
	if s.reqresp.Deliver(env) {
		return
	}

	switch env.Type {
	case TypeHandshake:
		s.onHandshake(peer, env)
	case TypeDisconnect:
		s.onDisconnect(peer, env)
	case TypeNewBlock:
		s.onNewBlock(peer, env)
	case TypeNewTx:
		s.onNewTx(peer, env)
	case TypeGetBlocks:
		s.onGetBlocks(peer, env)
	case TypeGetTransactions:
		s.onGetTransactions(peer, env)
	case TypeGetPeers:
		s.onGetPeers(peer, env)
	case TypePing:
		s.onPing(peer, env)
	case TypePong:
		peer.LastSeen = time.Now()
	default:
		s.log.Warn("unknown envelope type", zap.String("type", string(env.Type)))
	}
}

func (s *Server) onHandshake(peer *Peer, env *Envelope) {
	var hs HandshakePayload
	if err := env.Parse(&hs); err != nil {
		s.log.Warn("bad handshake payload", zap.Error(err))
		return
	}
	if hs.NetworkID != s.config.NetworkID {
		s.log.Warn("handshake network mismatch, dropping peer", zap.String("addr", peer.Address))
		s.peers.Remove(peer.Address)
		peer.conn.Close()
		return
	}
	peer.ID = hs.NodeID
	peer.ChainHeight = hs.ChainHeight
	s.log.Info("handshake complete", zap.String("peer", hs.NodeID), zap.Uint64("height", hs.ChainHeight))
}

// onDisconnect honors a peer's voluntary or overflow-triggered session
// close: the reason is logged, and the peer is dropped from the table
// instead of waiting for the read loop to notice the closed socket.
func (s *Server) onDisconnect(peer *Peer, env *Envelope) {
	var payload DisconnectPayload
	_ = env.Parse(&payload)
	s.log.Info("peer disconnected", zap.String("addr", peer.Address), zap.String("reason", payload.Reason))
	s.peers.Remove(peer.Address)
	if peer.conn != nil {
		peer.conn.Close()
	}
}

func (s *Server) onGetTransactions(peer *Peer, env *Envelope) {
	txs := s.config.Ledger.Pool().All()
	payload := TransactionsPayload{Transactions: make([]*ledger.Transaction, len(txs))}
	for i := range txs {
		payload.Transactions[i] = &txs[i]
	}
	resp, err := NewEnvelope(TypeTransactions, s.config.NodeID, time.Now().Unix(), payload)
	if err != nil {
		return
	}
	resp.ReplyTo = env.RequestID
	peer.enqueue(resp)
}

func (s *Server) onNewBlock(peer *Peer, env *Envelope) {
	var payload NewBlockPayload
	if err := env.Parse(&payload); err != nil || payload.Block == nil {
		s.log.Warn("bad block payload", zap.Error(err))
		return
	}
	if s.dedup.seen(TypeNewBlock, []byte(ledger.HashHeader(&payload.Block.Header))) {
		return
	}
	applied, err := s.config.Ledger.AppendBlock(payload.Block)
	if err != nil {
		s.log.Debug("rejected gossiped block", zap.Error(err))
		return
	}
	if applied {
		s.BroadcastBlockExcept(payload.Block, peer.Address)
		if s.config.OnBlockApplied != nil {
			s.config.OnBlockApplied(payload.Block)
		}
	}
}

func (s *Server) onNewTx(peer *Peer, env *Envelope) {
	var payload NewTxPayload
	if err := env.Parse(&payload); err != nil || payload.Transaction == nil {
		return
	}
	if s.dedup.seen(TypeNewTx, []byte(payload.Transaction.ID)) {
		return
	}
	if err := s.config.Ledger.InsertTransaction(*payload.Transaction); err != nil {
		s.log.Debug("rejected gossiped transaction", zap.Error(err))
		return
	}
	s.BroadcastTxExcept(payload.Transaction, peer.Address)
}

func (s *Server) onGetBlocks(peer *Peer, env *Envelope) {
	var req GetBlocksPayload
	if err := env.Parse(&req); err != nil {
		return
	}
	if req.MaxBlocks <= 0 || req.MaxBlocks > 500 {
		req.MaxBlocks = 500
	}
	var blocks []*ledger.Block
	for h := req.FromHeight; h < req.FromHeight+uint64(req.MaxBlocks); h++ {
		b, ok := s.config.Ledger.BlockByHeight(h)
		if !ok {
			break
		}
		blocks = append(blocks, b)
	}
	resp, err := NewEnvelope(TypeBlocks, s.config.NodeID, time.Now().Unix(), BlocksPayload{Blocks: blocks})
	if err != nil {
		return
	}
	resp.ReplyTo = env.RequestID
	peer.enqueue(resp)
}

func (s *Server) onGetPeers(peer *Peer, env *Envelope) {
	var req GetPeersPayload
	if err := env.Parse(&req); err != nil {
		return
	}
	if req.MaxPeers <= 0 {
		req.MaxPeers = 16
	}
	addrs := s.peers.Addresses()
	if len(addrs) > req.MaxPeers {
		addrs = addrs[:req.MaxPeers]
	}
	resp, err := NewEnvelope(TypeSharePeers, s.config.NodeID, time.Now().Unix(), SharePeersPayload{Peers: addrs})
	if err != nil {
		return
	}
	resp.ReplyTo = env.RequestID
	peer.enqueue(resp)
}

func (s *Server) onPing(peer *Peer, env *Envelope) {
	resp, err := NewEnvelope(TypePong, s.config.NodeID, time.Now().Unix(), PongPayload{Timestamp: time.Now().Unix()})
	if err != nil {
		return
	}
	resp.ReplyTo = env.RequestID
	peer.enqueue(resp)
}

// BroadcastBlock announces block to every connected peer.
func (s *Server) BroadcastBlock(block *ledger.Block) { s.BroadcastBlockExcept(block, "") }

// BroadcastBlockExcept announces block to every connected peer other
// than exclude, the relay pattern used to stop a gossiped block from
// bouncing straight back to its sender.
func (s *Server) BroadcastBlockExcept(block *ledger.Block, exclude string) {
	env, err := NewEnvelope(TypeNewBlock, s.config.NodeID, time.Now().Unix(), NewBlockPayload{Block: block})
	if err != nil {
		s.log.Error("failed to build block envelope", zap.Error(err))
		return
	}
	for _, peer := range s.peers.Connected() {
		if peer.Address == exclude {
			continue
		}
		peer.enqueue(env)
	}
}

// BroadcastTx announces tx to every connected peer.
func (s *Server) BroadcastTx(tx *ledger.Transaction) { s.BroadcastTxExcept(tx, "") }

// BroadcastTxExcept announces tx to every connected peer other than
// exclude.
func (s *Server) BroadcastTxExcept(tx *ledger.Transaction, exclude string) {
	env, err := NewEnvelope(TypeNewTx, s.config.NodeID, time.Now().Unix(), NewTxPayload{Transaction: tx})
	if err != nil {
		s.log.Error("failed to build tx envelope", zap.Error(err))
		return
	}
	for _, peer := range s.peers.Connected() {
		if peer.Address == exclude {
			continue
		}
		peer.enqueue(env)
	}
}

// Peers exposes the peer manager for diagnostics and discovery.
func (s *Server) Peers() *PeerManager { return s.peers }
