package p2p

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Status is a peer connection's lifecycle state.
type Status int

const (
	StatusConnecting Status = iota
	StatusConnected
	StatusDisconnected
	StatusFailed
)

// Peer is one remote node's connection and last-known metadata.
type Peer struct {
	ID         string
	Address    string
	conn       *websocket.Conn
	writeMu    sync.Mutex
	Status     Status
	LastSeen   time.Time
	ChainHeight uint64
	// outbox bounds how many unsent broadcast messages this peer may
	// accumulate; once it is full, enqueue disconnects the peer rather
	// than let one slow peer back up every other peer's broadcasts.
	outbox chan *Envelope
}

const outboxCapacity = 256

func newPeer(id, address string, conn *websocket.Conn) *Peer {
	return &Peer{
		ID:       id,
		Address:  address,
		conn:     conn,
		Status:   StatusConnecting,
		LastSeen: time.Now(),
		outbox:   make(chan *Envelope, outboxCapacity),
	}
}

// send writes env to the peer's socket. Only one goroutine per peer may
// call send concurrently; gorilla/websocket connections are not safe for
// concurrent writers, so every write goes through writeMu.
func (p *Peer) send(env *Envelope) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.WriteJSON(env)
}

// enqueue drops env into the peer's outbox, a bounded queue per peer
// rather than an unbounded one per broadcast. If the peer is too slow to
// keep up and the outbox is still full, the session is torn down instead
// of buffering without bound, per spec.md section 4.3's "overflow
// disconnects the peer with reason 'slow'" rule.
func (p *Peer) enqueue(env *Envelope) {
	select {
	case p.outbox <- env:
	default:
		p.disconnectSlow()
	}
}

// disconnectSlow tears down an overloaded peer's session: a best-effort
// Disconnect notice followed by closing the socket, which the read loop
// observes and turns into removal from the peer table.
func (p *Peer) disconnectSlow() {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if p.Status == StatusFailed {
		return
	}
	p.Status = StatusFailed
	if p.conn == nil {
		return
	}
	if notice, err := NewEnvelope(TypeDisconnect, p.ID, time.Now().Unix(), DisconnectPayload{Reason: "slow"}); err == nil {
		p.conn.WriteJSON(notice)
	}
	p.conn.Close()
}

// pump drains the outbox to the socket until closed. Run once per peer
// in its own goroutine so broadcast senders never block on a slow peer.
func (p *Peer) pump() {
	for env := range p.outbox {
		if err := p.send(env); err != nil {
			return
		}
	}
}

// PeerManager tracks every known peer by address and enforces MaxPeers.
type PeerManager struct {
	mu       sync.RWMutex
	peers    map[string]*Peer
	maxPeers int
}

// NewPeerManager creates an empty peer table bounded at maxPeers.
func NewPeerManager(maxPeers int) *PeerManager {
	return &PeerManager{peers: make(map[string]*Peer), maxPeers: maxPeers}
}

// Add registers a new peer connection at address, or returns nil if the
// table is full or address is already known.
func (pm *PeerManager) Add(address string, conn *websocket.Conn) *Peer {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if _, exists := pm.peers[address]; exists {
		return nil
	}
	if len(pm.peers) >= pm.maxPeers {
		return nil
	}
	p := newPeer(address, address, conn)
	pm.peers[address] = p
	go p.pump()
	return p
}

// Remove drops address from the table and closes its outbox.
func (pm *PeerManager) Remove(address string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if p, ok := pm.peers[address]; ok {
		close(p.outbox)
		delete(pm.peers, address)
	}
}

// Get returns the peer at address, if known.
func (pm *PeerManager) Get(address string) (*Peer, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	p, ok := pm.peers[address]
	return p, ok
}

// Connected returns every peer currently in the connected state.
func (pm *PeerManager) Connected() []*Peer {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	out := make([]*Peer, 0, len(pm.peers))
	for _, p := range pm.peers {
		if p.Status == StatusConnected {
			out = append(out, p)
		}
	}
	return out
}

// Count returns the total number of known peers, regardless of status.
func (pm *PeerManager) Count() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return len(pm.peers)
}

// Addresses returns every known peer address.
func (pm *PeerManager) Addresses() []string {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	out := make([]string, 0, len(pm.peers))
	for addr := range pm.peers {
		out = append(out, addr)
	}
	return out
}

// Full reports whether the table is at MaxPeers.
func (pm *PeerManager) Full() bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return len(pm.peers) >= pm.maxPeers
}
