package p2p

import (
	"time"

	"go.uber.org/zap"
)

// Discovery dials the configured seed peers and keeps periodically
// topping the peer table back up while it is under capacity, the way
// the teacher's discovery service handles churn.
type Discovery struct {
	server *Server
	seeds  []string
	log    *zap.Logger
	stop   chan struct{}
}

// NewDiscovery creates a discovery loop for server using the given seed
// addresses.
func NewDiscovery(server *Server, seeds []string) *Discovery {
	return &Discovery{server: server, seeds: seeds, log: server.log.With(zap.String("component", "discovery")), stop: make(chan struct{})}
}

// Start dials every seed once and then checks peer count periodically:
// while the table has room it asks a peer for more addresses, and it
// redials the seeds when fewer than two peers are connected.
func (d *Discovery) Start() {
	go d.connectSeeds()
	go d.periodic()
}

// Stop ends the periodic discovery loop.
func (d *Discovery) Stop() { close(d.stop) }

func (d *Discovery) connectSeeds() {
	for _, addr := range d.seeds {
		go d.tryDial(addr)
	}
}

func (d *Discovery) tryDial(addr string) {
	if err := d.server.Dial(addr); err != nil {
		d.log.Debug("failed to dial seed", zap.String("addr", addr), zap.Error(err))
	}
}

func (d *Discovery) periodic() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			if d.server.Peers().Full() {
				continue
			}
			connected := d.server.Peers().Connected()
			d.log.Debug("periodic discovery check", zap.Int("connected", len(connected)))
			if len(connected) < 2 {
				d.connectSeeds()
			}
			d.sharePeersRequest()
		}
	}
}

// sharePeersRequest asks one connected peer for more addresses and
// dials any that are still unknown.
func (d *Discovery) sharePeersRequest() {
	connected := d.server.Peers().Connected()
	if len(connected) == 0 {
		return
	}
	target := connected[0].Address
	resp, err := d.server.reqresp.SendRequest(target, mustEnvelope(TypeGetPeers, d.server.config.NodeID, GetPeersPayload{MaxPeers: 16}))
	if err != nil {
		return
	}
	env := resp.(*Envelope)
	var payload SharePeersPayload
	if err := env.Parse(&payload); err != nil {
		return
	}
	for _, addr := range payload.Peers {
		if _, known := d.server.Peers().Get(addr); !known {
			go d.tryDial(addr)
		}
	}
}

func mustEnvelope(t MessageType, from string, payload any) *Envelope {
	env, err := NewEnvelope(t, from, time.Now().Unix(), payload)
	if err != nil {
		return &Envelope{Type: t, From: from}
	}
	return env
}
