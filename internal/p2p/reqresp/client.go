// Package reqresp correlates outgoing gossip requests with their
// eventual responses over a transport that otherwise has no built-in
// notion of a call — every message is just a fire-and-forget send.
package reqresp

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// Message is the minimum shape reqresp needs from a transport envelope:
// a request ID it can stamp on the way out and read back on the way in.
type Message interface {
	GetRequestID() string
	SetRequestID(string)
	GetReplyTo() string
	SetReplyTo(string)
}

// Sender delivers a message to one peer, identified by address.
type Sender interface {
	SendTo(address string, msg Message) error
}

// Config bounds how many requests may be outstanding at once and how
// long SendRequest waits before giving up.
type Config struct {
	MaxPending  int
	ReplyTimeout time.Duration
}

// DefaultConfig matches spec.md section 4.3's 10 second request timeout.
func DefaultConfig() Config {
	return Config{MaxPending: 256, ReplyTimeout: 10 * time.Second}
}

// Client tracks outstanding requests and delivers their responses.
type Client struct {
	config  Config
	sender  Sender
	mu      sync.Mutex
	pending map[string]chan Message
}

// New creates a correlation client that sends through sender.
func New(config Config, sender Sender) *Client {
	return &Client{config: config, sender: sender, pending: make(map[string]chan Message)}
}

func generateRequestID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// SendRequest stamps msg with a fresh request id, sends it to address,
// and blocks until a matching response arrives or the timeout elapses.
func (c *Client) SendRequest(address string, msg Message) (Message, error) {
	id := generateRequestID()
	ch := make(chan Message, 1)

	c.mu.Lock()
	if len(c.pending) >= c.config.MaxPending {
		c.mu.Unlock()
		return nil, fmt.Errorf("reqresp: too many pending requests")
	}
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	msg.SetRequestID(id)
	if err := c.sender.SendTo(address, msg); err != nil {
		return nil, fmt.Errorf("reqresp: send failed: %w", err)
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-time.After(c.config.ReplyTimeout):
		return nil, fmt.Errorf("reqresp: timed out waiting for reply from %s", address)
	}
}

// Deliver hands an incoming message to the SendRequest call waiting on
// it if it carries a ReplyTo matching a pending request. Returns true if it was
// claimed as a response, false if the caller should treat it as a fresh
// inbound message instead.
func (c *Client) Deliver(msg Message) bool {
	replyTo := msg.GetReplyTo()
	if replyTo == "" {
		return false
	}
	c.mu.Lock()
	ch, ok := c.pending[replyTo]
	c.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- msg:
		return true
	default:
		return false
	}
}

// PendingCount reports how many requests are currently awaiting a reply.
func (c *Client) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
