// Package p2p implements the gossip transport nodes use to exchange
// blocks, transactions and peer addresses: a WebSocket-framed JSON
// envelope, a peer table, broadcast dedup, and request/response
// correlation for point-to-point sync.
package p2p

import (
	"encoding/json"

	"github.com/aurum-chain/aurum/internal/ledger"
)

// MessageType identifies the payload carried by an Envelope.
type MessageType string

const (
	TypeHandshake       MessageType = "handshake"
	TypeDisconnect      MessageType = "disconnect"
	TypeNewBlock        MessageType = "new_block"
	TypeNewTx           MessageType = "new_transaction"
	TypeGetBlocks       MessageType = "get_blocks"
	TypeBlocks          MessageType = "blocks"
	TypeGetTransactions MessageType = "get_transactions"
	TypeTransactions    MessageType = "transactions"
	TypeGetPeers        MessageType = "get_peers"
	TypeSharePeers      MessageType = "share_peers"
	TypePing            MessageType = "ping"
	TypePong            MessageType = "pong"
)

// Envelope is the wire format every gossip message travels in. RequestID
// and ReplyTo implement request/response correlation: a request sets
// RequestID, the matching response echoes it back as ReplyTo.
type Envelope struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"data"`
	From      string          `json:"from"`
	Timestamp int64           `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
	ReplyTo   string          `json:"replyTo,omitempty"`
}

// NewEnvelope marshals payload into a new Envelope of the given type.
func NewEnvelope(msgType MessageType, from string, timestamp int64, payload any) (*Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{Type: msgType, From: from, Timestamp: timestamp, Payload: json.RawMessage(b)}, nil
}

// Parse unmarshals e's payload into dst.
func (e *Envelope) Parse(dst any) error {
	return json.Unmarshal(e.Payload, dst)
}

// GetRequestID and SetRequestID/GetReplyTo/SetReplyTo satisfy the
// reqresp.Message interface so *Envelope can be correlated.
func (e *Envelope) GetRequestID() string     { return e.RequestID }
func (e *Envelope) SetRequestID(id string)   { e.RequestID = id }
func (e *Envelope) GetReplyTo() string       { return e.ReplyTo }
func (e *Envelope) SetReplyTo(id string)     { e.ReplyTo = id }

// HandshakePayload is exchanged immediately after a connection opens.
type HandshakePayload struct {
	NodeID      string `json:"nodeId"`
	NetworkID   string `json:"networkId"`
	ChainHeight uint64 `json:"chainHeight"`
	ListenAddr  string `json:"listenAddr"`
	Version     string `json:"version"`
}

// DisconnectPayload explains why a peer is closing the session — sent
// either voluntarily or when the peer's outbound queue overflowed.
type DisconnectPayload struct {
	Reason string `json:"reason"`
}

// NewBlockPayload announces or answers with a single block.
type NewBlockPayload struct {
	Block *ledger.Block `json:"block"`
}

// NewTxPayload announces a single pending transaction.
type NewTxPayload struct {
	Transaction *ledger.Transaction `json:"transaction"`
}

// GetBlocksPayload requests a contiguous range of main-chain blocks, the
// batch sync primitive spec.md section 4.3 names.
type GetBlocksPayload struct {
	FromHeight uint64 `json:"fromHeight"`
	MaxBlocks  int    `json:"maxBlocks"`
}

// BlocksPayload answers a GetBlocksPayload request.
type BlocksPayload struct {
	Blocks []*ledger.Block `json:"blocks"`
}

// GetTransactionsPayload requests every transaction currently pooled.
type GetTransactionsPayload struct{}

// TransactionsPayload answers a GetTransactionsPayload request.
type TransactionsPayload struct {
	Transactions []*ledger.Transaction `json:"transactions"`
}

// GetPeersPayload requests known peer addresses.
type GetPeersPayload struct {
	MaxPeers int `json:"maxPeers"`
}

// SharePeersPayload answers a GetPeersPayload request.
type SharePeersPayload struct {
	Peers []string `json:"peers"`
}

// PingPayload and PongPayload implement the keepalive round trip.
type PingPayload struct {
	Timestamp int64 `json:"timestamp"`
}

type PongPayload struct {
	Timestamp int64 `json:"timestamp"`
}
