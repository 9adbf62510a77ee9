package node

import (
	"go.uber.org/zap"

	"github.com/aurum-chain/aurum/internal/ledger"
)

// blockAppliedQueue is the typed channel every producer of newly-applied
// blocks — gossip, the validator loop, chain sync — funnels into, and the
// single consumer (persistence + snapshot scheduling) drains. This is the
// channel-based replacement for a string-keyed event emitter: one
// producer type (*ledger.Block) per channel instead of a subscribe(name,
// callback) registry.
type blockAppliedQueue struct {
	ch  chan *ledger.Block
	log *zap.Logger
}

func newBlockAppliedQueue(log *zap.Logger) *blockAppliedQueue {
	return &blockAppliedQueue{ch: make(chan *ledger.Block, 256), log: log}
}

// publish enqueues block without blocking the caller (the p2p read loop
// or the validator loop). A full queue means persistence has fallen far
// behind; the block is dropped from this notification path but remains
// safe on the main chain and will be picked up when Height() is next
// checked during replay after node restart.
func (q *blockAppliedQueue) publish(block *ledger.Block) {
	select {
	case q.ch <- block:
	default:
		q.log.Warn("block applied queue full, dropping notification",
			zap.Uint64("height", block.Header.Height))
	}
}
