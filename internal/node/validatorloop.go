package node

import (
	"time"

	"go.uber.org/zap"
)

// runValidatorLoop checks at a fraction of the chain's block time
// whether this node's validator address is the elected proposer for the
// next height and, if so, assembles, signs, appends and broadcasts a
// block. Ticking faster than BlockTimeMillis keeps proposer handoff
// responsive without requiring the elected node to act within one exact
// instant.
func (n *Node) runValidatorLoop() {
	blockTime := time.Duration(n.ledger.Params().BlockTimeMillis) * time.Millisecond
	tick := blockTime / 3
	if tick <= 0 {
		tick = time.Second
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	log := n.log.With(zap.String("component", "validator"), zap.String("address", n.cfg.ValidatorAddress))
	var lastAttempt uint64

	for {
		select {
		case <-n.stop:
			return
		case <-ticker.C:
			height := n.ledger.Height()
			if height == lastAttempt {
				continue
			}
			tip := n.ledger.Tip()
			elapsed := time.Since(time.Unix(tip.Header.Timestamp, 0))
			if elapsed < blockTime {
				continue
			}
			proposer, err := n.ledger.ElectProposerForNextHeight()
			if err != nil {
				log.Debug("no eligible proposer", zap.Error(err))
				continue
			}
			if proposer != n.cfg.ValidatorAddress {
				continue
			}
			lastAttempt = height
			n.proposeBlock(log)
		}
	}
}

func (n *Node) proposeBlock(log *zap.Logger) {
	block, err := n.ledger.AssembleNextBlock(n.cfg.ValidatorAddress, n.validatorPriv, time.Now().Unix())
	if err != nil {
		log.Warn("failed to assemble block", zap.Error(err))
		return
	}
	applied, err := n.ledger.AppendBlock(block)
	if err != nil {
		log.Warn("failed to append own block", zap.Error(err))
		return
	}
	if !applied {
		log.Warn("own block did not apply to tip", zap.Uint64("height", block.Header.Height))
		return
	}
	log.Info("produced block", zap.Uint64("height", block.Header.Height), zap.Int("txs", len(block.Transactions)))
	n.p2pServer.BroadcastBlock(block)
	n.events.publish(block)
}
