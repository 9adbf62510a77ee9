package node

import (
	"path/filepath"

	"go.uber.org/zap"

	"github.com/aurum-chain/aurum/internal/ledger"
	"github.com/aurum-chain/aurum/internal/persistence"
)

// writeSnapshot dumps the ledger's account and validator state at
// height to disk, so the node can resume near the tip after a restart
// instead of replaying every block from genesis through badger.
func (n *Node) writeSnapshot(height uint64) {
	head, ok := n.ledger.BlockByHeight(height)
	if !ok {
		return
	}

	validators := n.ledger.Validators()
	validatorMap := make(map[string]ledger.Validator, len(validators))
	for _, v := range validators {
		validatorMap[v.Address] = v
	}

	accounts := n.snapshotAccounts(head)

	snap := persistence.Snapshot{
		Height:              height,
		Accounts:            accounts,
		Validators:          validatorMap,
		MintedReward:        n.ledger.TotalSupply() - n.ledger.Params().InitialSupply,
		PendingTransactions: n.ledger.Pool().All(),
	}

	path := filepath.Join(n.cfg.DataDir, snapshotFileName)
	if err := persistence.WriteSnapshot(path, snap); err != nil {
		n.log.Error("failed to write snapshot", zap.Uint64("height", height), zap.Error(err))
		return
	}
	n.log.Info("wrote snapshot", zap.Uint64("height", height))
}

// snapshotAccounts collects every address this node has ever observed
// as a transaction sender or recipient in the confirmed chain, reading
// their live balances back out of the ledger. Validators are walked
// separately since a validator's stake is already captured by
// n.ledger.Validators.
func (n *Node) snapshotAccounts(head *ledger.Block) map[string]ledger.Account {
	seen := make(map[string]bool)
	// Blocks below the height the ledger was restored at are not held in
	// memory; their addresses come from the snapshot being replaced.
	if prev, found, err := persistence.ReadSnapshot(filepath.Join(n.cfg.DataDir, snapshotFileName)); err == nil && found {
		for addr := range prev.Accounts {
			seen[addr] = true
		}
	}
	for h := uint64(0); h <= head.Header.Height; h++ {
		block, ok := n.ledger.BlockByHeight(h)
		if !ok {
			continue
		}
		for _, tx := range block.Transactions {
			seen[tx.Sender] = true
			seen[tx.Recipient] = true
		}
	}
	delete(seen, ledger.NetworkSender)

	accounts := make(map[string]ledger.Account, len(seen))
	for addr := range seen {
		accounts[addr] = n.ledger.Account(addr)
	}
	return accounts
}
