package ledger

import (
	"github.com/aurum-chain/aurum/internal/crypto"
)

// AssembleBlock builds a candidate block for proposer at height, on top
// of parentID, following spec.md section 4.2's block assembly rule: take
// the pool's fee-ordered transactions, simulating each against a private
// copy of state, stopping once a transaction would violate an invariant
// or the block is full, then append a synthesized Reward transaction for
// the proposer. The returned block is unsigned; SignBlock fills in the
// signature once the caller has a private key.
func AssembleBlock(pool *Pool, baseState *state, params Params, height uint64, parentID string, timestamp int64, proposer string) *Block {
	sim := cloneState(baseState)

	candidates := pool.OrderedForBlock()
	included := make([]Transaction, 0, params.MaxBlockTx)
	for _, tx := range candidates {
		if len(included) >= params.MaxBlockTx {
			break
		}
		if err := validateAndApplyTransaction(&tx, sim); err != nil {
			break
		}
		included = append(included, tx)
	}

	reward := Transaction{
		Kind:      KindReward,
		Sender:    NetworkSender,
		Recipient: proposer,
		Amount:    params.BlockReward,
		Fee:       0,
		Timestamp: timestamp,
		Sequence:  0,
	}
	reward.ID = HashTransaction(&reward)
	included = append(included, reward)

	header := BlockHeader{
		Height:     height,
		ParentID:   parentID,
		Timestamp:  timestamp,
		MerkleRoot: MerkleRoot(included),
		Proposer:   proposer,
		Nonce:      0,
	}

	return &Block{Header: header, Transactions: included}
}

// SignBlock signs block's header with priv and fills in the signature,
// and stamps every included transaction's ID.
func SignBlock(block *Block, priv crypto.PrivateKey) error {
	for i := range block.Transactions {
		block.Transactions[i].ID = HashTransaction(&block.Transactions[i])
	}
	sig, err := crypto.Sign(HeaderSigningMessage(&block.Header), priv)
	if err != nil {
		return err
	}
	block.Signature = sig[:]
	return nil
}

func cloneState(s *state) *state {
	clone := newState(s.params)
	for addr, a := range s.accounts {
		copyAccount := *a
		clone.accounts[addr] = &copyAccount
	}
	for addr, v := range s.validators {
		copyValidator := *v
		clone.validators[addr] = &copyValidator
	}
	return clone
}
