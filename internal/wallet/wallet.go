// Package wallet builds signed transactions from a keystore-held
// private key and the sender's current on-chain sequence number.
package wallet

import (
	"time"

	"github.com/aurum-chain/aurum/internal/crypto"
	"github.com/aurum-chain/aurum/internal/keystore"
	"github.com/aurum-chain/aurum/internal/ledger"
)

// SequenceSource reports the next expected sequence number for an
// address. *ledger.Ledger satisfies this directly; tests can supply a
// stub instead of standing up a full ledger.
type SequenceSource interface {
	Account(address string) ledger.Account
}

// CreateTransaction builds and signs a transaction from the wallet
// stored under (dir, from) unlocked with password. The sequence number
// is read from source at call time rather than hardcoded at zero — a
// hardcoded nonce would make every transaction after a sender's first
// rejected as a sequence mismatch, the mistake flagged in spec.md
// section 9.
func CreateTransaction(dir, password, from, to string, amount, fee uint64, kind ledger.TxKind, source SequenceSource) (ledger.Transaction, error) {
	priv, _, err := keystore.LoadWallet(dir, from, password)
	if err != nil {
		return ledger.Transaction{}, err
	}
	account := source.Account(from)

	tx := ledger.Transaction{
		Kind:      kind,
		Sender:    from,
		Recipient: to,
		Amount:    amount,
		Fee:       fee,
		Timestamp: time.Now().Unix(),
		Sequence:  account.Sequence,
	}
	return Sign(tx, priv)
}

// Sign computes tx's content hash and signature from priv, returning the
// fully-formed transaction ready for submission.
func Sign(tx ledger.Transaction, priv crypto.PrivateKey) (ledger.Transaction, error) {
	sig, err := crypto.Sign(ledger.SigningMessage(&tx), priv)
	if err != nil {
		return ledger.Transaction{}, err
	}
	tx.Signature = sig[:]
	tx.ID = ledger.HashTransaction(&tx)
	return tx, nil
}
