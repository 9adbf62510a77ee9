package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// canonicalBytes encodes v (a canonicalTx or canonicalHeader) as a JSON
// object with keys in declared field order and no insignificant
// whitespace, per spec.md section 4.1's canonical encoding requirement.
// encoding/json already serializes struct fields in declaration order and
// produces compact output, so this is the single definition every other
// hashing/signing call goes through — callers never hand-format a record.
func canonicalBytes(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// Every canonical struct is built from plain scalars and byte
		// slices; Marshal cannot fail on them.
		panic("ledger: canonical encoding failed: " + err.Error())
	}
	return b
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// SigningMessage returns the bytes a sender signs and a verifier hashes:
// the canonical encoding of tx with Signature and ID omitted.
func SigningMessage(tx *Transaction) []byte {
	return canonicalBytes(canonicalTx{
		Kind:      tx.Kind,
		Sender:    tx.Sender,
		Recipient: tx.Recipient,
		Amount:    tx.Amount,
		Fee:       tx.Fee,
		Timestamp: tx.Timestamp,
		Payload:   tx.Payload,
		Sequence:  tx.Sequence,
	})
}

// HashTransaction computes a transaction's content identifier: the
// SHA-256 digest of its canonical encoding, Signature excluded.
func HashTransaction(tx *Transaction) string {
	return sha256Hex(SigningMessage(tx))
}

// HeaderSigningMessage returns the bytes a proposer signs over a header.
func HeaderSigningMessage(h *BlockHeader) []byte {
	return canonicalBytes(canonicalHeader{
		Height:     h.Height,
		ParentID:   h.ParentID,
		Timestamp:  h.Timestamp,
		MerkleRoot: h.MerkleRoot,
		Proposer:   h.Proposer,
		Nonce:      h.Nonce,
	})
}

// HashHeader computes a block header's content identifier, used as the
// next block's ParentID.
func HashHeader(h *BlockHeader) string {
	return sha256Hex(HeaderSigningMessage(h))
}
