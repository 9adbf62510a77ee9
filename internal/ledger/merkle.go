package ledger

import (
	"crypto/sha256"
	"encoding/hex"
)

// MerkleRoot computes the root over txs following spec.md section 4.2:
// leaf hash is SHA-256 of the canonical transaction encoding without the
// signature field; internal nodes hash the concatenation of their
// children; an odd level duplicates its last node, the way the teacher's
// MerkleTransactions does. An empty list's root is 64 zero characters; a
// single transaction's root is just its leaf hash.
func MerkleRoot(txs []Transaction) string {
	if len(txs) == 0 {
		return ZeroHash
	}

	level := make([][32]byte, len(txs))
	for i := range txs {
		sum := sha256.Sum256(SigningMessage(&txs[i]))
		level[i] = sum
	}

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([][32]byte, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			h := sha256.New()
			h.Write(level[i][:])
			h.Write(level[i+1][:])
			var sum [32]byte
			copy(sum[:], h.Sum(nil))
			next[i/2] = sum
		}
		level = next
	}
	return hex.EncodeToString(level[0][:])
}
