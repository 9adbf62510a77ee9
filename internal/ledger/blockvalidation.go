package ledger

import (
	"github.com/aurum-chain/aurum/internal/chainerr"
	"github.com/aurum-chain/aurum/internal/crypto"
)

// validateBlockHeader checks height/parent linkage and the proposer
// signature, per spec.md section 4.2 points 1 and 2. Genesis is exempt
// from the signature check.
func validateBlockHeader(block *Block, prev *Block, validators map[string]*Validator) error {
	if block.Header.Height == 0 {
		return nil
	}
	if prev == nil {
		return chainerr.New(chainerr.MissingParent, "no previous block to validate against")
	}
	if block.Header.Height != prev.Header.Height+1 {
		return chainerr.Newf(chainerr.InvalidHeight, "expected height %d, got %d", prev.Header.Height+1, block.Header.Height)
	}
	if block.Header.ParentID != HashHeader(&prev.Header) {
		return chainerr.New(chainerr.InvalidParent, "parent id does not match previous block header hash")
	}
	return verifyProposerSignature(block, validators)
}

// verifyProposerSignature checks block's signature against the public
// key already on the proposer's validator record or, failing that,
// recovers the key from this very signature, checks it against the
// proposer address, and records it on the validator record if one
// exists (the "first block they successfully produced" clause in
// spec.md section 4.2). Stake registration itself stores no key.
func verifyProposerSignature(block *Block, validators map[string]*Validator) error {
	if len(block.Signature) != crypto.SignatureSize {
		return chainerr.New(chainerr.InvalidSignature, "block signature is not 65 bytes")
	}
	var sig crypto.Signature
	copy(sig[:], block.Signature)
	msg := HeaderSigningMessage(&block.Header)

	v, known := validators[block.Header.Proposer]
	if known && len(v.PublicKey) == crypto.PublicKeySize {
		var pub crypto.PublicKey
		copy(pub[:], v.PublicKey)
		if !crypto.Verify(msg, sig, pub) {
			return chainerr.New(chainerr.InvalidSignature, "block signature does not verify against recorded proposer key")
		}
		return nil
	}

	pub, ok := crypto.VerifyWithRecovery(msg, sig, block.Header.Proposer)
	if !ok {
		return chainerr.New(chainerr.InvalidSignature, "block signature does not recover to proposer address")
	}
	if v != nil {
		v.PublicKey = append([]byte(nil), pub[:]...)
	}
	return nil
}

// validateBlockBody validates and applies every transaction in block
// sequentially against s, then checks the recomputed Merkle root against
// the header (spec.md section 4.2 points 3 and 4). s is mutated in
// place; callers that need to roll back on failure must operate on a
// clone.
func validateBlockBody(block *Block, s *state) error {
	for i := range block.Transactions {
		tx := &block.Transactions[i]
		if HashTransaction(tx) != tx.ID {
			return chainerr.New(chainerr.InvalidSignature, "transaction id does not match its content hash")
		}
		if err := validateAndApplyTransaction(tx, s); err != nil {
			return err
		}
	}
	if got := MerkleRoot(block.Transactions); got != block.Header.MerkleRoot {
		return chainerr.Newf(chainerr.InvalidMerkleRoot, "recomputed root %s does not match header root %s", got, block.Header.MerkleRoot)
	}
	return nil
}
