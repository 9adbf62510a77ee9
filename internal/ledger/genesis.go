package ledger

// Genesis builds the well-known first block: height 0, all-zero parent
// hash, no transactions, the literal proposer "AURUM_GENESIS", and no
// signature — genesis is the only block exempt from signature
// verification (spec.md section 3).
func Genesis(params Params) *Block {
	header := BlockHeader{
		Height:     0,
		ParentID:   ZeroHash,
		Timestamp:  params.GenesisTimestamp,
		MerkleRoot: MerkleRoot(nil),
		Proposer:   GenesisProposer,
		Nonce:      0,
	}
	return &Block{Header: header, Transactions: nil}
}
