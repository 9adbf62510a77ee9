package ledger

import "testing"

func TestGenesisIsZeroHeightWithZeroParent(t *testing.T) {
	block := Genesis(DefaultParams("test", 1700000000))
	if block.Header.Height != 0 {
		t.Fatalf("height = %d, want 0", block.Header.Height)
	}
	if block.Header.ParentID != ZeroHash {
		t.Fatalf("parent = %s, want %s", block.Header.ParentID, ZeroHash)
	}
	if block.Header.Proposer != GenesisProposer {
		t.Fatalf("proposer = %s, want %s", block.Header.Proposer, GenesisProposer)
	}
	if len(block.Transactions) != 0 {
		t.Fatalf("expected no transactions, got %d", len(block.Transactions))
	}
	if block.Header.MerkleRoot != ZeroHash {
		t.Fatalf("merkle root = %s, want %s", block.Header.MerkleRoot, ZeroHash)
	}
	if len(block.Signature) != 0 {
		t.Fatal("genesis must carry no signature")
	}
}

func TestGenesisPassesHeaderValidationUnconditionally(t *testing.T) {
	block := Genesis(DefaultParams("test", 0))
	if err := validateBlockHeader(block, nil, nil); err != nil {
		t.Fatalf("genesis header should validate with no parent and no validators, got %v", err)
	}
}
