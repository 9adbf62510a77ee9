package persistence

import (
	"testing"

	"github.com/aurum-chain/aurum/internal/ledger"
)

func blockAt(height uint64, parentID string) *ledger.Block {
	txn := ledger.Transaction{
		Kind: ledger.KindReward, Sender: ledger.NetworkSender, Recipient: "aur1proposer",
		Amount: 5, Timestamp: 1700000000 + int64(height),
	}
	txn.ID = ledger.HashTransaction(&txn)
	header := ledger.BlockHeader{
		Height: height, ParentID: parentID, Timestamp: 1700000000 + int64(height),
		MerkleRoot: ledger.MerkleRoot([]ledger.Transaction{txn}), Proposer: "aur1proposer",
	}
	return &ledger.Block{Header: header, Transactions: []ledger.Transaction{txn}}
}

func TestPutBlockAndReadBackByHeightAndHash(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	block := blockAt(1, ledger.ZeroHash)
	if err := store.PutBlock(block); err != nil {
		t.Fatal(err)
	}

	byHeight, err := store.BlockByHeight(1)
	if err != nil {
		t.Fatal(err)
	}
	if byHeight.Header.Height != 1 {
		t.Fatalf("height = %d, want 1", byHeight.Header.Height)
	}

	hash := ledger.HashHeader(&block.Header)
	byHash, err := store.BlockByHash(hash)
	if err != nil {
		t.Fatal(err)
	}
	if ledger.HashHeader(&byHash.Header) != hash {
		t.Fatal("block read back by hash does not match what was stored")
	}
}

func TestBlockByHeightMissingIsError(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := store.BlockByHeight(42); err == nil {
		t.Fatal("expected an error reading a height that was never written")
	}
}

func TestTransactionRefLocatesConfirmingBlock(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	block := blockAt(1, ledger.ZeroHash)
	if err := store.PutBlock(block); err != nil {
		t.Fatal(err)
	}

	ref, ok := store.TransactionRef(block.Transactions[0].ID)
	if !ok {
		t.Fatal("expected to find a ref for the block's transaction")
	}
	if ref.Height != 1 || ref.Index != 0 {
		t.Fatalf("ref = %+v, want height 1 index 0", ref)
	}
}

func TestHeightReportsHighestWrittenBlock(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, found := store.Height(); found {
		t.Fatal("expected no height on an empty store")
	}

	parent := ledger.ZeroHash
	for h := uint64(1); h <= 3; h++ {
		block := blockAt(h, parent)
		if err := store.PutBlock(block); err != nil {
			t.Fatal(err)
		}
		parent = ledger.HashHeader(&block.Header)
	}

	height, found := store.Height()
	if !found || height != 3 {
		t.Fatalf("height = %d found=%v, want 3 true", height, found)
	}
}
