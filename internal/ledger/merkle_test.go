package ledger

import "testing"

func tx(id string, sender string, seq uint64) Transaction {
	t := Transaction{Kind: KindTransfer, Sender: sender, Recipient: "aur1recipient", Amount: 1, Fee: 0, Timestamp: 1700000000, Sequence: seq}
	t.ID = HashTransaction(&t)
	return t
}

func TestMerkleRootEmptyIsZeroHash(t *testing.T) {
	if got := MerkleRoot(nil); got != ZeroHash {
		t.Fatalf("got %s, want %s", got, ZeroHash)
	}
}

func TestMerkleRootSingleTxIsLeafHash(t *testing.T) {
	txs := []Transaction{tx("a", "aur1a", 0)}
	want := sha256Hex(SigningMessage(&txs[0]))
	if got := MerkleRoot(txs); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestMerkleRootIsOrderSensitive(t *testing.T) {
	a := tx("a", "aur1a", 0)
	b := tx("b", "aur1b", 0)

	r1 := MerkleRoot([]Transaction{a, b})
	r2 := MerkleRoot([]Transaction{b, a})
	if r1 == r2 {
		t.Fatal("merkle root must depend on transaction order")
	}
}

func TestMerkleRootDuplicatesOddLastNode(t *testing.T) {
	a := tx("a", "aur1a", 0)
	b := tx("b", "aur1b", 0)
	c := tx("c", "aur1c", 0)

	threeRoot := MerkleRoot([]Transaction{a, b, c})
	fourRoot := MerkleRoot([]Transaction{a, b, c, c})
	if threeRoot != fourRoot {
		t.Fatalf("odd-length root %s should equal duplicated-last-leaf root %s", threeRoot, fourRoot)
	}
}
