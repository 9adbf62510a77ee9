package ledger

import (
	"testing"
	"time"

	"github.com/aurum-chain/aurum/internal/chainerr"
)

func TestPoolInsertGetRemove(t *testing.T) {
	p := NewPool(10, time.Hour)
	t1 := tx("t1", "aur1a", 0)

	if err := p.Insert(t1); err != nil {
		t.Fatal(err)
	}
	if !p.Has(t1.ID) {
		t.Fatal("expected pool to have t1")
	}
	got, ok := p.Get(t1.ID)
	if !ok || got.ID != t1.ID {
		t.Fatal("Get did not return inserted transaction")
	}
	p.Remove(t1.ID)
	if p.Has(t1.ID) {
		t.Fatal("expected t1 removed")
	}
}

func TestPoolInsertDuplicateIsError(t *testing.T) {
	p := NewPool(10, time.Hour)
	t1 := tx("t1", "aur1a", 0)
	if err := p.Insert(t1); err != nil {
		t.Fatal(err)
	}
	err := p.Insert(t1)
	if chainerr.KindOf(err) != chainerr.DuplicateTransaction {
		t.Fatalf("expected DuplicateTransaction, got %v", err)
	}
}

func TestPoolInsertAtCapacityIsPoolFull(t *testing.T) {
	p := NewPool(1, time.Hour)
	if err := p.Insert(tx("a", "aur1a", 0)); err != nil {
		t.Fatal(err)
	}
	err := p.Insert(tx("b", "aur1b", 0))
	if chainerr.KindOf(err) != chainerr.PoolFull {
		t.Fatalf("expected PoolFull, got %v", err)
	}
}

func TestPoolOrderedForBlockOrdersByFeeThenTimestampThenID(t *testing.T) {
	p := NewPool(10, time.Hour)

	low := Transaction{Kind: KindTransfer, Sender: "aur1a", Recipient: "aur1x", Amount: 1, Fee: 1, Timestamp: 100, Sequence: 0}
	low.ID = HashTransaction(&low)

	high := Transaction{Kind: KindTransfer, Sender: "aur1b", Recipient: "aur1x", Amount: 1, Fee: 5, Timestamp: 200, Sequence: 0}
	high.ID = HashTransaction(&high)

	tieEarlier := Transaction{Kind: KindTransfer, Sender: "aur1c", Recipient: "aur1x", Amount: 1, Fee: 3, Timestamp: 50, Sequence: 0}
	tieEarlier.ID = HashTransaction(&tieEarlier)

	tieLater := Transaction{Kind: KindTransfer, Sender: "aur1d", Recipient: "aur1x", Amount: 1, Fee: 3, Timestamp: 150, Sequence: 0}
	tieLater.ID = HashTransaction(&tieLater)

	for _, txn := range []Transaction{low, high, tieEarlier, tieLater} {
		if err := p.Insert(txn); err != nil {
			t.Fatal(err)
		}
	}

	ordered := p.OrderedForBlock()
	if len(ordered) != 4 {
		t.Fatalf("expected 4 transactions, got %d", len(ordered))
	}
	if ordered[0].ID != high.ID {
		t.Fatalf("expected highest-fee tx first, got %s", ordered[0].ID)
	}
	if ordered[1].ID != tieEarlier.ID || ordered[2].ID != tieLater.ID {
		t.Fatal("expected fee ties broken by ascending timestamp")
	}
	if ordered[3].ID != low.ID {
		t.Fatal("expected lowest-fee tx last")
	}
}

func TestPoolEvictExpiredRemovesOnlyOldEntries(t *testing.T) {
	p := NewPool(10, -time.Nanosecond) // already expired by the time we check
	if err := p.Insert(tx("a", "aur1a", 0)); err != nil {
		t.Fatal(err)
	}
	evicted := p.EvictExpired()
	if evicted != 1 {
		t.Fatalf("expected 1 eviction, got %d", evicted)
	}
	if p.Len() != 0 {
		t.Fatalf("expected empty pool after eviction, got %d", p.Len())
	}
}
