package persistence

import (
	"path/filepath"
	"testing"

	"github.com/aurum-chain/aurum/internal/ledger"
)

func TestWriteAndReadSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")

	snap := Snapshot{
		Height: 7,
		Accounts: map[string]ledger.Account{
			"aur1a": {Address: "aur1a", Balance: 100, Sequence: 2},
		},
		Validators: map[string]ledger.Validator{
			"aur1a": {Address: "aur1a", Stake: 1000, Active: true},
		},
		MintedReward: 35,
	}

	if err := WriteSnapshot(path, snap); err != nil {
		t.Fatal(err)
	}

	got, found, err := ReadSnapshot(path)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected the snapshot just written to be found")
	}
	if got.Height != snap.Height || got.MintedReward != snap.MintedReward {
		t.Fatalf("got %+v, want %+v", got, snap)
	}
	if got.Accounts["aur1a"].Balance != 100 {
		t.Fatal("account balance did not round-trip")
	}
	if !got.Validators["aur1a"].Active {
		t.Fatal("validator active flag did not round-trip")
	}
}

func TestReadSnapshotMissingFileIsNotAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json")

	_, found, err := ReadSnapshot(path)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("expected found=false for a missing snapshot file")
	}
}

func TestWriteSnapshotOverwritesPreviousContentAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")

	if err := WriteSnapshot(path, Snapshot{Height: 1}); err != nil {
		t.Fatal(err)
	}
	if err := WriteSnapshot(path, Snapshot{Height: 2}); err != nil {
		t.Fatal(err)
	}

	got, found, err := ReadSnapshot(path)
	if err != nil {
		t.Fatal(err)
	}
	if !found || got.Height != 2 {
		t.Fatalf("got height %d found=%v, want 2 true", got.Height, found)
	}
}
