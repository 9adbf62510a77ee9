package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/aurum-chain/aurum/internal/ledger"
)

// Snapshot is a point-in-time dump of ledger state at a given height,
// used to resume quickly after a restart instead of replaying the whole
// chain from genesis through the badger store.
type Snapshot struct {
	Height              uint64                      `json:"height"`
	Accounts            map[string]ledger.Account   `json:"accounts"`
	Validators          map[string]ledger.Validator `json:"validators"`
	MintedReward        uint64                      `json:"mintedReward"`
	PendingTransactions []ledger.Transaction        `json:"pendingTransactions"`
}

// WriteSnapshot atomically replaces path's contents with snap: it writes
// to a temp file in the same directory and renames over the destination,
// so a crash mid-write can never leave a half-written snapshot behind.
func WriteSnapshot(path string, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// ReadSnapshot loads a snapshot previously written by WriteSnapshot. A
// missing file is reported via ok=false rather than an error, since the
// caller's usual response (replay from genesis) is the same either way.
func ReadSnapshot(path string) (Snapshot, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}
