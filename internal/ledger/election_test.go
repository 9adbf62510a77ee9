package ledger

import (
	"testing"

	"github.com/aurum-chain/aurum/internal/chainerr"
)

func TestElectProposerNoActiveValidatorsIsError(t *testing.T) {
	_, err := ElectProposer(map[string]*Validator{}, ZeroHash)
	if chainerr.KindOf(err) != chainerr.UnknownProposer {
		t.Fatalf("expected UnknownProposer, got %v", err)
	}
}

func TestElectProposerSingleActiveValidatorAlwaysWins(t *testing.T) {
	validators := map[string]*Validator{
		"aur1solo": {Address: "aur1solo", Stake: 5000, Active: true},
	}
	got, err := ElectProposer(validators, "deadbeef00000000000000000000000000000000000000000000000000000")
	if err != nil {
		t.Fatal(err)
	}
	if got != "aur1solo" {
		t.Fatalf("got %s, want aur1solo", got)
	}
}

func TestElectProposerInactiveValidatorNeverWins(t *testing.T) {
	validators := map[string]*Validator{
		"aur1active":   {Address: "aur1active", Stake: 1, Active: true},
		"aur1inactive": {Address: "aur1inactive", Stake: 1_000_000, Active: false},
	}
	got, err := ElectProposer(validators, ZeroHash)
	if err != nil {
		t.Fatal(err)
	}
	if got != "aur1active" {
		t.Fatalf("got %s, want the only active validator", got)
	}
}

func TestElectProposerDeterministicForSameParentHash(t *testing.T) {
	validators := map[string]*Validator{
		"aur1a": {Address: "aur1a", Stake: 100, Active: true},
		"aur1b": {Address: "aur1b", Stake: 300, Active: true},
		"aur1c": {Address: "aur1c", Stake: 600, Active: true},
	}
	hash := "1122334455667788990011223344556677889900112233445566778899aabb"

	first, err := ElectProposer(validators, hash)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		got, err := ElectProposer(validators, hash)
		if err != nil {
			t.Fatal(err)
		}
		if got != first {
			t.Fatalf("election is not deterministic: got %s then %s for the same parent hash", first, got)
		}
	}
}

func TestElectProposerZeroTotalStakeIsError(t *testing.T) {
	validators := map[string]*Validator{
		"aur1zero": {Address: "aur1zero", Stake: 0, Active: true},
	}
	_, err := ElectProposer(validators, ZeroHash)
	if chainerr.KindOf(err) != chainerr.UnknownProposer {
		t.Fatalf("expected UnknownProposer, got %v", err)
	}
}
