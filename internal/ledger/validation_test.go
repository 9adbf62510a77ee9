package ledger

import (
	"testing"

	"github.com/aurum-chain/aurum/internal/chainerr"
	"github.com/aurum-chain/aurum/internal/crypto"
)

func signedTx(t *testing.T, priv crypto.PrivateKey, kind TxKind, sender, recipient string, amount, fee, sequence uint64) Transaction {
	txn := Transaction{
		Kind:      kind,
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount,
		Fee:       fee,
		Timestamp: 1700000000,
		Sequence:  sequence,
	}
	sig, err := crypto.Sign(SigningMessage(&txn), priv)
	if err != nil {
		t.Fatal(err)
	}
	txn.Signature = sig[:]
	txn.ID = HashTransaction(&txn)
	return txn
}

func newFundedState(t *testing.T, params Params, addr string, balance uint64) *state {
	s := newState(params)
	s.accounts[addr] = &Account{Address: addr, Balance: balance}
	return s
}

func TestValidateTransferRejectsBadSignature(t *testing.T) {
	priv, pub, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	addr := crypto.DeriveAddress(pub)
	s := newFundedState(t, DefaultParams("test", 0), addr, 100)

	txn := signedTx(t, priv, KindTransfer, addr, "aur1recipient", 10, 1, 0)
	txn.Amount = 99 // mutate after signing

	err = validateTransaction(&txn, s)
	if chainerr.KindOf(err) != chainerr.InvalidSignature {
		t.Fatalf("expected InvalidSignature, got %v", err)
	}
}

func TestValidateTransferRejectsWrongSequence(t *testing.T) {
	priv, pub, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	addr := crypto.DeriveAddress(pub)
	s := newFundedState(t, DefaultParams("test", 0), addr, 100)

	txn := signedTx(t, priv, KindTransfer, addr, "aur1recipient", 10, 1, 5)
	err = validateTransaction(&txn, s)
	if chainerr.KindOf(err) != chainerr.InvalidSequence {
		t.Fatalf("expected InvalidSequence, got %v", err)
	}
}

func TestValidateTransferRejectsInsufficientBalance(t *testing.T) {
	priv, pub, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	addr := crypto.DeriveAddress(pub)
	s := newFundedState(t, DefaultParams("test", 0), addr, 5)

	txn := signedTx(t, priv, KindTransfer, addr, "aur1recipient", 10, 1, 0)
	err = validateTransaction(&txn, s)
	if chainerr.KindOf(err) != chainerr.InsufficientBalance {
		t.Fatalf("expected InsufficientBalance, got %v", err)
	}
}

func TestValidateTransferAndApplyUpdatesBalancesAndSequence(t *testing.T) {
	priv, pub, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	addr := crypto.DeriveAddress(pub)
	s := newFundedState(t, DefaultParams("test", 0), addr, 100)

	txn := signedTx(t, priv, KindTransfer, addr, "aur1recipient", 10, 1, 0)
	if err := validateAndApplyTransaction(&txn, s); err != nil {
		t.Fatal(err)
	}

	if s.accounts[addr].Balance != 89 {
		t.Fatalf("sender balance = %d, want 89", s.accounts[addr].Balance)
	}
	if s.accounts[addr].Sequence != 1 {
		t.Fatalf("sender sequence = %d, want 1", s.accounts[addr].Sequence)
	}
	if s.accounts["aur1recipient"].Balance != 10 {
		t.Fatalf("recipient balance = %d, want 10", s.accounts["aur1recipient"].Balance)
	}
}

func TestValidateStakeRejectsBelowMinimum(t *testing.T) {
	priv, pub, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	addr := crypto.DeriveAddress(pub)
	params := DefaultParams("test", 0)
	s := newFundedState(t, params, addr, params.MinStake*2)

	txn := signedTx(t, priv, KindStake, addr, addr, params.MinStake-1, 0, 0)
	err = validateTransaction(&txn, s)
	if chainerr.KindOf(err) != chainerr.StakeBelowMinimum {
		t.Fatalf("expected StakeBelowMinimum, got %v", err)
	}
}

func TestValidateStakeAndApplyRegistersActiveValidator(t *testing.T) {
	priv, pub, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	addr := crypto.DeriveAddress(pub)
	params := DefaultParams("test", 0)
	s := newFundedState(t, params, addr, params.MinStake*2)

	txn := signedTx(t, priv, KindStake, addr, addr, params.MinStake, 0, 0)
	if err := validateAndApplyTransaction(&txn, s); err != nil {
		t.Fatal(err)
	}

	v, ok := s.validators[addr]
	if !ok || !v.Active {
		t.Fatal("expected addr to be registered as an active validator")
	}
	if v.Stake != params.MinStake {
		t.Fatalf("validator stake = %d, want %d", v.Stake, params.MinStake)
	}
}

func TestValidateUnstakeRejectsInsufficientStake(t *testing.T) {
	priv, pub, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	addr := crypto.DeriveAddress(pub)
	params := DefaultParams("test", 0)
	s := newFundedState(t, params, addr, 100)
	s.accounts[addr].Staked = 10

	txn := signedTx(t, priv, KindUnstake, addr, addr, 20, 0, 0)
	err = validateTransaction(&txn, s)
	if chainerr.KindOf(err) != chainerr.InsufficientStake {
		t.Fatalf("expected InsufficientStake, got %v", err)
	}
}

func TestValidateUnstakeRejectsZeroAmount(t *testing.T) {
	priv, pub, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	addr := crypto.DeriveAddress(pub)
	params := DefaultParams("test", 0)
	s := newFundedState(t, params, addr, 100)
	s.accounts[addr].Staked = 10

	txn := signedTx(t, priv, KindUnstake, addr, addr, 0, 0, 0)
	err = validateTransaction(&txn, s)
	if chainerr.KindOf(err) != chainerr.InvalidAmount {
		t.Fatalf("expected InvalidAmount, got %v", err)
	}
}

func TestValidateUnstakeDeactivatesValidatorBelowMinimum(t *testing.T) {
	priv, pub, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	addr := crypto.DeriveAddress(pub)
	params := DefaultParams("test", 0)
	s := newFundedState(t, params, addr, 100)
	s.accounts[addr].Staked = params.MinStake
	s.validators[addr] = &Validator{Address: addr, Stake: params.MinStake, Active: true}

	txn := signedTx(t, priv, KindUnstake, addr, addr, params.MinStake, 0, 0)
	if err := validateAndApplyTransaction(&txn, s); err != nil {
		t.Fatal(err)
	}
	if s.validators[addr].Active {
		t.Fatal("expected validator to be deactivated once stake drops below minimum")
	}
}

func TestValidateRewardRejectsNonNetworkSender(t *testing.T) {
	s := newState(DefaultParams("test", 0))
	txn := Transaction{Kind: KindReward, Sender: "aur1impersonator", Recipient: "aur1proposer", Amount: 5}
	err := validateTransaction(&txn, s)
	if chainerr.KindOf(err) != chainerr.InvalidSignature {
		t.Fatalf("expected InvalidSignature, got %v", err)
	}
}

func TestValidateRewardRejectsNonZeroFee(t *testing.T) {
	s := newState(DefaultParams("test", 0))
	txn := Transaction{Kind: KindReward, Sender: NetworkSender, Recipient: "aur1proposer", Amount: 5, Fee: 1}
	err := validateTransaction(&txn, s)
	if chainerr.KindOf(err) != chainerr.InvalidFee {
		t.Fatalf("expected InvalidFee, got %v", err)
	}
}
