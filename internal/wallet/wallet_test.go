package wallet

import (
	"testing"

	"github.com/aurum-chain/aurum/internal/crypto"
	"github.com/aurum-chain/aurum/internal/keystore"
	"github.com/aurum-chain/aurum/internal/ledger"
)

type stubSequenceSource struct {
	accounts map[string]ledger.Account
}

func (s stubSequenceSource) Account(address string) ledger.Account {
	return s.accounts[address]
}

func TestSignProducesVerifiableSignatureAndStableID(t *testing.T) {
	priv, pub, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	addr := crypto.DeriveAddress(pub)

	tx := ledger.Transaction{Kind: ledger.KindTransfer, Sender: addr, Recipient: "aur1recipient", Amount: 10, Fee: 1, Timestamp: 1700000000, Sequence: 0}
	signed, err := Sign(tx, priv)
	if err != nil {
		t.Fatal(err)
	}

	if signed.ID != ledger.HashTransaction(&signed) {
		t.Fatal("expected signed transaction's ID to be its content hash")
	}
	var sig crypto.Signature
	copy(sig[:], signed.Signature)
	if _, ok := crypto.VerifyWithRecovery(ledger.SigningMessage(&signed), sig, addr); !ok {
		t.Fatal("signature does not recover to the signing address")
	}
}

func TestCreateTransactionUsesCurrentSequenceFromSource(t *testing.T) {
	dir := t.TempDir()
	priv, pub, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	addr := crypto.DeriveAddress(pub)
	if _, err := keystore.ImportWallet(dir, priv, "correcthorse"); err != nil {
		t.Fatal(err)
	}

	source := stubSequenceSource{accounts: map[string]ledger.Account{
		addr: {Address: addr, Balance: 500, Sequence: 3},
	}}

	tx, err := CreateTransaction(dir, "correcthorse", addr, "aur1recipient", 10, 1, ledger.KindTransfer, source)
	if err != nil {
		t.Fatal(err)
	}
	if tx.Sequence != 3 {
		t.Fatalf("sequence = %d, want 3 (the sender's current sequence, not a hardcoded 0)", tx.Sequence)
	}
	if tx.Sender != addr || tx.Recipient != "aur1recipient" || tx.Amount != 10 || tx.Fee != 1 {
		t.Fatalf("unexpected transaction fields: %+v", tx)
	}
}

func TestCreateTransactionRejectsWrongPassword(t *testing.T) {
	dir := t.TempDir()
	priv, pub, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	addr := crypto.DeriveAddress(pub)
	if _, err := keystore.ImportWallet(dir, priv, "correcthorse"); err != nil {
		t.Fatal(err)
	}

	source := stubSequenceSource{accounts: map[string]ledger.Account{addr: {Address: addr}}}
	_, err = CreateTransaction(dir, "wrongpassword", addr, "aur1recipient", 10, 1, ledger.KindTransfer, source)
	if err == nil {
		t.Fatal("expected an error for the wrong wallet password")
	}
}
