package ledger

import (
	"github.com/aurum-chain/aurum/internal/chainerr"
	"github.com/aurum-chain/aurum/internal/crypto"
)

// state is the minimal read/write view validation and application need.
// The Ledger fills one with copies of its accounts and validators
// (snapshotState); tests exercise it without spinning up a full Ledger
// by building one from plain maps.
type state struct {
	accounts   map[string]*Account
	validators map[string]*Validator
	params     Params

	// onNewAccount/onNewValidator, if set, fire the moment state.account
	// or registerOrUpdateValidator creates an entry that wasn't already
	// in the map — the ledger's reversible journal uses these to record
	// that the address didn't exist before this block, not just what did.
	onNewAccount   func(addr string)
	onNewValidator func(addr string)
}

func newState(params Params) *state {
	return &state{
		accounts:   make(map[string]*Account),
		validators: make(map[string]*Validator),
		params:     params,
	}
}

func (s *state) account(addr string) *Account {
	a, ok := s.accounts[addr]
	if !ok {
		a = &Account{Address: addr}
		s.accounts[addr] = a
		if s.onNewAccount != nil {
			s.onNewAccount(addr)
		}
	}
	return a
}

// validateTransaction checks tx against s without mutating it, per
// spec.md section 4.2's transaction validation rules. It returns a
// *chainerr.Error with a stable Kind on rejection.
func validateTransaction(tx *Transaction, s *state) error {
	switch tx.Kind {
	case KindReward:
		return validateReward(tx, s)
	case KindTransfer:
		return validateTransfer(tx, s)
	case KindStake:
		return validateStake(tx, s)
	case KindUnstake:
		return validateUnstake(tx, s)
	default:
		return chainerr.Newf(chainerr.InvalidSequence, "unsupported transaction kind %q", tx.Kind)
	}
}

func checkSignature(tx *Transaction) error {
	if len(tx.Signature) != crypto.SignatureSize {
		return chainerr.New(chainerr.InvalidSignature, "signature is not 65 bytes")
	}
	var sig crypto.Signature
	copy(sig[:], tx.Signature)
	if _, ok := crypto.VerifyWithRecovery(SigningMessage(tx), sig, tx.Sender); !ok {
		return chainerr.New(chainerr.InvalidSignature, "signature does not verify against sender")
	}
	return nil
}

func checkSenderSequence(tx *Transaction, s *state) (*Account, error) {
	sender, ok := s.accounts[tx.Sender]
	if !ok {
		return nil, chainerr.Newf(chainerr.UnknownSender, "sender %s has no account", tx.Sender)
	}
	if sender.Sequence != tx.Sequence {
		return nil, chainerr.Newf(chainerr.InvalidSequence, "expected sequence %d, got %d", sender.Sequence, tx.Sequence)
	}
	return sender, nil
}

func validateTransfer(tx *Transaction, s *state) error {
	if tx.Amount == 0 {
		return chainerr.New(chainerr.InvalidAmount, "transfer amount must be positive")
	}
	if err := checkSignature(tx); err != nil {
		return err
	}
	sender, err := checkSenderSequence(tx, s)
	if err != nil {
		return err
	}
	if sender.Balance < tx.Amount+tx.Fee {
		return chainerr.Newf(chainerr.InsufficientBalance, "balance %d below amount+fee %d", sender.Balance, tx.Amount+tx.Fee)
	}
	return nil
}

func validateStake(tx *Transaction, s *state) error {
	if tx.Amount < s.params.MinStake {
		return chainerr.Newf(chainerr.StakeBelowMinimum, "stake amount %d below minimum %d", tx.Amount, s.params.MinStake)
	}
	if err := checkSignature(tx); err != nil {
		return err
	}
	sender, err := checkSenderSequence(tx, s)
	if err != nil {
		return err
	}
	if sender.Balance < tx.Amount+tx.Fee {
		return chainerr.Newf(chainerr.InsufficientBalance, "balance %d below amount+fee %d", sender.Balance, tx.Amount+tx.Fee)
	}
	return nil
}

func validateUnstake(tx *Transaction, s *state) error {
	if tx.Amount == 0 {
		return chainerr.New(chainerr.InvalidAmount, "unstake amount must be positive")
	}
	if err := checkSignature(tx); err != nil {
		return err
	}
	sender, err := checkSenderSequence(tx, s)
	if err != nil {
		return err
	}
	if sender.Staked < tx.Amount {
		return chainerr.Newf(chainerr.InsufficientStake, "staked %d below unstake amount %d", sender.Staked, tx.Amount)
	}
	if sender.Balance < tx.Fee {
		return chainerr.Newf(chainerr.InsufficientBalance, "balance %d below fee %d", sender.Balance, tx.Fee)
	}
	return nil
}

func validateReward(tx *Transaction, s *state) error {
	if tx.Sender != NetworkSender {
		return chainerr.New(chainerr.InvalidSignature, "reward transaction must be sent by network")
	}
	if tx.Fee != 0 {
		return chainerr.New(chainerr.InvalidFee, "reward transaction must carry zero fee")
	}
	return nil
}

// applyTransaction mutates s according to tx's kind. It assumes tx has
// already passed validateTransaction against the same state.
func applyTransaction(tx *Transaction, s *state) {
	switch tx.Kind {
	case KindReward:
		recipient := s.account(tx.Recipient)
		recipient.Balance += tx.Amount

	case KindTransfer:
		sender := s.account(tx.Sender)
		sender.Balance -= tx.Amount + tx.Fee
		sender.Sequence++
		recipient := s.account(tx.Recipient)
		recipient.Balance += tx.Amount

	case KindStake:
		sender := s.account(tx.Sender)
		sender.Balance -= tx.Amount + tx.Fee
		sender.Sequence++
		sender.Staked += tx.Amount
		registerOrUpdateValidator(s, tx.Sender, sender.Staked)

	case KindUnstake:
		sender := s.account(tx.Sender)
		sender.Balance += tx.Amount - tx.Fee
		sender.Sequence++
		sender.Staked -= tx.Amount
		if v, ok := s.validators[tx.Sender]; ok {
			v.Stake = sender.Staked
			if v.Stake < s.params.MinStake {
				v.Active = false
			}
		}
	}
}

func registerOrUpdateValidator(s *state, addr string, staked uint64) {
	v, ok := s.validators[addr]
	if !ok {
		v = &Validator{Address: addr}
		s.validators[addr] = v
		if s.onNewValidator != nil {
			s.onNewValidator(addr)
		}
	}
	v.Stake = staked
	v.Active = staked >= s.params.MinStake
}

// validateAndApplyTransaction validates tx against s and, on success,
// applies it. This is the sequential apply used both by block assembly
// simulation and by block validation (spec.md section 4.2 point 3: every
// transaction is validated in the post-previous-transaction state).
func validateAndApplyTransaction(tx *Transaction, s *state) error {
	if err := validateTransaction(tx, s); err != nil {
		return err
	}
	applyTransaction(tx, s)
	return nil
}
