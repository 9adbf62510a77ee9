// Package chainerr defines the stable error identifiers used across the
// ledger, gossip and wallet layers. Validation failures are never fatal;
// they are returned to the caller carrying one of these kinds so logs,
// tests and the query surface can key off a stable string instead of a
// free-form message.
package chainerr

import "fmt"

// Kind is a stable, machine-readable error identifier.
type Kind string

const (
	InvalidSignature    Kind = "InvalidSignature"
	InvalidSequence     Kind = "InvalidSequence"
	InsufficientBalance Kind = "InsufficientBalance"
	InsufficientStake   Kind = "InsufficientStake"
	StakeBelowMinimum   Kind = "StakeBelowMinimum"
	UnknownSender       Kind = "UnknownSender"
	InvalidParent       Kind = "InvalidParent"
	InvalidHeight       Kind = "InvalidHeight"
	InvalidMerkleRoot   Kind = "InvalidMerkleRoot"
	UnknownProposer     Kind = "UnknownProposer"
	DuplicateTransaction Kind = "DuplicateTransaction"
	PoolFull            Kind = "PoolFull"
	NetworkIDMismatch   Kind = "NetworkIdMismatch"
	HandshakeTimeout    Kind = "HandshakeTimeout"
	PeerSlow            Kind = "PeerSlow"
	InvalidCredential   Kind = "InvalidCredential"
	CorruptKeystore     Kind = "CorruptKeystore"
	StorageFailure      Kind = "StorageFailure"
	InvalidAmount       Kind = "InvalidAmount"
	InvalidFee          Kind = "InvalidFee"
	MissingParent       Kind = "MissingParent"
)

// Error wraps an underlying error with a stable Kind so callers can use
// errors.Is/errors.As while logs and the query surface still see a short
// machine-readable code.
type Error struct {
	Kind Kind
	Err  error
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(msg)}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err.Error())
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a *Error with the same Kind, so callers
// can write errors.Is(err, chainerr.New(chainerr.InvalidSequence, "")).
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// KindOf extracts the Kind from err, or "" if err does not carry one.
func KindOf(err error) Kind {
	var ce *Error
	for err != nil {
		if ce2, ok := err.(*Error); ok {
			ce = ce2
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if ce == nil {
		return ""
	}
	return ce.Kind
}
