// Package crypto implements the fixed cryptographic suite Aurum signs and
// addresses accounts with: secp256k1 keys, SHA-256-then-ECDSA signing with
// a recoverable signature, and RIPEMD-160(SHA-256(pubkey)) addressing.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/ripemd160" //lint:ignore SA1019 required for the fixed address format
)

const (
	// AddressPrefix is prepended to every derived address.
	AddressPrefix = "aur1"
	// AddressLength is the total length of a derived address string.
	AddressLength = len(AddressPrefix) + 40
	// PrivateKeySize is the length in bytes of a raw private key.
	PrivateKeySize = 32
	// PublicKeySize is the length in bytes of a compressed public key.
	PublicKeySize = 33
	// SignatureSize is the length in bytes of a recoverable signature.
	SignatureSize = 65
)

// PrivateKey is a 32-byte secp256k1 scalar.
type PrivateKey [PrivateKeySize]byte

// PublicKey is a compressed 33-byte secp256k1 point.
type PublicKey [PublicKeySize]byte

// Signature is a 65-byte recoverable ECDSA signature: 64 bytes of (r, s)
// followed by one recovery byte in [0, 3].
type Signature [SignatureSize]byte

// GenerateKeypair produces a private key uniformly at random, rejection
// sampled so it is nonzero and below the curve order, and its matching
// compressed public key.
func GenerateKeypair() (PrivateKey, PublicKey, error) {
	var priv PrivateKey
	for {
		if _, err := rand.Read(priv[:]); err != nil {
			return PrivateKey{}, PublicKey{}, err
		}
		scalar := new(secp256k1.ModNScalar)
		overflow := scalar.SetBytes((*[32]byte)(&priv))
		if overflow == 0 && !scalar.IsZero() {
			break
		}
	}
	pub := PublicKeyFromPrivate(priv)
	return priv, pub, nil
}

// PublicKeyFromPrivate derives the compressed public key for a private key.
func PublicKeyFromPrivate(priv PrivateKey) PublicKey {
	pubKey := secp256k1.PrivKeyFromBytes(priv[:]).PubKey()
	var pub PublicKey
	copy(pub[:], pubKey.SerializeCompressed())
	return pub
}

// DeriveAddress returns "aur1" followed by the hex-encoded RIPEMD-160
// digest of the SHA-256 digest of the compressed public key.
func DeriveAddress(pub PublicKey) string {
	sha := sha256.Sum256(pub[:])
	r := ripemd160.New()
	r.Write(sha[:])
	digest := r.Sum(nil)
	return AddressPrefix + hex.EncodeToString(digest)
}

// Sign hashes message with SHA-256 and produces a 65-byte recoverable
// ECDSA signature: the 64-byte compact signature followed by a recovery
// byte in [0, 3].
func Sign(message []byte, priv PrivateKey) (Signature, error) {
	digest := sha256.Sum256(message)
	privKey := secp256k1.PrivKeyFromBytes(priv[:])
	sig := ecdsa.SignCompact(privKey, digest[:], false)
	// SignCompact returns [recoveryID+27, R, S]; normalize to [R, S, recoveryID].
	var out Signature
	copy(out[:64], sig[1:])
	out[64] = sig[0] - 27
	return out, nil
}

// Verify reports whether sig is a valid signature over message by pub.
// The recovery byte is ignored here; only RecoverPublic reads it.
func Verify(message []byte, sig Signature, pub PublicKey) bool {
	pubKey, err := secp256k1.ParsePubKey(pub[:])
	if err != nil {
		return false
	}
	digest := sha256.Sum256(message)
	r := new(secp256k1.ModNScalar)
	s := new(secp256k1.ModNScalar)
	if r.SetByteSlice(sig[:32]) || s.SetByteSlice(sig[32:64]) {
		return false
	}
	signature := ecdsa.NewSignature(r, s)
	return signature.Verify(digest[:], pubKey)
}

// RecoverPublic recovers the compressed public key that produced sig over
// message. Used when only an address (not a public key) is on record: the
// signature's recovery byte lets the sender's public key be reconstructed
// and checked against the address hash.
func RecoverPublic(message []byte, sig Signature) (PublicKey, error) {
	if sig[64] > 3 {
		return PublicKey{}, errors.New("crypto: invalid recovery id")
	}
	digest := sha256.Sum256(message)
	compact := make([]byte, 65)
	compact[0] = sig[64] + 27
	copy(compact[1:], sig[:64])
	pubKey, _, err := ecdsa.RecoverCompact(compact, digest[:])
	if err != nil {
		return PublicKey{}, err
	}
	var pub PublicKey
	copy(pub[:], pubKey.SerializeCompressed())
	return pub, nil
}

// VerifyWithRecovery recovers the public key from sig and checks both that
// the recovered key verifies the signature and that it hashes to addr.
// This is what transaction validation uses: the ledger stores only
// addresses, so recovery is the only way to check the sender's key.
func VerifyWithRecovery(message []byte, sig Signature, addr string) (PublicKey, bool) {
	pub, err := RecoverPublic(message, sig)
	if err != nil {
		return PublicKey{}, false
	}
	if DeriveAddress(pub) != addr {
		return PublicKey{}, false
	}
	return pub, Verify(message, sig, pub)
}
