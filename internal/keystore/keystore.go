// Package keystore encrypts and decrypts private keys on disk using the
// fixed suite from spec section 4.1: AES-256-CTR with a scrypt-derived
// key. One file per address under the wallets directory.
package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/scrypt"

	"github.com/aurum-chain/aurum/internal/chainerr"
	"github.com/aurum-chain/aurum/internal/crypto"
)

const (
	scryptN      = 16384
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
	saltSize     = 32
	ivSize       = 16
	cipherID     = "aes-256-ctr"
)

// KDFParams records the scrypt parameters used to derive the encryption
// key, so a keystore written with tomorrow's tuned parameters can still be
// read by an older binary.
type KDFParams struct {
	N      int `json:"n"`
	R      int `json:"r"`
	P      int `json:"p"`
	DKLen  int `json:"dklen"`
}

// Record is the on-disk encrypted keystore file.
type Record struct {
	Address    string    `json:"address"`
	PublicKey  string    `json:"public_key"`
	Cipher     string    `json:"cipher"`
	Ciphertext string    `json:"ciphertext"`
	Salt       string    `json:"salt"`
	IV         string    `json:"iv"`
	KDFParams  KDFParams `json:"kdf_params"`
}

// CreateWallet generates a fresh keypair, encrypts the private key with
// password, and writes one file per address under dir. Collision on the
// address filename is an error, since the keystore directory is only ever
// mutated by wallet operations.
func CreateWallet(dir, password string) (address string, err error) {
	priv, pub, err := crypto.GenerateKeypair()
	if err != nil {
		return "", fmt.Errorf("keystore: generate keypair: %w", err)
	}
	return writeWallet(dir, priv, pub, password)
}

// ImportWallet encrypts an existing private key and writes it to dir, the
// same way CreateWallet does for a freshly generated one. This backs the
// CLI's wallet:import subcommand.
func ImportWallet(dir string, priv crypto.PrivateKey, password string) (address string, err error) {
	pub := crypto.PublicKeyFromPrivate(priv)
	return writeWallet(dir, priv, pub, password)
}

func writeWallet(dir string, priv crypto.PrivateKey, pub crypto.PublicKey, password string) (string, error) {
	addr := crypto.DeriveAddress(pub)
	path := walletPath(dir, addr)

	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("keystore: wallet for %s already exists", addr)
	} else if !os.IsNotExist(err) {
		return "", err
	}

	record, err := encrypt(addr, pub, priv, password)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("keystore: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("keystore: write %s: %w", path, err)
	}
	return addr, nil
}

// LoadWallet reads and decrypts the keystore file for address. A wrong
// password and a missing file both surface as InvalidCredential with the
// same description, so a caller cannot distinguish the two and enumerate
// which addresses have wallets on this node.
func LoadWallet(dir, address, password string) (crypto.PrivateKey, crypto.PublicKey, error) {
	path := walletPath(dir, address)
	data, err := os.ReadFile(path)
	if err != nil {
		return crypto.PrivateKey{}, crypto.PublicKey{}, chainerr.New(chainerr.InvalidCredential, "invalid address or password")
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return crypto.PrivateKey{}, crypto.PublicKey{}, chainerr.Wrap(chainerr.CorruptKeystore, err)
	}

	priv, pub, err := decrypt(record, password)
	if err != nil {
		return crypto.PrivateKey{}, crypto.PublicKey{}, chainerr.New(chainerr.InvalidCredential, "invalid address or password")
	}
	return priv, pub, nil
}

// ListWallets returns the addresses of every wallet file under dir.
func ListWallets(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var addrs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if ext != ".json" {
			continue
		}
		addrs = append(addrs, name[:len(name)-len(ext)])
	}
	return addrs, nil
}

func walletPath(dir, address string) string {
	return filepath.Join(dir, address+".json")
}

func encrypt(addr string, pub crypto.PublicKey, priv crypto.PrivateKey, password string) (Record, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return Record{}, err
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return Record{}, err
	}

	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return Record{}, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return Record{}, err
	}
	stream := cipher.NewCTR(block, iv)
	ciphertext := make([]byte, len(priv))
	stream.XORKeyStream(ciphertext, priv[:])

	return Record{
		Address:    addr,
		PublicKey:  fmt.Sprintf("%x", pub[:]),
		Cipher:     cipherID,
		Ciphertext: fmt.Sprintf("%x", ciphertext),
		Salt:       fmt.Sprintf("%x", salt),
		IV:         fmt.Sprintf("%x", iv),
		KDFParams:  KDFParams{N: scryptN, R: scryptR, P: scryptP, DKLen: scryptKeyLen},
	}, nil
}

func decrypt(record Record, password string) (crypto.PrivateKey, crypto.PublicKey, error) {
	if record.Cipher != cipherID {
		return crypto.PrivateKey{}, crypto.PublicKey{}, fmt.Errorf("keystore: unsupported cipher %q", record.Cipher)
	}

	salt, err := hex.DecodeString(record.Salt)
	if err != nil {
		return crypto.PrivateKey{}, crypto.PublicKey{}, err
	}
	iv, err := hex.DecodeString(record.IV)
	if err != nil {
		return crypto.PrivateKey{}, crypto.PublicKey{}, err
	}
	ciphertext, err := hex.DecodeString(record.Ciphertext)
	if err != nil {
		return crypto.PrivateKey{}, crypto.PublicKey{}, err
	}
	pubBytes, err := hex.DecodeString(record.PublicKey)
	if err != nil || len(pubBytes) != crypto.PublicKeySize {
		return crypto.PrivateKey{}, crypto.PublicKey{}, errors.New("keystore: malformed public key")
	}

	key, err := scrypt.Key([]byte(password), salt, record.KDFParams.N, record.KDFParams.R, record.KDFParams.P, record.KDFParams.DKLen)
	if err != nil {
		return crypto.PrivateKey{}, crypto.PublicKey{}, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return crypto.PrivateKey{}, crypto.PublicKey{}, err
	}
	stream := cipher.NewCTR(block, iv)
	plaintext := make([]byte, len(ciphertext))
	stream.XORKeyStream(plaintext, ciphertext)

	if len(plaintext) != crypto.PrivateKeySize {
		return crypto.PrivateKey{}, crypto.PublicKey{}, errors.New("keystore: malformed private key")
	}

	var priv crypto.PrivateKey
	copy(priv[:], plaintext)
	var pub crypto.PublicKey
	copy(pub[:], pubBytes)

	if crypto.PublicKeyFromPrivate(priv) != pub {
		return crypto.PrivateKey{}, crypto.PublicKey{}, errors.New("keystore: wrong password")
	}
	return priv, pub, nil
}
