package keystore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aurum-chain/aurum/internal/chainerr"
	"github.com/aurum-chain/aurum/internal/crypto"
)

func TestCreateAndLoadWalletRoundTrip(t *testing.T) {
	dir := t.TempDir()

	addr, err := CreateWallet(dir, "correct-password")
	require.NoError(t, err)
	require.NotEmpty(t, addr)

	priv, pub, err := LoadWallet(dir, addr, "correct-password")
	require.NoError(t, err)
	require.Equal(t, crypto.PublicKeyFromPrivate(priv), pub)
	require.Equal(t, addr, crypto.DeriveAddress(pub))
}

func TestLoadWalletWrongPasswordIsInvalidCredential(t *testing.T) {
	dir := t.TempDir()
	addr, err := CreateWallet(dir, "correct-password")
	require.NoError(t, err)

	_, _, err = LoadWallet(dir, addr, "wrong-password")
	require.Error(t, err)
	require.Equal(t, chainerr.InvalidCredential, chainerr.KindOf(err))
}

func TestLoadWalletMissingFileIsInvalidCredential(t *testing.T) {
	dir := t.TempDir()

	_, _, err := LoadWallet(dir, "aur1doesnotexist00000000000000000000000", "whatever")
	require.Error(t, err)
	require.Equal(t, chainerr.InvalidCredential, chainerr.KindOf(err))
}

func TestImportWalletCollisionIsError(t *testing.T) {
	dir := t.TempDir()
	priv, _, err := crypto.GenerateKeypair()
	require.NoError(t, err)

	addr, err := ImportWallet(dir, priv, "pw")
	require.NoError(t, err)

	_, err = ImportWallet(dir, priv, "pw")
	require.Error(t, err)

	addrs, err := ListWallets(dir)
	require.NoError(t, err)
	require.Equal(t, []string{addr}, addrs)
}
