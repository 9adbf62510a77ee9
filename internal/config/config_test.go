package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func TestLoadAppliesDefaultsWithNoFileOrFlags(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatal(err)
	}
	want := Defaults()
	if cfg.NetworkID != want.NetworkID || cfg.DataDir != want.DataDir || cfg.MaxPeers != want.MaxPeers {
		t.Fatalf("got %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"networkId": "aurum-testnet", "maxPeers": 3}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.NetworkID != "aurum-testnet" {
		t.Fatalf("networkId = %s, want aurum-testnet", cfg.NetworkID)
	}
	if cfg.MaxPeers != 3 {
		t.Fatalf("maxPeers = %d, want 3", cfg.MaxPeers)
	}
	if cfg.DataDir != Defaults().DataDir {
		t.Fatalf("dataDir = %s, want the untouched default %s", cfg.DataDir, Defaults().DataDir)
	}
}

func TestLoadFlagsOverrideConfigFileAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"maxPeers": 3}`), 0o600); err != nil {
		t.Fatal(err)
	}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("maxPeers", Defaults().MaxPeers, "")
	if err := fs.Set("maxPeers", "20"); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, fs)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxPeers != 20 {
		t.Fatalf("maxPeers = %d, want 20 (flag beats config file)", cfg.MaxPeers)
	}
}

func TestLoadEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("AURUM_NETWORKID", "aurum-devnet")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.NetworkID != "aurum-devnet" {
		t.Fatalf("networkId = %s, want aurum-devnet", cfg.NetworkID)
	}
}

func TestLoadMissingConfigFileIsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"), nil)
	if err == nil {
		t.Fatal("expected an error for a nonexistent config file")
	}
}
