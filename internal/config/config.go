// Package config loads a node's settings from a config file, the
// environment, and CLI flags, in that order of increasing precedence,
// using viper the way its ecosystem is meant to be used.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is every setting a node needs to start.
type Config struct {
	NetworkID        string   `mapstructure:"networkId"`
	DataDir          string   `mapstructure:"dataDir"`
	WalletDir        string   `mapstructure:"walletDir"`
	P2PListenAddr    string   `mapstructure:"p2pListenAddr"`
	APIListenAddr    string   `mapstructure:"apiListenAddr"`
	SeedPeers        []string `mapstructure:"seedPeers"`
	MaxPeers         int      `mapstructure:"maxPeers"`
	ValidatorAddress string   `mapstructure:"validatorAddress"`
	LogLevel         string   `mapstructure:"logLevel"`
	SnapshotInterval int      `mapstructure:"snapshotInterval"`
}

// Defaults returns the configuration every flag and file value is
// layered on top of.
func Defaults() Config {
	return Config{
		NetworkID:        "aurum-mainnet",
		DataDir:          "./data",
		WalletDir:        "./wallets",
		P2PListenAddr:    ":7070",
		APIListenAddr:    ":7071",
		MaxPeers:         8,
		LogLevel:         "info",
		SnapshotInterval: 1,
	}
}

// Load merges, in increasing precedence, the built-in defaults, an
// optional config file at configPath, AURUM_-prefixed environment
// variables, and flags already parsed into fs.
func Load(configPath string, fs *pflag.FlagSet) (Config, error) {
	v := viper.New()

	defaults := Defaults()
	v.SetDefault("networkId", defaults.NetworkID)
	v.SetDefault("dataDir", defaults.DataDir)
	v.SetDefault("walletDir", defaults.WalletDir)
	v.SetDefault("p2pListenAddr", defaults.P2PListenAddr)
	v.SetDefault("apiListenAddr", defaults.APIListenAddr)
	v.SetDefault("maxPeers", defaults.MaxPeers)
	v.SetDefault("logLevel", defaults.LogLevel)
	v.SetDefault("snapshotInterval", defaults.SnapshotInterval)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", configPath, err)
		}
	}

	v.SetEnvPrefix("aurum")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return Config{}, fmt.Errorf("config: binding flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}
