// Command aurum is the Aurum full node's only entrypoint: start the node,
// or manage wallets used to sign transactions and produce blocks.
package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/aurum-chain/aurum/internal/config"
	"github.com/aurum-chain/aurum/internal/crypto"
	"github.com/aurum-chain/aurum/internal/keystore"
	"github.com/aurum-chain/aurum/internal/logging"
	"github.com/aurum-chain/aurum/internal/node"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "aurum",
		Short: "Aurum proof-of-stake full node",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	root.AddCommand(startCmd(&configPath))
	root.AddCommand(walletCmd(&configPath))
	return root
}

func loadConfig(configPath string, fs *pflag.FlagSet) (config.Config, error) {
	return config.Load(configPath, fs)
}

func startCmd(configPath *string) *cobra.Command {
	var (
		nodeID            string
		validatorAddress  string
		validatorPassword string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the full node: gossip, persistence, and the query API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath, cmd.Flags())
			if err != nil {
				return err
			}
			if validatorAddress != "" {
				cfg.ValidatorAddress = validatorAddress
			}

			log, err := logging.New(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("building logger: %w", err)
			}
			defer log.Sync()

			if nodeID == "" {
				nodeID = fmt.Sprintf("aurum-%d", os.Getpid())
			}

			n, err := node.New(cfg, nodeID, log)
			if err != nil {
				return fmt.Errorf("constructing node: %w", err)
			}

			if cfg.ValidatorAddress != "" {
				password := validatorPassword
				if password == "" {
					password = os.Getenv("AURUM_VALIDATOR_PASSWORD")
				}
				if password == "" {
					return fmt.Errorf("validator address set but no password given (--validator-password or AURUM_VALIDATOR_PASSWORD)")
				}
				if err := n.EnableValidator(cfg.ValidatorAddress, password); err != nil {
					return fmt.Errorf("unlocking validator wallet: %w", err)
				}
			}

			if err := n.Start(); err != nil {
				return fmt.Errorf("starting node: %w", err)
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			<-sigCh

			log.Info("shutdown signal received")
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return n.Stop(ctx)
		},
	}

	cmd.Flags().String("networkId", "", "network identifier")
	cmd.Flags().String("dataDir", "", "data directory for persistence and snapshots")
	cmd.Flags().String("walletDir", "", "wallet keystore directory")
	cmd.Flags().String("p2pListenAddr", "", "gossip listen address")
	cmd.Flags().String("apiListenAddr", "", "query API listen address")
	cmd.Flags().StringSlice("seedPeers", nil, "seed peer addresses to dial on startup")
	cmd.Flags().Int("maxPeers", 0, "maximum connected peers")
	cmd.Flags().Int("snapshotInterval", 0, "blocks between state snapshots")
	cmd.Flags().StringVar(&nodeID, "nodeId", "", "this node's gossip identifier")
	cmd.Flags().StringVar(&validatorAddress, "validator-address", "", "wallet address to produce blocks as")
	cmd.Flags().StringVar(&validatorPassword, "validator-password", "", "password for the validator wallet (prefer AURUM_VALIDATOR_PASSWORD)")

	return cmd
}

func walletCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Create, import, and list node wallets",
	}
	cmd.AddCommand(walletCreateCmd(configPath))
	cmd.AddCommand(walletImportCmd(configPath))
	cmd.AddCommand(walletListCmd(configPath))
	return cmd
}

func walletDir(configPath string, cmd *cobra.Command) (string, error) {
	cfg, err := loadConfig(configPath, cmd.Flags())
	if err != nil {
		return "", err
	}
	return cfg.WalletDir, nil
}

func walletCreateCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Generate a new keypair and store it encrypted under walletDir",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := walletDir(*configPath, cmd)
			if err != nil {
				return err
			}
			password, err := readPassword("Set wallet password: ")
			if err != nil {
				return err
			}
			addr, err := keystore.CreateWallet(dir, password)
			if err != nil {
				return err
			}
			fmt.Println(addr)
			return nil
		},
	}
	cmd.Flags().String("dataDir", "", "")
	cmd.Flags().String("walletDir", "", "wallet keystore directory")
	return cmd
}

func walletImportCmd(configPath *string) *cobra.Command {
	var hexKey string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import an existing private key (hex-encoded) into the keystore",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := walletDir(*configPath, cmd)
			if err != nil {
				return err
			}
			priv, err := parsePrivateKeyHex(hexKey)
			if err != nil {
				return err
			}
			password, err := readPassword("Set wallet password: ")
			if err != nil {
				return err
			}
			addr, err := keystore.ImportWallet(dir, priv, password)
			if err != nil {
				return err
			}
			fmt.Println(addr)
			return nil
		},
	}
	cmd.Flags().String("walletDir", "", "wallet keystore directory")
	cmd.Flags().StringVar(&hexKey, "private-key", "", "hex-encoded private key to import")
	cmd.MarkFlagRequired("private-key")
	return cmd
}

func walletListCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List wallet addresses known to this node",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := walletDir(*configPath, cmd)
			if err != nil {
				return err
			}
			addrs, err := keystore.ListWallets(dir)
			if err != nil {
				return err
			}
			for _, a := range addrs {
				fmt.Println(a)
			}
			return nil
		},
	}
	cmd.Flags().String("walletDir", "", "wallet keystore directory")
	return cmd
}

func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return trimNewline(line), nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

func parsePrivateKeyHex(s string) (crypto.PrivateKey, error) {
	var priv crypto.PrivateKey
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return priv, err
	}
	if len(decoded) != crypto.PrivateKeySize {
		return priv, fmt.Errorf("private key must be %d bytes, got %d", crypto.PrivateKeySize, len(decoded))
	}
	copy(priv[:], decoded)
	return priv, nil
}
