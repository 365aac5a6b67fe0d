package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"raffle-tui/config"
	"raffle-tui/helpers"
	"raffle-tui/raffle"
	"raffle-tui/session"
	"raffle-tui/storage"
	"raffle-tui/wallet"
)

// -------------------- MAIN --------------------

const appName = "raffle-tui"

var flags struct {
	config   string
	rpc      string
	keystore string
	account  string
	registry string
	log      bool
}

var rootCmd = &cobra.Command{
	Use:           appName,
	Short:         "Terminal front end for the raffle contract",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flags.config, "config", "", "config file (default ~/.raffle-tui/config.json)")
	f.StringVar(&flags.rpc, "rpc", "", "RPC endpoint, overrides the active network")
	f.StringVar(&flags.keystore, "keystore", "", "keystore directory")
	f.StringVar(&flags.account, "account", "", "keystore account address")
	f.StringVar(&flags.registry, "registry", "", "contract addresses file (chain id -> addresses)")
	f.BoolVar(&flags.log, "log", false, "show the debug log panel")
}

type providerCloser interface {
	session.Provider
	Close() error
}

func run(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	path := flags.config
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}

	cfg, err := config.LoadOrCreate(path)
	if err != nil {
		return err
	}
	if flags.rpc != "" {
		cfg.RPCURL = flags.rpc
	}
	if flags.keystore != "" {
		cfg.Keystore = flags.keystore
	}
	if flags.account != "" {
		if !helpers.IsValidEthAddress(flags.account) {
			return fmt.Errorf("invalid --account %q", flags.account)
		}
		cfg.Account = flags.account
	}
	if flags.registry != "" {
		cfg.Registry = flags.registry
	}
	if flags.log {
		cfg.Logger = true
	}

	registry, err := raffle.LoadRegistry(cfg.Registry)
	if err != nil {
		return err
	}

	store, err := storage.OpenBolt(config.StatePath(path))
	if err != nil {
		return err
	}
	defer store.Close()

	buf := &syncBuffer{}
	logger := newLogger(buf)

	active, _ := cfg.ActiveRPC()
	opts := wallet.Options{RPCURL: active.URL, Logger: logger}

	var provider providerCloser
	if cfg.PrivateKey != "" {
		if provider, err = wallet.NewKeyed(cfg.PrivateKey, opts); err != nil {
			return err
		}
	} else {
		provider = wallet.NewKeystore(wallet.KeystoreOptions{
			Options:    opts,
			Dir:        cfg.Keystore,
			Account:    cfg.Account,
			Passphrase: cfg.Passphrase,
		})
	}
	defer provider.Close()

	m := newModel(deps{
		cfg:        cfg,
		configPath: path,
		provider:   provider,
		store:      store,
		registry:   registry,
		logger:     logger,
		logBuffer:  buf,
	})
	defer m.accountSub.Unsubscribe()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(cmd.Context()))
	_, err = p.Run()
	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}
