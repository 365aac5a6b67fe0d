package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Page identifies the active TUI page.
type Page int

const (
	PageRaffle Page = iota
	PageNetworks
)

// DirName is the per-user directory holding the config, keystore and state.
const DirName = ".raffle-tui"

// EnvPrefix namespaces the environment overrides (RAFFLE_PRIVATE_KEY, ...).
const EnvPrefix = "RAFFLE"

// Config represents the application configuration
type Config struct {
	RPCURLs       []RPCUrl `json:"rpc_urls" mapstructure:"rpc_urls"`
	Keystore      string   `json:"keystore" mapstructure:"keystore"`
	Account       string   `json:"account,omitempty" mapstructure:"account"`
	Registry      string   `json:"registry,omitempty" mapstructure:"registry"`
	Logger        bool     `json:"logger" mapstructure:"logger"`
	Confirmations uint64   `json:"confirmations" mapstructure:"confirmations"`

	// Environment only, never written back to disk.
	PrivateKey string `json:"-" mapstructure:"private_key"`
	Passphrase string `json:"-" mapstructure:"passphrase"`
	RPCURL     string `json:"-" mapstructure:"rpc_url"`
}

// RPCUrl represents an RPC endpoint
type RPCUrl struct {
	Name   string `json:"name" mapstructure:"name"`
	URL    string `json:"url" mapstructure:"url"`
	Active bool   `json:"active" mapstructure:"active"`
}

// Dir returns ~/.raffle-tui.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home dir: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// DefaultPath returns ~/.raffle-tui/config.json.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// StatePath returns the bbolt file kept next to the config at path.
func StatePath(path string) string {
	return filepath.Join(filepath.Dir(path), "state.db")
}

// DefaultConfig returns a new configuration with sensible defaults. The
// keystore lives next to the config file.
func DefaultConfig(path string) Config {
	return Config{
		RPCURLs: []RPCUrl{
			{
				Name:   "Hardhat Localhost",
				URL:    "http://127.0.0.1:8545",
				Active: true,
			},
			{
				Name: "Sepolia",
				URL:  "https://ethereum-sepolia-rpc.publicnode.com",
			},
		},
		Keystore:      filepath.Join(filepath.Dir(path), "keystore"),
		Logger:        false,
		Confirmations: 1,
	}
}

// Load reads the config at path and applies the RAFFLE_* environment
// overrides. ETH_RPC_URL is used when no endpoint is configured.
func Load(path string) (Config, error) {
	cfg, err := read(path, true)
	if err != nil {
		return Config{}, err
	}
	if len(cfg.RPCURLs) == 0 {
		if env := strings.TrimSpace(os.Getenv("ETH_RPC_URL")); env != "" {
			cfg.RPCURLs = []RPCUrl{{Name: "Default", URL: env, Active: true}}
		}
	}
	return cfg, nil
}

// Update applies fn to the settings stored at path and writes them back.
// Environment and flag overrides of the running config never reach the file.
func Update(path string, fn func(*Config)) error {
	cfg, err := read(path, false)
	if err != nil {
		return err
	}
	fn(&cfg)
	return Save(path, cfg)
}

func read(path string, withEnv bool) (Config, error) {
	defaults := DefaultConfig(path)

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetDefault("keystore", defaults.Keystore)
	v.SetDefault("confirmations", defaults.Confirmations)
	v.SetDefault("logger", false)

	if withEnv {
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
		for _, key := range []string{"private_key", "passphrase", "rpc_url", "account", "keystore", "registry"} {
			if err := v.BindEnv(key); err != nil {
				return Config{}, fmt.Errorf("bind env %s: %w", key, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config %s: %w", path, err)
	}
	if cfg.Confirmations == 0 {
		cfg.Confirmations = 1
	}
	return cfg, nil
}

// Save writes the config to the specified path
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// LoadOrCreate loads config from path, or creates a default one if not found
func LoadOrCreate(path string) (Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := Save(path, DefaultConfig(path)); err != nil {
			return Config{}, err
		}
	}
	return Load(path)
}

// ActiveRPC returns the endpoint to dial. RAFFLE_RPC_URL wins over the
// configured list.
func (c Config) ActiveRPC() (RPCUrl, bool) {
	if c.RPCURL != "" {
		return RPCUrl{Name: "Environment", URL: c.RPCURL, Active: true}, true
	}
	for _, r := range c.RPCURLs {
		if r.Active {
			return r, true
		}
	}
	if len(c.RPCURLs) > 0 {
		return c.RPCURLs[0], true
	}
	return RPCUrl{}, false
}

// Activate marks the endpoint at idx as the only active one.
func (c *Config) Activate(idx int) bool {
	if idx < 0 || idx >= len(c.RPCURLs) {
		return false
	}
	for i := range c.RPCURLs {
		c.RPCURLs[i].Active = i == idx
	}
	c.RPCURL = ""
	return true
}

// ActivateURL activates the configured endpoint with the given URL.
func (c *Config) ActivateURL(url string) bool {
	for i, r := range c.RPCURLs {
		if r.URL == url {
			return c.Activate(i)
		}
	}
	return false
}
