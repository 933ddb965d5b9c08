// Package config loads client configuration from the environment and an
// optional config file.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Client is the full configuration of the marketplace client.
type Client struct {
	// BackendURL is the marketplace backend base path.
	BackendURL string
	// NodeURL is the chain fullnode REST endpoint.
	NodeURL string
	// ChainID selects the network the wallet signs for.
	ChainID uint8
	// Application identifies this client in signed login messages.
	Application string
	// WalletName selects the wallet vendor to connect.
	WalletName string

	// WalletKeyFile and SessionFile locate the local wallet key and the
	// persisted bearer credential.
	WalletKeyFile string
	SessionFile   string

	// SigningTimeout bounds the wait for the wallet popup.
	SigningTimeout time.Duration
	// ConfirmPollInterval and ConfirmTimeout bound the wait for on-chain
	// inclusion.
	ConfirmPollInterval time.Duration
	ConfirmTimeout      time.Duration

	Verbose bool
}

// Load reads configuration with MARKET_-prefixed env vars taking priority
// over an optional $HOME/.marketctl/config.yaml.
func Load() (Client, error) {
	v := viper.New()
	v.SetEnvPrefix("market")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	home, err := os.UserHomeDir()
	if err != nil {
		return Client{}, errors.Wrap(err, "failed to resolve home directory")
	}
	configDir := filepath.Join(home, ".marketctl")

	v.SetDefault("backend_url", "http://localhost:4000")
	v.SetDefault("node_url", "http://localhost:8080")
	v.SetDefault("chain_id", 2)
	v.SetDefault("application", "marketctl")
	v.SetDefault("wallet_name", "local")
	v.SetDefault("wallet_key_file", filepath.Join(configDir, "wallet.json"))
	v.SetDefault("session_file", filepath.Join(configDir, "session.json"))
	v.SetDefault("signing_timeout", "30s")
	v.SetDefault("confirm_poll_interval", "500ms")
	v.SetDefault("confirm_timeout", "60s")
	v.SetDefault("verbose", false)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Client{}, errors.Wrap(err, "failed to read config file")
		}
	}

	cfg := Client{
		BackendURL:          v.GetString("backend_url"),
		NodeURL:             v.GetString("node_url"),
		ChainID:             uint8(v.GetUint("chain_id")),
		Application:         v.GetString("application"),
		WalletName:          v.GetString("wallet_name"),
		WalletKeyFile:       v.GetString("wallet_key_file"),
		SessionFile:         v.GetString("session_file"),
		SigningTimeout:      v.GetDuration("signing_timeout"),
		ConfirmPollInterval: v.GetDuration("confirm_poll_interval"),
		ConfirmTimeout:      v.GetDuration("confirm_timeout"),
		Verbose:             v.GetBool("verbose"),
	}
	if cfg.BackendURL == "" {
		return Client{}, errors.New("backend_url must not be empty")
	}
	return cfg, nil
}
