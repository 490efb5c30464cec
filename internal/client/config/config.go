package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"
)

const (
	AuthModePassword = "password"
	AuthModeWallet   = "wallet"
)

// Config holds runtime settings shared by the portal web front-end and the CLI.
//
// Units: every interval is a time.Duration (e.g., 3*time.Second).
type Config struct {
	// ServerURL is the base URL of the backend API.
	ServerURL string
	// ListenAddr is where the web front-end serves pages.
	ListenAddr string
	// DatabasePath is the SQLite file holding the persisted session.
	DatabasePath string
	// AuthMode selects the entry flow: "password" or "wallet".
	AuthMode string

	OnlineCheckInterval time.Duration
	RequestTimeout      time.Duration
	// RestoreWait bounds how long the route guard waits for restoration.
	RestoreWait time.Duration

	// WalletKeyFile holds a hex secp256k1 key used by the wallet flow.
	WalletKeyFile string
	ChainID       int64
	// RequireWalletSignature refuses unsigned wallet logins.
	RequireWalletSignature bool

	LogLevel  string
	LogFormat string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://localhost:8000"
	c.ListenAddr = "127.0.0.1:3000"
	c.DatabasePath = "portal.db"
	c.AuthMode = AuthModePassword
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 15 * time.Second
	c.RestoreWait = 5 * time.Second
	c.WalletKeyFile = ""
	c.ChainID = 1
	c.RequireWalletSignature = true
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server url %q must be an absolute http(s) url", c.ServerURL)
	}
	if c.AuthMode != AuthModePassword && c.AuthMode != AuthModeWallet {
		return fmt.Errorf("auth mode %q must be %q or %q", c.AuthMode, AuthModePassword, AuthModeWallet)
	}
	if c.OnlineCheckInterval <= 0 || c.RequestTimeout <= 0 || c.RestoreWait <= 0 {
		return errors.New("intervals and timeouts must be positive")
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// a config file (if given) and command-line flags (if present). Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg, os.Args[1:])
	parseFlags(cfg, os.Args[1:])
	return cfg
}
