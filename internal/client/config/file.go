package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dmitrijs2005/learnportal/internal/flagx"
	"github.com/dmitrijs2005/learnportal/internal/timex"
)

// FileConfig is a DTO used exclusively for config file decoding. Absent keys
// stay nil and leave the running value alone. Intervals use timex.Duration,
// so they can be written as strings like "3s" (or integer nanoseconds in
// JSON).
type FileConfig struct {
	ServerURL              *string         `json:"server_url" toml:"server_url"`
	ListenAddr             *string         `json:"listen_addr" toml:"listen_addr"`
	DatabasePath           *string         `json:"database_path" toml:"database_path"`
	AuthMode               *string         `json:"auth_mode" toml:"auth_mode"`
	OnlineCheckInterval    *timex.Duration `json:"online_check_interval" toml:"online_check_interval"`
	RequestTimeout         *timex.Duration `json:"request_timeout" toml:"request_timeout"`
	RestoreWait            *timex.Duration `json:"restore_wait" toml:"restore_wait"`
	WalletKeyFile          *string         `json:"wallet_key_file" toml:"wallet_key_file"`
	ChainID                *int64          `json:"chain_id" toml:"chain_id"`
	RequireWalletSignature *bool           `json:"require_wallet_signature" toml:"require_wallet_signature"`
	LogLevel               *string         `json:"log_level" toml:"log_level"`
	LogFormat              *string         `json:"log_format" toml:"log_format"`
}

// parseFile overlays Config with values loaded from a config file.
//
// The path comes from -c or -config; without it nothing is loaded. Files
// ending in .toml are decoded as TOML, anything else as JSON. Read or decode
// errors panic, as flag errors do.
func parseFile(cfg *Config, args []string) {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var fc FileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &fc)
	} else {
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		panic(err)
	}

	fc.apply(cfg)
}

func (fc *FileConfig) apply(cfg *Config) {
	setString(&cfg.ServerURL, fc.ServerURL)
	setString(&cfg.ListenAddr, fc.ListenAddr)
	setString(&cfg.DatabasePath, fc.DatabasePath)
	setString(&cfg.AuthMode, fc.AuthMode)
	setDuration(&cfg.OnlineCheckInterval, fc.OnlineCheckInterval)
	setDuration(&cfg.RequestTimeout, fc.RequestTimeout)
	setDuration(&cfg.RestoreWait, fc.RestoreWait)
	setString(&cfg.WalletKeyFile, fc.WalletKeyFile)
	if fc.ChainID != nil {
		cfg.ChainID = *fc.ChainID
	}
	if fc.RequireWalletSignature != nil {
		cfg.RequireWalletSignature = *fc.RequireWalletSignature
	}
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFormat, fc.LogFormat)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
