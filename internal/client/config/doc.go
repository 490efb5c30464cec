// Package config loads runtime configuration for the portal front-ends.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected via -c or -config. Files ending in
//     .toml are read as TOML, anything else as JSON.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # File schema
//
// Intervals use timex.Duration, so they can be strings like "3s":
//
//	{
//	  "server_url": "http://localhost:8000",
//	  "auth_mode": "wallet",
//	  "online_check_interval": "3s",
//	  "require_wallet_signature": true
//	}
//
// Note: This package does not read environment variables directly; use the
// config file or flags to configure values.
package config
