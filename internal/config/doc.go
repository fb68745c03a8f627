// Package config loads, normalizes, and validates the TOML configuration
// shared by the daemon and the CLI.
//
// Load resolves the config path (explicit flag, ~/.config/luster/config.toml,
// or ./luster.toml), applies defaults for missing values, expands ~ in all
// path fields, and validates the result. CreateSample writes the embedded
// sample configuration for `luster config init`.
package config
