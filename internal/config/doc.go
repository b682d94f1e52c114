// Package config loads, normalizes, and validates the TOML configuration
// for parallax. Paths are expanded (including "~"), defaults are applied to
// absent fields, and validation runs before any stage work begins.
package config
