// Package config loads, normalizes, and validates shotscribe configuration.
//
// Configuration is read from TOML (default ~/.config/shotscribe/config.toml or
// ./shotscribe.toml), merged over repository defaults, and then normalized:
// paths are tilde-expanded and made absolute, API keys fall back to
// environment variables, and empty numeric knobs revert to defaults. Validate
// rejects unusable values; ValidateCredentials is called at the composition
// point that builds remote clients so commands that never touch the network
// run without keys.
package config
