// Package config holds mailcrawl's runtime configuration: the flat Config
// built from CLI flags, and the optional .mailcrawl YAML file with defaults
// and per-host overrides.
package config
