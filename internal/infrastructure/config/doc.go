// Package config loads and validates the router's YAML configuration.
//
// Configuration is resolved in three layers: hardcoded defaults (the
// reference device's settings), the YAML file, and NAPTROUTER_* environment
// variable overrides. The resulting Config is immutable after Load; every
// component receives the sub-struct it needs at construction time.
package config
