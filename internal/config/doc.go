// Package config loads, parses and validates application settings from
// defaults, an optional YAML file and SCRY_-prefixed environment variables.
// Components receive the typed sub-struct they need rather than reading the
// environment themselves.
package config
