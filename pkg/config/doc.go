// Package config defines the creditwatch configuration: YAML file loading,
// defaults, validation, and CREDITWATCH_* environment variable overrides.
//
// The loading sequence is file, then defaults, then environment overrides,
// then validation. Secrets (provider API key, SMTP password) are expected
// to come from the environment rather than the file.
package config
