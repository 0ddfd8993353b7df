// Package config loads, normalizes, and validates sessionscribe configuration
// data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// engine and CLI need, so watched directories, queue layout, and worker
// defaults are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
