// Package config loads, normalizes, and validates litpipe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// pipeline and CLI need: concurrency ceilings, feature toggles, quality
// threshold, retry and timeout policy, workspace paths, and log settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
