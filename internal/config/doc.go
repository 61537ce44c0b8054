// Package config loads, normalizes, and validates vrmtrack configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts) and
// reads TOML files. The Config type gathers every knob the tracker, the
// HTTP server and the CLI need, and converts its sections into the option
// types of the packages they configure.
package config
