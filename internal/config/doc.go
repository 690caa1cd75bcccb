// Package config loads the smash editor configuration.
//
// Configuration is a single TOML file layered over built-in defaults.
// A missing file yields the defaults; a malformed file is a ParseError.
// The package converts the declarative sections into runtime values:
// keymap layers (stacked above the builtin layers), language server
// start configs, and terminal pane defaults. A Watcher observes the
// file for live reload.
package config
