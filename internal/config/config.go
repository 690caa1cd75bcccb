package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/smash-editor/smash/internal/input/keymap"
	"github.com/smash-editor/smash/internal/lsp"
	"github.com/smash-editor/smash/internal/terminal"
)

// Config is the editor configuration loaded from a TOML file.
type Config struct {
	Editor   Editor            `toml:"editor"`
	Terminal Terminal          `toml:"terminal"`
	Keymap   Keymap            `toml:"keymap"`
	LSP      map[string]Server `toml:"lsp"`
}

// Editor holds general editing options.
type Editor struct {
	TabSize      int  `toml:"tab_size"`
	InsertSpaces bool `toml:"insert_spaces"`
}

// Terminal holds embedded terminal options.
type Terminal struct {
	Shell string `toml:"shell"`
	Cols  int    `toml:"cols"`
	Rows  int    `toml:"rows"`
}

// Keymap holds user key binding layers, stacked above the builtins.
type Keymap struct {
	Layers []Layer `toml:"layers"`
}

// Layer is one named group of bindings.
type Layer struct {
	Name     string    `toml:"name"`
	Bindings []Binding `toml:"bindings"`
}

// Binding maps a key sequence spec to a command name.
type Binding struct {
	Keys        string `toml:"keys"`
	Command     string `toml:"command"`
	Description string `toml:"description"`
}

// Server configures one language server, keyed by language id.
type Server struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
	Env     []string `toml:"env"`
	RootURI string   `toml:"root_uri"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Editor:   Editor{TabSize: 4, InsertSpaces: true},
		Terminal: Terminal{Cols: 80, Rows: 24},
		LSP: map[string]Server{
			"go": {Command: "gopls"},
		},
	}
}

// DefaultPath returns the user config file location.
func DefaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "smash", "config.toml")
	}
	return ""
}

// Load reads the configuration at path, layered over Default. A missing
// file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Default(), &ParseError{Path: path, Message: err.Error(), Err: err}
	}
	return cfg, nil
}

// BuildKeymap constructs the runtime keymap: user layers first (highest
// precedence, in file order), then the builtin layers. Invalid bindings
// are configuration errors.
func (c Config) BuildKeymap() (*keymap.Keymap, error) {
	var layers []*keymap.Layer
	for _, l := range c.Keymap.Layers {
		bindings := make([]keymap.Binding, len(l.Bindings))
		for i, b := range l.Bindings {
			bindings[i] = keymap.Binding{
				Keys:        b.Keys,
				Command:     b.Command,
				Description: b.Description,
			}
		}
		layer, err := keymap.NewLayer(l.Name, bindings)
		if err != nil {
			return nil, fmt.Errorf("keymap layer %q: %w", l.Name, err)
		}
		layers = append(layers, layer)
	}
	layers = append(layers, keymap.DefaultEmacsLayer(), keymap.DefaultGlobalLayer())
	return keymap.New(layers...), nil
}

// ServerConfigs converts the [lsp] table into session start commands.
func (c Config) ServerConfigs() []lsp.ServerConfig {
	out := make([]lsp.ServerConfig, 0, len(c.LSP))
	for lang, s := range c.LSP {
		out = append(out, lsp.ServerConfig{
			LanguageID: lang,
			Command:    s.Command,
			Args:       s.Args,
			Env:        s.Env,
			RootURI:    lsp.DocumentURI(s.RootURI),
		})
	}
	return out
}

// PaneOptions converts the [terminal] table into pane defaults.
func (c Config) PaneOptions() terminal.PaneOptions {
	return terminal.PaneOptions{
		Shell: c.Terminal.Shell,
		Size:  terminal.Size{Cols: c.Terminal.Cols, Rows: c.Terminal.Rows},
	}
}
