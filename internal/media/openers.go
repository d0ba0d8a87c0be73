package media

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/pelletier/go-toml/v2"
)

//go:embed openers.toml
var openersTOML []byte

// OpenerDefinition describes how to invoke one external program.
type OpenerDefinition struct {
	Description string   `toml:"description"`
	Platforms   []string `toml:"platforms"`
	// Command overrides the executable, for openers that are shell
	// built-ins (Windows "start").
	Command string   `toml:"command,omitempty"`
	Args    []string `toml:"args,omitempty"`
}

type KindDefinition struct {
	Extensions []string `toml:"extensions"`
}

type PlatformDefinition struct {
	DefaultOpener string `toml:"default_opener"`
}

type OpenersConfig struct {
	Kinds     map[string]KindDefinition     `toml:"kinds"`
	Platforms map[string]PlatformDefinition `toml:"platforms"`
	Openers   map[string]OpenerDefinition   `toml:"openers"`
}

// Registry holds the built-in opener table merged with the user's.
type Registry struct {
	config OpenersConfig
	goos   string
}

// NewRegistry parses the embedded table and merges
// ~/.config/headlines/openers.toml when present.
func NewRegistry() (*Registry, error) {
	r, err := parseRegistry(openersTOML, runtime.GOOS)
	if err != nil {
		return nil, err
	}
	if home, err := os.UserHomeDir(); err == nil {
		if data, err := os.ReadFile(filepath.Join(home, ".config", "headlines", "openers.toml")); err == nil {
			if mergeErr := r.Merge(data); mergeErr != nil {
				return r, mergeErr
			}
		}
	}
	return r, nil
}

func parseRegistry(data []byte, goos string) (*Registry, error) {
	var cfg OpenersConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing openers.toml: %w", err)
	}
	if cfg.Openers == nil {
		cfg.Openers = map[string]OpenerDefinition{}
	}
	if cfg.Kinds == nil {
		cfg.Kinds = map[string]KindDefinition{}
	}
	if cfg.Platforms == nil {
		cfg.Platforms = map[string]PlatformDefinition{}
	}
	return &Registry{config: cfg, goos: goos}, nil
}

// Merge overlays another TOML table; its entries win.
func (r *Registry) Merge(data []byte) error {
	var user OpenersConfig
	if err := toml.Unmarshal(data, &user); err != nil {
		return fmt.Errorf("parsing user openers: %w", err)
	}
	for name, def := range user.Openers {
		r.config.Openers[name] = def
	}
	for name, def := range user.Kinds {
		r.config.Kinds[name] = def
	}
	for name, def := range user.Platforms {
		r.config.Platforms[name] = def
	}
	return nil
}

// DefaultOpener is the platform's catch-all handler.
func (r *Registry) DefaultOpener() string {
	return r.config.Platforms[r.goos].DefaultOpener
}

// Extensions lists the file extensions of a kind, e.g. "image".
func (r *Registry) Extensions(kind string) []string {
	return r.config.Kinds[kind].Extensions
}

// Executable reports the program that runs for name, and whether name is
// usable on this platform.
func (r *Registry) Executable(name string) (string, bool) {
	def, ok := r.config.Openers[name]
	if !ok {
		return name, true
	}
	if len(def.Platforms) > 0 && !slices.Contains(def.Platforms, r.goos) {
		return "", false
	}
	if def.Command != "" {
		return def.Command, true
	}
	return name, true
}

// Command returns the executable and arguments that open target with name.
// Unknown programs are run with target as their only argument.
func (r *Registry) Command(name, target string) (string, []string, error) {
	def, ok := r.config.Openers[name]
	if !ok {
		return name, []string{target}, nil
	}
	if len(def.Platforms) > 0 && !slices.Contains(def.Platforms, r.goos) {
		return "", nil, fmt.Errorf("%s not supported on %s", name, r.goos)
	}

	exe := name
	if def.Command != "" {
		exe = def.Command
	}
	args := append(slices.Clone(def.Args), target)
	return exe, args, nil
}
