package project

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config mirrors tplcheck.toml. Zero values mean "use the CLI default".
type Config struct {
	Check  CheckConfig  `toml:"check"`
	Rules  RulesConfig  `toml:"rules"`
	Output OutputConfig `toml:"output"`
}

type CheckConfig struct {
	MaxDiagnostics int  `toml:"max-diagnostics"`
	Jobs           int  `toml:"jobs"`
	Strict         bool `toml:"strict"`
	Cache          bool `toml:"cache"`
}

type RulesConfig struct {
	Deprecated DeprecatedConfig `toml:"deprecated-usage"`
}

type DeprecatedConfig struct {
	Enabled bool     `toml:"enabled"`
	Exclude []string `toml:"exclude"`
}

type OutputConfig struct {
	Format    string `toml:"format"`
	WithNotes bool   `toml:"with-notes"`
	PathMode  string `toml:"path-mode"`
}

// Formats lists the accepted [output].format values.
var Formats = []string{"pretty", "json", "sarif", "short"}

// Manifest is a loaded tplcheck.toml together with where it was found.
type Manifest struct {
	Path   string
	Root   string
	Config Config
	meta   toml.MetaData
}

// IsDefined reports whether the key path was set in the file, e.g. ("check", "jobs").
// CLI code uses it to decide whether a config value overrides a flag default.
func (m *Manifest) IsDefined(key ...string) bool {
	if m == nil {
		return false
	}
	return m.meta.IsDefined(key...)
}

// LoadManifest finds tplcheck.toml above startDir and loads it.
// ok is false when no config file exists.
func LoadManifest(startDir string) (*Manifest, bool, error) {
	configPath, ok, err := FindConfig(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	m, err := LoadFile(configPath)
	if err != nil {
		return nil, true, err
	}
	return m, true, nil
}

// LoadFile decodes and validates one config file.
func LoadFile(path string) (*Manifest, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Manifest{
		Path:   path,
		Root:   filepath.Dir(path),
		Config: cfg,
		meta:   meta,
	}, nil
}

func (c *Config) validate() error {
	if c.Check.MaxDiagnostics < 0 {
		return fmt.Errorf("[check].max-diagnostics must be >= 0, got %d", c.Check.MaxDiagnostics)
	}
	if c.Check.Jobs < 0 {
		return fmt.Errorf("[check].jobs must be >= 0, got %d", c.Check.Jobs)
	}
	if c.Output.Format != "" && !slices.Contains(Formats, c.Output.Format) {
		return fmt.Errorf("[output].format must be one of %s, got %q", strings.Join(Formats, "|"), c.Output.Format)
	}
	switch c.Output.PathMode {
	case "", "auto", "absolute", "relative", "basename":
	default:
		return fmt.Errorf("[output].path-mode must be auto|absolute|relative|basename, got %q", c.Output.PathMode)
	}
	for _, pattern := range c.Rules.Deprecated.Exclude {
		if strings.TrimSpace(pattern) == "" {
			return fmt.Errorf("[rules.deprecated-usage].exclude contains an empty pattern")
		}
	}
	return nil
}
