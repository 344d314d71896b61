// Package config loads, validates, and resolves the run configuration.
// Loading happens once per run; the resolved Config is immutable afterwards.
// Global defaults are folded into each group at load time, so downstream
// consumers read effective policies straight off the group and never consult
// the globals again.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/harrison/stagehand/internal/models"
	"github.com/harrison/stagehand/internal/router"
)

// packageJSONKey is the section read from a package.json fallback.
const packageJSONKey = "stagehand"

// Config is the resolved run configuration.
type Config struct {
	// Source is the file the configuration was loaded from.
	Source string

	Timeout         time.Duration // 0 means no timeout
	ContinueOnError bool
	PathFormat      models.PathFormat
	Rollback        bool
	MaxConcurrency  int // 0 means one worker per CPU
	StrictEmpty     bool

	// Groups carry effective per-group policies in declared order.
	Groups []models.Group
}

// DefaultConfig returns the configuration used when a setting is absent from
// the file.
func DefaultConfig() *Config {
	return &Config{
		Timeout:         0, // no timeout
		ContinueOnError: false,
		PathFormat:      models.PathRelative,
		Rollback:        true,
		MaxConcurrency:  0, // one worker per CPU
		StrictEmpty:     false,
	}
}

// InvalidError reports a configuration file that was found but cannot be
// used.
type InvalidError struct {
	Path string
	Err  error
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid configuration in %s: %v", e.Path, e.Err)
}

func (e *InvalidError) Unwrap() error {
	return e.Err
}

func invalidf(path, format string, args ...interface{}) *InvalidError {
	return &InvalidError{Path: path, Err: fmt.Errorf(format, args...)}
}

// Load reads and resolves the configuration file at path. The format is
// chosen by file name: .toml, .yaml/.yml, .json, or a package.json holding a
// "stagehand" section.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &InvalidError{Path: path, Err: fmt.Errorf("failed to read file: %w", err)}
	}

	base := filepath.Base(path)
	switch {
	case base == "package.json":
		return loadPackageJSON(path, data)
	case strings.HasSuffix(base, ".toml"):
		return loadTOML(path, data)
	case strings.HasSuffix(base, ".yaml"), strings.HasSuffix(base, ".yml"):
		return loadYAML(path, data)
	case strings.HasSuffix(base, ".json"):
		// JSON documents parse as YAML, and the node decoder keeps key order.
		return loadYAML(path, data)
	default:
		return nil, invalidf(path, "unsupported configuration format, expected .toml, .yaml, .json, or package.json")
	}
}

// commandList accepts either a single command string or a list of commands.
type commandList []string

func (c *commandList) UnmarshalYAML(value *yaml.Node) error {
	var single string
	if err := value.Decode(&single); err == nil {
		*c = commandList{single}
		return nil
	}
	var list []string
	if err := value.Decode(&list); err == nil {
		*c = commandList(list)
		return nil
	}
	return fmt.Errorf("commands must be a string or a list of strings")
}

func (c *commandList) UnmarshalTOML(v interface{}) error {
	switch value := v.(type) {
	case string:
		*c = commandList{value}
	case []interface{}:
		list := make([]string, 0, len(value))
		for _, item := range value {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("commands must be strings, got %T", item)
			}
			list = append(list, s)
		}
		*c = commandList(list)
	default:
		return fmt.Errorf("commands must be a string or a list of strings, got %T", v)
	}
	return nil
}

// namedGroup carries one group's raw settings in its declared position,
// independent of the source format.
type namedGroup struct {
	name              string
	executionOrder    string
	executionBehavior string
	timeout           string
	continueOnError   *bool
	pathFormat        string
	patterns          []models.PatternEntry
}

// patternList preserves the declaration order of pattern keys, which sets
// routing priority within a group.
type patternList []models.PatternEntry

func (p *patternList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("patterns must be a mapping of pattern to commands")
	}
	entries := make([]models.PatternEntry, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var commands commandList
		if err := value.Content[i+1].Decode(&commands); err != nil {
			return fmt.Errorf("pattern %q: %w", value.Content[i].Value, err)
		}
		entries = append(entries, models.PatternEntry{
			Pattern:  value.Content[i].Value,
			Commands: commands,
		})
	}
	*p = entries
	return nil
}

type yamlGroup struct {
	Patterns          patternList `yaml:"patterns"`
	ExecutionOrder    string      `yaml:"execution_order"`
	ExecutionBehavior string      `yaml:"execution_behavior"`
	Timeout           string      `yaml:"timeout"`
	ContinueOnError   *bool       `yaml:"continue_on_error"`
	PathFormat        string      `yaml:"path_format"`
}

// groupList preserves the declaration order of group names.
type groupList []namedGroup

func (g *groupList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("groups must be a mapping of group name to settings")
	}
	groups := make([]namedGroup, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		name := value.Content[i].Value
		var group yamlGroup
		if err := value.Content[i+1].Decode(&group); err != nil {
			return fmt.Errorf("group %q: %w", name, err)
		}
		groups = append(groups, namedGroup{
			name:              name,
			executionOrder:    group.ExecutionOrder,
			executionBehavior: group.ExecutionBehavior,
			timeout:           group.Timeout,
			continueOnError:   group.ContinueOnError,
			pathFormat:        group.PathFormat,
			patterns:          group.Patterns,
		})
	}
	*g = groups
	return nil
}

type yamlConfig struct {
	Timeout         string    `yaml:"timeout"`
	ContinueOnError *bool     `yaml:"continue_on_error"`
	PathFormat      string    `yaml:"path_format"`
	Rollback        *bool     `yaml:"rollback"`
	MaxConcurrency  int       `yaml:"max_concurrency"`
	StrictEmpty     bool      `yaml:"strict_empty"`
	Groups          groupList `yaml:"groups"`
}

func loadYAML(path string, data []byte) (*Config, error) {
	var raw yamlConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &InvalidError{Path: path, Err: fmt.Errorf("failed to parse file: %w", err)}
	}
	return resolve(path, &raw)
}

func loadPackageJSON(path string, data []byte) (*Config, error) {
	var doc struct {
		Stagehand *yamlConfig `yaml:"stagehand"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &InvalidError{Path: path, Err: fmt.Errorf("failed to parse package.json: %w", err)}
	}
	if doc.Stagehand == nil {
		return nil, invalidf(path, "no %q section in package.json", packageJSONKey)
	}
	return resolve(path, doc.Stagehand)
}

type tomlGroup struct {
	Patterns          map[string]commandList `toml:"patterns"`
	ExecutionOrder    string                 `toml:"execution_order"`
	ExecutionBehavior string                 `toml:"execution_behavior"`
	Timeout           string                 `toml:"timeout"`
	ContinueOnError   *bool                  `toml:"continue_on_error"`
	PathFormat        string                 `toml:"path_format"`
}

type tomlConfig struct {
	Timeout         string               `toml:"timeout"`
	ContinueOnError *bool                `toml:"continue_on_error"`
	PathFormat      string               `toml:"path_format"`
	Rollback        *bool                `toml:"rollback"`
	MaxConcurrency  int                  `toml:"max_concurrency"`
	StrictEmpty     bool                 `toml:"strict_empty"`
	Groups          map[string]tomlGroup `toml:"groups"`
}

func loadTOML(path string, data []byte) (*Config, error) {
	var raw tomlConfig
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, &InvalidError{Path: path, Err: fmt.Errorf("failed to parse file: %w", err)}
	}
	return resolve(path, &yamlConfig{
		Timeout:         raw.Timeout,
		ContinueOnError: raw.ContinueOnError,
		PathFormat:      raw.PathFormat,
		Rollback:        raw.Rollback,
		MaxConcurrency:  raw.MaxConcurrency,
		StrictEmpty:     raw.StrictEmpty,
		Groups:          orderedTOMLGroups(md, raw.Groups),
	})
}

// orderedTOMLGroups rebuilds declaration order from the decoder metadata.
// TOML tables decode into Go maps, which lose the file's key order.
func orderedTOMLGroups(md toml.MetaData, decoded map[string]tomlGroup) groupList {
	groupOrder := make([]string, 0, len(decoded))
	seenGroup := make(map[string]bool, len(decoded))
	patternOrder := make(map[string][]string)
	seenPattern := make(map[string]map[string]bool)

	for _, key := range md.Keys() {
		parts := []string(key)
		if len(parts) < 2 || parts[0] != "groups" {
			continue
		}
		name := parts[1]
		if !seenGroup[name] {
			seenGroup[name] = true
			groupOrder = append(groupOrder, name)
		}
		if len(parts) >= 4 && parts[2] == "patterns" {
			pattern := parts[3]
			if seenPattern[name] == nil {
				seenPattern[name] = make(map[string]bool)
			}
			if !seenPattern[name][pattern] {
				seenPattern[name][pattern] = true
				patternOrder[name] = append(patternOrder[name], pattern)
			}
		}
	}

	groups := make(groupList, 0, len(decoded))
	for _, name := range groupOrder {
		group, ok := decoded[name]
		if !ok {
			continue
		}
		entries := make([]models.PatternEntry, 0, len(group.Patterns))
		for _, pattern := range patternOrder[name] {
			if commands, ok := group.Patterns[pattern]; ok {
				entries = append(entries, models.PatternEntry{Pattern: pattern, Commands: commands})
			}
		}
		groups = append(groups, namedGroup{
			name:              name,
			executionOrder:    group.ExecutionOrder,
			executionBehavior: group.ExecutionBehavior,
			timeout:           group.Timeout,
			continueOnError:   group.ContinueOnError,
			pathFormat:        group.PathFormat,
			patterns:          entries,
		})
	}
	return groups
}

// resolve folds global defaults into each group and validates the result.
func resolve(path string, raw *yamlConfig) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Source = path

	if raw.Timeout != "" {
		timeout, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return nil, invalidf(path, "invalid timeout format %q: %v", raw.Timeout, err)
		}
		cfg.Timeout = timeout
	}
	if raw.ContinueOnError != nil {
		cfg.ContinueOnError = *raw.ContinueOnError
	}
	if raw.PathFormat != "" {
		cfg.PathFormat = models.PathFormat(raw.PathFormat)
	}
	if raw.Rollback != nil {
		cfg.Rollback = *raw.Rollback
	}
	cfg.MaxConcurrency = raw.MaxConcurrency
	cfg.StrictEmpty = raw.StrictEmpty

	for _, rawGroup := range raw.Groups {
		group := models.Group{
			Name:            rawGroup.name,
			Patterns:        rawGroup.patterns,
			Order:           models.OrderParallel,
			Behavior:        models.BehaviorPerFile,
			Timeout:         cfg.Timeout,
			ContinueOnError: cfg.ContinueOnError,
			PathFormat:      cfg.PathFormat,
			Rollback:        cfg.Rollback,
		}
		if rawGroup.executionOrder != "" {
			group.Order = models.ExecutionOrder(rawGroup.executionOrder)
		}
		if rawGroup.executionBehavior != "" {
			group.Behavior = models.ExecutionBehavior(rawGroup.executionBehavior)
		}
		if rawGroup.timeout != "" {
			timeout, err := time.ParseDuration(rawGroup.timeout)
			if err != nil {
				return nil, invalidf(path, "group %q: invalid timeout format %q: %v", rawGroup.name, rawGroup.timeout, err)
			}
			group.Timeout = timeout
		}
		if rawGroup.continueOnError != nil {
			group.ContinueOnError = *rawGroup.continueOnError
		}
		if rawGroup.pathFormat != "" {
			group.PathFormat = models.PathFormat(rawGroup.pathFormat)
		}
		cfg.Groups = append(cfg.Groups, group)
	}

	if err := cfg.Validate(); err != nil {
		return nil, &InvalidError{Path: path, Err: err}
	}
	return cfg, nil
}

// Validate checks the resolved configuration, including every group and
// pattern.
func (c *Config) Validate() error {
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency must be >= 0, got %d", c.MaxConcurrency)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}
	switch c.PathFormat {
	case models.PathRelative, models.PathAbsolute:
	default:
		return fmt.Errorf("invalid path_format %q, must be relative or absolute", c.PathFormat)
	}
	if len(c.Groups) == 0 {
		return fmt.Errorf("no groups defined")
	}
	if err := models.ValidateGroups(c.Groups); err != nil {
		return err
	}
	for _, group := range c.Groups {
		for _, entry := range group.Patterns {
			if !router.ValidatePattern(entry.Pattern) {
				return fmt.Errorf("group %q: invalid glob pattern %q", group.Name, entry.Pattern)
			}
		}
	}
	return nil
}

// MergeWithFlags merges CLI flag values into the configuration. Non-nil
// values override file settings, and overrides that feed group policies are
// re-folded so every group sees the flag value.
func (c *Config) MergeWithFlags(maxConcurrency *int, timeout *time.Duration, continueOnError *bool, rollback *bool, strictEmpty *bool) {
	if maxConcurrency != nil {
		c.MaxConcurrency = *maxConcurrency
	}
	if timeout != nil {
		c.Timeout = *timeout
		for i := range c.Groups {
			c.Groups[i].Timeout = *timeout
		}
	}
	if continueOnError != nil {
		c.ContinueOnError = *continueOnError
		for i := range c.Groups {
			c.Groups[i].ContinueOnError = *continueOnError
		}
	}
	if rollback != nil {
		c.Rollback = *rollback
		for i := range c.Groups {
			c.Groups[i].Rollback = *rollback
		}
	}
	if strictEmpty != nil {
		c.StrictEmpty = *strictEmpty
	}
}
