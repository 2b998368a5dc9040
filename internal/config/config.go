package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/example/solscan/internal/rules"
)

const (
	DefaultConfigPath = "solscan.config.yml"

	// MaxWorkers bounds the scan worker pool.
	MaxWorkers = 64

	envOutputDir      = "SOLSCAN_OUTPUT_DIR"
	envFormats        = "SOLSCAN_FORMATS"
	envEngine         = "SOLSCAN_ENGINE"
	envWorkers        = "SOLSCAN_WORKERS"
	envMaxLines       = "SOLSCAN_MAX_LINES"
	envRulesFile      = "SOLSCAN_RULES_FILE"
	envExclude        = "SOLSCAN_EXCLUDE"
	envFailOn         = "SOLSCAN_FAIL_ON"
	envSlitherBinary  = "SOLSCAN_SLITHER_BINARY"
	envSlitherTimeout = "SOLSCAN_SLITHER_TIMEOUT"
	envSummaryFile    = "SOLSCAN_SUMMARY_FILE"
)

// Engine modes accepted by the scan command.
const (
	EngineBuiltin = "builtin"
	EngineSlither = "slither"
	EngineAuto    = "auto"
)

// Loader merges configuration coming from files, environment variables,
// and CLI flags, in that order of precedence.
type Loader struct {
	ConfigPath string
}

// RuntimeConfig contains the fully merged settings required by solscan
// sub-commands.
type RuntimeConfig struct {
	OutputDir      string
	Formats        []string
	Engine         string
	Workers        int
	MaxLines       int
	RulesFile      string
	Excludes       []string
	FailOn         string
	SlitherBinary  string
	SlitherTimeout int
	SummaryFile    string
}

// Overrides captures values coming from env vars or CLI flags.
type Overrides struct {
	OutputDir         string
	Formats           []string
	Engine            string
	Workers           int
	WorkersSet        bool
	MaxLines          int
	MaxLinesSet       bool
	RulesFile         string
	Excludes          []string
	FailOn            string
	SlitherBinary     string
	SlitherTimeout    int
	SlitherTimeoutSet bool
	SummaryFile       string
}

// DefaultRuntimeConfig returns the baseline configuration when no
// overrides are provided.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		OutputDir:      "scan-results",
		Formats:        []string{"json", "markdown"},
		Engine:         EngineBuiltin,
		Workers:        8,
		FailOn:         string(rules.SeverityHigh),
		SlitherBinary:  "slither",
		SlitherTimeout: 180,
	}
}

// Load resolves the final runtime configuration.
func (l Loader) Load(override Overrides) (RuntimeConfig, error) {
	cfg := DefaultRuntimeConfig()
	path := l.ConfigPath
	if path == "" {
		path = DefaultConfigPath
	}

	if fileExists(path) {
		fileOv, err := loadFromFile(path)
		if err != nil {
			return cfg, err
		}
		cfg.apply(fileOv)
	}

	cfg.apply(overridesFromEnv())
	cfg.apply(override)

	return cfg, nil
}

// Validate ensures the config contains usable values before a scan runs.
func (c RuntimeConfig) Validate() error {
	if c.Workers < 1 || c.Workers > MaxWorkers {
		return fmt.Errorf("workers must be between 1 and %d (got %d)", MaxWorkers, c.Workers)
	}

	switch c.Engine {
	case EngineBuiltin, EngineSlither, EngineAuto:
	default:
		return fmt.Errorf("engine must be %s, %s, or %s (got %q)", EngineBuiltin, EngineSlither, EngineAuto, c.Engine)
	}

	if len(c.Formats) == 0 {
		return errors.New("at least one output format must be specified")
	}
	for _, f := range c.Formats {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "json", "markdown", "md", "sarif":
		default:
			return fmt.Errorf("unsupported format %q (expected json, markdown, or sarif)", f)
		}
	}

	if c.OutputDir == "" {
		return errors.New("output directory cannot be empty")
	}

	if c.MaxLines < 0 {
		return fmt.Errorf("maxLines cannot be negative (got %d)", c.MaxLines)
	}

	if _, err := rules.ParseSeverity(c.FailOn); err != nil {
		return fmt.Errorf("failOn: %w", err)
	}

	return nil
}

// FailThreshold returns the parsed fail-on severity. Call Validate first.
func (c RuntimeConfig) FailThreshold() rules.Severity {
	sev, err := rules.ParseSeverity(c.FailOn)
	if err != nil {
		return rules.SeverityHigh
	}
	return sev
}

func (c *RuntimeConfig) apply(src Overrides) {
	if src.OutputDir != "" {
		c.OutputDir = src.OutputDir
	}
	if len(src.Formats) > 0 {
		c.Formats = cleanList(src.Formats)
	}
	if src.Engine != "" {
		c.Engine = strings.ToLower(strings.TrimSpace(src.Engine))
	}
	if src.WorkersSet {
		c.Workers = src.Workers
	}
	if src.MaxLinesSet {
		c.MaxLines = src.MaxLines
	}
	if src.RulesFile != "" {
		c.RulesFile = src.RulesFile
	}
	if len(src.Excludes) > 0 {
		c.Excludes = cleanList(src.Excludes)
	}
	if src.FailOn != "" {
		c.FailOn = src.FailOn
	}
	if src.SlitherBinary != "" {
		c.SlitherBinary = src.SlitherBinary
	}
	if src.SlitherTimeoutSet {
		c.SlitherTimeout = src.SlitherTimeout
	}
	if src.SummaryFile != "" {
		c.SummaryFile = src.SummaryFile
	}
}

func loadFromFile(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Overrides{}, err
	}

	type rawConfig struct {
		OutputDir      string     `yaml:"outputDir"`
		Formats        stringList `yaml:"formats"`
		Engine         string     `yaml:"engine"`
		Workers        *int       `yaml:"workers"`
		MaxLines       *int       `yaml:"maxLines"`
		RulesFile      string     `yaml:"rulesFile"`
		Exclude        stringList `yaml:"exclude"`
		FailOn         string     `yaml:"failOn"`
		SlitherBinary  string     `yaml:"slitherBinary"`
		SlitherTimeout *int       `yaml:"slitherTimeoutSeconds"`
		SummaryFile    string     `yaml:"summaryFile"`
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Overrides{}, err
	}

	over := Overrides{
		OutputDir:     raw.OutputDir,
		Formats:       raw.Formats,
		Engine:        raw.Engine,
		RulesFile:     raw.RulesFile,
		Excludes:      raw.Exclude,
		FailOn:        raw.FailOn,
		SlitherBinary: raw.SlitherBinary,
		SummaryFile:   raw.SummaryFile,
	}

	if raw.Workers != nil {
		over.Workers = *raw.Workers
		over.WorkersSet = true
	}
	if raw.MaxLines != nil {
		over.MaxLines = *raw.MaxLines
		over.MaxLinesSet = true
	}
	if raw.SlitherTimeout != nil {
		over.SlitherTimeout = *raw.SlitherTimeout
		over.SlitherTimeoutSet = true
	}

	return over, nil
}

func overridesFromEnv() Overrides {
	ov := Overrides{}

	if value := os.Getenv(envOutputDir); value != "" {
		ov.OutputDir = value
	}
	if value := os.Getenv(envFormats); value != "" {
		ov.Formats = ParseList(value)
	}
	if value := os.Getenv(envEngine); value != "" {
		ov.Engine = value
	}
	if value := os.Getenv(envWorkers); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			ov.Workers = parsed
			ov.WorkersSet = true
		}
	}
	if value := os.Getenv(envMaxLines); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			ov.MaxLines = parsed
			ov.MaxLinesSet = true
		}
	}
	if value := os.Getenv(envRulesFile); value != "" {
		ov.RulesFile = value
	}
	if value := os.Getenv(envExclude); value != "" {
		ov.Excludes = ParseList(value)
	}
	if value := os.Getenv(envFailOn); value != "" {
		ov.FailOn = value
	}
	if value := os.Getenv(envSlitherBinary); value != "" {
		ov.SlitherBinary = value
	}
	if value := os.Getenv(envSlitherTimeout); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			ov.SlitherTimeout = parsed
			ov.SlitherTimeoutSet = true
		}
	}
	if value := os.Getenv(envSummaryFile); value != "" {
		ov.SummaryFile = value
	}

	return ov
}

// ParseList turns comma or newline separated input into individual values.
func ParseList(input string) []string {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	parts := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	return cleanList(parts)
}

func cleanList(values []string) []string {
	var out []string
	for _, v := range values {
		candidate := strings.TrimSpace(v)
		if candidate != "" {
			out = append(out, candidate)
		}
	}
	return out
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// stringList enables YAML fields that can be a scalar or a sequence.
type stringList []string

func (t *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var out []string
		for _, node := range value.Content {
			out = append(out, strings.TrimSpace(node.Value))
		}
		*t = cleanList(out)
	case yaml.ScalarNode:
		*t = ParseList(value.Value)
	default:
		return fmt.Errorf("unsupported YAML type for list field")
	}
	return nil
}
