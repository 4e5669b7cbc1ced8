package config

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/openmol/molscript/pkg/eval"
	"github.com/openmol/molscript/pkg/geom"
	"github.com/openmol/molscript/pkg/symmetry"
)

// Config holds session configuration.
// Supports both YAML (.yaml/.yml) and plain "key value" text (.conf) formats.
type Config struct {
	// --- Files ---
	FileAccess bool   `yaml:"file_access"`
	OutputDir  string `yaml:"output_dir"`
	StorePath  string `yaml:"store_path"`
	History    string `yaml:"history_file"`

	// --- Numeric tolerances ---
	MeanTolerance      float64 `yaml:"mean_tolerance"`
	MeanIterations     int     `yaml:"mean_iterations"`
	InvariantTolerance float64 `yaml:"invariant_tolerance"`

	// --- Metrics ---
	MetricsAddr string `yaml:"metrics_addr"`

	// --- Startup ---
	Model   string   `yaml:"model"`   // xyz file loaded at startup
	Scripts []string `yaml:"scripts"` // run after the model loads

	// Source is the file the config came from; empty for defaults.
	Source string `yaml:"-"`
}

// Default returns a Config with the built-in defaults.
func Default() *Config {
	return &Config{
		FileAccess:         true,
		OutputDir:          ".",
		MeanTolerance:      geom.DefaultMeanTolerance,
		MeanIterations:     geom.DefaultMeanIterations,
		InvariantTolerance: symmetry.Tolerance,
	}
}

// Load loads a config file. Format is auto-detected by extension:
//   - .yaml / .yml  -> YAML format
//   - .conf / other -> "key value" text format
//
// Relative paths inside the file are resolved against its directory.
func Load(path string) (*Config, error) {
	var c *Config
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		c, err = loadYAML(path)
	default:
		c, err = loadText(path)
	}
	if err != nil {
		return nil, err
	}
	c.Source = path
	c.resolve(filepath.Dir(path))
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

// --- YAML loader ---

func loadYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing YAML %s: %w", path, err)
	}
	return c, nil
}

// --- Text loader ---

func loadText(path string) (*Config, error) {
	c := Default()
	if err := c.loadTextFile(path, 0); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) loadTextFile(path string, depth int) error {
	if depth > 10 {
		return fmt.Errorf("include depth exceeded (circular include?)")
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	baseDir := filepath.Dir(path)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		key, val := splitKeyVal(line)
		switch strings.ToLower(key) {
		case "include":
			inc := val
			if !filepath.IsAbs(inc) {
				inc = filepath.Join(baseDir, inc)
			}
			if err := c.loadTextFile(inc, depth+1); err != nil {
				return fmt.Errorf("%s:%d: include: %w", path, lineNo, err)
			}
		case "file_access":
			c.FileAccess = parseBool(val)
		case "output_dir":
			c.OutputDir = val
		case "store_path":
			c.StorePath = val
		case "history_file":
			c.History = val
		case "mean_tolerance":
			c.MeanTolerance = atof(val, c.MeanTolerance)
		case "mean_iterations":
			c.MeanIterations = atoi(val, c.MeanIterations)
		case "invariant_tolerance":
			c.InvariantTolerance = atof(val, c.InvariantTolerance)
		case "metrics_addr":
			c.MetricsAddr = val
		case "model":
			c.Model = val
		case "script":
			c.Scripts = append(c.Scripts, val)
		default:
			log.Printf("config: %s:%d: ignoring unknown key %q", path, lineNo, key)
		}
	}
	return scanner.Err()
}

// splitKeyVal splits a line on the first whitespace (space or tab).
func splitKeyVal(line string) (string, string) {
	for i := 0; i < len(line); i++ {
		if line[i] == ' ' || line[i] == '\t' {
			return line[:i], strings.TrimSpace(line[i+1:])
		}
	}
	return line, ""
}

func (c *Config) resolve(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.OutputDir = abs(c.OutputDir)
	c.StorePath = abs(c.StorePath)
	c.Model = abs(c.Model)
	for i, s := range c.Scripts {
		c.Scripts[i] = abs(s)
	}
}

// Validate rejects settings the algorithms cannot work with.
func (c *Config) Validate() error {
	if c.MeanTolerance <= 0 {
		return fmt.Errorf("mean_tolerance must be positive, got %g", c.MeanTolerance)
	}
	if c.MeanIterations < 1 {
		return fmt.Errorf("mean_iterations must be at least 1, got %d", c.MeanIterations)
	}
	if c.InvariantTolerance <= 0 {
		return fmt.Errorf("invariant_tolerance must be positive, got %g", c.InvariantTolerance)
	}
	return nil
}

// Apply copies the evaluation settings into s.
func (c *Config) Apply(s *eval.Settings) {
	s.FileAccess = c.FileAccess
	s.OutputDir = c.OutputDir
	s.MeanTolerance = c.MeanTolerance
	s.MeanIterations = c.MeanIterations
	s.InvariantTolerance = c.InvariantTolerance
}

// --- Helper functions ---

func atoi(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}

func atof(s string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "yes" || s == "true" || s == "1" || s == "on"
}
