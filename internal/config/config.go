// Package config manages DocSearch configuration.
// Configuration lives in a YAML file under the data directory, with
// environment variable overrides (DOCSEARCH_*) taking highest priority.
// The default-folder setting is persisted back to disk when changed
// through the settings surface.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	docerr "github.com/WhiteShieldPT/docsearch-pt/internal/errors"
)

// DefaultMinTextLength is the acceptance threshold for extracted text.
// Shorter output is treated as noise from a broken text layer and the
// extraction chain falls through to the next engine.
const DefaultMinTextLength = 40

// Config represents the complete DocSearch configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Paths      PathsConfig      `yaml:"paths" json:"paths"`
	Extraction ExtractionConfig `yaml:"extraction" json:"extraction"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	Watch      WatchConfig      `yaml:"watch" json:"watch"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// PathsConfig configures filesystem locations.
type PathsConfig struct {
	// DefaultFolder is the folder ingested and searched when no
	// explicit folder scope is given.
	DefaultFolder string `yaml:"default_folder" json:"default_folder"`

	// DataDir holds the index, run history, and logs.
	// Defaults to ~/.docsearch.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// Extensions lists the file extensions considered ingestable.
	Extensions []string `yaml:"extensions" json:"extensions"`
}

// ExtractionConfig configures the text-extraction chain.
type ExtractionConfig struct {
	// MinTextLength is the acceptance threshold for the native and
	// conversion-service tiers. Below it, extraction falls through.
	MinTextLength int `yaml:"min_text_length" json:"min_text_length"`

	// TikaURL is the conversion-service endpoint.
	TikaURL string `yaml:"tika_url" json:"tika_url"`

	// TikaTimeout bounds a single conversion-service call.
	TikaTimeout time.Duration `yaml:"tika_timeout" json:"tika_timeout"`

	// Tesseract is the OCR binary name or absolute path.
	Tesseract string `yaml:"tesseract" json:"tesseract"`

	// Pdftoppm is the PDF rasterizer binary name or absolute path.
	Pdftoppm string `yaml:"pdftoppm" json:"pdftoppm"`

	// Languages is the combined OCR language model (e.g. "por+eng").
	Languages string `yaml:"languages" json:"languages"`

	// PSM is the tesseract page segmentation mode.
	PSM int `yaml:"psm" json:"psm"`

	// OEM is the tesseract engine mode.
	OEM int `yaml:"oem" json:"oem"`

	// DPIHint is passed to tesseract as --dpi.
	DPIHint int `yaml:"dpi_hint" json:"dpi_hint"`

	// RenderDPI is the rasterization resolution for scanned PDFs.
	// 144 corresponds to a 2x render of the 72dpi PDF base unit.
	RenderDPI int `yaml:"render_dpi" json:"render_dpi"`

	// MaxPages caps OCR work per document (0 = no limit).
	MaxPages int `yaml:"max_pages" json:"max_pages"`
}

// SearchConfig configures search behavior.
type SearchConfig struct {
	// MaxResults is the default result-size limit.
	MaxResults int `yaml:"max_results" json:"max_results"`
}

// ServerConfig configures the HTTP control surface.
type ServerConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

// WatchConfig configures folder watching.
type WatchConfig struct {
	// Enabled turns on fsnotify-driven auto-ingestion in serve mode.
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Debounce delays ingestion after the last filesystem event.
	Debounce time.Duration `yaml:"debounce" json:"debounce"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
}

// Default returns the default configuration.
func Default() *Config {
	dataDir := defaultDataDir()
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			DefaultFolder: filepath.Join(dataDir, "incoming"),
			DataDir:       dataDir,
			Extensions:    []string{".pdf", ".png", ".jpg", ".jpeg", ".tiff", ".tif", ".xlsx", ".xls"},
		},
		Extraction: ExtractionConfig{
			MinTextLength: DefaultMinTextLength,
			TikaURL:       "http://localhost:9998/tika",
			TikaTimeout:   60 * time.Second,
			Tesseract:     "tesseract",
			Pdftoppm:      "pdftoppm",
			Languages:     "por+eng",
			PSM:           6,
			OEM:           3,
			DPIHint:       300,
			RenderDPI:     144,
			MaxPages:      0,
		},
		Search: SearchConfig{
			MaxResults: 50,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8000,
		},
		Watch: WatchConfig{
			Enabled:  false,
			Debounce: 2 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(defaultDataDir(), "config.yaml")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".docsearch")
	}
	return filepath.Join(home, ".docsearch")
}

// Load reads configuration from path, fills in defaults for missing
// fields, applies environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnv()
			return cfg, cfg.Validate()
		}
		return nil, docerr.New(docerr.ErrCodeConfigNotFound, "cannot read config file", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, docerr.ConfigError("cannot parse config file", err)
	}

	cfg.fillDefaults()
	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

// Save writes the configuration to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// fillDefaults repairs zero values left by a partial config file.
func (c *Config) fillDefaults() {
	def := Default()
	if c.Paths.DataDir == "" {
		c.Paths.DataDir = def.Paths.DataDir
	}
	if c.Paths.DefaultFolder == "" {
		c.Paths.DefaultFolder = def.Paths.DefaultFolder
	}
	if len(c.Paths.Extensions) == 0 {
		c.Paths.Extensions = def.Paths.Extensions
	}
	if c.Extraction.MinTextLength <= 0 {
		c.Extraction.MinTextLength = def.Extraction.MinTextLength
	}
	if c.Extraction.TikaURL == "" {
		c.Extraction.TikaURL = def.Extraction.TikaURL
	}
	if c.Extraction.TikaTimeout <= 0 {
		c.Extraction.TikaTimeout = def.Extraction.TikaTimeout
	}
	if c.Extraction.Tesseract == "" {
		c.Extraction.Tesseract = def.Extraction.Tesseract
	}
	if c.Extraction.Pdftoppm == "" {
		c.Extraction.Pdftoppm = def.Extraction.Pdftoppm
	}
	if c.Extraction.Languages == "" {
		c.Extraction.Languages = def.Extraction.Languages
	}
	if c.Extraction.PSM <= 0 {
		c.Extraction.PSM = def.Extraction.PSM
	}
	if c.Extraction.OEM <= 0 {
		c.Extraction.OEM = def.Extraction.OEM
	}
	if c.Extraction.DPIHint <= 0 {
		c.Extraction.DPIHint = def.Extraction.DPIHint
	}
	if c.Extraction.RenderDPI <= 0 {
		c.Extraction.RenderDPI = def.Extraction.RenderDPI
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = def.Search.MaxResults
	}
	if c.Server.Host == "" {
		c.Server.Host = def.Server.Host
	}
	if c.Server.Port <= 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = def.Watch.Debounce
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
}

// ApplyEnv applies DOCSEARCH_* environment variable overrides.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("DOCSEARCH_DEFAULT_FOLDER"); v != "" {
		c.Paths.DefaultFolder = v
	}
	if v := os.Getenv("DOCSEARCH_DATA_DIR"); v != "" {
		c.Paths.DataDir = v
	}
	if v := os.Getenv("DOCSEARCH_TIKA_URL"); v != "" {
		c.Extraction.TikaURL = v
	}
	if v := os.Getenv("DOCSEARCH_MIN_TEXT_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Extraction.MinTextLength = n
		}
	}
	if v := os.Getenv("DOCSEARCH_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Server.Port = n
		}
	}
	if v := os.Getenv("DOCSEARCH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks configuration for invalid values.
func (c *Config) Validate() error {
	if c.Extraction.MinTextLength <= 0 {
		return docerr.ConfigError(
			fmt.Sprintf("extraction.min_text_length must be positive, got %d", c.Extraction.MinTextLength), nil)
	}
	if c.Search.MaxResults <= 0 {
		return docerr.ConfigError(
			fmt.Sprintf("search.max_results must be positive, got %d", c.Search.MaxResults), nil)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return docerr.ConfigError(fmt.Sprintf("server.port out of range: %d", c.Server.Port), nil)
	}
	for _, ext := range c.Paths.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return docerr.ConfigError(
				fmt.Sprintf("paths.extensions entries must start with a dot: %q", ext), nil)
		}
	}
	return nil
}

// IndexPath returns the bleve index location under the data dir.
func (c *Config) IndexPath() string {
	return filepath.Join(c.Paths.DataDir, "index.bleve")
}

// HistoryPath returns the run-history database location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.DataDir, "history.db")
}

// Supported reports whether a filename has an ingestable extension.
func (c *Config) Supported(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range c.Paths.Extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// NormalizeFolder resolves a requested folder against the default.
// Empty input maps to the default folder; relative paths are made
// absolute.
func (c *Config) NormalizeFolder(folder string) string {
	f := strings.TrimSpace(strings.Trim(folder, `"`))
	if f == "" {
		return c.Paths.DefaultFolder
	}
	if filepath.IsAbs(f) {
		return filepath.Clean(f)
	}
	abs, err := filepath.Abs(f)
	if err != nil {
		return c.Paths.DefaultFolder
	}
	return abs
}
