// Package config loads the processor configuration from defaults,
// environment variables, and command line flags, in that order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/IgnitionX7/pdf-processor-tool/internal/pipeline"
)

const (
	DefaultDPI          = 300.0
	DefaultJobs         = 2
	DefaultPageTimeout  = 30 * time.Second
	DefaultSampleSize   = 5
	DefaultMinFrequency = 0.5
	DefaultLogLevel     = "info"

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the exam paper processor.
type Config struct {
	// Input and output
	InputDir  string
	OutputDir string

	// Processing
	DPI           float64
	Jobs          int
	PageTimeout   time.Duration
	SkipFirstPage bool
	NoiseRemoval  bool

	// Noise detection
	SampleSize   int
	MinFrequency float64

	// Exclusion zones
	CaptionPadding float64
	VisualPadding  float64

	// Application
	Version  string
	LogLevel string
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		InputDir:       currentDir,
		OutputDir:      filepath.Join(currentDir, "out"),
		DPI:            DefaultDPI,
		Jobs:           DefaultJobs,
		PageTimeout:    DefaultPageTimeout,
		SkipFirstPage:  false,
		NoiseRemoval:   true,
		SampleSize:     DefaultSampleSize,
		MinFrequency:   DefaultMinFrequency,
		CaptionPadding: 0,
		VisualPadding:  20,
		Version:        "1.0.0",
		LogLevel:       DefaultLogLevel,
	}
}

// LoadFromFlags parses command line flags and returns a configuration.
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	if cfg.InputDir != "" {
		if expandedPath, err := filepath.Abs(cfg.InputDir); err == nil {
			cfg.InputDir = expandedPath
		}
	}
	if cfg.OutputDir != "" {
		if expandedPath, err := filepath.Abs(cfg.OutputDir); err == nil {
			cfg.OutputDir = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults.
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("PDF_PROC")
	viper.AutomaticEnv()

	viper.SetDefault("dir", cfg.InputDir)
	viper.SetDefault("out", cfg.OutputDir)
	viper.SetDefault("dpi", cfg.DPI)
	viper.SetDefault("jobs", cfg.Jobs)
	viper.SetDefault("pagetimeout", cfg.PageTimeout)
	viper.SetDefault("skipfirstpage", cfg.SkipFirstPage)
	viper.SetDefault("nonoiseremoval", !cfg.NoiseRemoval)
	viper.SetDefault("samplesize", cfg.SampleSize)
	viper.SetDefault("minfrequency", cfg.MinFrequency)
	viper.SetDefault("captionpadding", cfg.CaptionPadding)
	viper.SetDefault("visualpadding", cfg.VisualPadding)
	viper.SetDefault("loglevel", cfg.LogLevel)
}

// defineCommandLineFlags sets up all command line flags.
func defineCommandLineFlags(cfg *Config) {
	pflag.String("dir", cfg.InputDir, "Directory containing exam paper PDF files")
	pflag.String("out", cfg.OutputDir, "Directory for extraction artifacts")
	pflag.Float64("dpi", cfg.DPI, "Rendering resolution for visual detection")
	pflag.Int("jobs", cfg.Jobs, "Number of documents processed concurrently")
	pflag.Duration("pagetimeout", cfg.PageTimeout, "Per-page visual detection timeout")
	pflag.Bool("skipfirstpage", cfg.SkipFirstPage, "Skip the cover page of each document")
	pflag.Bool("nonoiseremoval", !cfg.NoiseRemoval, "Disable recurring header/footer removal")
	pflag.Int("samplesize", cfg.SampleSize, "Pages sampled for noise zone detection")
	pflag.Float64("minfrequency", cfg.MinFrequency, "Fraction of sampled pages that must repeat a noise pattern")
	pflag.Float64("captionpadding", cfg.CaptionPadding, "Exclusion padding for caption-anchored boxes, in points")
	pflag.Float64("visualpadding", cfg.VisualPadding, "Exclusion inset for visually detected boxes, in points")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
}

// bindFlagsToViper binds command line flags to viper configuration.
func bindFlagsToViper() {
	for _, name := range []string{
		"dir", "out", "dpi", "jobs", "pagetimeout", "skipfirstpage",
		"nonoiseremoval", "samplesize", "minfrequency",
		"captionpadding", "visualpadding", "loglevel",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message.
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nPDF Processor - structured content extraction for exam papers\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/papers --out=/path/to/output\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/papers --skipfirstpage --jobs=4\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  PDF_PROC_DIR            Input directory\n")
		fmt.Fprintf(os.Stderr, "  PDF_PROC_OUT            Output directory\n")
		fmt.Fprintf(os.Stderr, "  PDF_PROC_DPI            Rendering resolution\n")
		fmt.Fprintf(os.Stderr, "  PDF_PROC_JOBS           Concurrent documents\n")
		fmt.Fprintf(os.Stderr, "  PDF_PROC_PAGETIMEOUT    Per-page detection timeout\n")
		fmt.Fprintf(os.Stderr, "  PDF_PROC_LOGLEVEL       Log level\n")
	}
}

// checkVersionFlag checks if version flag was requested.
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper.
func populateConfigFromViper(cfg *Config) {
	cfg.InputDir = viper.GetString("dir")
	cfg.OutputDir = viper.GetString("out")
	cfg.DPI = viper.GetFloat64("dpi")
	cfg.Jobs = viper.GetInt("jobs")
	cfg.PageTimeout = viper.GetDuration("pagetimeout")
	cfg.SkipFirstPage = viper.GetBool("skipfirstpage")
	cfg.NoiseRemoval = !viper.GetBool("nonoiseremoval")
	cfg.SampleSize = viper.GetInt("samplesize")
	cfg.MinFrequency = viper.GetFloat64("minfrequency")
	cfg.CaptionPadding = viper.GetFloat64("captionpadding")
	cfg.VisualPadding = viper.GetFloat64("visualpadding")
	cfg.LogLevel = viper.GetString("loglevel")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return errors.New("input directory cannot be empty")
	}
	if info, err := os.Stat(c.InputDir); err != nil {
		return fmt.Errorf("cannot access input directory %s: %w", c.InputDir, err)
	} else if !info.IsDir() {
		return fmt.Errorf("input path %s is not a directory", c.InputDir)
	}

	if c.OutputDir == "" {
		return errors.New("output directory cannot be empty")
	}
	if _, err := os.Stat(c.OutputDir); os.IsNotExist(err) {
		if err := os.MkdirAll(c.OutputDir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create output directory %s: %w", c.OutputDir, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access output directory %s: %w", c.OutputDir, err)
	}

	if c.DPI <= 0 {
		return errors.New("dpi must be positive")
	}
	if c.Jobs < 1 {
		return errors.New("jobs must be at least 1")
	}
	if c.PageTimeout <= 0 {
		return errors.New("page timeout must be positive")
	}
	if c.SampleSize < 1 {
		return errors.New("sample size must be at least 1")
	}
	if c.MinFrequency <= 0 || c.MinFrequency > 1 {
		return errors.New("min frequency must be in (0, 1]")
	}
	if c.CaptionPadding < 0 || c.VisualPadding < 0 {
		return errors.New("paddings cannot be negative")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Pipeline maps the flat flag surface onto the stage configurations.
func (c *Config) Pipeline() pipeline.Config {
	pc := pipeline.DefaultConfig()
	pc.DPI = c.DPI
	pc.SkipFirstPage = c.SkipFirstPage
	pc.NoiseRemoval = c.NoiseRemoval
	pc.PageTimeout = c.PageTimeout
	pc.Noise.SampleSize = c.SampleSize
	pc.Noise.MinFrequency = c.MinFrequency
	pc.Zones.CaptionPadding = c.CaptionPadding
	pc.Zones.VisualPadding = c.VisualPadding
	return pc
}

// IsDebug returns true if debug logging is enabled.
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration.
func (c *Config) String() string {
	return fmt.Sprintf("Config{InputDir: %s, OutputDir: %s, DPI: %g, Jobs: %d, PageTimeout: %s, LogLevel: %s}",
		c.InputDir, c.OutputDir, c.DPI, c.Jobs, c.PageTimeout, c.LogLevel)
}
