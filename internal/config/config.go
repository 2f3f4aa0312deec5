package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"learnerdash/internal/errors"
	"learnerdash/internal/metrics"
	"learnerdash/internal/normalize"
)

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig
	Markers    normalize.Options
	Thresholds metrics.Thresholds
	Report     ReportConfig
	Data       DataConfig
	Profiling  ProfilingConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port         string
	GinMode      string
	MaxUploadMB  int64
	SessionTTL   time.Duration
	CookieSecure bool
}

// MaxUploadBytes returns the upload limit in bytes
func (s ServerConfig) MaxUploadBytes() int64 {
	return s.MaxUploadMB << 20
}

// ReportConfig holds the fixed text of exported documents
type ReportConfig struct {
	SchoolName string `yaml:"school_name"`
	Title      string `yaml:"title"`
	Footer     string `yaml:"footer"`
}

// DataConfig holds data source settings
type DataConfig struct {
	ExcelFile string
}

// ProfilingConfig holds performance profiling settings
type ProfilingConfig struct {
	Port    string
	Enabled bool
}

// fileConfig is the layout of the optional THRESHOLDS_FILE
type fileConfig struct {
	Thresholds *metrics.Thresholds `yaml:"thresholds"`
	Markers    *normalize.Options  `yaml:"markers"`
	Report     *ReportConfig       `yaml:"report"`
}

// DefaultReportConfig returns the school report texts
func DefaultReportConfig() ReportConfig {
	return ReportConfig{
		SchoolName: "Saul Damon High School",
		Title:      "Results DASHBOARD",
		Footer:     "Designed by Mr AR Visagie",
	}
}

// Load reads configuration from environment variables and validates it.
// A YAML file named by THRESHOLDS_FILE is applied first; individual
// environment variables override it.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("THRESHOLDS_FILE"))
}

// LoadFile is Load with an explicit YAML file in place of THRESHOLDS_FILE.
// An empty path applies no file.
func LoadFile(path string) (*Config, error) {
	config := &Config{
		Server:     *loadServerConfig(),
		Markers:    normalize.DefaultOptions(),
		Thresholds: metrics.DefaultThresholds(),
		Report:     DefaultReportConfig(),
		Data:       *loadDataConfig(),
		Profiling:  *loadProfilingConfig(),
	}

	if path != "" {
		if err := config.ApplyFile(path); err != nil {
			return nil, errors.Wrap(err, "failed to load thresholds file")
		}
	}

	applyMarkerEnv(&config.Markers)
	applyThresholdEnv(&config.Thresholds)
	applyReportEnv(&config.Report)

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// ApplyFile merges a YAML configuration file into c. Sections missing from
// the file keep their current values.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	return c.ApplyYAML(data)
}

// ApplyYAML merges YAML configuration bytes into c
func (c *Config) ApplyYAML(data []byte) error {
	fc := fileConfig{
		Thresholds: &c.Thresholds,
		Markers:    &c.Markers,
		Report:     &c.Report,
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	return nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:         getEnvOrDefault("PORT", "8080"),
		GinMode:      getEnvOrDefault("GIN_MODE", "debug"),
		MaxUploadMB:  int64(getEnvIntOrDefault("MAX_UPLOAD_MB", 50)),
		SessionTTL:   getEnvDurationOrDefault("SESSION_TTL", 2*time.Hour),
		CookieSecure: getEnvBoolOrDefault("COOKIE_SECURE", false),
	}
}

func loadDataConfig() *DataConfig {
	return &DataConfig{
		ExcelFile: getEnvOrDefault("EXCEL_FILE", ""),
	}
}

func loadProfilingConfig() *ProfilingConfig {
	return &ProfilingConfig{
		Port:    getEnvOrDefault("PPROF_PORT", "6060"),
		Enabled: getEnvBoolOrDefault("PPROF_ENABLED", false),
	}
}

func applyMarkerEnv(o *normalize.Options) {
	o.HeaderMarker = getEnvOrDefault("HEADER_MARKER", o.HeaderMarker)
	o.NameMarker = getEnvOrDefault("NAME_MARKER", o.NameMarker)
	o.MaxMarker = getEnvOrDefault("MAX_MARKER", o.MaxMarker)
	o.DateColumn = getEnvOrDefault("DATE_COLUMN", o.DateColumn)
	o.HeaderScanRows = getEnvIntOrDefault("HEADER_SCAN_ROWS", o.HeaderScanRows)
	if v := os.Getenv("EXCLUDED_COLUMNS"); v != "" {
		var cols []string
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				cols = append(cols, c)
			}
		}
		o.ExcludedColumns = cols
	}
}

func applyThresholdEnv(t *metrics.Thresholds) {
	t.LowPerformerFraction = getEnvFloatOrDefault("LOW_PERFORMER_FRACTION", t.LowPerformerFraction)
	t.FailingPercent = getEnvFloatOrDefault("FAILING_PERCENT", t.FailingPercent)
	t.HighPerformerPercent = getEnvFloatOrDefault("HIGH_PERFORMER_PERCENT", t.HighPerformerPercent)
	t.WeakQuestionFraction = getEnvFloatOrDefault("WEAK_QUESTION_FRACTION", t.WeakQuestionFraction)
	t.VariabilityStdDev = getEnvFloatOrDefault("VARIABILITY_STD_DEV", t.VariabilityStdDev)
	t.TierLowerBound = getEnvFloatOrDefault("TIER_LOWER_BOUND", t.TierLowerBound)
	t.TierUpperBound = getEnvFloatOrDefault("TIER_UPPER_BOUND", t.TierUpperBound)
}

func applyReportEnv(r *ReportConfig) {
	r.SchoolName = getEnvOrDefault("SCHOOL_NAME", r.SchoolName)
	r.Title = getEnvOrDefault("REPORT_TITLE", r.Title)
	r.Footer = getEnvOrDefault("REPORT_FOOTER", r.Footer)
}

// Validate checks a configuration assembled outside Load
func (c *Config) Validate() error {
	return validateConfig(c)
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	if config.Server.MaxUploadMB <= 0 {
		return errors.ConfigInvalid("MAX_UPLOAD_MB must be positive")
	}
	if strings.TrimSpace(config.Markers.HeaderMarker) == "" || strings.TrimSpace(config.Markers.NameMarker) == "" {
		return errors.ConfigInvalid("header and name markers are required")
	}
	return config.Thresholds.Validate()
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
