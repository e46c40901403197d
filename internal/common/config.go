package common

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Storage  StorageConfig
	OCR      OCRConfig
	Pipeline PipelineConfig
	Database DatabaseConfig
	Server   ServerConfig
	Log      LogConfig
}

// StorageConfig holds the on-disk layout and link base
type StorageConfig struct {
	Root        string // intake/archive root; category folders live directly under it
	LedgerFile  string // XLSX path; relative paths resolve against Root
	LedgerSheet string
	BaseURL     string // externally reachable URL of Root
	CatalogPath string // optional YAML category catalog
}

// OCRConfig holds rasterizer/recognizer configuration
type OCRConfig struct {
	Pdftoppm      string
	Tesseract     string
	TesseractLang string
	TessdataDir   string
	DPIs          []int
	TextLayer     bool
	LanguageCheck bool
}

// PipelineConfig holds extraction policy knobs
type PipelineConfig struct {
	EmployerStrategy string // constant | match-or-category | match
	StopPolicy       string // all-or-dates | all
	DocTimeout       time.Duration
	Dedup            bool
}

// DatabaseConfig holds document index configuration
type DatabaseConfig struct {
	Enabled     bool
	DSN         string // sqlite file path, or postgres:// URL; "" -> permits.db under Root
	DialTimeout time.Duration
}

// ServerConfig holds watch-mode server configuration
type ServerConfig struct {
	HealthAddr string
	Debounce   time.Duration
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string // text | json
}

const (
	EmployerConstant        = "constant"
	EmployerMatchOrCategory = "match-or-category"
	EmployerMatch           = "match"

	StopAllOrDates = "all-or-dates"
	StopAll        = "all"
)

// DefaultDPIs are the resolutions tried for every page, in order.
var DefaultDPIs = []int{150, 200, 300}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Root:        getEnv("PERMITS_ROOT", "Radne_Dozvole_Evidencija"),
			LedgerFile:  getEnv("PERMITS_LEDGER_FILE", "Radne_dozvole.xlsx"),
			LedgerSheet: getEnv("PERMITS_LEDGER_SHEET", "Sheet1"),
			BaseURL:     strings.TrimRight(getEnv("PERMITS_BASE_URL", ""), "/"),
			CatalogPath: getEnv("PERMITS_CATALOG", ""),
		},
		OCR: OCRConfig{
			Pdftoppm:      getEnv("PDFTOPPM", "pdftoppm"),
			Tesseract:     getEnv("TESSERACT", "tesseract"),
			TesseractLang: getEnv("TESSERACT_LANG", "hrv"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			DPIs:          getEnvAsInts("PERMITS_DPI", DefaultDPIs),
			TextLayer:     getEnvAsBool("PERMITS_TEXT_LAYER", true),
			LanguageCheck: getEnvAsBool("PERMITS_LANGUAGE_CHECK", false),
		},
		Pipeline: PipelineConfig{
			EmployerStrategy: getEnv("PERMITS_EMPLOYER_STRATEGY", EmployerConstant),
			StopPolicy:       getEnv("PERMITS_STOP_POLICY", StopAllOrDates),
			DocTimeout:       getEnvAsDuration("PERMITS_DOC_TIMEOUT", 5*time.Minute),
			Dedup:            getEnvAsBool("PERMITS_DEDUP", true),
		},
		Database: DatabaseConfig{
			Enabled:     getEnvAsBool("PERMITS_INDEX", true),
			DSN:         getEnv("PERMITS_DB_URL", ""),
			DialTimeout: getEnvAsDuration("PERMITS_DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			HealthAddr: getEnv("PERMITS_HEALTH_ADDR", ""),
			Debounce:   getEnvAsDuration("PERMITS_WATCH_DEBOUNCE", 2*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("PERMITS_LOG_LEVEL", "info"),
			Format: getEnv("PERMITS_LOG_FORMAT", "text"),
		},
	}
}

// LedgerPath resolves the ledger file against the storage root.
func (c *Config) LedgerPath() string {
	if filepath.IsAbs(c.Storage.LedgerFile) {
		return c.Storage.LedgerFile
	}
	return filepath.Join(c.Storage.Root, c.Storage.LedgerFile)
}

// DatabaseDSN resolves the index DSN, defaulting to a sqlite file under
// the storage root.
func (c *Config) DatabaseDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	return filepath.Join(c.Storage.Root, "permits.db")
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsInts parses a comma-separated list; any bad entry falls back to defaultValue.
func getEnvAsInts(key string, defaultValue []int) []int {
	value := os.Getenv(key)
	if value == "" {
		return append([]int(nil), defaultValue...)
	}
	var out []int
	for _, part := range strings.Split(value, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return append([]int(nil), defaultValue...)
		}
		out = append(out, n)
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("PERMITS_ROOT", c.Storage.Root, Required).
		Field("PERMITS_LEDGER_FILE", c.Storage.LedgerFile, Required).
		Field("PERMITS_LEDGER_SHEET", c.Storage.LedgerSheet, Required).
		Field("PERMITS_BASE_URL", c.Storage.BaseURL, Required, URL).
		Field("PERMITS_DPI", c.OCR.DPIs, PositiveInts).
		Field("PERMITS_EMPLOYER_STRATEGY", c.Pipeline.EmployerStrategy,
			OneOf(EmployerConstant, EmployerMatchOrCategory, EmployerMatch)).
		Field("PERMITS_STOP_POLICY", c.Pipeline.StopPolicy, OneOf(StopAllOrDates, StopAll)).
		Field("PERMITS_LOG_FORMAT", c.Log.Format, OneOf("text", "json"))
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
