package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Google   GoogleConfig
	Azure    AzureConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
	Ledger   LedgerConfig
}

// GoogleConfig holds Drive/Sheets/Gmail-related configuration
type GoogleConfig struct {
	TokenFile string

	MainSheetID      string
	DriveLogSheetID  string
	IntakeLogSheetID string
	ErrorLogSheetID  string

	InputFolderID     string
	GmailFolderID     string
	ProcessedFolderID string
	FailedFolderID    string
	OutputFolderID    string
}

// AzureConfig holds document-analysis configuration
type AzureConfig struct {
	Endpoint string
	Key      string
	Timeout  time.Duration
}

// LLMConfig holds normalizer configuration
type LLMConfig struct {
	Model       string
	APIKey      string
	Temperature float32
	Timeout     time.Duration
}

// PipelineConfig holds processing behavior configuration
type PipelineConfig struct {
	PollInterval    time.Duration
	MaxPollAttempts int
	Timezone        string
	FolderMapFile   string
}

// LedgerConfig holds local durable state configuration
type LedgerConfig struct {
	Path        string
	FallbackLog string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Google: GoogleConfig{
			TokenFile:         getEnv("GOOGLE_TOKEN_FILE", "token.json"),
			MainSheetID:       getEnv("MAIN_OUTPUT_SHEET_ID", ""),
			DriveLogSheetID:   getEnv("DRIVE_LOG_SPREADSHEET_ID", ""),
			IntakeLogSheetID:  getEnv("GMAIL_LOG_SPREADSHEET_ID", ""),
			ErrorLogSheetID:   getEnv("GMAIL_LOG_SPREADSHEET_ID", ""),
			InputFolderID:     getEnv("INPUT_DRIVE_FOLDER_ID", ""),
			GmailFolderID:     getEnv("GMAIL_ATTACHMENTS_FOLDER_ID", ""),
			ProcessedFolderID: getEnv("PROCESSED_FOLDER_ID", ""),
			FailedFolderID:    getEnv("FAILED_FOLDER_ID", ""),
			OutputFolderID:    getEnv("OUTPUT_DRIVE_FOLDER_ID", ""),
		},
		Azure: AzureConfig{
			Endpoint: getEnv("AZURE_ENDPOINT", ""),
			Key:      getEnv("AZURE_KEY", ""),
			Timeout:  getEnvAsDuration("AZURE_TIMEOUT", 60*time.Second),
		},
		LLM: LLMConfig{
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
		},
		Pipeline: PipelineConfig{
			PollInterval:    getEnvAsDuration("EXTRACT_POLL_INTERVAL", 15*time.Second),
			MaxPollAttempts: getEnvAsInt("EXTRACT_MAX_POLL_ATTEMPTS", 5),
			Timezone:        getEnv("LOG_TIMEZONE", "Asia/Kolkata"),
			FolderMapFile:   getEnv("FOLDER_MAP_FILE", ""),
		},
		Ledger: LedgerConfig{
			Path:        getEnv("LEDGER_PATH", "invoice-ingest.db"),
			FallbackLog: getEnv("FALLBACK_ERROR_LOG", "local_error_log.txt"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
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

// Validate validates the loaded configuration for a Google-backed run.
func (c *Config) Validate() error {
	if c.Azure.Endpoint == "" || c.Azure.Key == "" {
		return NewAppError(CodeConfig, "AZURE_ENDPOINT and AZURE_KEY are required", nil)
	}
	if c.LLM.APIKey == "" {
		return NewAppError(CodeConfig, "OPENAI_API_KEY is required", nil)
	}
	if c.Google.MainSheetID == "" {
		return NewAppError(CodeConfig, "MAIN_OUTPUT_SHEET_ID is required", nil)
	}
	if c.Google.InputFolderID == "" || c.Google.GmailFolderID == "" {
		return NewAppError(CodeConfig, "INPUT_DRIVE_FOLDER_ID and GMAIL_ATTACHMENTS_FOLDER_ID are required", nil)
	}
	if c.Google.ProcessedFolderID == "" || c.Google.FailedFolderID == "" || c.Google.OutputFolderID == "" {
		return NewAppError(CodeConfig, "PROCESSED_FOLDER_ID, FAILED_FOLDER_ID and OUTPUT_DRIVE_FOLDER_ID are required", nil)
	}
	return nil
}

// Location resolves the configured log timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Pipeline.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// FolderMap maps unprocessed folder ids to source tags. The file form is:
//
//	folders:
//	  <folder-id>: email
//	  <folder-id>: upload
type folderMapFile struct {
	Folders map[string]string `yaml:"folders"`
}

// LoadFolderMap reads the YAML folder-to-source-tag map. A missing path
// yields the built-in map derived from the Google folder config.
func (c *Config) LoadFolderMap() (map[string]string, error) {
	m := map[string]string{}
	if c.Google.GmailFolderID != "" {
		m[c.Google.GmailFolderID] = "email"
	}
	if c.Google.InputFolderID != "" {
		m[c.Google.InputFolderID] = "upload"
	}
	if c.Pipeline.FolderMapFile == "" {
		return m, nil
	}
	b, err := os.ReadFile(c.Pipeline.FolderMapFile)
	if err != nil {
		return nil, fmt.Errorf("read folder map: %w", err)
	}
	var f folderMapFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse folder map: %w", err)
	}
	for id, tag := range f.Folders {
		m[id] = tag
	}
	return m, nil
}
