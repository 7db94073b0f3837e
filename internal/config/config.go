// =============================================================================
// Roster Sync - Configuration Module
// =============================================================================
//
// This module loads the two configuration sources used by the tool:
//
//   1. Main Config (config.yaml): file locations, sheet layout, identity mode,
//      payment heuristics and SEPA creditor settings. The file is optional;
//      every key has a default that reproduces the historical behavior.
//   2. Credentials (.env): database driver, server, database, user, password
//      and table. See credentials.go.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ginjaninja78/roster-sync/internal/apperror"
	"github.com/ginjaninja78/roster-sync/internal/identity"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// FILE LOCATIONS
	// =========================================================================

	// InputFile is the spreadsheet of active members.
	// Default: "Socis-2025.xlsx"
	InputFile string `yaml:"input_file"`

	// EnvFile is the credentials file.
	// Default: "models/.env"
	EnvFile string `yaml:"env_file"`

	// BackupDir receives the pre-run CSV backups.
	// Default: "backups"
	BackupDir string `yaml:"backup_dir"`

	// BackupRetentionDays removes backups older than this many days after a
	// new backup is verified. 0 keeps every backup.
	// Default: 0
	BackupRetentionDays int `yaml:"backup_retention_days"`

	// OutputDir receives run summaries, error logs and SEPA remittances.
	// Default: "output"
	OutputDir string `yaml:"output_dir"`

	// =========================================================================
	// SPREADSHEET LAYOUT
	// =========================================================================

	// SheetName is the worksheet holding the member list.
	// Default: "Hoja1"
	SheetName string `yaml:"sheet_name"`

	// Columns maps each field to a column letter. Empty entries keep the
	// default layout.
	Columns ColumnConfig `yaml:"columns"`

	// =========================================================================
	// RECONCILIATION SETTINGS
	// =========================================================================

	// IdentityMode is "nif" (match on national ID) or "code" (match on
	// member code).
	// Default: "nif"
	IdentityMode string `yaml:"identity_mode"`

	// ProgressEvery is how many candidates are processed between progress
	// messages.
	// Default: 100
	ProgressEvery int `yaml:"progress_every"`

	// ConfirmToken is the word the operator must type to start a run.
	// Default: "SI"
	ConfirmToken string `yaml:"confirm_token"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// PAYMENT / SEPA SETTINGS
	// =========================================================================

	Payment PaymentConfig `yaml:"payment"`
	SEPA    SEPAConfig    `yaml:"sepa"`
}

// ColumnConfig holds optional column letter overrides for the sheet layout.
type ColumnConfig struct {
	Code          string `yaml:"code"`
	Name          string `yaml:"name"`
	NationalID    string `yaml:"national_id"`
	Address       string `yaml:"address"`
	PostalCode    string `yaml:"postal_code"`
	City          string `yaml:"city"`
	Phone         string `yaml:"phone"`
	Mobile        string `yaml:"mobile"`
	Email         string `yaml:"email"`
	PaymentMethod string `yaml:"payment_method"`
	IBAN          string `yaml:"iban"`
	BIC           string `yaml:"bic"`
	JoinDate      string `yaml:"join_date"`
}

// PaymentConfig controls how the payment method text is classified.
type PaymentConfig struct {
	// DomiciledKeywords mark direct debit when found in the payment text
	// (case-insensitive).
	// Default: ["domiciliat"]
	DomiciledKeywords []string `yaml:"domiciled_keywords"`

	// DomiciledCodes mark direct debit when found anywhere in the payment
	// text.
	// Default: ["3"]
	DomiciledCodes []string `yaml:"domiciled_codes"`
}

// SEPAConfig holds the creditor data for direct debit remittances.
type SEPAConfig struct {
	InitiatingParty string  `yaml:"initiating_party"`
	CreditorName    string  `yaml:"creditor_name"`
	CreditorIBAN    string  `yaml:"creditor_iban"`
	CreditorBIC     string  `yaml:"creditor_bic"`
	CreditorID      string  `yaml:"creditor_id"`
	DefaultDues     float64 `yaml:"default_dues"`

	// SequenceType is FRST, RCUR, OOFF or FNAL.
	// Default: "RCUR"
	SequenceType string `yaml:"sequence_type"`

	// CollectionDays is the number of days between generation and the
	// requested collection date.
	// Default: 5
	CollectionDays int `yaml:"collection_days"`

	// RemittanceText is the unstructured remittance information.
	// Default: "Quota de soci"
	RemittanceText string `yaml:"remittance_text"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file. A missing file is
//     not an error: defaults are used and a warning is logged.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error wrapping apperror.ErrConfiguration if the file cannot be read,
//     parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var config MainConfig

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Warn("config file not found, using defaults", "file", configPath)
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w: %w", apperror.ErrConfiguration, err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w: %w", apperror.ErrConfiguration, err)
		}
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns a configuration with every default applied.
func Default() *MainConfig {
	var config MainConfig
	applyMainConfigDefaults(&config)
	return &config
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputFile == "" {
		config.InputFile = "Socis-2025.xlsx"
	}
	if config.EnvFile == "" {
		config.EnvFile = "models/.env"
	}
	if config.BackupDir == "" {
		config.BackupDir = "backups"
	}
	if config.OutputDir == "" {
		config.OutputDir = "output"
	}
	if config.SheetName == "" {
		config.SheetName = "Hoja1"
	}
	if config.IdentityMode == "" {
		config.IdentityMode = string(identity.ModeNationalID)
	}
	if config.ProgressEvery == 0 {
		config.ProgressEvery = 100
	}
	if config.ConfirmToken == "" {
		config.ConfirmToken = "SI"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.Payment.DomiciledKeywords == nil {
		config.Payment.DomiciledKeywords = []string{"domiciliat"}
	}
	if config.Payment.DomiciledCodes == nil {
		config.Payment.DomiciledCodes = []string{"3"}
	}
	if config.SEPA.SequenceType == "" {
		config.SEPA.SequenceType = "RCUR"
	}
	if config.SEPA.CollectionDays == 0 {
		config.SEPA.CollectionDays = 5
	}
	if config.SEPA.RemittanceText == "" {
		config.SEPA.RemittanceText = "Quota de soci"
	}
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	var problems []string

	if _, err := identity.ParseMode(config.IdentityMode); err != nil {
		problems = append(problems, fmt.Sprintf("identity_mode %q is not \"nif\" or \"code\"", config.IdentityMode))
	}
	if config.ProgressEvery < 0 {
		problems = append(problems, "progress_every must be positive")
	}
	if strings.TrimSpace(config.ConfirmToken) == "" {
		problems = append(problems, "confirm_token must not be blank")
	}
	switch strings.ToLower(config.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("log_level %q is not debug, info, warn or error", config.LogLevel))
	}
	switch config.SEPA.SequenceType {
	case "FRST", "RCUR", "OOFF", "FNAL":
	default:
		problems = append(problems, fmt.Sprintf("sepa.sequence_type %q is not FRST, RCUR, OOFF or FNAL", config.SEPA.SequenceType))
	}
	if config.BackupRetentionDays < 0 {
		problems = append(problems, "backup_retention_days must not be negative")
	}
	if config.SEPA.DefaultDues < 0 {
		problems = append(problems, "sepa.default_dues must not be negative")
	}
	if config.SEPA.CollectionDays < 0 {
		problems = append(problems, "sepa.collection_days must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", apperror.ErrConfiguration, strings.Join(problems, ", "))
	}
	return nil
}

// Mode returns the parsed identity mode. The value has already been validated
// by LoadMainConfig.
func (c *MainConfig) Mode() identity.Mode {
	mode, err := identity.ParseMode(c.IdentityMode)
	if err != nil {
		return identity.ModeNationalID
	}
	return mode
}
