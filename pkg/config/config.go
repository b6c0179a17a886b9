package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the endpoints and credentials for the banking services.
// Defaults match in-cluster service names so a zero-config deployment works.
type Config struct {
	// BankBaseURL is the user service base URL (login, users, lock).
	BankBaseURL string
	// TransactionHistoryURL is the transaction-history service base URL.
	TransactionHistoryURL string
	// LedgerWriterURL is the ledger-write service base URL.
	LedgerWriterURL string
	// BalancesURL is the balance-reader service base URL.
	BalancesURL string
	// ContactsURL is the contacts service base URL.
	ContactsURL string

	// AuthUsername and AuthPassword are the service account credentials
	// used when a caller does not supply its own.
	AuthUsername string
	AuthPassword string

	// RequestTimeout bounds every outbound HTTP call.
	RequestTimeout time.Duration

	// LedgerDSN is the connection string for the direct ledger-database
	// fallback. Empty disables the database source.
	LedgerDSN string
}

// Default returns the in-cluster defaults.
func Default() Config {
	return Config{
		BankBaseURL:           "http://userservice:8080",
		TransactionHistoryURL: "http://transactionhistory:8080",
		LedgerWriterURL:       "http://ledgerwriter:8080",
		BalancesURL:           "http://balancereader:8080",
		ContactsURL:           "http://contacts:8080",
		RequestTimeout:        30 * time.Second,
	}
}

// LoadDotenv loads a .env file into the process environment. A missing file
// is not an error; FromEnv picks up whatever is set afterwards.
func LoadDotenv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// FromEnv builds a Config from environment variables, starting from Default.
func FromEnv() (Config, error) {
	cfg := Default()

	setIfPresent := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setIfPresent(&cfg.BankBaseURL, "BANK_BASE_URL")
	setIfPresent(&cfg.TransactionHistoryURL, "TRANSACTION_HISTORY_URL")
	setIfPresent(&cfg.LedgerWriterURL, "LEDGER_WRITER_URL")
	setIfPresent(&cfg.BalancesURL, "BALANCES_URL")
	setIfPresent(&cfg.ContactsURL, "CONTACTS_URL")
	setIfPresent(&cfg.AuthUsername, "AUTH_USERNAME")
	setIfPresent(&cfg.AuthPassword, "AUTH_PASSWORD")
	setIfPresent(&cfg.LedgerDSN, "LEDGER_DSN")

	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds <= 0 {
			return cfg, fmt.Errorf("config: invalid REQUEST_TIMEOUT %q", v)
		}
		cfg.RequestTimeout = time.Duration(seconds) * time.Second
	}

	return cfg, nil
}

// fileConfig is the YAML file shape. The timeout is spelled in seconds to
// match the REQUEST_TIMEOUT environment variable.
type fileConfig struct {
	BankBaseURL           string `yaml:"bank_base_url"`
	TransactionHistoryURL string `yaml:"transaction_history_url"`
	LedgerWriterURL       string `yaml:"ledger_writer_url"`
	BalancesURL           string `yaml:"balances_url"`
	ContactsURL           string `yaml:"contacts_url"`
	AuthUsername          string `yaml:"auth_username"`
	AuthPassword          string `yaml:"auth_password"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
	LedgerDSN             string `yaml:"ledger_dsn"`
}

// FromFile reads a YAML config file and overlays it on Default. Fields left
// empty in the file keep their defaults.
func FromFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}

	overlay := Config{
		BankBaseURL:           file.BankBaseURL,
		TransactionHistoryURL: file.TransactionHistoryURL,
		LedgerWriterURL:       file.LedgerWriterURL,
		BalancesURL:           file.BalancesURL,
		ContactsURL:           file.ContactsURL,
		AuthUsername:          file.AuthUsername,
		AuthPassword:          file.AuthPassword,
		LedgerDSN:             file.LedgerDSN,
	}
	if file.RequestTimeoutSeconds > 0 {
		overlay.RequestTimeout = time.Duration(file.RequestTimeoutSeconds) * time.Second
	}
	cfg.merge(overlay)
	return cfg, nil
}

func (c *Config) merge(o Config) {
	if o.BankBaseURL != "" {
		c.BankBaseURL = o.BankBaseURL
	}
	if o.TransactionHistoryURL != "" {
		c.TransactionHistoryURL = o.TransactionHistoryURL
	}
	if o.LedgerWriterURL != "" {
		c.LedgerWriterURL = o.LedgerWriterURL
	}
	if o.BalancesURL != "" {
		c.BalancesURL = o.BalancesURL
	}
	if o.ContactsURL != "" {
		c.ContactsURL = o.ContactsURL
	}
	if o.AuthUsername != "" {
		c.AuthUsername = o.AuthUsername
	}
	if o.AuthPassword != "" {
		c.AuthPassword = o.AuthPassword
	}
	if o.RequestTimeout > 0 {
		c.RequestTimeout = o.RequestTimeout
	}
	if o.LedgerDSN != "" {
		c.LedgerDSN = o.LedgerDSN
	}
}

// Validate checks that the required endpoints are present.
func (c *Config) Validate() error {
	if c.BankBaseURL == "" {
		return fmt.Errorf("config: bank base URL is required")
	}
	if c.TransactionHistoryURL == "" {
		return fmt.Errorf("config: transaction history URL is required")
	}
	if c.LedgerWriterURL == "" {
		return fmt.Errorf("config: ledger writer URL is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config: request timeout must be positive")
	}
	return nil
}
