package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.BankBaseURL != "http://userservice:8080" {
		t.Errorf("BankBaseURL = %q", cfg.BankBaseURL)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout = %v, want 30s", cfg.RequestTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("BANK_BASE_URL", "http://localhost:8081")
	t.Setenv("TRANSACTION_HISTORY_URL", "http://localhost:8082")
	t.Setenv("AUTH_USERNAME", "svc")
	t.Setenv("AUTH_PASSWORD", "secret")
	t.Setenv("REQUEST_TIMEOUT", "10")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BankBaseURL != "http://localhost:8081" {
		t.Errorf("BankBaseURL = %q", cfg.BankBaseURL)
	}
	if cfg.TransactionHistoryURL != "http://localhost:8082" {
		t.Errorf("TransactionHistoryURL = %q", cfg.TransactionHistoryURL)
	}
	if cfg.AuthUsername != "svc" || cfg.AuthPassword != "secret" {
		t.Error("credentials not read from environment")
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("RequestTimeout = %v, want 10s", cfg.RequestTimeout)
	}
	// Unset values keep their defaults.
	if cfg.LedgerWriterURL != "http://ledgerwriter:8080" {
		t.Errorf("LedgerWriterURL = %q", cfg.LedgerWriterURL)
	}
}

func TestFromEnv_InvalidTimeout(t *testing.T) {
	tests := []string{"abc", "-1", "0"}
	for _, v := range tests {
		t.Run(v, func(t *testing.T) {
			t.Setenv("REQUEST_TIMEOUT", v)
			if _, err := FromEnv(); err == nil {
				t.Errorf("REQUEST_TIMEOUT=%q should be rejected", v)
			}
		})
	}
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bank.yaml")
	content := `
bank_base_url: http://bank.test:9000
auth_username: file-user
request_timeout_seconds: 15
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := FromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BankBaseURL != "http://bank.test:9000" {
		t.Errorf("BankBaseURL = %q", cfg.BankBaseURL)
	}
	if cfg.AuthUsername != "file-user" {
		t.Errorf("AuthUsername = %q", cfg.AuthUsername)
	}
	if cfg.RequestTimeout != 15*time.Second {
		t.Errorf("RequestTimeout = %v, want 15s", cfg.RequestTimeout)
	}
	// Fields absent from the file keep their defaults.
	if cfg.ContactsURL != "http://contacts:8080" {
		t.Errorf("ContactsURL = %q", cfg.ContactsURL)
	}
}

func TestFromFile_Missing(t *testing.T) {
	if _, err := FromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadDotenv_MissingFileIsFine(t *testing.T) {
	if err := LoadDotenv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("missing .env should not be an error: %v", err)
	}
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("BANK_BASE_URL=http://dotenv.test:1234\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BANK_BASE_URL", "") // ensure the var is restored after the test
	os.Unsetenv("BANK_BASE_URL")

	if err := LoadDotenv(path); err != nil {
		t.Fatal(err)
	}
	cfg, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BankBaseURL != "http://dotenv.test:1234" {
		t.Errorf("BankBaseURL = %q", cfg.BankBaseURL)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.BankBaseURL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("missing bank base URL should fail validation")
	}

	cfg = Default()
	cfg.RequestTimeout = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero timeout should fail validation")
	}
}
