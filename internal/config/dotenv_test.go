package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := `
# comment line
CRACKEN_DOTENV_A=plain
CRACKEN_DOTENV_B="quoted value"
CRACKEN_DOTENV_C='single'
not-a-pair
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	t.Setenv("CRACKEN_DOTENV_B", "preset")
	os.Unsetenv("CRACKEN_DOTENV_A")
	os.Unsetenv("CRACKEN_DOTENV_C")
	t.Cleanup(func() {
		os.Unsetenv("CRACKEN_DOTENV_A")
		os.Unsetenv("CRACKEN_DOTENV_C")
	})

	if err := LoadDotenv(path); err != nil {
		t.Fatalf("LoadDotenv: %v", err)
	}

	if got := os.Getenv("CRACKEN_DOTENV_A"); got != "plain" {
		t.Errorf("A: got %q", got)
	}
	// Existing vars are never overridden.
	if got := os.Getenv("CRACKEN_DOTENV_B"); got != "preset" {
		t.Errorf("B: got %q, want preset", got)
	}
	if got := os.Getenv("CRACKEN_DOTENV_C"); got != "single" {
		t.Errorf("C: got %q", got)
	}
}

func TestLoadDotenvMissingFile(t *testing.T) {
	if err := LoadDotenv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("missing file should be ignored: %v", err)
	}
}
