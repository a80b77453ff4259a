package cli

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("SPENDLENS_TEST_VALUE=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SPENDLENS_TEST_VALUE", "")
	os.Unsetenv("SPENDLENS_TEST_VALUE")

	LoadEnvFile(path)
	if got := os.Getenv("SPENDLENS_TEST_VALUE"); got != "from-file" {
		t.Fatalf("SPENDLENS_TEST_VALUE = %q", got)
	}

	// missing files are ignored
	LoadEnvFile(filepath.Join(dir, "missing.env"))
}

func TestLoadEnvFile_DoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("SPENDLENS_TEST_KEEP=file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SPENDLENS_TEST_KEEP", "env")

	LoadEnvFile(path)
	if got := os.Getenv("SPENDLENS_TEST_KEEP"); got != "env" {
		t.Fatalf("SPENDLENS_TEST_KEEP = %q, want env", got)
	}
}

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger("nonsense", "json", io.Discard)
	if logger == nil || logger.Component() != "app" {
		t.Fatalf("unexpected logger %+v", logger)
	}
}

func TestOpenRunStore(t *testing.T) {
	logger := SetupLogger("error", "text", io.Discard)
	repo, err := OpenRunStore(logger, filepath.Join(t.TempDir(), "db", "runs.db"))
	if err != nil {
		t.Fatalf("OpenRunStore() error = %v", err)
	}
	defer repo.Close()
	if repo.SchemaVersion() != 1 {
		t.Fatalf("SchemaVersion() = %d", repo.SchemaVersion())
	}
}
