// Coordinator launch-option tests: INI overlay and validation.
package coordinator

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "beal.ini")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadOptionsOverlay(t *testing.T) {
	path := writeConfig(t, `
[search]
MaxBase = 500
Primes  = 97, 89

[coordinator]
Output = /tmp/beal-results.txt
Listen = 0.0.0.0:9001
`)
	opts, err := LoadOptions(path, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if opts.MaxBase != 500 {
		t.Fatalf("MaxBase = %d, want 500", opts.MaxBase)
	}
	if opts.MaxPow != 300 {
		t.Fatalf("MaxPow = %d, want default 300", opts.MaxPow)
	}
	if len(opts.Primes) != 2 || opts.Primes[0] != 97 || opts.Primes[1] != 89 {
		t.Fatalf("Primes = %v, want [97 89]", opts.Primes)
	}
	if opts.Output != "/tmp/beal-results.txt" || opts.Listen != "0.0.0.0:9001" {
		t.Fatalf("coordinator section not applied: %+v", opts)
	}
	if opts.Database == "" {
		t.Fatal("default database lost in overlay")
	}
}

func TestLoadOptionsMissingFile(t *testing.T) {
	if _, err := LoadOptions(filepath.Join(t.TempDir(), "absent.ini"), DefaultOptions()); err == nil {
		t.Fatal("missing config file accepted")
	}
}

func TestLoadOptionsBadPrimes(t *testing.T) {
	path := writeConfig(t, "[search]\nPrimes = twelve\n")
	if _, err := LoadOptions(path, DefaultOptions()); err == nil {
		t.Fatal("unparsable primes accepted")
	}
}

func TestOptionsValidate(t *testing.T) {
	opts := DefaultOptions()
	if err := opts.Validate(); err == nil {
		t.Fatal("options without an output path accepted")
	}
	opts.Output = "results.txt"
	if err := opts.Validate(); err != nil {
		t.Fatal(err)
	}
	opts.Primes = nil
	if err := opts.Validate(); err == nil {
		t.Fatal("options without primes accepted")
	}
}
