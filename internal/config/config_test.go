package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend != "mock" || cfg.ChainID != 31337 || cfg.ProofTTL != time.Hour {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	key, err := cfg.InputSigner()
	if err != nil {
		t.Fatalf("signer key: %v", err)
	}
	if key == nil {
		t.Fatalf("expected a key")
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(file, []byte("chain-id: 7\nlisten: \":9000\"\naddress: 0x01,0x02\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("HIDDENLIQ_LISTEN", ":9100")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Duration("proof-ttl", time.Minute, "")
	if err := flags.Parse([]string{"--proof-ttl=2m"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(file, flags)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ChainID != 7 {
		t.Fatalf("chain id from file: got %d", cfg.ChainID)
	}
	if cfg.Listen != ":9100" {
		t.Fatalf("env should override file: got %s", cfg.Listen)
	}
	if cfg.ProofTTL != 2*time.Minute {
		t.Fatalf("flag should apply: got %s", cfg.ProofTTL)
	}
	if len(cfg.Addresses) != 2 {
		t.Fatalf("addresses: got %v", cfg.Addresses)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HIDDENLIQ_BACKEND", "paillier")
	if _, err := Load("", nil); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestParseTimestamp(t *testing.T) {
	cases := map[string]uint64{
		"":                     0,
		"1700000000":           1700000000,
		"1970-01-01T00:01:00Z": 60,
	}
	for input, want := range cases {
		got, err := ParseTimestamp(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("parse %q: got %d want %d", input, got, want)
		}
	}
	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Fatalf("expected error")
	}
}
