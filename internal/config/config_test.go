package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func newTestViper(t *testing.T, args ...string) *viper.Viper {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)
	if err := flags.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	v := viper.New()
	if err := Bind(v, flags); err != nil {
		t.Fatalf("bind: %v", err)
	}
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newTestViper(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":8080" || cfg.Store != StorePostgres || cfg.RedisURL != "" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.LockTTL != 60*time.Second || cfg.LockWait != 10*time.Second {
		t.Fatalf("unexpected lock defaults: ttl=%v wait=%v", cfg.LockTTL, cfg.LockWait)
	}
	if !cfg.RateLimit || !cfg.BookingRateLimit || !cfg.MigrateOnStart {
		t.Fatalf("expected toggles on by default: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.CORSOrigins, []string{"http://localhost:5173", "http://127.0.0.1:5173"}) {
		t.Fatalf("unexpected cors origins: %v", cfg.CORSOrigins)
	}
}

func TestLoad_FlagsAndEnv(t *testing.T) {
	t.Setenv("BOOKING_REDIS_URL", "redis://cache:6379/0")
	t.Setenv("BOOKING_LOCK_WAIT", "250ms")
	t.Setenv("BOOKING_STORE", "postgres")

	cfg, err := Load(newTestViper(t, "--store=memory", "--listen=:9090", "--rate-limit=false"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store != StoreMemory || cfg.Listen != ":9090" || cfg.RateLimit {
		t.Fatalf("expected flags to apply: %+v", cfg)
	}
	if cfg.RedisURL != "redis://cache:6379/0" || cfg.LockWait != 250*time.Millisecond {
		t.Fatalf("expected env to apply: %+v", cfg)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "booking.yaml")
	if err := os.WriteFile(path, []byte("store: memory\nlock-ttl: 45s\nlog-format: console\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(newTestViper(t, "--config="+path))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store != StoreMemory || cfg.LockTTL != 45*time.Second || cfg.LogFormat != "console" {
		t.Fatalf("expected file values: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	cfg, err := Load(newTestViper(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	bad := cfg
	bad.Store = "sqlite"
	bad.LockTTL = 0
	bad.LogFormat = "xml"
	err = bad.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{`unknown store "sqlite"`, "lock-ttl must be positive", `unknown log format "xml"`} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestLoadDotEnv(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	env := "BOOKING_TEST_FROM_FILE=file\nBOOKING_TEST_PRESET=file\n"
	if err := os.WriteFile(filepath.Join(root, ".env"), []byte(env), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Chdir(nested)
	t.Setenv("BOOKING_TEST_PRESET", "env")
	t.Setenv("BOOKING_TEST_FROM_FILE", "")
	os.Unsetenv("BOOKING_TEST_FROM_FILE")

	path, err := LoadDotEnv()
	if err != nil {
		t.Fatalf("load dotenv: %v", err)
	}
	if path != filepath.Join(root, ".env") {
		t.Fatalf("expected %s, got %s", filepath.Join(root, ".env"), path)
	}
	if got := os.Getenv("BOOKING_TEST_FROM_FILE"); got != "file" {
		t.Fatalf("expected value from file, got %q", got)
	}
	if got := os.Getenv("BOOKING_TEST_PRESET"); got != "env" {
		t.Fatalf("expected existing env to win, got %q", got)
	}
}

func TestParseCSV(t *testing.T) {
	got := ParseCSV(" a, ,b ,")
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("unexpected result %v", got)
	}
	if ParseCSV("") != nil {
		t.Fatalf("expected nil for empty input")
	}
}
