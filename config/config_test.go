package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeTempConfig writes content to a config file inside a temp dir and
// returns its path.
func writeTempConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	path := writeTempConfig(t, "config.yml", "app:\n  name: TestGate\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.App.Name != "TestGate" {
		t.Errorf("unexpected name: %s", cfg.App.Name)
	}
	if cfg.Market.CandleLimit != 96 || cfg.Market.OILimit != 6 {
		t.Errorf("unexpected market defaults: %+v", cfg.Market)
	}
	if cfg.Market.OITTL != 300*time.Second || cfg.Market.CandlesTTL != 60*time.Second {
		t.Errorf("unexpected ttl defaults: %+v", cfg.Market)
	}
	if cfg.Journal.MaxLag != 30*time.Minute {
		t.Errorf("unexpected max lag: %s", cfg.Journal.MaxLag)
	}
	if cfg.Classifier.Thresholds.RVolExpanding != 1.2 || cfg.Classifier.Thresholds.RVAbove != 1.3 {
		t.Errorf("unexpected thresholds: %+v", cfg.Classifier.Thresholds)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "")
	content := `classifier:
  oi_policy: inert_fallback
  thresholds:
    rvol_expanding: 1.5
    rvol_compressed: 0.7
    rv_above: 1.4
    rv_below: 0.6
market:
  oi_ttl: 2m
journal:
  max_lag: 45m
`
	cfg, err := LoadConfig(writeTempConfig(t, "config.yml", content))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Classifier.OIPolicy != "inert_fallback" {
		t.Errorf("oi policy = %s", cfg.Classifier.OIPolicy)
	}
	if cfg.Classifier.Thresholds.RVolExpanding != 1.5 {
		t.Errorf("rvol_expanding = %v", cfg.Classifier.Thresholds.RVolExpanding)
	}
	if cfg.Market.OITTL != 2*time.Minute {
		t.Errorf("oi ttl = %s", cfg.Market.OITTL)
	}
	if cfg.Journal.MaxLag != 45*time.Minute {
		t.Errorf("max lag = %s", cfg.Journal.MaxLag)
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	t.Setenv("APP_ENV", "")
	cases := map[string]string{
		"policy":   "classifier:\n  oi_policy: guess\n",
		"timezone": "app:\n  timezone: Mars/Olympus\n",
		"bias":     "trade:\n  min_bias_score: 7\n",
		"leverage": "trade:\n  leverage: 0\n",
		"rvol":     "classifier:\n  thresholds:\n    rvol_compressed: 1.5\n",
		"s3":       "storage:\n  s3:\n    enabled: true\n    region: eu-west-1\n    bucket: Bad_Bucket\n",
	}
	for name, content := range cases {
		if _, err := LoadConfig(writeTempConfig(t, "config.yml", content)); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("CONTEXTGATE_PIN", " 1234 ")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Parse([]byte("app:\n  name: x\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Dashboard.PIN != "1234" {
		t.Errorf("pin = %q", cfg.Dashboard.PIN)
	}
	if cfg.Cache.Redis.Addr != "localhost:6379" {
		t.Errorf("redis addr = %q", cfg.Cache.Redis.Addr)
	}
}

func TestResolvePathPrefersEnvironmentFile(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "config.yml")
	prod := filepath.Join(dir, "config.production.yml")
	for _, p := range []string{base, prod} {
		if err := os.WriteFile(p, []byte("app:\n  name: x\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	t.Setenv("APP_ENV", "prod")
	if got := ResolvePath(base); got != prod {
		t.Errorf("ResolvePath = %s, want %s", got, prod)
	}

	t.Setenv("APP_ENV", "staging")
	if got := ResolvePath(base); got != base {
		t.Errorf("ResolvePath without staging file = %s, want %s", got, base)
	}

	t.Setenv("APP_ENV", "")
	if got := AppEnvironment(); got != "development" {
		t.Errorf("AppEnvironment = %s", got)
	}
}

func TestShippedConfigIsValid(t *testing.T) {
	t.Setenv("APP_ENV", "")
	if _, err := LoadConfig("config.yml"); err != nil {
		t.Fatalf("config.yml does not load: %v", err)
	}
}
