package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
[server]
interface = "eth0"
auth_address = "0.0.0.0:1812"
acct_address = "0.0.0.0:1813"
log_level = "info"
max_request_time = "10s"
cleanup_delay = "2s"
max_requests = 1024

[[client]]
key = "10.0.0.1"
secret = "testing123"
display_name = "nas1"

[[client]]
key = "10.0.1.0/24"
secret = "testing456"
auth_policy = "proxy-only"
`

func TestLoadMinimalConfig(t *testing.T) {
	path := writeTestConfig(t, minimalConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Interface != "eth0" {
		t.Errorf("Interface = %q, want %q", cfg.Server.Interface, "eth0")
	}
	if cfg.Server.AuthAddress != "0.0.0.0:1812" {
		t.Errorf("AuthAddress = %q, want %q", cfg.Server.AuthAddress, "0.0.0.0:1812")
	}
	if len(cfg.Clients) != 2 {
		t.Fatalf("Clients = %d, want 2", len(cfg.Clients))
	}
	if cfg.Clients[0].Key != "10.0.0.1" {
		t.Errorf("Clients[0].Key = %q, want %q", cfg.Clients[0].Key, "10.0.0.1")
	}
	if cfg.Clients[1].AuthPolicy != "proxy-only" {
		t.Errorf("Clients[1].AuthPolicy = %q, want %q", cfg.Clients[1].AuthPolicy, "proxy-only")
	}
}

func TestLoadConfigFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path.toml")
	if err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	path := writeTestConfig(t, "this is not valid toml {{{{")
	_, err := Load(path)
	if err == nil {
		t.Error("expected error for invalid TOML")
	}
}

func TestLoadAppliesDefaultsAndValidates(t *testing.T) {
	path := writeTestConfig(t, `
[server]
dhcp_address = "0.0.0.0:67"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.MaxRequests != DefaultMaxRequests {
		t.Errorf("MaxRequests = %d, want default %d", cfg.Server.MaxRequests, DefaultMaxRequests)
	}
	if cfg.Accounting.DetailPath != DefaultAccountingDetailPath {
		t.Errorf("DetailPath = %q, want default %q", cfg.Accounting.DetailPath, DefaultAccountingDetailPath)
	}
}

func TestValidateRequiresAtLeastOneSocket(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	if err := validate(cfg); err == nil {
		t.Error("expected error when no socket address is configured")
	}
}

func TestValidateRejectsBadClientKey(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{AuthAddress: "0.0.0.0:1812"},
		Clients: []ClientConfig{
			{Key: "not-an-ip", Secret: "x"},
		},
	}
	applyDefaults(cfg)
	if err := validate(cfg); err == nil {
		t.Error("expected error for invalid client key")
	}
}

func TestValidateRejectsDuplicateClientKey(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{AuthAddress: "0.0.0.0:1812"},
		Clients: []ClientConfig{
			{Key: "10.0.0.1", Secret: "a"},
			{Key: "10.0.0.1", Secret: "b"},
		},
	}
	applyDefaults(cfg)
	if err := validate(cfg); err == nil {
		t.Error("expected error for duplicate client key")
	}
}

func TestValidateRejectsMissingSecretUnlessReject(t *testing.T) {
	cfg := &Config{
		Server:  ServerConfig{AuthAddress: "0.0.0.0:1812"},
		Clients: []ClientConfig{{Key: "10.0.0.1"}},
	}
	applyDefaults(cfg)
	if err := validate(cfg); err == nil {
		t.Error("expected error for missing secret without reject policy")
	}

	cfg.Clients[0].AuthPolicy = "reject"
	if err := validate(cfg); err != nil {
		t.Errorf("reject policy should not require a secret: %v", err)
	}
}

func TestValidateBadMaxRequestTime(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			AuthAddress:    "0.0.0.0:1812",
			MaxRequestTime: "not-a-duration",
			CleanupDelay:   "2s",
			MaxRequests:    10,
		},
	}
	if err := validate(cfg); err == nil {
		t.Error("expected error for invalid max_request_time")
	}
}

func TestDurationAccessorsFallBackOnError(t *testing.T) {
	cfg := &Config{Server: ServerConfig{MaxRequestTime: "garbage", CleanupDelay: "garbage"}}
	if d := cfg.MaxRequestTimeDuration(); d != DefaultMaxRequestTime {
		t.Errorf("MaxRequestTimeDuration() = %v, want default %v", d, DefaultMaxRequestTime)
	}
	if d := cfg.CleanupDelayDuration(); d != DefaultCleanupDelay {
		t.Errorf("CleanupDelayDuration() = %v, want default %v", d, DefaultCleanupDelay)
	}

	cfg2 := &Config{Server: ServerConfig{MaxRequestTime: "15s", CleanupDelay: "3s"}}
	if d := cfg2.MaxRequestTimeDuration(); d != 15*time.Second {
		t.Errorf("MaxRequestTimeDuration() = %v, want 15s", d)
	}
	if d := cfg2.CleanupDelayDuration(); d != 3*time.Second {
		t.Errorf("CleanupDelayDuration() = %v, want 3s", d)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	if cfg.Server.LogLevel != "info" {
		t.Errorf("default LogLevel = %q, want %q", cfg.Server.LogLevel, "info")
	}
	if cfg.Server.MaxRequests != DefaultMaxRequests {
		t.Errorf("default MaxRequests = %d, want %d", cfg.Server.MaxRequests, DefaultMaxRequests)
	}
	if cfg.RateLimit.GlobalPerSecond != DefaultRateLimitGlobal {
		t.Errorf("default RateLimit.GlobalPerSecond = %d, want %d", cfg.RateLimit.GlobalPerSecond, DefaultRateLimitGlobal)
	}
}
