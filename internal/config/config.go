// Package config handles TOML configuration parsing, validation, and
// hot-reload for radiusd.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the top-level configuration for radiusd.
type Config struct {
	Server     ServerConfig        `toml:"server"`
	RateLimit  RateLimitConfig     `toml:"rate_limit"`
	Clients    []ClientConfig      `toml:"client"`
	Proxy      []ProxyTargetConfig `toml:"proxy"`
	Accounting AccountingConfig    `toml:"accounting"`
	AuthFile   string              `toml:"auth_file"`
}

// ServerConfig holds core server settings: bind addresses for the
// three RADIUS sockets and the DHCP bridge socket, dispatch tunables,
// logging, and the PID file.
type ServerConfig struct {
	Interface      string `toml:"interface"`
	AuthAddress    string `toml:"auth_address"`
	AcctAddress    string `toml:"acct_address"`
	ProxyAddress   string `toml:"proxy_address"`
	DHCPAddress    string `toml:"dhcp_address"`
	LogLevel       string `toml:"log_level"`
	PIDFile        string `toml:"pid_file"`
	SpawnMode      bool   `toml:"spawn_mode"`
	MaxRequestTime string `toml:"max_request_time"`
	CleanupDelay   string `toml:"cleanup_delay"`
	MaxRequests    int    `toml:"max_requests"`
	StripRealm     bool   `toml:"strip_realm"`
	DisableNames   bool   `toml:"disable_names"`
}

// RateLimitConfig holds admission-time throttling settings.
type RateLimitConfig struct {
	Enabled            bool `toml:"enabled"`
	GlobalPerSecond    int  `toml:"global_per_second"`
	PerSourcePerSecond int  `toml:"per_source_per_second"`
}

// ClientConfig is one client registry entry: a bare IP or CIDR key,
// its shared secret, display name, and auth policy.
type ClientConfig struct {
	Key         string `toml:"key"`
	Secret      string `toml:"secret"`
	DisplayName string `toml:"display_name"`
	AuthPolicy  string `toml:"auth_policy"` // "accept", "reject", "proxy-only"
}

// ProxyTargetConfig configures an upstream RADIUS proxy target,
// matched to client registry entries by Key.
type ProxyTargetConfig struct {
	Key     string `toml:"key"`
	Address string `toml:"address"`
	Secret  string `toml:"secret"`
	Timeout string `toml:"timeout"`
	Retries int    `toml:"retries"`
}

// AccountingConfig configures the CSV accounting detail-log writer.
type AccountingConfig struct {
	DetailPath string `toml:"detail_path"`
}

// Load reads and parses a TOML config file, applies defaults, and
// validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills in default values for unset fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Interface == "" {
		cfg.Server.Interface = DefaultInterface
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = DefaultLogLevel
	}
	if cfg.Server.PIDFile == "" {
		cfg.Server.PIDFile = DefaultPIDFile
	}
	if cfg.Server.MaxRequestTime == "" {
		cfg.Server.MaxRequestTime = DefaultMaxRequestTime.String()
	}
	if cfg.Server.CleanupDelay == "" {
		cfg.Server.CleanupDelay = DefaultCleanupDelay.String()
	}
	if cfg.Server.MaxRequests == 0 {
		cfg.Server.MaxRequests = DefaultMaxRequests
	}
	if cfg.RateLimit.GlobalPerSecond == 0 {
		cfg.RateLimit.GlobalPerSecond = DefaultRateLimitGlobal
	}
	if cfg.RateLimit.PerSourcePerSecond == 0 {
		cfg.RateLimit.PerSourcePerSecond = DefaultRateLimitPerSource
	}
	if cfg.Accounting.DetailPath == "" {
		cfg.Accounting.DetailPath = DefaultAccountingDetailPath
	}
}

// validate checks the configuration for errors.
func validate(cfg *Config) error {
	if cfg.Server.AuthAddress == "" && cfg.Server.AcctAddress == "" &&
		cfg.Server.ProxyAddress == "" && cfg.Server.DHCPAddress == "" {
		return fmt.Errorf("server: at least one of auth_address, acct_address, proxy_address, dhcp_address is required")
	}

	if _, err := time.ParseDuration(cfg.Server.MaxRequestTime); err != nil {
		return fmt.Errorf("server.max_request_time: %w", err)
	}
	if _, err := time.ParseDuration(cfg.Server.CleanupDelay); err != nil {
		return fmt.Errorf("server.cleanup_delay: %w", err)
	}
	if cfg.Server.MaxRequests <= 0 {
		return fmt.Errorf("server.max_requests must be positive, got %d", cfg.Server.MaxRequests)
	}

	seen := make(map[string]bool)
	for i, c := range cfg.Clients {
		if c.Key == "" {
			return fmt.Errorf("client[%d]: key is required", i)
		}
		if seen[c.Key] {
			return fmt.Errorf("client[%d]: duplicate key %q", i, c.Key)
		}
		seen[c.Key] = true
		if _, _, err := parseClientKey(c.Key); err != nil {
			return fmt.Errorf("client[%d]: invalid key %q: %w", i, c.Key, err)
		}
		if c.Secret == "" && c.AuthPolicy != "reject" {
			return fmt.Errorf("client[%d] (%s): secret is required unless auth_policy is \"reject\"", i, c.Key)
		}
		switch c.AuthPolicy {
		case "", "accept", "reject", "proxy-only":
		default:
			return fmt.Errorf("client[%d] (%s): auth_policy must be accept, reject, or proxy-only, got %q", i, c.Key, c.AuthPolicy)
		}
	}

	for i, p := range cfg.Proxy {
		if p.Address == "" {
			return fmt.Errorf("proxy[%d]: address is required", i)
		}
		if p.Timeout != "" {
			if _, err := time.ParseDuration(p.Timeout); err != nil {
				return fmt.Errorf("proxy[%d].timeout: %w", i, err)
			}
		}
	}

	return nil
}

// parseClientKey validates a client registry key the same way
// internal/clients.parseKey accepts it (bare IP or CIDR).
func parseClientKey(key string) (net.IP, *net.IPNet, error) {
	if ip, ipnet, err := net.ParseCIDR(key); err == nil {
		return ip, ipnet, nil
	}
	ip := net.ParseIP(key)
	if ip == nil {
		return nil, nil, fmt.Errorf("not an IP address or CIDR")
	}
	return ip, nil, nil
}

// MaxRequestTimeDuration parses Server.MaxRequestTime, falling back to
// the default on error (already validated by Load in practice).
func (cfg *Config) MaxRequestTimeDuration() time.Duration {
	d, err := time.ParseDuration(cfg.Server.MaxRequestTime)
	if err != nil {
		return DefaultMaxRequestTime
	}
	return d
}

// CleanupDelayDuration parses Server.CleanupDelay, falling back to the
// default on error.
func (cfg *Config) CleanupDelayDuration() time.Duration {
	d, err := time.ParseDuration(cfg.Server.CleanupDelay)
	if err != nil {
		return DefaultCleanupDelay
	}
	return d
}
