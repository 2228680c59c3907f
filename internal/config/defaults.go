package config

import "time"

// Default configuration values.
const (
	DefaultInterface            = "eth0"
	DefaultLogLevel             = "info"
	DefaultPIDFile              = "/run/radiusd.pid"
	DefaultMaxRequestTime       = 30 * time.Second
	DefaultCleanupDelay         = 5 * time.Second
	DefaultMaxRequests          = 65536
	DefaultRateLimitGlobal      = 1000
	DefaultRateLimitPerSource   = 50
	DefaultAccountingDetailPath = "/var/log/radiusd/detail.csv"
)
