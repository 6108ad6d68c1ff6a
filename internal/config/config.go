// Package config holds runtime settings for the messenger client and loads
// them from defaults, an optional JSON file and command-line flags, in that
// order; later sources override earlier ones.
package config

import "time"

// Config holds runtime settings for the messenger client.
//
// Fields:
//   - StoreEndpointURL: base URL of the realtime document store.
//   - AuthSecret: shared secret the store-auth tokens are signed with. May be
//     left empty and entered interactively.
//   - TokenTTL: lifetime of a minted store-auth token.
//   - RequestTimeout: per-request deadline for store reads and writes.
//   - ObserveBackoffMin/Max: reconnect backoff bounds for live subscriptions.
//   - Email, DisplayName: the current user, as supplied by the identity
//     collaborator.
type Config struct {
	StoreEndpointURL  string
	AuthSecret        string
	TokenTTL          time.Duration
	RequestTimeout    time.Duration
	ObserveBackoffMin time.Duration
	ObserveBackoffMax time.Duration
	Email             string
	DisplayName       string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.StoreEndpointURL = "http://127.0.0.1:9000"
	c.TokenTTL = time.Hour
	c.RequestTimeout = 10 * time.Second
	c.ObserveBackoffMin = time.Second
	c.ObserveBackoffMax = 30 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
