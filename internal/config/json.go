package config

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/kornilov-ux/MyMessenger/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "10s"
// or as integer nanoseconds. After parsing, values are copied into the
// runtime Config.
type JsonConfig struct {
	StoreEndpointURL  string         `json:"store_endpoint_url"`
	AuthSecret        string         `json:"auth_secret"`
	TokenTTL          timex.Duration `json:"token_ttl"`
	RequestTimeout    timex.Duration `json:"request_timeout"`
	ObserveBackoffMin timex.Duration `json:"observe_backoff_min"`
	ObserveBackoffMax timex.Duration `json:"observe_backoff_max"`
	Email             string         `json:"email"`
	DisplayName       string         `json:"display_name"`
}

// configFilePath extracts the config file path given via -c or -config.
// Only these flags are inspected; everything else is left for parseFlags.
func configFilePath(args []string) string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, hasValue := strings.Cut(arg, "=")
		if name != "-c" && name != "-config" && name != "--config" {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// parseJson overlays cfg with values loaded from the JSON file named by the
// -c/-config flag. If no file is named, nothing happens. Read and unmarshal
// errors panic; intended usage is defaults -> parseJson -> parseFlags.
func parseJson(cfg *Config) {
	jsonConfigFile := configFilePath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.StoreEndpointURL != "" {
		cfg.StoreEndpointURL = jc.StoreEndpointURL
	}
	if jc.AuthSecret != "" {
		cfg.AuthSecret = jc.AuthSecret
	}
	if jc.TokenTTL.Duration != 0 {
		cfg.TokenTTL = jc.TokenTTL.Duration
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.ObserveBackoffMin.Duration != 0 {
		cfg.ObserveBackoffMin = jc.ObserveBackoffMin.Duration
	}
	if jc.ObserveBackoffMax.Duration != 0 {
		cfg.ObserveBackoffMax = jc.ObserveBackoffMax.Duration
	}
	if jc.Email != "" {
		cfg.Email = jc.Email
	}
	if jc.DisplayName != "" {
		cfg.DisplayName = jc.DisplayName
	}
}
