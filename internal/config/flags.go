package config

import (
	"flag"
	"os"
	"time"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the realtime store (default from Config)
//	-e string   current user's email address
//	-n string   current user's display name
//	-t int      store request timeout in seconds (default from Config)
//	-c string   path to a JSON config file (consumed by parseJson)
func parseFlags(cfg *Config) {
	fs := flag.NewFlagSet("messenger", flag.ContinueOnError)

	fs.StringVar(&cfg.StoreEndpointURL, "a", cfg.StoreEndpointURL, "base URL of the realtime store")
	fs.StringVar(&cfg.Email, "e", cfg.Email, "current user's email address")
	fs.StringVar(&cfg.DisplayName, "n", cfg.DisplayName, "current user's display name")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "store request timeout (in seconds)")

	// Registered here so parse does not reject them; the value is read by
	// configFilePath before flag parsing runs.
	var configFile string
	fs.StringVar(&configFile, "config", "", "path to config file")
	fs.StringVar(&configFile, "c", "", "path to config file (short)")

	if err := fs.Parse(os.Args[1:]); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
}
