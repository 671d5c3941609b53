package config

import (
	"flag"
	"strings"
)

var (
	flagConfig  = flag.String("config", "", "Path to config file")
	flagDebug   = flag.Bool("debug", false, "Enable debug logging")
	flagData    = flag.String("data", "", "Base directory for model paths")
	flagArchive = flag.String("archive", "", "Comma-separated GRF archives to search")
	flagSize    = flag.Int("size", 0, "Preview size in pixels")
	flagFormat  = flag.String("format", "", "Preview format (webp, png)")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the arguments left after flag parsing.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagData != "" {
		cfg.Data.RootDir = *flagData
	}
	if *flagArchive != "" {
		for _, a := range strings.Split(*flagArchive, ",") {
			if a = strings.TrimSpace(a); a != "" {
				cfg.Data.Archives = append(cfg.Data.Archives, a)
			}
		}
	}
	if *flagSize > 0 {
		cfg.Preview.Size = *flagSize
	}
	if *flagFormat != "" {
		cfg.Preview.Format = *flagFormat
	}
}
