// Package config handles stltool configuration loading and management.
package config

// Config holds all tool settings.
type Config struct {
	Data    DataConfig    `yaml:"data"`
	Preview PreviewConfig `yaml:"preview"`
	Logging LoggingConfig `yaml:"logging"`
}

// DataConfig holds where model files are looked up.
type DataConfig struct {
	RootDir  string   `yaml:"root_dir"` // Base directory for relative model paths
	Archives []string `yaml:"archives"` // GRF archives, later entries win
}

// PreviewConfig holds thumbnail rendering settings.
type PreviewConfig struct {
	Size        int     `yaml:"size"`        // Output edge length in pixels
	Supersample int     `yaml:"supersample"` // Render scale factor before downsampling
	Format      string  `yaml:"format"`      // "webp" or "png"
	Yaw         float32 `yaml:"yaw"`         // Degrees around the up axis
	Pitch       float32 `yaml:"pitch"`       // Degrees above the horizon
	Color       string  `yaml:"color"`       // Model color, #RRGGBB
	Background  string  `yaml:"background"`  // Background, #RRGGBB or #RRGGBBAA
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			RootDir: "",
		},
		Preview: PreviewConfig{
			Size:        256,
			Supersample: 2,
			Format:      "webp",
			Yaw:         35,
			Pitch:       25,
			Color:       "#B0B8C8",
			Background:  "#00000000",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
