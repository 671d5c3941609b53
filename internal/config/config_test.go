package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Preview.Size != 256 {
		t.Errorf("expected preview size 256, got %d", cfg.Preview.Size)
	}
	if cfg.Preview.Supersample != 2 {
		t.Errorf("expected supersample 2, got %d", cfg.Preview.Supersample)
	}
	if cfg.Preview.Format != "webp" {
		t.Errorf("expected format webp, got %s", cfg.Preview.Format)
	}
	if cfg.Data.RootDir != "" {
		t.Errorf("expected empty root dir, got %s", cfg.Data.RootDir)
	}
	if len(cfg.Data.Archives) != 0 {
		t.Errorf("expected no archives, got %v", cfg.Data.Archives)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
data:
  root_dir: "/srv/models"
  archives:
    - base.grf
    - patch.grf

preview:
  size: 512
  supersample: 4
  format: png
  yaw: -45
  pitch: 10
  color: "#FF8800"

logging:
  level: "debug"
  log_file: "stltool.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Data.RootDir != "/srv/models" {
		t.Errorf("expected root dir /srv/models, got %s", cfg.Data.RootDir)
	}
	if len(cfg.Data.Archives) != 2 || cfg.Data.Archives[1] != "patch.grf" {
		t.Errorf("unexpected archives %v", cfg.Data.Archives)
	}
	if cfg.Preview.Size != 512 {
		t.Errorf("expected size 512, got %d", cfg.Preview.Size)
	}
	if cfg.Preview.Format != "png" {
		t.Errorf("expected format png, got %s", cfg.Preview.Format)
	}
	if cfg.Preview.Yaw != -45 {
		t.Errorf("expected yaw -45, got %f", cfg.Preview.Yaw)
	}
	if cfg.Preview.Color != "#FF8800" {
		t.Errorf("expected color #FF8800, got %s", cfg.Preview.Color)
	}
	// Not in the file, default survives
	if cfg.Preview.Background != "#00000000" {
		t.Errorf("expected default background, got %s", cfg.Preview.Background)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "stltool.log" {
		t.Errorf("expected log file 'stltool.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.yaml")

	invalidYAML := `
preview:
  size: not a number
  invalid syntax here
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if err := loadFromFile(Default(), configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if err := loadFromFile(Default(), "/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"png", func(c *Config) { c.Preview.Format = "png" }, false},
		{"zero size", func(c *Config) { c.Preview.Size = 0 }, true},
		{"no supersample", func(c *Config) { c.Preview.Supersample = 0 }, true},
		{"huge supersample", func(c *Config) { c.Preview.Supersample = 16 }, true},
		{"jpeg", func(c *Config) { c.Preview.Format = "jpeg" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, "stltool.yaml")
	if err := os.WriteFile(configPath, []byte("preview:\n  size: 64\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if path := findConfigFile(); path == "" {
		t.Error("expected to find stltool.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name:  "data flag",
			setup: func() { *flagData = "/data/models" },
			verify: func(cfg *Config) {
				if cfg.Data.RootDir != "/data/models" {
					t.Errorf("expected root dir /data/models, got %s", cfg.Data.RootDir)
				}
			},
			teardown: func() { *flagData = "" },
		},
		{
			name:  "archive flag",
			setup: func() { *flagArchive = "a.grf, b.grf,," },
			verify: func(cfg *Config) {
				if len(cfg.Data.Archives) != 2 || cfg.Data.Archives[0] != "a.grf" || cfg.Data.Archives[1] != "b.grf" {
					t.Errorf("unexpected archives %v", cfg.Data.Archives)
				}
			},
			teardown: func() { *flagArchive = "" },
		},
		{
			name: "preview flags",
			setup: func() {
				*flagSize = 1024
				*flagFormat = "png"
			},
			verify: func(cfg *Config) {
				if cfg.Preview.Size != 1024 {
					t.Errorf("expected size 1024, got %d", cfg.Preview.Size)
				}
				if cfg.Preview.Format != "png" {
					t.Errorf("expected format png, got %s", cfg.Preview.Format)
				}
			},
			teardown: func() {
				*flagSize = 0
				*flagFormat = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)
			tt.verify(cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	yamlContent := `
preview:
  size: 128
  format: png
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagSize = 300
	defer func() {
		*flagConfig = ""
		*flagSize = 0
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Preview.Size != 300 {
		t.Errorf("expected size 300 from flag, got %d", cfg.Preview.Size)
	}
	if cfg.Preview.Format != "png" {
		t.Errorf("expected format png from file, got %s", cfg.Preview.Format)
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Preview.Size = 96
	cfg.Data.Archives = []string{"x.grf"}
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if loaded.Preview.Size != 96 {
		t.Errorf("expected size 96, got %d", loaded.Preview.Size)
	}
	if len(loaded.Data.Archives) != 1 || loaded.Data.Archives[0] != "x.grf" {
		t.Errorf("unexpected archives %v", loaded.Data.Archives)
	}
}
