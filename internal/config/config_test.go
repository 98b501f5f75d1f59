package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, name := range APIKeyEnvVars {
		t.Setenv(name, "")
	}
}

func TestLoadKeepsDefaultsForOmittedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
[server]
port = 9090

[gemini]
model = "gemini-2.0-flash"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Gemini.Model != "gemini-2.0-flash" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Gemini.Temperature != 0.3 || !cfg.Gemini.EnableSearch || cfg.History.Capacity != 5 {
		t.Fatalf("defaults lost: %+v", cfg.Gemini)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[gemini]\nmodle = \"typo\"\n")

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "gemini.modle") {
		t.Fatalf("Load() error = %v, want unknown key", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("Load() of a missing file succeeded")
	}
}

func TestLoadWithFallback(t *testing.T) {
	clearKeyEnv(t)

	t.Run("no file gives defaults", func(t *testing.T) {
		t.Chdir(t.TempDir())
		cfg, err := LoadWithFallback("")
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Server.Port != Default().Server.Port {
			t.Fatalf("Port = %d", cfg.Server.Port)
		}
	})

	t.Run("configs dir wins over root", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		writeFile(t, filepath.Join(dir, "configs", "config.toml"), "[server]\nport = 7001\n")
		writeFile(t, filepath.Join(dir, "config.toml"), "[server]\nport = 7002\n")

		cfg, err := LoadWithFallback("")
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Server.Port != 7001 {
			t.Fatalf("Port = %d, want 7001", cfg.Server.Port)
		}
	})

	t.Run("explicit path must exist", func(t *testing.T) {
		t.Chdir(t.TempDir())
		if _, err := LoadWithFallback("missing.toml"); err == nil {
			t.Fatal("expected error for a missing explicit path")
		}
	})
}

func TestAPIKeyResolution(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		gemini string
		apiKey string
		want   string
	}{
		{name: "none", want: ""},
		{name: "config only", file: "from-file", want: "from-file"},
		{name: "API_KEY over config", file: "from-file", apiKey: "from-api-key", want: "from-api-key"},
		{name: "GEMINI_API_KEY first", gemini: "from-gemini", apiKey: "from-api-key", want: "from-gemini"},
		{name: "blank env ignored", file: "from-file", gemini: "   ", want: "from-file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GEMINI_API_KEY", tt.gemini)
			t.Setenv("API_KEY", tt.apiKey)

			cfg := Default()
			cfg.Gemini.APIKey = tt.file
			cfg.ApplyEnv()
			if cfg.Gemini.APIKey != tt.want {
				t.Fatalf("APIKey = %q, want %q", cfg.Gemini.APIKey, tt.want)
			}
		})
	}
}

func TestDotEnv(t *testing.T) {
	clearKeyEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	// godotenv does not override variables that are already set, and
	// clearKeyEnv sets them to empty, so unset first.
	os.Unsetenv("GEMINI_API_KEY")
	writeFile(t, filepath.Join(dir, ".env"), "GEMINI_API_KEY=from-dotenv\n")

	cfg, err := LoadWithFallback("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Gemini.APIKey != "from-dotenv" {
		t.Fatalf("APIKey = %q, want from-dotenv", cfg.Gemini.APIKey)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "invalid server port"},
		{name: "duplicate port", mutate: func(c *Config) { c.Server.AdditionalPorts = []int{8080} }, wantErr: "duplicate port"},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: "invalid log level"},
		{name: "temperature", mutate: func(c *Config) { c.Gemini.Temperature = 3 }, wantErr: "temperature"},
		{name: "capacity", mutate: func(c *Config) { c.History.Capacity = 0 }, wantErr: "history capacity"},
		{name: "cache path", mutate: func(c *Config) { c.Cache.Enabled = true; c.Cache.SQLitePath = "" }, wantErr: "sqlite_path"},
		{name: "locale", mutate: func(c *Config) { c.UI.DefaultLocale = "fr" }, wantErr: "default_locale"},
		{name: "static dir", mutate: func(c *Config) { c.UI.StaticFilesDir = "/does/not/exist" }, wantErr: "static files directory"},
		{name: "missing key is fine", mutate: func(c *Config) { c.Gemini.APIKey = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateFillsBlankDefaults(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = ""
	cfg.Gemini.Model = " "
	cfg.UI.DefaultLocale = ""
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Logging.Level != "info" || cfg.Gemini.Model != "gemini-2.5-flash" || cfg.UI.DefaultLocale != "en" {
		t.Fatalf("blank values not defaulted: %+v", cfg)
	}
}

func TestExampleConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "config.toml"))
	if err != nil {
		t.Fatalf("Load(example) error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate(example) error = %v", err)
	}
}
