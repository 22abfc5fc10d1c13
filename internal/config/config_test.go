// Package config provides configuration loading for the visonic-bridge daemon.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// resetLoadEnvOnce resets the sync.Once for testing purposes.
// This is necessary because loadDotEnv uses sync.Once which persists across tests.
func resetLoadEnvOnce() {
	loadEnvOnce = sync.Once{}
}

// clearEnvVars unsets all VB_* variables so tests start from a clean slate.
func clearEnvVars() {
	for _, key := range []string{"VB_PANEL_HOST", "VB_PANEL_PORT", "VB_PIN_REQUIRED", "VB_DB_PATH", "VB_LOG_LEVEL"} {
		os.Unsetenv(key)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name       string
		configFile string
		envVars    map[string]string
		wantErr    bool
		errContain string
	}{
		{
			name:    "defaults only",
			envVars: map[string]string{},
			wantErr: false,
		},
		{
			name: "valid config from env vars",
			envVars: map[string]string{
				"VB_PANEL_HOST": "panel.local",
				"VB_PANEL_PORT": "9000",
			},
			wantErr: false,
		},
		{
			name: "invalid port from env",
			envVars: map[string]string{
				"VB_PANEL_PORT": "99999",
			},
			wantErr:    true,
			errContain: "panel.port must be between 1 and 65535",
		},
		{
			name: "negative port from env",
			envVars: map[string]string{
				"VB_PANEL_PORT": "-1",
			},
			wantErr:    true,
			errContain: "panel.port must be between 1 and 65535",
		},
		{
			name:       "non-existent config file",
			configFile: "/non/existent/config.yaml",
			envVars:    map[string]string{},
			wantErr:    true,
			errContain: "reading config file",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			resetLoadEnvOnce()

			clearEnvVars()
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := Load(tt.configFile)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() error = nil, wantErr = true")
					return
				}
				if tt.errContain != "" && !strings.Contains(err.Error(), tt.errContain) {
					t.Errorf("Load() error = %v, want error containing %q", err, tt.errContain)
				}
				return
			}

			if err != nil {
				t.Errorf("Load() unexpected error = %v", err)
				return
			}
			if cfg == nil {
				t.Errorf("Load() returned nil config without error")
			}
		})
	}
}

func TestLoad_FromYAMLFile(t *testing.T) {
	resetLoadEnvOnce()
	clearEnvVars()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	yaml := `panel:
  host: alarm.example.net
  port: 8181
  pin_required: true
bridge:
  restore_entities: false
  optimistic_switches: false
database:
  path: /tmp/test-bridge.db
logging:
  level: DEBUG
options:
  pin_required: false
`
	if err := os.WriteFile(configPath, []byte(yaml), 0600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := &Config{
		Panel:    PanelConfig{Host: "alarm.example.net", Port: 8181, PinRequired: true},
		Bridge:   BridgeConfig{RestoreEntities: false, OptimisticSwitches: false},
		Database: DatabaseConfig{Path: "/tmp/test-bridge.db"},
		Logging:  LoggingConfig{Level: "DEBUG"},
		Options:  map[string]any{"pin_required": false},
	}

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	resetLoadEnvOnce()
	clearEnvVars()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	yaml := "panel:\n  host: from-file.local\n  port: 8082\n"
	if err := os.WriteFile(configPath, []byte(yaml), 0600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	t.Setenv("VB_PANEL_HOST", "from-env.local")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Panel.Host != "from-env.local" {
		t.Errorf("Panel.Host = %q, want env override %q", cfg.Panel.Host, "from-env.local")
	}
	if cfg.Panel.Port != 8082 {
		t.Errorf("Panel.Port = %d, want file value 8082", cfg.Panel.Port)
	}
}

func TestConfig_Data(t *testing.T) {
	t.Parallel()

	cfg := &Config{Panel: PanelConfig{Host: "panel.local", Port: 8082, PinRequired: true}}

	tests := []struct {
		key    string
		want   any
		wantOK bool
	}{
		{key: "host", want: "panel.local", wantOK: true},
		{key: "port", want: 8082, wantOK: true},
		{key: "pin_required", want: true, wantOK: true},
		{key: "missing", want: nil, wantOK: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()

			got, ok := cfg.Data(tt.key)
			if ok != tt.wantOK {
				t.Errorf("Data(%q) ok = %v, want %v", tt.key, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Data(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestConfig_Option(t *testing.T) {
	t.Parallel()

	cfg := &Config{Options: map[string]any{"pin_required": false}}

	if got, ok := cfg.Option("pin_required"); !ok || got != false {
		t.Errorf("Option(pin_required) = %v, %v; want false, true", got, ok)
	}
	if _, ok := cfg.Option("missing"); ok {
		t.Error("Option(missing) ok = true, want false")
	}

	empty := &Config{}
	if _, ok := empty.Option("pin_required"); ok {
		t.Error("Option() on nil Options map ok = true, want false")
	}
}

func TestLoadForDisplay_SkipsValidation(t *testing.T) {
	resetLoadEnvOnce()
	clearEnvVars()
	t.Setenv("VB_PANEL_PORT", "99999")

	cfg, err := LoadForDisplay("")
	if err != nil {
		t.Fatalf("LoadForDisplay() error = %v", err)
	}
	if cfg.Panel.Port != 99999 {
		t.Errorf("Panel.Port = %d, want 99999 (unvalidated)", cfg.Panel.Port)
	}
}
