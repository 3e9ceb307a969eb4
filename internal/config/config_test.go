package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Check default values
	assert.Equal(t, "https://api.inkwell.app", cfg.BaseURL)
	assert.Equal(t, 2000, cfg.DebounceMS)
	assert.Equal(t, 2000, cfg.SavedDecayMS)
	assert.True(t, cfg.OfflineEnabled)
	assert.Equal(t, 30, cfg.ProbeIntervalS)
	assert.True(t, cfg.CacheEnabled)
	assert.Equal(t, "auto", cfg.Format)
	assert.Equal(t, "auto", cfg.Color)
	assert.NotNil(t, cfg.Sources)
}

func TestLoadFromFile(t *testing.T) {
	// Create temp directory
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	// Write test config
	testConfig := map[string]any{
		"base_url":         "http://test.example.com",
		"account":          "12345",
		"editor":           "nvim",
		"debounce_ms":      500,
		"saved_decay_ms":   1000,
		"drafts_dir":       "/tmp/drafts",
		"offline_enabled":  false,
		"probe_interval_s": 10,
		"cache_dir":        "/tmp/cache",
		"cache_enabled":    false,
		"format":           "json",
	}
	data, err := json.Marshal(testConfig)
	require.NoError(t, err)
	err = os.WriteFile(configPath, data, 0644)
	require.NoError(t, err)

	cfg := Default()
	loadFromFile(cfg, configPath, SourceGlobal)

	// Verify values loaded
	assert.Equal(t, "http://test.example.com", cfg.BaseURL)
	assert.Equal(t, "12345", cfg.Account)
	assert.Equal(t, "nvim", cfg.Editor)
	assert.Equal(t, 500, cfg.DebounceMS)
	assert.Equal(t, 1000, cfg.SavedDecayMS)
	assert.Equal(t, "/tmp/drafts", cfg.DraftsDir)
	assert.False(t, cfg.OfflineEnabled)
	assert.Equal(t, 10, cfg.ProbeIntervalS)
	assert.Equal(t, "/tmp/cache", cfg.CacheDir)
	assert.False(t, cfg.CacheEnabled)
	assert.Equal(t, "json", cfg.Format)

	// Verify source tracking
	assert.Equal(t, "global", cfg.Sources["base_url"])
	assert.Equal(t, "global", cfg.Sources["account"])
	assert.Equal(t, "global", cfg.Sources["debounce_ms"])
}

func TestLoadFromFileSkipsInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	// Write invalid JSON
	err := os.WriteFile(configPath, []byte("not valid json"), 0644)
	require.NoError(t, err)

	cfg := Default()
	loadFromFile(cfg, configPath, SourceGlobal)

	// Should still have defaults
	assert.Equal(t, "https://api.inkwell.app", cfg.BaseURL)
}

func TestLoadFromFileSkipsMissingFile(t *testing.T) {
	cfg := Default()
	loadFromFile(cfg, "/nonexistent/path/config.json", SourceGlobal)

	// Should still have defaults
	assert.Equal(t, "https://api.inkwell.app", cfg.BaseURL)
}

func TestLoadFromEnv(t *testing.T) {
	// Save and clear env vars
	originalEnvVars := map[string]string{
		"INKWELL_BASE_URL":      os.Getenv("INKWELL_BASE_URL"),
		"INKWELL_ACCOUNT":       os.Getenv("INKWELL_ACCOUNT"),
		"INKWELL_EDITOR":        os.Getenv("INKWELL_EDITOR"),
		"INKWELL_DEBOUNCE_MS":   os.Getenv("INKWELL_DEBOUNCE_MS"),
		"INKWELL_DRAFTS_DIR":    os.Getenv("INKWELL_DRAFTS_DIR"),
		"INKWELL_OFFLINE":       os.Getenv("INKWELL_OFFLINE"),
		"INKWELL_CACHE_DIR":     os.Getenv("INKWELL_CACHE_DIR"),
		"INKWELL_CACHE_ENABLED": os.Getenv("INKWELL_CACHE_ENABLED"),
	}
	defer func() {
		for k, v := range originalEnvVars {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	// Clear all relevant env vars first
	for k := range originalEnvVars {
		os.Unsetenv(k)
	}

	// Set test values
	os.Setenv("INKWELL_BASE_URL", "http://env.example.com")
	os.Setenv("INKWELL_ACCOUNT", "env-account")
	os.Setenv("INKWELL_EDITOR", "hx")
	os.Setenv("INKWELL_DEBOUNCE_MS", "750")
	os.Setenv("INKWELL_DRAFTS_DIR", "/env/drafts")
	os.Setenv("INKWELL_OFFLINE", "false")
	os.Setenv("INKWELL_CACHE_DIR", "/env/cache")
	os.Setenv("INKWELL_CACHE_ENABLED", "false")

	cfg := Default()
	LoadFromEnv(cfg)

	// Verify values loaded
	assert.Equal(t, "http://env.example.com", cfg.BaseURL)
	assert.Equal(t, "env-account", cfg.Account)
	assert.Equal(t, "hx", cfg.Editor)
	assert.Equal(t, 750, cfg.DebounceMS)
	assert.Equal(t, "/env/drafts", cfg.DraftsDir)
	assert.False(t, cfg.OfflineEnabled)
	assert.Equal(t, "/env/cache", cfg.CacheDir)
	assert.False(t, cfg.CacheEnabled)

	// Verify source tracking
	assert.Equal(t, "env", cfg.Sources["base_url"])
	assert.Equal(t, "env", cfg.Sources["offline_enabled"])
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	cfg.Account = "from-file"
	cfg.Sources["account"] = "global"

	overrides := FlagOverrides{
		Account:   "from-flag",
		BaseURL:   "http://flag.example.com",
		CacheDir:  "/flag/cache",
		DraftsDir: "/flag/drafts",
		Format:    "json",
	}

	ApplyOverrides(cfg, overrides)

	assert.Equal(t, "from-flag", cfg.Account)
	assert.Equal(t, "http://flag.example.com", cfg.BaseURL)
	assert.Equal(t, "/flag/cache", cfg.CacheDir)
	assert.Equal(t, "/flag/drafts", cfg.DraftsDir)
	assert.Equal(t, "json", cfg.Format)

	// Verify source tracking
	assert.Equal(t, "flag", cfg.Sources["account"])
}

func TestApplyOverridesSkipsEmpty(t *testing.T) {
	cfg := Default()
	cfg.Account = "original"
	cfg.Sources["account"] = "global"

	overrides := FlagOverrides{
		Account: "", // empty should not override
	}

	ApplyOverrides(cfg, overrides)

	assert.Equal(t, "original", cfg.Account)
	assert.Equal(t, "global", cfg.Sources["account"])
}

func TestConfigLayering(t *testing.T) {
	// Create temp dirs for config files
	tmpDir := t.TempDir()

	// Create global config
	globalDir := filepath.Join(tmpDir, ".config", "inkwell")
	err := os.MkdirAll(globalDir, 0755)
	require.NoError(t, err)
	globalConfig := map[string]any{
		"editor":      "global-editor",
		"debounce_ms": 900,
	}
	data, err := json.Marshal(globalConfig)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(globalDir, "config.json"), data, 0644)
	require.NoError(t, err)

	// Create local config with different values
	localDir := filepath.Join(tmpDir, "project", ".inkwell")
	err = os.MkdirAll(localDir, 0755)
	require.NoError(t, err)
	localConfig := map[string]any{
		"debounce_ms": 300, // overrides global
	}
	data, err = json.Marshal(localConfig)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(localDir, "config.json"), data, 0644)
	require.NoError(t, err)

	cfg := Default()

	// Load in order: global then local (local wins)
	loadFromFile(cfg, filepath.Join(globalDir, "config.json"), SourceGlobal)
	loadFromFile(cfg, filepath.Join(localDir, "config.json"), SourceLocal)

	// editor from global (not in local)
	assert.Equal(t, "global-editor", cfg.Editor)

	// debounce_ms from local (overrides global)
	assert.Equal(t, 300, cfg.DebounceMS)

	// Source tracking
	assert.Equal(t, "global", cfg.Sources["editor"])
	assert.Equal(t, "local", cfg.Sources["debounce_ms"])
}

func TestFullLayeringPrecedence(t *testing.T) {
	// Test: flags > env > local > global > defaults

	originalEditor := os.Getenv("INKWELL_EDITOR")
	defer func() {
		if originalEditor == "" {
			os.Unsetenv("INKWELL_EDITOR")
		} else {
			os.Setenv("INKWELL_EDITOR", originalEditor)
		}
	}()

	// Create temp config files
	tmpDir := t.TempDir()
	globalConfig := filepath.Join(tmpDir, "global.json")
	localConfig := filepath.Join(tmpDir, "local.json")

	// Global: sets all 3 values
	data, err := json.Marshal(map[string]any{
		"format":      "global",
		"debounce_ms": 100,
		"editor":      "global",
	})
	require.NoError(t, err)
	err = os.WriteFile(globalConfig, data, 0644)
	require.NoError(t, err)

	// Local: sets debounce_ms and editor (overrides global)
	data, err = json.Marshal(map[string]any{
		"debounce_ms": 200,
		"editor":      "local",
	})
	require.NoError(t, err)
	err = os.WriteFile(localConfig, data, 0644)
	require.NoError(t, err)

	// Env: sets editor (overrides local)
	os.Setenv("INKWELL_EDITOR", "env")

	// Start with defaults
	cfg := Default()

	// Apply layers in order
	loadFromFile(cfg, globalConfig, SourceGlobal)
	loadFromFile(cfg, localConfig, SourceLocal)
	LoadFromEnv(cfg)
	ApplyOverrides(cfg, FlagOverrides{
		// No flag overrides
	})

	// format: only global sets it
	assert.Equal(t, "global", cfg.Format)

	// debounce_ms: local overrides global
	assert.Equal(t, 200, cfg.DebounceMS)

	// editor: env overrides local
	assert.Equal(t, "env", cfg.Editor)
}

func TestAuthorityKeysIgnoredFromLocalConfig(t *testing.T) {
	tmpDir := t.TempDir()
	localDir := filepath.Join(tmpDir, "clone", ".inkwell")
	require.NoError(t, os.MkdirAll(localDir, 0755))

	localPath := filepath.Join(localDir, "config.json")
	data, err := json.Marshal(map[string]any{
		"base_url": "http://evil.example.com",
		"account":  "attacker",
		"editor":   "vim",
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(localPath, data, 0644))

	cfg := Default()
	loadFromFile(cfg, localPath, SourceLocal)

	// Authority keys rejected, benign keys accepted
	assert.Equal(t, "https://api.inkwell.app", cfg.BaseURL)
	assert.Empty(t, cfg.Account)
	assert.Equal(t, "vim", cfg.Editor)
}

func TestAuthorityKeysHonoredFromTrustedDir(t *testing.T) {
	tmpDir := t.TempDir()
	localDir := filepath.Join(tmpDir, "work", ".inkwell")
	require.NoError(t, os.MkdirAll(localDir, 0755))

	localPath := filepath.Join(localDir, "config.json")
	data, err := json.Marshal(map[string]any{
		"base_url": "http://staging.example.com",
		"account":  "staging",
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(localPath, data, 0644))

	cfg := Default()
	cfg.TrustedDirs = []string{filepath.Join(tmpDir, "work")}
	loadFromFile(cfg, localPath, SourceLocal)

	assert.Equal(t, "http://staging.example.com", cfg.BaseURL)
	assert.Equal(t, "staging", cfg.Account)
	assert.Equal(t, "local", cfg.Sources["base_url"])
}

func TestTrustedDirsOnlyFromTrustedLayers(t *testing.T) {
	tmpDir := t.TempDir()
	localPath := filepath.Join(tmpDir, "config.json")

	// A local config must not be able to grant itself trust.
	data, err := json.Marshal(map[string]any{
		"trusted_dirs": []string{tmpDir},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(localPath, data, 0644))

	cfg := Default()
	loadFromFile(cfg, localPath, SourceLocal)
	assert.Empty(t, cfg.TrustedDirs)

	loadFromFile(cfg, localPath, SourceGlobal)
	assert.Equal(t, []string{tmpDir}, cfg.TrustedDirs)
}

func TestProfiles(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	testConfig := map[string]any{
		"default_profile": "work",
		"profiles": map[string]any{
			"work": map[string]any{
				"base_url": "https://api.inkwell.app",
				"account":  "acme",
			},
			"staging": map[string]any{
				"base_url": "https://staging.inkwell.app",
			},
			"broken": map[string]any{
				"account": "no-base-url",
			},
		},
	}
	data, _ := json.Marshal(testConfig)
	os.WriteFile(configPath, data, 0644)

	cfg := Default()
	loadFromFile(cfg, configPath, SourceGlobal)

	assert.Equal(t, "work", cfg.DefaultProfile)
	require.NotNil(t, cfg.Profiles)
	assert.Len(t, cfg.Profiles, 2, "profiles without base_url are skipped")

	work, ok := cfg.Profiles["work"]
	require.True(t, ok)
	assert.Equal(t, "https://api.inkwell.app", work.BaseURL)
	assert.Equal(t, "acme", work.Account)

	assert.Equal(t, "global", cfg.Sources["profiles"])
}

func TestApplyProfile(t *testing.T) {
	cfg := Default()
	cfg.Profiles = map[string]*ProfileConfig{
		"staging": {BaseURL: "https://staging.inkwell.app", Account: "acme-staging"},
	}

	require.NoError(t, cfg.ApplyProfile("staging"))
	assert.Equal(t, "staging", cfg.ActiveProfile)
	assert.Equal(t, "https://staging.inkwell.app", cfg.BaseURL)
	assert.Equal(t, "acme-staging", cfg.Account)
	assert.Equal(t, "profile", cfg.Sources["base_url"])

	err := cfg.ApplyProfile("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://example.com/", "https://example.com"},
		{"https://example.com", "https://example.com"},
		{"https://example.com//", "https://example.com/"},
		{"http://localhost:3000/", "http://localhost:3000"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := NormalizeBaseURL(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestGlobalConfigDir(t *testing.T) {
	// Save and restore XDG_CONFIG_HOME
	original := os.Getenv("XDG_CONFIG_HOME")
	defer func() {
		if original == "" {
			os.Unsetenv("XDG_CONFIG_HOME")
		} else {
			os.Setenv("XDG_CONFIG_HOME", original)
		}
	}()

	// Test with XDG_CONFIG_HOME set
	os.Setenv("XDG_CONFIG_HOME", "/custom/config")
	result := GlobalConfigDir()
	assert.Equal(t, "/custom/config/inkwell", result)

	// Test without XDG_CONFIG_HOME (falls back to ~/.config)
	os.Unsetenv("XDG_CONFIG_HOME")
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	expected := filepath.Join(home, ".config", "inkwell")
	result = GlobalConfigDir()
	assert.Equal(t, expected, result)
}

func TestOfflineEnvParsing(t *testing.T) {
	tests := []struct {
		envValue string
		expected bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"false", false},
		{"FALSE", false},
		{"0", false},
	}

	for _, tt := range tests {
		t.Run(tt.envValue, func(t *testing.T) {
			// Save and restore
			original := os.Getenv("INKWELL_OFFLINE")
			defer func() {
				if original == "" {
					os.Unsetenv("INKWELL_OFFLINE")
				} else {
					os.Setenv("INKWELL_OFFLINE", original)
				}
			}()

			os.Setenv("INKWELL_OFFLINE", tt.envValue)

			cfg := Default()
			cfg.OfflineEnabled = !tt.expected
			LoadFromEnv(cfg)

			assert.Equal(t, tt.expected, cfg.OfflineEnabled)
		})
	}
}

func TestOfflineEnvUnrecognizedIgnored(t *testing.T) {
	original := os.Getenv("INKWELL_OFFLINE")
	defer func() {
		if original == "" {
			os.Unsetenv("INKWELL_OFFLINE")
		} else {
			os.Setenv("INKWELL_OFFLINE", original)
		}
	}()

	os.Setenv("INKWELL_OFFLINE", "maybe")

	cfg := Default()
	cfg.OfflineEnabled = true
	LoadFromEnv(cfg)

	assert.True(t, cfg.OfflineEnabled, "unrecognized value leaves the setting alone")
}

func TestLoadFromFilePartialConfig(t *testing.T) {
	// Test that partial configs don't reset other fields
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	// Config that only sets one field
	partialConfig := map[string]any{
		"editor": "only-editor",
	}
	data, err := json.Marshal(partialConfig)
	require.NoError(t, err)
	err = os.WriteFile(configPath, data, 0644)
	require.NoError(t, err)

	cfg := Default()
	cfg.Account = "pre-existing-account"
	cfg.Sources["account"] = "manual"

	loadFromFile(cfg, configPath, SourceGlobal)

	// editor should be set
	assert.Equal(t, "only-editor", cfg.Editor)

	// account should remain unchanged
	assert.Equal(t, "pre-existing-account", cfg.Account)

	// Source for account should remain unchanged
	assert.Equal(t, "manual", cfg.Sources["account"])
}

func TestLoadFromFileEmptyValues(t *testing.T) {
	// Empty string values should not override existing values
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	configWithEmpty := map[string]any{
		"account": "", // Empty
		"editor":  "real-value",
	}
	data, err := json.Marshal(configWithEmpty)
	require.NoError(t, err)
	err = os.WriteFile(configPath, data, 0644)
	require.NoError(t, err)

	cfg := Default()
	cfg.Account = "existing"
	cfg.Sources["account"] = "manual"

	loadFromFile(cfg, configPath, SourceGlobal)

	// account should remain unchanged (empty value doesn't override)
	assert.Equal(t, "existing", cfg.Account)

	// editor should be set
	assert.Equal(t, "real-value", cfg.Editor)
}

func TestDebounceRejectsNonPositive(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	data, err := json.Marshal(map[string]any{
		"debounce_ms":      0,
		"probe_interval_s": -5,
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configPath, data, 0644))

	cfg := Default()
	loadFromFile(cfg, configPath, SourceGlobal)

	assert.Equal(t, 2000, cfg.DebounceMS)
	assert.Equal(t, 30, cfg.ProbeIntervalS)
}
