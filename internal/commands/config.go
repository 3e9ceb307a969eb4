package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inkwell/inkwell-cli/internal/appctx"
	"github.com/inkwell/inkwell-cli/internal/config"
	"github.com/inkwell/inkwell-cli/internal/output"
	"github.com/inkwell/inkwell-cli/internal/tui"
)

// configKeys maps every settable key to its value kind.
var configKeys = map[string]string{
	"base_url":         "string",
	"account":          "string",
	"editor":           "string",
	"debounce_ms":      "int",
	"saved_decay_ms":   "int",
	"drafts_dir":       "string",
	"offline_enabled":  "bool",
	"probe_interval_s": "int",
	"cache_dir":        "string",
	"cache_enabled":    "bool",
	"format":           "string",
	"color":            "string",
	"hints":            "bool",
	"stats":            "bool",
	"verbose":          "int",
	"default_profile":  "string",
}

// NewConfigCmd creates the config command for managing configuration.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage inkwell configuration.

Configuration is loaded from multiple sources with the following precedence:
  flags > env > local > repo > global > system > defaults

Config locations:
  - System: /etc/inkwell/config.json
  - Global: ~/.config/inkwell/config.json
  - Repo:   <git-root>/.inkwell/config.json
  - Local:  .inkwell/config.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigList(cmd, true)
		},
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
		newConfigUnsetCmd(),
	)

	return cmd
}

func newConfigListCmd() *cobra.Command {
	var showOrigin bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show effective configuration",
		Long:  "Display the current effective configuration, optionally with where each value came from.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigList(cmd, showOrigin)
		},
	}

	cmd.Flags().BoolVar(&showOrigin, "show-origin", false, "Show the source of each value")
	return cmd
}

func runConfigList(cmd *cobra.Command, showOrigin bool) error {
	app := appctx.FromContext(cmd.Context())

	configData := make(map[string]any)
	for key := range configKeys {
		value, ok := effectiveValue(app.Config, key)
		if !ok {
			continue
		}
		if showOrigin {
			source := app.Config.Sources[key]
			if source == "" {
				source = "default"
			}
			configData[key] = map[string]string{
				"value":  value,
				"source": source,
			}
		} else {
			configData[key] = value
		}
	}

	return app.OK(configData,
		output.WithSummary("Effective configuration"),
		output.WithBreadcrumbs(output.Breadcrumb{
			Action:      "set",
			Cmd:         "inkwell config set <key> <value>",
			Description: "Set a config value",
		}),
	)
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			return sortedConfigKeys(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			key := args[0]
			if _, ok := configKeys[key]; !ok {
				return unknownConfigKey(key)
			}

			value, _ := effectiveValue(app.Config, key)
			source := app.Config.Sources[key]
			if source == "" {
				source = "default"
			}

			return app.OK(map[string]any{
				"key":    key,
				"value":  value,
				"source": source,
			}, output.WithSummary(fmt.Sprintf("%s = %s (%s)", key, value, source)))
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long:  "Write a configuration value to the local (default) or global config file.",
		Args:  cobra.ExactArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return sortedConfigKeys(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			key, value := args[0], args[1]
			kind, ok := configKeys[key]
			if !ok {
				return unknownConfigKey(key)
			}

			// Without --global, ask interactively; scripts get local.
			if !cmd.Flags().Changed("global") && app.IsInteractive() {
				picked, err := tui.SelectScope()
				if err != nil {
					return err
				}
				global = picked == "global"
			}
			configPath, scope := configFilePath(global)

			if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
				return fmt.Errorf("failed to create config directory: %w", err)
			}

			configData := make(map[string]any)
			if data, err := os.ReadFile(configPath); err == nil { //nolint:gosec // G304: Path is from trusted config location
				_ = json.Unmarshal(data, &configData) // start fresh if invalid
			}

			if key == "default_profile" {
				profiles, _ := configData["profiles"].(map[string]any)
				if len(profiles) > 0 {
					if _, ok := profiles[value]; !ok {
						names := make([]string, 0, len(profiles))
						for name := range profiles {
							names = append(names, name)
						}
						sort.Strings(names)
						return output.ErrUsage(fmt.Sprintf("profile %q not found (available: %s)", value, strings.Join(names, ", ")))
					}
				}
			}

			valueOut := value
			switch kind {
			case "bool":
				boolVal, ok := parseBoolFlag(value)
				if !ok {
					return output.ErrUsage(fmt.Sprintf("%s must be true/false (or 1/0)", key))
				}
				configData[key] = boolVal
				valueOut = fmt.Sprintf("%t", boolVal)
			case "int":
				n, err := strconv.Atoi(value)
				if err != nil || n < 0 {
					return output.ErrUsage(fmt.Sprintf("%s must be a non-negative integer", key))
				}
				configData[key] = n
			default:
				configData[key] = value
			}

			data, err := json.MarshalIndent(configData, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			if err := atomicWriteFile(configPath, append(data, '\n')); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}

			return app.OK(map[string]any{
				"key":    key,
				"value":  valueOut,
				"scope":  scope,
				"path":   configPath,
				"status": "set",
			}, output.WithSummary(fmt.Sprintf("Set %s = %s (%s)", key, valueOut, scope)))
		},
	}

	cmd.Flags().BoolVar(&global, "global", false, "Set in global config (~/.config/inkwell/)")
	return cmd
}

func newConfigUnsetCmd() *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "unset <key>",
		Short: "Unset a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			key := args[0]
			configPath, scope := configFilePath(global)

			configData := make(map[string]any)
			data, err := os.ReadFile(configPath) //nolint:gosec // G304: Path is from trusted config location
			if err != nil {
				return app.OK(map[string]any{
					"key":    key,
					"status": "not_found",
				}, output.WithSummary(fmt.Sprintf("Config file not found: %s", configPath)))
			}
			_ = json.Unmarshal(data, &configData)

			if _, exists := configData[key]; !exists {
				return app.OK(map[string]any{
					"key":    key,
					"status": "not_set",
				}, output.WithSummary(fmt.Sprintf("Key not set: %s", key)))
			}

			delete(configData, key)

			out, err := json.MarshalIndent(configData, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			if err := atomicWriteFile(configPath, append(out, '\n')); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}

			return app.OK(map[string]any{
				"key":    key,
				"scope":  scope,
				"status": "unset",
			}, output.WithSummary(fmt.Sprintf("Unset %s (%s)", key, scope)))
		},
	}

	cmd.Flags().BoolVar(&global, "global", false, "Unset in global config (~/.config/inkwell/)")
	return cmd
}

func configFilePath(global bool) (path, scope string) {
	if global {
		return filepath.Join(config.GlobalConfigDir(), "config.json"), "global"
	}
	return filepath.Join(".inkwell", "config.json"), "local"
}

// effectiveValue renders the loaded value for key as a display string. The
// second return is false for unset optional values.
func effectiveValue(cfg *config.Config, key string) (string, bool) {
	switch key {
	case "base_url":
		return cfg.BaseURL, cfg.BaseURL != ""
	case "account":
		return cfg.Account, cfg.Account != ""
	case "editor":
		return cfg.Editor, cfg.Editor != ""
	case "debounce_ms":
		return strconv.Itoa(cfg.DebounceMS), true
	case "saved_decay_ms":
		return strconv.Itoa(cfg.SavedDecayMS), true
	case "drafts_dir":
		return cfg.DraftsDir, cfg.DraftsDir != ""
	case "offline_enabled":
		return fmt.Sprintf("%t", cfg.OfflineEnabled), true
	case "probe_interval_s":
		return strconv.Itoa(cfg.ProbeIntervalS), true
	case "cache_dir":
		return cfg.CacheDir, cfg.CacheDir != ""
	case "cache_enabled":
		return fmt.Sprintf("%t", cfg.CacheEnabled), true
	case "format":
		return cfg.Format, cfg.Format != ""
	case "color":
		return cfg.Color, cfg.Color != ""
	case "hints":
		if cfg.Hints == nil {
			return "", false
		}
		return fmt.Sprintf("%t", *cfg.Hints), true
	case "stats":
		if cfg.Stats == nil {
			return "", false
		}
		return fmt.Sprintf("%t", *cfg.Stats), true
	case "verbose":
		if cfg.Verbose == nil {
			return "", false
		}
		return strconv.Itoa(*cfg.Verbose), true
	case "default_profile":
		return cfg.DefaultProfile, cfg.DefaultProfile != ""
	}
	return "", false
}

func unknownConfigKey(key string) error {
	return output.ErrUsage(fmt.Sprintf("Invalid config key %q. Valid keys: %s",
		key, strings.Join(sortedConfigKeys(), ", ")))
}

func sortedConfigKeys() []string {
	names := make([]string, 0, len(configKeys))
	for k := range configKeys {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func parseBoolFlag(value string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true, true
	case "false", "0", "no", "off":
		return false, true
	default:
		return false, false
	}
}

// atomicWriteFile writes data to path via a temp file and rename.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Chmod(0600); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	// Unix: rename atomically replaces the destination.
	// Windows: rename fails when destination exists. Try rename first to
	// preserve the old file on unrelated errors; only remove+retry on failure.
	if err := os.Rename(tmpPath, path); err != nil && runtime.GOOS == "windows" {
		_ = os.Remove(path)
		return os.Rename(tmpPath, path)
	} else { //nolint:revive // else-with-return kept for clarity of the two-branch pattern
		return err
	}
}
