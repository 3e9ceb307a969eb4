package cli

import (
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/inkwell/inkwell-cli/internal/appctx"
	"github.com/inkwell/inkwell-cli/internal/commands"
	"github.com/inkwell/inkwell-cli/internal/completion"
	"github.com/inkwell/inkwell-cli/internal/config"
	"github.com/inkwell/inkwell-cli/internal/hostutil"
	"github.com/inkwell/inkwell-cli/internal/output"
	"github.com/inkwell/inkwell-cli/internal/version"
)

// NewRootCmd creates the root cobra command.
func NewRootCmd() *cobra.Command {
	var flags appctx.GlobalFlags

	cmd := &cobra.Command{
		Use:           "inkwell",
		Short:         "Command-line interface for Inkwell documents",
		Long:          "inkwell drafts, edits, and publishes Inkwell documents from the terminal,\nwith debounced autosave, offline drafts, and conflict resolution.",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip setup for help and version commands
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}

			overrides := config.FlagOverrides{
				BaseURL:  hostutil.Normalize(flags.BaseURL),
				CacheDir: flags.CacheDir,
			}

			cfg, err := config.Load(overrides)
			if err != nil {
				return err
			}

			// Profile overlay: --profile beats INKWELL_PROFILE beats the
			// configured default. Env and flags are re-applied afterward so
			// the precedence chain stays flags > env > profile > file.
			if profile := resolveProfile(flags.Profile, cfg); profile != "" {
				if err := cfg.ApplyProfile(profile); err != nil {
					return output.ErrUsageHint(err.Error(), "Run 'inkwell config list' to see configured profiles")
				}
				config.LoadFromEnv(cfg)
				config.ApplyOverrides(cfg, overrides)
			}

			resolvePreferences(cmd, cfg, &flags)

			// Create app and store in context
			app := appctx.NewApp(cfg)
			app.Flags = flags
			app.ApplyFlags()

			cmd.SetContext(appctx.WithApp(cmd.Context(), app))
			return nil
		},
	}

	// Allow flags anywhere in the command line
	cmd.Flags().SetInterspersed(true)
	cmd.PersistentFlags().SetInterspersed(true)

	// Accept snake_case spellings of flag names (--no_color == --no-color)
	cmd.SetGlobalNormalizationFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	// Output format flags
	cmd.PersistentFlags().BoolVarP(&flags.JSON, "json", "j", false, "Output as JSON")
	cmd.PersistentFlags().StringVar(&flags.JQ, "jq", "", "Filter JSON output through a jq expression")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Output data only, no envelope")
	cmd.PersistentFlags().BoolVar(&flags.NoColor, "no-color", false, "Disable ANSI colors")

	// Context flags
	cmd.PersistentFlags().StringVar(&flags.Profile, "profile", "", "Configuration profile (e.g., work, staging)")
	cmd.PersistentFlags().StringVar(&flags.BaseURL, "base-url", "", "Inkwell API base URL")

	// Behavior flags
	cmd.PersistentFlags().CountVarP(&flags.Verbose, "verbose", "v", "Verbose output (-v for ops, -vv for requests)")
	cmd.PersistentFlags().BoolVar(&flags.Stats, "stats", false, "Show session statistics")
	cmd.PersistentFlags().BoolVar(&flags.NoStats, "no-stats", false, "Suppress session statistics")
	cmd.PersistentFlags().BoolVar(&flags.Hints, "hints", false, "Show follow-up command hints")
	cmd.PersistentFlags().BoolVar(&flags.NoHints, "no-hints", false, "Suppress follow-up command hints")
	cmd.PersistentFlags().StringVar(&flags.CacheDir, "cache-dir", "", "Cache directory")

	// Register tab completion for flags.
	// DefaultCacheDirFunc checks --cache-dir flag, then app context, then env vars.
	completer := completion.NewCompleter(nil)
	_ = cmd.RegisterFlagCompletionFunc("profile", completer.ProfileCompletion())

	return cmd
}

// Execute runs the root command.
func Execute() {
	cmd := NewRootCmd()

	// Add subcommands
	cmd.AddCommand(commands.NewEditCmd())
	cmd.AddCommand(commands.NewDocsCmd())
	cmd.AddCommand(commands.NewDraftsCmd())
	cmd.AddCommand(commands.NewSyncCmd())
	cmd.AddCommand(commands.NewWatchCmd())
	cmd.AddCommand(commands.NewStatusCmd())
	cmd.AddCommand(commands.NewAPICmd())
	cmd.AddCommand(commands.NewAuthCmd())
	cmd.AddCommand(commands.NewConfigCmd())
	cmd.AddCommand(commands.NewDoctorCmd())
	cmd.AddCommand(commands.NewCompletionCmd())
	cmd.AddCommand(commands.NewVersionCmd())

	// Use ExecuteC to get the executed command (for correct context access)
	executedCmd, err := cmd.ExecuteC()
	if err != nil {
		err = transformCobraError(err)

		// Convert error to structured output
		apiErr := output.AsError(err)

		// Try to use app.Err() if app is available (for --stats support)
		if app := appctx.FromContext(executedCmd.Context()); app != nil {
			_ = app.Err(err)
			os.Exit(apiErr.ExitCode())
		}

		// Fallback: output error directly (app not available, e.g., during setup)
		pf := cmd.PersistentFlags()
		format := output.FormatAuto // Default to auto (TTY → styled, non-TTY → JSON)
		quiet, _ := pf.GetBool("quiet")
		jsonFlag, _ := pf.GetBool("json")

		if quiet {
			format = output.FormatQuiet
		} else if jsonFlag {
			format = output.FormatJSON
		}

		writer := output.New(output.Options{
			Format: format,
			Writer: os.Stdout,
		})
		_ = writer.Err(err)

		os.Exit(apiErr.ExitCode())
	}
}

// resolveProfile picks the active profile name: flag, then env, then the
// configured default. Empty means no profile overlay.
func resolveProfile(flagValue string, cfg *config.Config) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("INKWELL_PROFILE"); env != "" {
		return env
	}
	return cfg.DefaultProfile
}

// resolvePreferences merges persisted preferences (config) with explicit
// flags. An explicit flag wins; otherwise the config value applies; dev
// builds default stats and hints on so regressions surface early.
func resolvePreferences(cmd *cobra.Command, cfg *config.Config, flags *appctx.GlobalFlags) {
	flagChanged := func(name string) bool {
		f := cmd.PersistentFlags().Lookup(name)
		return f != nil && f.Changed
	}

	switch {
	case flagChanged("stats") && flags.Stats:
	case flagChanged("no-stats") && flags.NoStats:
		flags.Stats = false
	case cfg.Stats != nil:
		flags.Stats = *cfg.Stats
	default:
		flags.Stats = version.IsDev()
	}

	switch {
	case flagChanged("hints") && flags.Hints:
	case flagChanged("no-hints") && flags.NoHints:
		flags.Hints = false
	case cfg.Hints != nil:
		flags.Hints = *cfg.Hints
	default:
		flags.Hints = version.IsDev()
	}

	if !flagChanged("verbose") && cfg.Verbose != nil {
		flags.Verbose = *cfg.Verbose
	}
}

// transformCobraError rewrites Cobra's default error messages into the
// usage-error taxonomy so exit codes and hints stay consistent.
func transformCobraError(err error) error {
	msg := err.Error()

	// Transform "flag needs an argument: --FLAG" → "--FLAG requires a value"
	if strings.HasPrefix(msg, "flag needs an argument: ") {
		flag := strings.TrimPrefix(msg, "flag needs an argument: ")
		return output.ErrUsage(flag + " requires a value")
	}

	// Transform "unknown flag: --FLAG" → "Unknown option: --FLAG"
	if strings.HasPrefix(msg, "unknown flag: ") {
		flag := strings.TrimPrefix(msg, "unknown flag: ")
		return output.ErrUsage("Unknown option: " + flag)
	}

	// Transform "unknown shorthand flag: 'X' in -X" → "Unknown option: -X"
	if strings.HasPrefix(msg, "unknown shorthand flag: ") {
		re := regexp.MustCompile(`unknown shorthand flag: '.' in (-\w)`)
		if matches := re.FindStringSubmatch(msg); len(matches) > 1 {
			return output.ErrUsage("Unknown option: " + matches[1])
		}
	}

	// Transform "invalid argument" errors to usage errors
	if strings.Contains(msg, "invalid argument") {
		return output.ErrUsage(msg)
	}

	// Transform "requires at least N arg(s)" → document reference message
	if strings.Contains(msg, "requires at least") && strings.Contains(msg, "arg(s)") {
		return output.ErrUsage("Document reference required")
	}

	// Transform "accepts N arg(s), received 0" → "Argument required"
	if strings.Contains(msg, "arg(s), received 0") {
		return output.ErrUsage("Argument required")
	}

	// Transform "required flag(s) X not set" → more specific message
	if strings.HasPrefix(msg, "required flag(s) ") {
		re := regexp.MustCompile(`required flag\(s\) "(\w+)" not set`)
		if matches := re.FindStringSubmatch(msg); len(matches) > 1 {
			flag := matches[1]
			switch flag {
			case "data":
				return output.ErrUsage("Request body required (--data)")
			case "file":
				return output.ErrUsage("File path required (--file)")
			default:
				return output.ErrUsage(flag + " required")
			}
		}
	}

	return err
}
