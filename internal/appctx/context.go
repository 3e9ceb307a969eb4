// Package appctx provides application context helpers.
package appctx

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/inkwell/inkwell-cli/internal/api"
	"github.com/inkwell/inkwell-cli/internal/auth"
	"github.com/inkwell/inkwell-cli/internal/autosave"
	"github.com/inkwell/inkwell-cli/internal/config"
	"github.com/inkwell/inkwell-cli/internal/connectivity"
	"github.com/inkwell/inkwell-cli/internal/names"
	"github.com/inkwell/inkwell-cli/internal/observability"
	"github.com/inkwell/inkwell-cli/internal/output"
)

// contextKey is a private type for context keys.
type contextKey string

const appKey contextKey = "app"

// App holds the shared application context for all commands.
type App struct {
	Config *config.Config
	Auth   *auth.Manager
	API    *api.Client
	Names  *names.Resolver
	Output *output.Writer
	Logger *slog.Logger

	// Observability
	Collector *observability.SessionCollector
	Hooks     *observability.CLIHooks

	// Monitor probes service reachability and receives passive signals
	// from the API client. Resident commands (edit, watch) start it.
	Monitor *connectivity.Monitor

	// Flags holds the global flag values
	Flags GlobalFlags
}

// GlobalFlags holds values for global CLI flags.
type GlobalFlags struct {
	// Output format flags
	JSON  bool
	JQ    string
	Quiet bool

	// Behavior flags
	Verbose int // 0=off, 1=operations, 2=operations+requests (stacks with -v -v or -vv)
	Stats   bool
	NoStats bool
	Hints   bool // follow-up suggestions (breadcrumbs) on success output
	NoHints bool
	NoColor bool

	// Context flags
	Profile  string
	BaseURL  string
	CacheDir string
}

// NewApp creates a new App with the given configuration.
func NewApp(cfg *config.Config) *App {
	// HTTP client for the auth manager (token validation, refresh)
	httpClient := &http.Client{Timeout: 30 * time.Second}
	authMgr := auth.NewManager(cfg, httpClient)

	// Collector always runs to gather stats; hooks control trace verbosity.
	// Level 0 initially; ApplyFlags sets the actual level from -v flags.
	collector := observability.NewSessionCollector()
	traceWriter := observability.NewTraceWriter()
	hooks := observability.NewCLIHooks(0, collector, traceWriter)

	apiClient := api.NewClient(cfg, authMgr)
	apiClient.SetHooks(hooks)

	monitor := connectivity.NewMonitor(connectivity.MonitorConfig{
		ProbeURL:        config.NormalizeBaseURL(cfg.BaseURL) + "/v1/health",
		HealthyInterval: time.Duration(cfg.ProbeIntervalS) * time.Second,
	})
	apiClient.SetReporter(monitor)

	resolver := names.NewResolver(apiClient)

	// Determine output format from config (default to auto)
	format := output.FormatAuto
	switch cfg.Format {
	case "json":
		format = output.FormatJSON
	case "markdown", "md":
		format = output.FormatMarkdown
	case "styled":
		format = output.FormatStyled
	case "quiet":
		format = output.FormatQuiet
	}

	return &App{
		Config:    cfg,
		Auth:      authMgr,
		API:       apiClient,
		Names:     resolver,
		Logger:    slog.New(slog.DiscardHandler),
		Collector: collector,
		Hooks:     hooks,
		Monitor:   monitor,
		Output: output.New(output.Options{
			Format: format,
			Writer: os.Stdout,
		}),
	}
}

// ApplyFlags applies global flag values to the app configuration.
func (a *App) ApplyFlags() {
	// Apply output format from flags (order matters: specific modes first)
	if a.Flags.Quiet {
		a.Output = output.New(output.Options{
			Format: output.FormatQuiet,
			Writer: os.Stdout,
		})
	} else if a.Flags.JSON || a.Flags.JQ != "" {
		a.Output = output.New(output.Options{
			Format: output.FormatJSON,
			Writer: os.Stdout,
			JQ:     a.Flags.JQ,
		})
	}

	// NO_COLOR is the convention every terminal library here understands
	if a.Flags.NoColor {
		os.Setenv("NO_COLOR", "1")
	}

	// Determine verbosity level from flags and INKWELL_DEBUG env var
	verboseLevel := a.Flags.Verbose
	if debugEnv := os.Getenv("INKWELL_DEBUG"); debugEnv != "" {
		// INKWELL_DEBUG can be "1", "2", or "true" (treated as 2 for full debug)
		if level, err := strconv.Atoi(debugEnv); err == nil {
			if level > verboseLevel {
				verboseLevel = level
			}
		} else if debugEnv == "true" {
			verboseLevel = 2 // Full debug output
		}
	}

	// Apply verbose level to hooks for trace output
	if a.Hooks != nil {
		a.Hooks.SetLevel(verboseLevel)
	}

	// Apply verbose mode - enable debug logging via slog
	if verboseLevel > 0 {
		a.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		a.API.SetLogger(a.Logger)
	}
}

// SaveHooks returns autosave lifecycle hooks for documentID, wired to the
// session collector and trace writer.
func (a *App) SaveHooks(documentID string) autosave.Hooks {
	return &saveHooks{docID: documentID, cli: a.Hooks}
}

// saveHooks bridges autosave lifecycle events into CLIHooks.
type saveHooks struct {
	docID string
	cli   *observability.CLIHooks
}

func (h *saveHooks) SaveStarted() {}

func (h *saveHooks) SaveFinished(r autosave.Result) {
	h.cli.OnSave(observability.SaveMetrics{
		DocumentID: h.docID,
		Forced:     r.Forced,
		Conflict:   r.Conflict,
		Offline:    r.Offline,
		Duration:   r.Duration,
		Error:      r.Err,
	})
}

func (h *saveHooks) BackupWritten(key string, size int) {
	h.cli.OnDraft(observability.DraftMetrics{Key: key, Bytes: size})
}

func (h *saveHooks) BackupFailed(key string, err error) {
	h.cli.OnDraft(observability.DraftMetrics{Key: key, Error: err})
}

// OK outputs a success response, automatically including stats if --stats flag is set.
func (a *App) OK(data any, opts ...output.ResponseOption) error {
	if a.Flags.Stats && a.Collector != nil {
		stats := a.Collector.Summary()
		opts = append(opts, output.WithStats(&stats))
	}
	return a.Output.OK(data, opts...)
}

// Err outputs an error response, printing stats to stderr if --stats flag is set.
func (a *App) Err(err error) error {
	// Print the error response first
	if outputErr := a.Output.Err(err); outputErr != nil {
		return outputErr
	}

	// Print stats to stderr if enabled, but not in machine-consumable modes
	if a.Flags.Stats && a.Collector != nil && !a.isMachineOutput() {
		stats := a.Collector.Summary()
		a.printStatsToStderr(&stats)
	}
	return nil
}

// isMachineOutput returns true if the output mode is intended for programmatic consumption.
// Checks both flags and config-driven format settings.
func (a *App) isMachineOutput() bool {
	if a.Flags.Quiet || a.Flags.JSON || a.Flags.JQ != "" {
		return true
	}
	// Config-driven quiet mode (format: "quiet" in config file)
	if a.Config != nil && a.Config.Format == "quiet" {
		return true
	}
	return false
}

// printStatsToStderr outputs a compact stats line to stderr.
func (a *App) printStatsToStderr(stats *observability.SessionMetrics) {
	if stats == nil {
		return
	}

	var parts []string

	// Duration
	duration := stats.EndTime.Sub(stats.StartTime)
	if duration < time.Second {
		parts = append(parts, fmt.Sprintf("%dms", duration.Milliseconds()))
	} else {
		parts = append(parts, fmt.Sprintf("%.1fs", duration.Seconds()))
	}

	parts = append(parts, stats.FormatParts()...)

	if len(parts) > 0 {
		fmt.Fprintf(os.Stderr, "\nStats: %s\n", strings.Join(parts, " | "))
	}
}

// IsInteractive returns true if the terminal supports interactive TUI.
func (a *App) IsInteractive() bool {
	// Not interactive if any non-interactive output mode is set
	if a.Flags.JSON || a.Flags.Quiet || a.Flags.JQ != "" {
		return false
	}

	// Check if stdout is a terminal
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}

	return (fi.Mode() & os.ModeCharDevice) != 0
}

// WithApp stores the app in the context.
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey, app)
}

// FromContext retrieves the app from the context.
func FromContext(ctx context.Context) *App {
	app, _ := ctx.Value(appKey).(*App)
	return app
}
