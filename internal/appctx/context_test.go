package appctx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/inkwell/inkwell-cli/internal/autosave"
	"github.com/inkwell/inkwell-cli/internal/config"
	"github.com/inkwell/inkwell-cli/internal/observability"
	"github.com/inkwell/inkwell-cli/internal/output"
)

func testConfig() *config.Config {
	return &config.Config{
		BaseURL:        "https://api.inkwell.app",
		ProbeIntervalS: 30,
	}
}

// captureStderr runs fn with os.Stderr redirected to a pipe and returns
// everything written to it.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() error = %v", err)
	}
	os.Stderr = w
	defer func() { os.Stderr = old }()

	fn()

	w.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading captured stderr: %v", err)
	}
	return string(data)
}

func TestNewApp(t *testing.T) {
	app := NewApp(testConfig())

	if app.Config == nil {
		t.Error("Config is nil")
	}
	if app.Auth == nil {
		t.Error("Auth is nil")
	}
	if app.API == nil {
		t.Error("API is nil")
	}
	if app.Names == nil {
		t.Error("Names is nil")
	}
	if app.Output == nil {
		t.Error("Output is nil")
	}
	if app.Logger == nil {
		t.Error("Logger is nil")
	}
	if app.Collector == nil {
		t.Error("Collector is nil")
	}
	if app.Hooks == nil {
		t.Error("Hooks is nil")
	}
	if app.Monitor == nil {
		t.Error("Monitor is nil")
	}
	if got := app.Hooks.Level(); got != 0 {
		t.Errorf("initial hooks level = %d, want 0", got)
	}
}

func TestNewAppFormatFromConfig(t *testing.T) {
	for _, format := range []string{"", "json", "markdown", "md", "styled", "quiet", "bogus"} {
		t.Run("format_"+format, func(t *testing.T) {
			cfg := testConfig()
			cfg.Format = format
			app := NewApp(cfg)
			if app.Output == nil {
				t.Fatal("Output is nil")
			}
		})
	}
}

func TestGlobalFlagsDefaults(t *testing.T) {
	var flags GlobalFlags

	if flags.JSON {
		t.Error("JSON should default to false")
	}
	if flags.JQ != "" {
		t.Errorf("JQ should default to empty, got %q", flags.JQ)
	}
	if flags.Quiet {
		t.Error("Quiet should default to false")
	}
	if flags.Verbose != 0 {
		t.Errorf("Verbose should default to 0, got %d", flags.Verbose)
	}
	if flags.Stats {
		t.Error("Stats should default to false")
	}
	if flags.NoColor {
		t.Error("NoColor should default to false")
	}
	if flags.Profile != "" {
		t.Errorf("Profile should default to empty, got %q", flags.Profile)
	}
	if flags.BaseURL != "" {
		t.Errorf("BaseURL should default to empty, got %q", flags.BaseURL)
	}
}

func TestApplyFlagsVerboseSetsHooksLevel(t *testing.T) {
	t.Setenv("INKWELL_DEBUG", "")

	app := NewApp(testConfig())
	quietLogger := app.Logger

	app.Flags.Verbose = 1
	app.ApplyFlags()

	if got := app.Hooks.Level(); got != 1 {
		t.Errorf("hooks level = %d, want 1", got)
	}
	if app.Logger == quietLogger {
		t.Error("expected verbose mode to replace the discard logger")
	}
}

func TestApplyFlagsVerboseStacked(t *testing.T) {
	t.Setenv("INKWELL_DEBUG", "")

	app := NewApp(testConfig())
	app.Flags.Verbose = 2
	app.ApplyFlags()

	if got := app.Hooks.Level(); got != 2 {
		t.Errorf("hooks level = %d, want 2", got)
	}
}

func TestApplyFlagsDebugEnv(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		verbose int
		want    int
	}{
		{"numeric level", "2", 0, 2},
		{"true means full debug", "true", 0, 2},
		{"env does not lower flag level", "1", 2, 2},
		{"garbage ignored", "banana", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("INKWELL_DEBUG", tt.env)

			app := NewApp(testConfig())
			app.Flags.Verbose = tt.verbose
			app.ApplyFlags()

			if got := app.Hooks.Level(); got != tt.want {
				t.Errorf("hooks level = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestApplyFlagsNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	t.Setenv("INKWELL_DEBUG", "")

	app := NewApp(testConfig())
	app.Flags.NoColor = true
	app.ApplyFlags()

	if got := os.Getenv("NO_COLOR"); got != "1" {
		t.Errorf("NO_COLOR = %q, want %q", got, "1")
	}
}

func TestApplyFlagsQuietWins(t *testing.T) {
	t.Setenv("INKWELL_DEBUG", "")

	// Quiet takes precedence over JSON when both are set.
	app := NewApp(testConfig())
	app.Flags.Quiet = true
	app.Flags.JSON = true
	app.ApplyFlags()

	if app.Output == nil {
		t.Fatal("Output is nil after ApplyFlags")
	}
	if app.IsInteractive() {
		t.Error("quiet mode should not be interactive")
	}
}

func TestIsInteractiveMachineFlags(t *testing.T) {
	tests := []struct {
		name  string
		flags GlobalFlags
	}{
		{"json", GlobalFlags{JSON: true}},
		{"quiet", GlobalFlags{Quiet: true}},
		{"jq", GlobalFlags{JQ: ".id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := NewApp(testConfig())
			app.Flags = tt.flags
			if app.IsInteractive() {
				t.Error("IsInteractive() = true, want false")
			}
		})
	}
}

func TestIsMachineOutput(t *testing.T) {
	tests := []struct {
		name   string
		flags  GlobalFlags
		format string
		want   bool
	}{
		{"default", GlobalFlags{}, "", false},
		{"json flag", GlobalFlags{JSON: true}, "", true},
		{"quiet flag", GlobalFlags{Quiet: true}, "", true},
		{"jq flag", GlobalFlags{JQ: ".id"}, "", true},
		{"stats alone is not machine output", GlobalFlags{Stats: true}, "", false},
		{"config quiet format", GlobalFlags{}, "quiet", true},
		{"config json format is still human-readable", GlobalFlags{}, "json", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Format = tt.format
			app := NewApp(cfg)
			app.Flags = tt.flags

			if got := app.isMachineOutput(); got != tt.want {
				t.Errorf("isMachineOutput() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOKIncludesStatsInEnvelope(t *testing.T) {
	collector := observability.NewSessionCollector()
	collector.RecordSave(observability.SaveMetrics{DocumentID: "doc-1"})

	var buf bytes.Buffer
	app := &App{
		Config:    testConfig(),
		Collector: collector,
		Flags:     GlobalFlags{Stats: true},
		Output:    output.New(output.Options{Format: output.FormatJSON, Writer: &buf}),
	}

	if err := app.OK(map[string]any{"id": "doc-1"}); err != nil {
		t.Fatalf("OK() error = %v", err)
	}

	var resp map[string]any
	if err := json.Unmarshal(buf.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshaling envelope: %v", err)
	}
	if resp["ok"] != true {
		t.Errorf("ok = %v, want true", resp["ok"])
	}

	meta, ok := resp["meta"].(map[string]any)
	if !ok {
		t.Fatalf("meta missing from envelope: %v", resp)
	}
	stats, ok := meta["stats"].(map[string]any)
	if !ok {
		t.Fatalf("meta.stats missing: %v", meta)
	}
	if got := stats["saves_attempted"]; got != float64(1) {
		t.Errorf("stats.saves_attempted = %v, want 1", got)
	}
	if got := stats["saves_completed"]; got != float64(1) {
		t.Errorf("stats.saves_completed = %v, want 1", got)
	}
}

func TestOKWithoutStatsFlag(t *testing.T) {
	var buf bytes.Buffer
	app := &App{
		Config:    testConfig(),
		Collector: observability.NewSessionCollector(),
		Output:    output.New(output.Options{Format: output.FormatJSON, Writer: &buf}),
	}

	if err := app.OK(map[string]any{"id": "doc-1"}); err != nil {
		t.Fatalf("OK() error = %v", err)
	}

	var resp map[string]any
	if err := json.Unmarshal(buf.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshaling envelope: %v", err)
	}
	if _, found := resp["meta"]; found {
		t.Errorf("meta should be omitted without --stats: %v", resp)
	}
}

func TestOKWithNilCollector(t *testing.T) {
	var buf bytes.Buffer
	app := &App{
		Config: testConfig(),
		Flags:  GlobalFlags{Stats: true},
		Output: output.New(output.Options{Format: output.FormatJSON, Writer: &buf}),
	}

	if err := app.OK("fine"); err != nil {
		t.Fatalf("OK() with nil collector error = %v", err)
	}
}

func TestErrWritesErrorEnvelope(t *testing.T) {
	var buf bytes.Buffer
	app := &App{
		Config: testConfig(),
		Output: output.New(output.Options{Format: output.FormatJSON, Writer: &buf}),
	}

	if err := app.Err(output.ErrNotFound("Document", "doc-9")); err != nil {
		t.Fatalf("Err() error = %v", err)
	}

	var resp map[string]any
	if err := json.Unmarshal(buf.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshaling envelope: %v", err)
	}
	if resp["ok"] != false {
		t.Errorf("ok = %v, want false", resp["ok"])
	}
	if resp["code"] != output.CodeNotFound {
		t.Errorf("code = %v, want %q", resp["code"], output.CodeNotFound)
	}
}

func TestErrPrintsStatsToStderr(t *testing.T) {
	var buf bytes.Buffer
	app := &App{
		Config:    testConfig(),
		Collector: observability.NewSessionCollector(),
		Flags:     GlobalFlags{Stats: true},
		Output:    output.New(output.Options{Format: output.FormatJSON, Writer: &buf}),
	}

	stderr := captureStderr(t, func() {
		if err := app.Err(output.ErrAPI(500, "boom")); err != nil {
			t.Errorf("Err() error = %v", err)
		}
	})

	if !strings.Contains(stderr, "Stats:") {
		t.Errorf("stderr missing stats line: %q", stderr)
	}
}

func TestErrSuppressesStatsForMachineOutput(t *testing.T) {
	var buf bytes.Buffer
	app := &App{
		Config:    testConfig(),
		Collector: observability.NewSessionCollector(),
		Flags:     GlobalFlags{Stats: true, JSON: true},
		Output:    output.New(output.Options{Format: output.FormatJSON, Writer: &buf}),
	}

	stderr := captureStderr(t, func() {
		if err := app.Err(output.ErrAPI(500, "boom")); err != nil {
			t.Errorf("Err() error = %v", err)
		}
	})

	if strings.Contains(stderr, "Stats:") {
		t.Errorf("stats should not leak into machine output: %q", stderr)
	}
}

func TestPrintStatsToStderrDuration(t *testing.T) {
	app := &App{Config: testConfig()}
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("sub-second", func(t *testing.T) {
		stats := &observability.SessionMetrics{
			StartTime: start,
			EndTime:   start.Add(250 * time.Millisecond),
		}
		stderr := captureStderr(t, func() { app.printStatsToStderr(stats) })
		if !strings.Contains(stderr, "250ms") {
			t.Errorf("stderr = %q, want it to contain %q", stderr, "250ms")
		}
	})

	t.Run("seconds", func(t *testing.T) {
		stats := &observability.SessionMetrics{
			StartTime: start,
			EndTime:   start.Add(1500 * time.Millisecond),
		}
		stderr := captureStderr(t, func() { app.printStatsToStderr(stats) })
		if !strings.Contains(stderr, "1.5s") {
			t.Errorf("stderr = %q, want it to contain %q", stderr, "1.5s")
		}
	})

	t.Run("nil stats", func(t *testing.T) {
		stderr := captureStderr(t, func() { app.printStatsToStderr(nil) })
		if stderr != "" {
			t.Errorf("stderr = %q, want empty", stderr)
		}
	})
}

func TestSaveHooksFeedCollector(t *testing.T) {
	app := NewApp(testConfig())
	hooks := app.SaveHooks("doc-1")

	hooks.SaveStarted()
	hooks.SaveFinished(autosave.Result{Duration: 120 * time.Millisecond})
	hooks.SaveFinished(autosave.Result{Conflict: true})
	hooks.SaveFinished(autosave.Result{Offline: true})
	hooks.BackupWritten("doc-1", 512)
	hooks.BackupFailed("doc-1", errors.New("disk full"))

	summary := app.Collector.Summary()
	if summary.SavesAttempted != 2 {
		t.Errorf("SavesAttempted = %d, want 2", summary.SavesAttempted)
	}
	if summary.SavesCompleted != 1 {
		t.Errorf("SavesCompleted = %d, want 1", summary.SavesCompleted)
	}
	if summary.SaveConflicts != 1 {
		t.Errorf("SaveConflicts = %d, want 1", summary.SaveConflicts)
	}
	if summary.OfflineSkips != 1 {
		t.Errorf("OfflineSkips = %d, want 1", summary.OfflineSkips)
	}
	if summary.DraftsWritten != 1 {
		t.Errorf("DraftsWritten = %d, want 1", summary.DraftsWritten)
	}
}

func TestWithAppAndFromContext(t *testing.T) {
	app := NewApp(testConfig())
	ctx := WithApp(context.Background(), app)

	if got := FromContext(ctx); got != app {
		t.Errorf("FromContext() = %p, want %p", got, app)
	}
}

func TestFromContextMissing(t *testing.T) {
	if got := FromContext(context.Background()); got != nil {
		t.Errorf("FromContext() on empty context = %p, want nil", got)
	}
}
