package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/inkwell/inkwell-cli/internal/appctx"
	"github.com/inkwell/inkwell-cli/internal/backup"
	"github.com/inkwell/inkwell-cli/internal/completion"
	"github.com/inkwell/inkwell-cli/internal/config"
	"github.com/inkwell/inkwell-cli/internal/output"
	"github.com/inkwell/inkwell-cli/internal/version"
)

// clockSkewThreshold is how far the local clock may drift from the server
// before drafts risk bad ordering timestamps.
const clockSkewThreshold = 30 * time.Second

// Check represents a single diagnostic check result.
type Check struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "pass", "fail", "skip", "warn"
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// DoctorResult holds the complete diagnostic results.
type DoctorResult struct {
	Checks  []Check `json:"checks"`
	Passed  int     `json:"passed"`
	Failed  int     `json:"failed"`
	Warned  int     `json:"warned"`
	Skipped int     `json:"skipped"`
}

// Summary returns a human-readable summary of the results.
func (r *DoctorResult) Summary() string {
	if r.Failed == 0 && r.Warned == 0 && r.Passed > 0 {
		if r.Skipped > 0 {
			return fmt.Sprintf("All %d checks passed, %d skipped", r.Passed, r.Skipped)
		}
		return fmt.Sprintf("All %d checks passed", r.Passed)
	}
	parts := []string{}
	if r.Passed > 0 {
		parts = append(parts, fmt.Sprintf("%d passed", r.Passed))
	}
	if r.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", r.Failed))
	}
	if r.Warned > 0 {
		parts = append(parts, fmt.Sprintf("%d warnings", r.Warned))
	}
	if r.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", r.Skipped))
	}
	return strings.Join(parts, ", ")
}

// NewDoctorCmd creates the doctor command.
func NewDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check CLI health and diagnose issues",
		Long: `Run diagnostic checks on configuration, credentials, connectivity,
and local state:

  - Configuration files (existence and validity)
  - Credentials and keyring availability
  - Token validity
  - API connectivity and latency
  - Local clock skew against the server
  - Drafts directory writability and pending drafts
  - Completion cache freshness`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			checks := runDoctorChecks(cmd.Context(), app)
			result := summarizeChecks(checks)

			if app.IsInteractive() && !app.Flags.JSON && !app.Flags.Quiet && app.Flags.JQ == "" {
				renderDoctorStyled(cmd.OutOrStdout(), result)
				return nil
			}

			return app.OK(result, output.WithSummary(result.Summary()))
		},
	}
}

func runDoctorChecks(ctx context.Context, app *appctx.App) []Check {
	checks := []Check{checkVersion()}

	checks = append(checks, checkConfigFiles(app)...)

	credCheck := checkCredentials(app)
	checks = append(checks, credCheck)

	canTestAPI := credCheck.Status == "pass" || credCheck.Status == "warn"
	if canTestAPI {
		checks = append(checks, checkAuthentication(ctx, app))
		connCheck := checkConnectivity(ctx, app)
		checks = append(checks, connCheck)
		if connCheck.Status == "pass" || connCheck.Status == "warn" {
			checks = append(checks, checkClockSkew(ctx, app))
		} else {
			checks = append(checks, Check{
				Name:    "Clock Skew",
				Status:  "skip",
				Message: "Skipped (API not reachable)",
			})
		}
	} else {
		checks = append(checks,
			Check{Name: "Authentication", Status: "skip", Message: "Skipped (no credentials)", Hint: "Run: inkwell auth login"},
			Check{Name: "API Connectivity", Status: "skip", Message: "Skipped (not authenticated)"},
			Check{Name: "Clock Skew", Status: "skip", Message: "Skipped (not authenticated)"},
		)
	}

	checks = append(checks, checkDraftsDir(app))
	checks = append(checks, checkCompletionCache(app))

	return checks
}

func checkVersion() Check {
	if version.IsDev() {
		return Check{
			Name:    "Version",
			Status:  "warn",
			Message: "Development build",
			Hint:    "Install a release build for update notifications",
		}
	}
	return Check{Name: "Version", Status: "pass", Message: version.Version}
}

func checkConfigFiles(app *appctx.App) []Check {
	paths := []struct {
		name string
		path string
	}{
		{"System Config", "/etc/inkwell/config.json"},
		{"Global Config", filepath.Join(config.GlobalConfigDir(), "config.json")},
		{"Local Config", filepath.Join(".inkwell", "config.json")},
	}

	var checks []Check
	for _, p := range paths {
		data, err := os.ReadFile(p.path) //nolint:gosec // G304: well-known config locations
		if err != nil {
			if !os.IsNotExist(err) {
				checks = append(checks, Check{
					Name:    p.name,
					Status:  "warn",
					Message: fmt.Sprintf("Unreadable: %v", err),
				})
			}
			continue
		}
		var parsed map[string]any
		if err := json.Unmarshal(data, &parsed); err != nil {
			checks = append(checks, Check{
				Name:    p.name,
				Status:  "fail",
				Message: fmt.Sprintf("%s: invalid JSON", p.path),
				Hint:    "Fix or remove the file; it is being ignored",
			})
			continue
		}
		checks = append(checks, Check{Name: p.name, Status: "pass", Message: p.path})
	}

	if len(checks) == 0 {
		checks = append(checks, Check{
			Name:    "Config Files",
			Status:  "pass",
			Message: "No config files (using defaults)",
		})
	}
	return checks
}

func checkCredentials(app *appctx.App) Check {
	check := Check{Name: "Credentials"}

	if os.Getenv("INKWELL_TOKEN") != "" {
		check.Status = "pass"
		check.Message = "Using INKWELL_TOKEN environment variable"
		return check
	}

	if !app.Auth.IsAuthenticated() {
		check.Status = "fail"
		check.Message = "No credentials found"
		check.Hint = "Run: inkwell auth login"
		return check
	}

	check.Status = "pass"
	if app.Auth.GetStore().UsingKeyring() {
		check.Message = "Stored in system keyring"
	} else {
		check.Message = filepath.Join(config.GlobalConfigDir(), "credentials.json")
	}
	return check
}

func checkAuthentication(ctx context.Context, app *appctx.App) Check {
	account, err := app.API.Me(ctx)
	if err != nil {
		var oerr *output.Error
		if errors.As(err, &oerr) && oerr.Code == output.CodeNetwork {
			return Check{
				Name:    "Authentication",
				Status:  "skip",
				Message: "Skipped (network unavailable)",
			}
		}
		return Check{
			Name:    "Authentication",
			Status:  "fail",
			Message: "Token rejected",
			Hint:    "Run: inkwell auth login",
		}
	}
	return Check{
		Name:    "Authentication",
		Status:  "pass",
		Message: "Valid token for " + account.Email,
	}
}

func checkConnectivity(ctx context.Context, app *appctx.App) Check {
	start := time.Now()
	if err := app.API.Health(ctx); err != nil {
		return Check{
			Name:    "API Connectivity",
			Status:  "fail",
			Message: err.Error(),
			Hint:    "Check your network; offline edits are kept as drafts",
		}
	}
	latency := time.Since(start)
	if latency > time.Second {
		return Check{
			Name:    "API Connectivity",
			Status:  "warn",
			Message: fmt.Sprintf("Reachable but slow (%s)", latency.Round(time.Millisecond)),
		}
	}
	return Check{
		Name:    "API Connectivity",
		Status:  "pass",
		Message: fmt.Sprintf("Reachable (%s)", latency.Round(time.Millisecond)),
	}
}

// checkClockSkew compares the local clock against the server's Date header.
// Draft ordering uses local timestamps, so large skew can make a newer draft
// look older than the server copy.
func checkClockSkew(ctx context.Context, app *appctx.App) Check {
	resp, err := app.API.Get(ctx, "/v1/health")
	if err != nil {
		return Check{Name: "Clock Skew", Status: "skip", Message: "Skipped (health request failed)"}
	}
	dateHeader := resp.Headers.Get("Date")
	if dateHeader == "" {
		return Check{Name: "Clock Skew", Status: "skip", Message: "Server sent no Date header"}
	}
	serverTime, err := time.Parse(time.RFC1123, dateHeader)
	if err != nil {
		return Check{Name: "Clock Skew", Status: "skip", Message: "Unparseable Date header"}
	}

	skew := time.Since(serverTime)
	if skew < 0 {
		skew = -skew
	}
	if skew > clockSkewThreshold {
		return Check{
			Name:    "Clock Skew",
			Status:  "warn",
			Message: fmt.Sprintf("Local clock differs from server by %s", skew.Round(time.Second)),
			Hint:    "Sync your system clock; draft timestamps may misorder",
		}
	}
	return Check{
		Name:    "Clock Skew",
		Status:  "pass",
		Message: fmt.Sprintf("Within %s of server time", clockSkewThreshold),
	}
}

func checkDraftsDir(app *appctx.App) Check {
	store := backup.NewStore(app.Config.DraftsDir)
	dir := store.Dir()

	if err := os.MkdirAll(dir, 0700); err != nil {
		return Check{
			Name:    "Drafts Directory",
			Status:  "fail",
			Message: fmt.Sprintf("Cannot create %s: %v", dir, err),
			Hint:    "Offline edits will be lost without a writable drafts directory",
		}
	}

	probe := filepath.Join(dir, ".doctor-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0600); err != nil {
		return Check{
			Name:    "Drafts Directory",
			Status:  "fail",
			Message: fmt.Sprintf("Not writable: %v", err),
			Hint:    "Offline edits will be lost without a writable drafts directory",
		}
	}
	_ = os.Remove(probe)

	msg := dir
	if entries, err := store.List(); err == nil && len(entries) > 0 {
		msg = fmt.Sprintf("%s (%s)", dir, countDrafts(len(entries)))
	}
	return Check{Name: "Drafts Directory", Status: "pass", Message: msg}
}

func checkCompletionCache(app *appctx.App) Check {
	store := completion.NewStore(app.Config.CacheDir)
	cache, err := store.Load()
	if err != nil {
		return Check{
			Name:    "Completion Cache",
			Status:  "warn",
			Message: fmt.Sprintf("Unreadable: %v", err),
			Hint:    "Run: inkwell completion refresh",
		}
	}
	if len(cache.Documents) == 0 {
		return Check{
			Name:    "Completion Cache",
			Status:  "warn",
			Message: "Empty",
			Hint:    "Run: inkwell completion refresh",
		}
	}
	if store.IsStale(completion.DefaultMaxAge) {
		return Check{
			Name:    "Completion Cache",
			Status:  "warn",
			Message: fmt.Sprintf("%d documents (stale)", len(cache.Documents)),
			Hint:    "Run: inkwell completion refresh",
		}
	}
	return Check{
		Name:    "Completion Cache",
		Status:  "pass",
		Message: fmt.Sprintf("%d documents", len(cache.Documents)),
	}
}

func summarizeChecks(checks []Check) *DoctorResult {
	result := &DoctorResult{Checks: checks}
	for _, c := range checks {
		switch c.Status {
		case "pass":
			result.Passed++
		case "fail":
			result.Failed++
		case "warn":
			result.Warned++
		case "skip":
			result.Skipped++
		}
	}
	return result
}

func renderDoctorStyled(w io.Writer, result *DoctorResult) {
	r := output.NewRenderer(w, false)

	nameStyle := lipgloss.NewStyle().Bold(true)

	statusIcon := map[string]string{
		"pass": r.Success.Render("✓"),
		"fail": r.Error.Render("✗"),
		"warn": r.Warning.Render("!"),
		"skip": r.Muted.Render("○"),
	}
	statusMsg := map[string]lipgloss.Style{
		"pass": r.Success,
		"fail": r.Error,
		"warn": r.Warning,
		"skip": r.Muted,
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, r.Summary.Render("Inkwell Doctor"))
	fmt.Fprintln(w)

	for _, check := range result.Checks {
		fmt.Fprintf(w, "  %s %s %s\n",
			statusIcon[check.Status],
			nameStyle.Render(check.Name),
			statusMsg[check.Status].Render(check.Message),
		)
		if check.Hint != "" && (check.Status == "fail" || check.Status == "warn") {
			fmt.Fprintf(w, "    %s\n", r.Hint.Render(check.Hint))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, r.Summary.Render(result.Summary()))
}
