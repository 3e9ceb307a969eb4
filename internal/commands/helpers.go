package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/inkwell/inkwell-cli/internal/appctx"
	"github.com/inkwell/inkwell-cli/internal/output"
	"github.com/inkwell/inkwell-cli/internal/richtext"
)

// requireAuth returns an auth error when no credentials are stored. Commands
// that talk to the API call this up front so the failure is a clear hint
// instead of a 401 from deep inside a request.
func requireAuth(app *appctx.App) error {
	if os.Getenv("INKWELL_TOKEN") != "" {
		return nil
	}
	if !app.Auth.IsAuthenticated() {
		return output.ErrAuth("Not authenticated")
	}
	return nil
}

// resolveDocument resolves a document reference (ID, slug, title, or URL)
// to an ID.
func resolveDocument(ctx context.Context, app *appctx.App, ref string) (string, error) {
	id, _, err := app.Names.ResolveDocument(ctx, ref)
	return id, err
}

// readBody reads document body content from, in order of precedence: an
// explicit --file path, "-" meaning stdin, or the literal flag value.
func readBody(bodyFlag, fileFlag string) (string, error) {
	if fileFlag != "" {
		if fileFlag == "-" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return "", fmt.Errorf("reading stdin: %w", err)
			}
			return string(data), nil
		}
		if err := richtext.ValidateFile(fileFlag); err != nil {
			return "", output.ErrUsageHint("Cannot read file", err.Error())
		}
		data, err := os.ReadFile(fileFlag)
		if err != nil {
			return "", output.ErrUsageHint("Cannot read file", err.Error())
		}
		return string(data), nil
	}
	if bodyFlag == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	return bodyFlag, nil
}

// parsePath normalizes a raw API path: a full URL is reduced to its path,
// a bare path gains the /v1 prefix, and a leading slash is ensured.
func parsePath(p string) string {
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		if idx := strings.Index(p[8:], "/"); idx >= 0 {
			p = p[8+idx:]
		} else {
			p = "/"
		}
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if !strings.HasPrefix(p, "/v1/") && p != "/v1" {
		p = "/v1" + p
	}
	return p
}

// apiSummary produces a one-line description of a raw API response.
func apiSummary(data json.RawMessage) string {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case trimmed == "" || trimmed == "null":
		return "Empty response"
	case strings.HasPrefix(trimmed, "["):
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err == nil {
			return fmt.Sprintf("%d items", len(items))
		}
	case strings.HasPrefix(trimmed, "{"):
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err == nil {
			if title, ok := obj["title"]; ok {
				var s string
				if json.Unmarshal(title, &s) == nil && s != "" {
					return s
				}
			}
			return fmt.Sprintf("%d fields", len(obj))
		}
	}
	return "OK"
}

// openBrowser opens a URL in the user's default browser.
func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
