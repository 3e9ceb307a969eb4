// Package urlarg parses Inkwell document URLs into IDs. This allows users
// to paste URLs from the browser or API logs as command arguments.
package urlarg

import (
	"net/url"
	"strings"
)

// Parsed represents components extracted from an Inkwell URL.
type Parsed struct {
	Host       string
	DocumentID string
}

// IsURL checks if the input is a recognizable Inkwell document URL.
func IsURL(input string) bool {
	return Parse(input) != nil
}

// Parse extracts the document ID from an Inkwell URL.
// Returns nil if the input is not a recognizable document URL.
//
// Supported URL patterns:
//   - https://inkwell.app/d/{id}
//   - https://inkwell.app/d/{id}/edit
//   - https://api.inkwell.app/v1/documents/{id}
//
// The host is not checked beyond requiring one, so staging and self-hosted
// deployments work too.
func Parse(input string) *Parsed {
	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		return nil
	}
	u, err := url.Parse(input)
	if err != nil || u.Host == "" {
		return nil
	}

	segments := splitPath(u.EscapedPath())

	// Share/editor URL: /d/{id}[/...]
	if len(segments) >= 2 && segments[0] == "d" {
		id, err := url.PathUnescape(segments[1])
		if err != nil || id == "" {
			return nil
		}
		return &Parsed{Host: u.Host, DocumentID: id}
	}

	// API URL: /v1/documents/{id}
	if len(segments) == 3 && segments[0] == "v1" && segments[1] == "documents" {
		id, err := url.PathUnescape(segments[2])
		if err != nil || id == "" {
			return nil
		}
		return &Parsed{Host: u.Host, DocumentID: id}
	}

	return nil
}

// ExtractID extracts the document ID from an argument.
// If the argument is an Inkwell URL, extracts the document ID.
// Otherwise, returns the argument as-is (assumed to be an ID or name).
func ExtractID(arg string) string {
	if parsed := Parse(arg); parsed != nil {
		return parsed.DocumentID
	}
	return arg
}

// ExtractIDs extracts IDs from multiple arguments, handling URLs.
func ExtractIDs(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		result[i] = ExtractID(arg)
	}
	return result
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
