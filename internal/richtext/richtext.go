// Package richtext renders Markdown for terminal display.
// Inkwell documents are Markdown-native; rendering uses glamour.
package richtext

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/glamour"
)

// DefaultWidth is the word-wrap width when the terminal width is unknown.
const DefaultWidth = 80

// RenderMarkdown renders Markdown for terminal display at the default width.
func RenderMarkdown(md string) (string, error) {
	return RenderMarkdownWithWidth(md, DefaultWidth)
}

// RenderMarkdownWithWidth renders Markdown for terminal display with a custom width.
func RenderMarkdownWithWidth(md string, width int) (string, error) {
	if md == "" {
		return "", nil
	}
	if width <= 0 {
		width = DefaultWidth
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}

	out, err := r.Render(md)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(out), nil
}

// markdownPatterns are the cues IsMarkdown looks for.
var markdownPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^#{1,6}\s`),       // Headings
	regexp.MustCompile(`\*\*[^*]+\*\*`),       // Bold
	regexp.MustCompile(`\*[^*]+\*`),           // Italic
	regexp.MustCompile(`\[[^\]]+\]\([^)]+\)`), // Links
	regexp.MustCompile("```"),                 // Code blocks
	regexp.MustCompile(`(?m)^[-*+]\s`),        // Unordered list
	regexp.MustCompile(`(?m)^\d+\.\s`),        // Ordered list
	regexp.MustCompile(`(?m)^>\s`),            // Blockquote
}

// IsMarkdown reports whether s looks like Markdown rather than plain text.
// This is a heuristic: plain prose without any formatting cues returns false,
// which callers use to skip a pointless render pass.
func IsMarkdown(s string) bool {
	if s == "" {
		return false
	}
	for _, pattern := range markdownPatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}
