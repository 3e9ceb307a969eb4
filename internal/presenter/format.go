package presenter

import (
	"fmt"
	"strings"
	"time"
)

// staleAfter is the age past which a timestamp counts as stale.
// Documents untouched for a month get the schema's when_stale emphasis.
const staleAfter = 30 * 24 * time.Hour

// FormatField formats a field value according to its FieldSpec.
func FormatField(spec FieldSpec, key string, val any, locale Locale) string {
	switch spec.Format {
	case "boolean":
		return formatBoolean(spec, val)
	case "date":
		return formatDate(val, locale)
	case "relative_time":
		return formatRelativeTime(val, locale)
	case "bytes":
		return formatBytes(val)
	case "number":
		return formatNumber(val, locale)
	default:
		return formatText(val)
	}
}

// formatBoolean converts a boolean to a label from the field spec, or "yes"/"no".
func formatBoolean(spec FieldSpec, val any) string {
	b := toBool(val)
	key := fmt.Sprintf("%v", b)
	if label, ok := spec.Labels[key]; ok {
		return label
	}
	if b {
		return "yes"
	}
	return "no"
}

// formatDate formats a date string using the locale's date conventions.
func formatDate(val any, locale Locale) string {
	str, ok := val.(string)
	if !ok || str == "" {
		return ""
	}

	// Try ISO8601 full timestamp
	if t, err := time.Parse(time.RFC3339, str); err == nil {
		return locale.FormatDate(t)
	}
	// Try date-only
	if t, err := time.Parse("2006-01-02", str); err == nil {
		return locale.FormatDate(t)
	}
	return str
}

// formatRelativeTime formats a timestamp as relative time (e.g. "2 hours ago").
// Timestamps older than a week, and future ones, fall back to the locale date.
func formatRelativeTime(val any, locale Locale) string {
	str, ok := val.(string)
	if !ok || str == "" {
		return ""
	}

	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		// Try date-only
		t, err = time.Parse("2006-01-02", str)
		if err != nil {
			return str
		}
	}

	diff := time.Since(t)
	if diff < 0 {
		return locale.FormatDate(t)
	}

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return relativeTimeFormat(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return relativeTimeFormat(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return relativeTimeFormat(int(diff.Hours()/24), "day")
	default:
		return locale.FormatDate(t)
	}
}

// formatBytes formats a byte count in human units (draft sizes).
func formatBytes(val any) string {
	var n float64
	switch v := val.(type) {
	case float64:
		n = v
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	default:
		return formatText(val)
	}

	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", int64(n))
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", n/1024)
	case n < 1024*1024*1024:
		return fmt.Sprintf("%.1f MB", n/(1024*1024))
	default:
		return fmt.Sprintf("%.1f GB", n/(1024*1024*1024))
	}
}

// formatNumber formats a numeric value with locale grouping. Use this only
// for display quantities; IDs and versions stay raw via formatText.
func formatNumber(val any, locale Locale) string {
	switch v := val.(type) {
	case float64:
		return locale.FormatNumber(v)
	case int:
		return locale.FormatNumber(float64(v))
	case int64:
		return locale.FormatNumber(float64(v))
	default:
		return formatText(val)
	}
}

// formatText converts any value to a string representation.
// Numbers render raw (no grouping) so IDs stay copy-paste safe.
func formatText(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "yes"
		}
		return "no"
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%.2f", v)
	case int, int64:
		return fmt.Sprintf("%d", v)
	case []any:
		var items []string
		for _, item := range v {
			items = append(items, formatText(item))
		}
		return strings.Join(items, ", ")
	default:
		return fmt.Sprintf("%v", v)
	}
}

// toBool converts various types to bool.
func toBool(val any) bool {
	switch v := val.(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1" || v == "yes"
	case float64:
		return v != 0
	default:
		return false
	}
}

// IsStale checks if a timestamp value is older than the staleness window.
// Handles both date-only ("2006-01-02") and RFC3339 timestamps; date-only
// values have no timezone and parse in local time.
func IsStale(val any) bool {
	str, ok := val.(string)
	if !ok || str == "" {
		return false
	}

	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		t, err = time.ParseInLocation("2006-01-02", str, time.Local)
		if err != nil {
			return false
		}
	}
	return time.Since(t) > staleAfter
}
