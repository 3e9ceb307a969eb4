package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/term"

	"github.com/inkwell/inkwell-cli/internal/observability"
	"github.com/inkwell/inkwell-cli/internal/presenter"
	"github.com/inkwell/inkwell-cli/internal/tui"
)

// Column ordering for tables and key-value views. Lower sorts first;
// unknown keys get defaultPriority and keep their map iteration order
// stabilized by name.
var columnPriority = map[string]int{
	"id":         1,
	"slug":       2,
	"title":      2,
	"name":       2,
	"status":     3,
	"version":    4,
	"key":        4,
	"size":       5,
	"archived":   6,
	"timestamp":  7,
	"created_at": 8,
	"updated_at": 9,
}

const defaultPriority = 50

// mutedColumns render dimmed in styled output (identifiers, timestamps).
var mutedColumns = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// skipColumns are never shown in tables: bulky bodies and raw URLs.
var skipColumns = map[string]bool{
	"body":    true,
	"data":    true,
	"url":     true,
	"app_url": true,
	"path":    true,
}

// skipObjectFields are hidden in single-object key-value views.
var skipObjectFields = map[string]bool{
	"url":     true,
	"app_url": true,
	"data":    true,
}

// tableColumn is one planned output column.
type tableColumn struct {
	key    string
	header string
	muted  bool
	width  int
}

// planColumns picks and orders the columns for a row set. Nested
// values and skip-listed keys are dropped; the rest sort by priority.
func planColumns(data []map[string]any) []tableColumn {
	if len(data) == 0 {
		return nil
	}

	cols := make([]tableColumn, 0, len(data[0]))
	for key, val := range data[0] {
		if skipColumns[key] || isNested(val) {
			continue
		}
		cols = append(cols, tableColumn{
			key:    key,
			header: headerLabel(key),
			muted:  mutedColumns[key],
		})
	}

	sort.Slice(cols, func(i, j int) bool {
		pi, pj := keyPriority(cols[i].key), keyPriority(cols[j].key)
		if pi != pj {
			return pi < pj
		}
		return cols[i].key < cols[j].key
	})
	return cols
}

// orderedFields orders the keys of a single object for key-value
// rendering, dropping nested objects and skip-listed fields.
func orderedFields(data map[string]any) []string {
	keys := make([]string, 0, len(data))
	for k, v := range data {
		if skipObjectFields[k] {
			continue
		}
		switch v.(type) {
		case map[string]any, []map[string]any:
			continue
		}
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool {
		pi, pj := keyPriority(keys[i]), keyPriority(keys[j])
		if pi != pj {
			return pi < pj
		}
		return keys[i] < keys[j]
	})
	return keys
}

func keyPriority(key string) int {
	if p, ok := columnPriority[key]; ok {
		return p
	}
	return defaultPriority
}

func isNested(val any) bool {
	switch val.(type) {
	case map[string]any, []map[string]any, []any:
		return true
	}
	return false
}

// asMapSlice converts a []any whose elements are all objects, or
// returns nil when any element is not an object.
func asMapSlice(slice []any) []map[string]any {
	if len(slice) == 0 {
		return nil
	}
	rows := make([]map[string]any, 0, len(slice))
	for _, item := range slice {
		m, ok := item.(map[string]any)
		if !ok {
			return nil
		}
		rows = append(rows, m)
	}
	return rows
}

// Renderer writes styled terminal output.
type Renderer struct {
	width  int
	styled bool

	// Text styles
	Summary lipgloss.Style
	Muted   lipgloss.Style
	Data    lipgloss.Style
	Error   lipgloss.Style
	Hint    lipgloss.Style
	Warning lipgloss.Style
	Success lipgloss.Style

	// Table styles
	Header    lipgloss.Style
	Cell      lipgloss.Style
	CellMuted lipgloss.Style
}

// NewRenderer creates a renderer with styles from the resolved theme.
// Styling is enabled when writing to a TTY, or when forceStyled is true.
// Theme resolution follows: NO_COLOR env → INKWELL_THEME env → user theme
// (~/.config/inkwell/theme/colors.toml, which may be symlinked) → default.
func NewRenderer(w io.Writer, forceStyled bool) *Renderer {
	return NewRendererWithTheme(w, forceStyled, tui.ResolveTheme())
}

// NewRendererWithTheme creates a renderer with a specific theme (for testing).
func NewRendererWithTheme(w io.Writer, forceStyled bool, theme tui.Theme) *Renderer {
	width, isTTY := terminalInfo(w)
	styled := isTTY || forceStyled

	// lipgloss.NewRenderer does not reliably carry the color profile in
	// this version, so set the global one.
	if styled {
		lipgloss.SetColorProfile(2) // TrueColor
	} else {
		lipgloss.SetColorProfile(0) // Ascii
	}

	r := &Renderer{width: width, styled: styled}
	if !styled {
		plain := lipgloss.NewStyle()
		r.Summary, r.Muted, r.Data = plain, plain, plain
		r.Error, r.Hint, r.Warning, r.Success = plain, plain, plain, plain
		r.Header, r.Cell, r.CellMuted = plain, plain, plain
		return r
	}

	// Output may be piped, so background detection is unreliable; use
	// the dark variants throughout.
	fg := func(c lipgloss.AdaptiveColor) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(c.Dark))
	}
	r.Summary = fg(theme.Primary).Bold(true)
	r.Muted = fg(theme.Muted)
	r.Data = fg(theme.Foreground)
	r.Error = fg(theme.Error).Bold(true)
	r.Hint = fg(theme.Muted).Italic(true)
	r.Warning = fg(theme.Warning)
	r.Success = fg(theme.Success)
	r.Header = fg(theme.Foreground).Bold(true)
	r.Cell = fg(theme.Foreground)
	r.CellMuted = fg(theme.Muted)
	return r
}

// terminalInfo returns the terminal width and whether the writer is a TTY.
func terminalInfo(w io.Writer) (width int, isTTY bool) {
	width = 80

	if f, ok := w.(*os.File); ok {
		if tw, _, err := term.GetSize(f.Fd()); err == nil && tw >= 40 {
			width = tw
		}
		if fi, err := f.Stat(); err == nil && (fi.Mode()&os.ModeCharDevice) != 0 {
			isTTY = true
		}
	}

	return width, isTTY
}

// RenderResponse renders a success response to the writer.
func (r *Renderer) RenderResponse(w io.Writer, resp *Response) error {
	var b strings.Builder

	if resp.Summary != "" {
		b.WriteString(r.Summary.Render(resp.Summary))
		b.WriteString("\n\n")
	}

	// Schema-aware rendering when the response names an entity;
	// generic tables and key-value lists otherwise.
	data := NormalizeData(resp.Data)
	if resp.Entity == "" || !presenter.Present(&b, data, resp.Entity, presenter.ModeStyled) {
		r.renderData(&b, data)
	}

	if len(resp.Breadcrumbs) > 0 {
		b.WriteString("\n")
		r.renderBreadcrumbs(&b, resp.Breadcrumbs)
	}

	if stats := extractStats(resp.Meta); stats != nil {
		b.WriteString("\n")
		r.renderStats(&b, stats)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderError renders an error response to the writer.
func (r *Renderer) RenderError(w io.Writer, resp *ErrorResponse) error {
	var b strings.Builder

	b.WriteString(r.Error.Render("Error: " + resp.Error))
	b.WriteString("\n")

	if resp.Hint != "" {
		b.WriteString(r.Hint.Render("Hint: " + resp.Hint))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (r *Renderer) renderData(b *strings.Builder, data any) {
	switch d := data.(type) {
	case []map[string]any:
		if len(d) == 0 {
			b.WriteString(r.Muted.Render("(no results)") + "\n")
			return
		}
		r.renderTable(b, d)

	case map[string]any:
		r.renderObject(b, d)

	case []any:
		if len(d) == 0 {
			b.WriteString(r.Muted.Render("(no results)") + "\n")
			return
		}
		if rows := asMapSlice(d); rows != nil {
			r.renderTable(b, rows)
		} else {
			for _, item := range d {
				b.WriteString(r.Data.Render("• "+cellText(item)) + "\n")
			}
		}

	case string:
		b.WriteString(r.Data.Render(d) + "\n")

	case nil:
		b.WriteString(r.Muted.Render("(no data)") + "\n")

	default:
		b.WriteString(r.Data.Render(fmt.Sprintf("%v", data)) + "\n")
	}
}

func (r *Renderer) renderTable(b *strings.Builder, data []map[string]any) {
	cols := r.fitColumns(planColumns(data), data)
	if len(cols) == 0 {
		return
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.Header
			}
			if col < len(cols) && cols[col].muted {
				return r.CellMuted
			}
			return r.Cell
		})

	headers := make([]string, len(cols))
	for i, col := range cols {
		headers[i] = col.header
	}
	t.Headers(headers...)

	for _, item := range data {
		row := make([]string, len(cols))
		for i, col := range cols {
			row[i] = cellText(item[col.key])
		}
		t.Row(row...)
	}

	b.WriteString(t.String())
	b.WriteString("\n")
}

// fitColumns measures each column against the data and drops trailing
// columns until the table fits the terminal width.
func (r *Renderer) fitColumns(cols []tableColumn, data []map[string]any) []tableColumn {
	if len(cols) == 0 {
		return cols
	}

	for i := range cols {
		cols[i].width = lipgloss.Width(cols[i].header)
		for _, row := range data {
			if w := lipgloss.Width(cellText(row[cols[i].key])); w > cols[i].width {
				cols[i].width = w
			}
		}
		if cols[i].width > 40 {
			cols[i].width = 40
		}
	}

	const padding = 2
	for len(cols) > 1 {
		total := 0
		for _, col := range cols {
			total += col.width + padding
		}
		if total <= r.width {
			break
		}
		cols = cols[:len(cols)-1]
	}

	return cols
}

func (r *Renderer) renderObject(b *strings.Builder, data map[string]any) {
	keys := orderedFields(data)
	if len(keys) == 0 {
		b.WriteString(r.Muted.Render("(no data)") + "\n")
		return
	}

	maxLen := 0
	for _, k := range keys {
		if l := len(headerLabel(k)); l > maxLen {
			maxLen = l
		}
	}

	for _, k := range keys {
		label := r.Muted.Render(fmt.Sprintf("%-*s: ", maxLen, headerLabel(k)))
		valueStyle := r.Data
		if mutedColumns[k] {
			valueStyle = r.CellMuted
		}
		b.WriteString(label + valueStyle.Render(displayValue(k, data[k])) + "\n")
	}
}

func (r *Renderer) renderBreadcrumbs(b *strings.Builder, crumbs []Breadcrumb) {
	b.WriteString(r.Muted.Render("Next:"))
	b.WriteString("\n")
	for _, bc := range crumbs {
		line := r.Muted.Render("  " + bc.Cmd)
		if bc.Description != "" {
			line += r.Muted.Render("  # " + bc.Description)
		}
		b.WriteString(line + "\n")
	}
}

// renderStats renders session statistics in a compact one-liner.
func (r *Renderer) renderStats(b *strings.Builder, stats map[string]any) {
	parts := observability.SessionMetricsFromMap(stats).FormatParts()
	if len(parts) > 0 {
		b.WriteString(r.Muted.Render("Stats: "+strings.Join(parts, " | ")) + "\n")
	}
}

// headerLabel turns a snake_case key into a display label:
// "updated_at" becomes "Updated", "base_version" becomes "Base Version".
func headerLabel(key string) string {
	key = strings.ReplaceAll(key, "_", " ")
	key = strings.TrimSuffix(key, " on")
	key = strings.TrimSuffix(key, " at")
	words := strings.Fields(key)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// cellText formats a value for a single table cell.
func cellText(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		if len(v) > 40 {
			return v[:37] + "..."
		}
		return v
	case bool:
		if v {
			return "yes"
		}
		return "no"
	case float64:
		return numberText(v)
	case int, int64:
		return fmt.Sprintf("%d", v)
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			switch elem := item.(type) {
			case string:
				items = append(items, elem)
			case float64:
				items = append(items, numberText(elem))
			case int, int64:
				items = append(items, fmt.Sprintf("%d", elem))
			case map[string]any:
				if s := objectLabel(elem); s != "" {
					items = append(items, s)
				}
			default:
				items = append(items, fmt.Sprintf("%v", item))
			}
		}
		return strings.Join(items, ", ")
	default:
		return fmt.Sprintf("%v", v)
	}
}

// numberText drops the fraction when a JSON number is integral.
func numberText(v float64) string {
	if v == float64(int(v)) {
		return fmt.Sprintf("%d", int(v))
	}
	return fmt.Sprintf("%.2f", v)
}

// objectLabel picks a short label for an embedded object: name, then
// title, then id.
func objectLabel(m map[string]any) string {
	if name, ok := m["name"].(string); ok {
		return name
	}
	if title, ok := m["title"].(string); ok {
		return title
	}
	if id, ok := m["id"]; ok {
		return fmt.Sprintf("%v", id)
	}
	return ""
}

// displayValue formats a field for key-value views. Timestamp fields
// ("_at"/"_on" suffix, or "timestamp") get humanized.
func displayValue(key string, val any) string {
	isDate := strings.HasSuffix(key, "_at") || strings.HasSuffix(key, "_on") || key == "timestamp"
	if !isDate {
		return cellText(val)
	}

	str, ok := val.(string)
	if !ok || str == "" {
		return cellText(val)
	}

	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		t, err = time.Parse("2006-01-02", str)
		if err != nil {
			return cellText(val)
		}
		return t.Format("Jan 2, 2006")
	}

	diff := time.Since(t)
	if diff < 0 {
		return t.Format("Jan 2, 2006")
	}

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "yesterday"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("Jan 2, 2006")
	}
}

// MarkdownRenderer outputs literal Markdown syntax (portable, pipeable).
type MarkdownRenderer struct {
	width int
}

// NewMarkdownRenderer creates a renderer for literal Markdown output.
func NewMarkdownRenderer(w io.Writer) *MarkdownRenderer {
	width, _ := terminalInfo(w)
	return &MarkdownRenderer{width: width}
}

// RenderResponse renders a success response as literal Markdown.
func (r *MarkdownRenderer) RenderResponse(w io.Writer, resp *Response) error {
	var b strings.Builder

	if resp.Summary != "" {
		b.WriteString("## " + resp.Summary + "\n\n")
	}

	data := NormalizeData(resp.Data)
	if resp.Entity == "" || !presenter.Present(&b, data, resp.Entity, presenter.ModeMarkdown) {
		r.renderData(&b, data)
	}

	if len(resp.Breadcrumbs) > 0 {
		b.WriteString("\n### Next\n\n")
		for _, bc := range resp.Breadcrumbs {
			line := "- `" + bc.Cmd + "`"
			if bc.Description != "" {
				line += " — " + bc.Description
			}
			b.WriteString(line + "\n")
		}
	}

	if stats := extractStats(resp.Meta); stats != nil {
		b.WriteString("\n")
		parts := observability.SessionMetricsFromMap(stats).FormatParts()
		if len(parts) > 0 {
			b.WriteString("*Stats: " + strings.Join(parts, " | ") + "*\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderError renders an error response as literal Markdown.
func (r *MarkdownRenderer) RenderError(w io.Writer, resp *ErrorResponse) error {
	var b strings.Builder

	b.WriteString("**Error:** " + resp.Error + "\n")
	if resp.Hint != "" {
		b.WriteString("\n*Hint: " + resp.Hint + "*\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (r *MarkdownRenderer) renderData(b *strings.Builder, data any) {
	switch d := data.(type) {
	case []map[string]any:
		if len(d) == 0 {
			b.WriteString("*No results*\n")
			return
		}
		r.renderTable(b, d)

	case map[string]any:
		r.renderObject(b, d)

	case []any:
		if len(d) == 0 {
			b.WriteString("*No results*\n")
			return
		}
		if rows := asMapSlice(d); rows != nil {
			r.renderTable(b, rows)
		} else {
			for _, item := range d {
				b.WriteString("- " + cellText(item) + "\n")
			}
		}

	case string:
		b.WriteString(d + "\n")

	case nil:
		b.WriteString("*No data*\n")

	default:
		fmt.Fprintf(b, "%v\n", data)
	}
}

func (r *MarkdownRenderer) renderTable(b *strings.Builder, data []map[string]any) {
	cols := planColumns(data)
	if len(cols) == 0 {
		return
	}

	headers := make([]string, len(cols))
	seps := make([]string, len(cols))
	for i, col := range cols {
		headers[i] = col.header
		seps[i] = "---"
	}
	b.WriteString("| " + strings.Join(headers, " | ") + " |\n")
	b.WriteString("| " + strings.Join(seps, " | ") + " |\n")

	for _, item := range data {
		cells := make([]string, len(cols))
		for i, col := range cols {
			cells[i] = strings.ReplaceAll(cellText(item[col.key]), "|", "\\|")
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
}

func (r *MarkdownRenderer) renderObject(b *strings.Builder, data map[string]any) {
	keys := orderedFields(data)
	if len(keys) == 0 {
		b.WriteString("*No data*\n")
		return
	}

	for _, k := range keys {
		b.WriteString("- **" + headerLabel(k) + ":** " + displayValue(k, data[k]) + "\n")
	}
}

// extractStats pulls stats from response meta if present.
func extractStats(meta map[string]any) map[string]any {
	if meta == nil {
		return nil
	}
	stats, _ := meta["stats"].(map[string]any)
	return stats
}
