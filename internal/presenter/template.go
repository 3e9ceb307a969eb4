package presenter

import (
	"bytes"
	"fmt"
	"math"
	"text/template"
)

// templateFuncs provides helper functions for schema templates.
var templateFuncs = template.FuncMap{
	"not": func(v any) bool {
		return !toBool(v)
	},
}

// RenderTemplate executes a Go text/template with the given data.
// Failures render a visible placeholder rather than vanishing, so a broken
// schema template is noticed instead of silently dropping output.
func RenderTemplate(tmpl string, data map[string]any) string {
	t, err := template.New("").Funcs(templateFuncs).Parse(tmpl)
	if err != nil {
		return "<template error>"
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, normalizeTemplateData(data)); err != nil {
		return "<template error>"
	}
	return buf.String()
}

// normalizeTemplateData converts integral float64 values (the shape JSON
// decoding produces) to int64 so templates never print scientific notation.
func normalizeTemplateData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if f, ok := v.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1e15 {
			out[k] = int64(f)
			continue
		}
		out[k] = v
	}
	return out
}

// EvalCondition evaluates a template condition (from affordance "when" field).
// Returns true if the template renders exactly "true".
func EvalCondition(condition string, data map[string]any) bool {
	if condition == "" {
		return true // No condition means always visible
	}

	result := RenderTemplate(condition, data)
	return result == "true"
}

// RenderHeadline selects and renders the appropriate headline for the data.
func RenderHeadline(schema *EntitySchema, data map[string]any) string {
	if schema.Headline == nil {
		// Fall back to identity label
		if label := schema.Identity.Label; label != "" {
			if v, ok := data[label]; ok {
				return fmt.Sprintf("%v", v)
			}
		}
		return ""
	}

	// Check conditional headlines (e.g. "archived")
	for key, spec := range schema.Headline {
		if key == "default" {
			continue
		}
		// The key corresponds to a boolean data field
		if toBool(data[key]) {
			if rendered := RenderTemplate(spec.Template, data); rendered != "" {
				return rendered
			}
		}
	}

	// Fall back to default headline
	if spec, ok := schema.Headline["default"]; ok {
		return RenderTemplate(spec.Template, data)
	}

	return ""
}
