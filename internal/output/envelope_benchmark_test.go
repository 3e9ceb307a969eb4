package output

import (
	"bytes"
	"encoding/json"
	"testing"
)

func BenchmarkNormalizeData(b *testing.B) {
	b.Run("raw_message_array", func(b *testing.B) {
		raw := json.RawMessage(`[{"id":"doc-1","title":"A"},{"id":"doc-2","title":"B"},{"id":"doc-3","title":"C"}]`)
		for b.Loop() {
			NormalizeData(raw)
		}
	})

	b.Run("raw_message_object", func(b *testing.B) {
		raw := json.RawMessage(`{"id":"doc-1","title":"Release Notes","version":7}`)
		for b.Loop() {
			NormalizeData(raw)
		}
	})

	b.Run("struct_to_map", func(b *testing.B) {
		type document struct {
			ID      string `json:"id"`
			Title   string `json:"title"`
			Version int64  `json:"version"`
		}
		data := document{ID: "doc-1", Title: "Release Notes", Version: 7}
		for b.Loop() {
			NormalizeData(data)
		}
	})

	b.Run("already_normalized", func(b *testing.B) {
		data := map[string]any{"id": "doc-1", "title": "Release Notes"}
		for b.Loop() {
			NormalizeData(data)
		}
	})

	b.Run("nil", func(b *testing.B) {
		for b.Loop() {
			NormalizeData(nil)
		}
	})
}

func BenchmarkNormalizeUnmarshaled(b *testing.B) {
	b.Run("all_maps", func(b *testing.B) {
		data := []any{
			map[string]any{"id": "doc-1"},
			map[string]any{"id": "doc-2"},
			map[string]any{"id": "doc-3"},
		}
		for b.Loop() {
			normalizeUnmarshaled(data)
		}
	})

	b.Run("mixed_types", func(b *testing.B) {
		data := []any{map[string]any{"id": "doc-1"}, "slug", 42}
		for b.Loop() {
			normalizeUnmarshaled(data)
		}
	})
}

func BenchmarkWriteJSON(b *testing.B) {
	b.Run("document", func(b *testing.B) {
		buf := &bytes.Buffer{}
		w := New(Options{Writer: buf, Format: FormatJSON})
		data := map[string]any{"id": "doc-1", "title": "Release Notes", "version": 7}
		for b.Loop() {
			buf.Reset()
			w.OK(data)
		}
	})

	b.Run("with_options", func(b *testing.B) {
		buf := &bytes.Buffer{}
		w := New(Options{Writer: buf, Format: FormatJSON})
		data := map[string]any{"id": "doc-1", "title": "Release Notes"}
		for b.Loop() {
			buf.Reset()
			w.OK(data,
				WithSummary("Saved \"Release Notes\""),
				WithContext("document", "doc-1"),
				WithMeta("version", 7),
			)
		}
	})

	b.Run("document_list", func(b *testing.B) {
		buf := &bytes.Buffer{}
		w := New(Options{Writer: buf, Format: FormatJSON})
		items := make([]map[string]any, 100)
		for i := range items {
			items[i] = map[string]any{
				"id":         i + 1,
				"title":      "A reasonably long document title for realistic benchmarking",
				"slug":       "a-reasonably-long-document-title",
				"version":    i,
				"updated_at": "2026-03-11T10:30:00Z",
			}
		}
		for b.Loop() {
			buf.Reset()
			w.OK(items)
		}
	})
}

func BenchmarkWriteIDs(b *testing.B) {
	buf := &bytes.Buffer{}
	w := New(Options{Writer: buf, Format: FormatIDs})
	data := []map[string]any{
		{"id": "doc-1"}, {"id": "doc-2"}, {"id": "doc-3"},
	}
	for b.Loop() {
		buf.Reset()
		w.OK(data)
	}
}

func BenchmarkWriteCount(b *testing.B) {
	buf := &bytes.Buffer{}
	w := New(Options{Writer: buf, Format: FormatCount})
	data := []map[string]any{
		{"id": "doc-1"}, {"id": "doc-2"}, {"id": "doc-3"},
	}
	for b.Loop() {
		buf.Reset()
		w.OK(data)
	}
}

func BenchmarkErrorOutput(b *testing.B) {
	buf := &bytes.Buffer{}
	w := New(Options{Writer: buf, Format: FormatJSON})
	err := ErrNotFound("Document", "release-notes")

	for b.Loop() {
		buf.Reset()
		w.Err(err)
	}
}
