package richtext

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// maxFileSize is the maximum allowed size for an imported document body (10MB).
const maxFileSize = 10 * 1024 * 1024

// mimeByExt maps the file extensions users feed to --file onto MIME types.
// Document bodies are text, so the map only covers text formats; anything
// else falls through to content sniffing and is rejected as binary.
var mimeByExt = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".txt":      "text/plain",
	".text":     "text/plain",
	".html":     "text/html",
	".htm":      "text/html",
	".json":     "application/json",
	".xml":      "application/xml",
	".csv":      "text/csv",
	".yaml":     "text/yaml",
	".yml":      "text/yaml",
	".toml":     "text/x-toml",
	".rst":      "text/x-rst",
	".adoc":     "text/asciidoc",
}

// DetectMIME returns the MIME type for a file path.
// It uses the extension map first, then falls back to reading header bytes.
func DetectMIME(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mime, ok := mimeByExt[ext]; ok {
		return mime
	}

	// Fallback: read first 512 bytes for http.DetectContentType
	f, err := os.Open(path)
	if err != nil {
		return "application/octet-stream"
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	if n == 0 {
		// An empty file is a valid (empty) body.
		return "text/plain"
	}
	return http.DetectContentType(buf[:n])
}

// IsTextMIME reports whether a MIME type can serve as a document body.
func IsTextMIME(mime string) bool {
	if strings.HasPrefix(mime, "text/") {
		return true
	}
	switch strings.SplitN(mime, ";", 2)[0] {
	case "application/json", "application/xml":
		return true
	}
	return false
}

// ValidateFile checks that a path refers to an existing, regular, readable
// text file within the size limit. Returns nil on success.
func ValidateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", filepath.Base(path), err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", filepath.Base(path))
	}
	if info.Size() > maxFileSize {
		return fmt.Errorf("%s exceeds maximum size of 10MB", filepath.Base(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", filepath.Base(path), err)
	}
	f.Close()
	if mime := DetectMIME(path); !IsTextMIME(mime) {
		return fmt.Errorf("%s is %s; document bodies must be text", filepath.Base(path), mime)
	}
	return nil
}
