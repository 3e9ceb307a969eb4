package hostutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Run("explicit schemes pass through", func(t *testing.T) {
		for _, in := range []string{
			"http://example.com",
			"https://example.com",
			"http://localhost:3000",
			"https://localhost:3000",
		} {
			assert.Equal(t, in, Normalize(in), in)
		}
	})

	t.Run("loopback hosts get http", func(t *testing.T) {
		cases := map[string]string{
			"localhost":          "http://localhost",
			"localhost:3000":     "http://localhost:3000",
			"127.0.0.1":          "http://127.0.0.1",
			"127.0.0.1:3000":     "http://127.0.0.1:3000",
			"[::1]":              "http://[::1]",
			"[::1]:3000":         "http://[::1]:3000",
			"app.localhost":      "http://app.localhost",
			"app.localhost:3000": "http://app.localhost:3000",
			"a.b.localhost:8080": "http://a.b.localhost:8080",
		}
		for in, want := range cases {
			assert.Equal(t, want, Normalize(in), in)
		}
	})

	t.Run("everything else gets https", func(t *testing.T) {
		cases := map[string]string{
			"example.com":              "https://example.com",
			"api.inkwell.app":          "https://api.inkwell.app",
			"staging.inkwell.app:8080": "https://staging.inkwell.app:8080",
			// looks like localhost, is not (RFC 6761 applies to the
			// .localhost TLD, not hostnames starting with "localhost")
			"localhost.example.com": "https://localhost.example.com",
		}
		for in, want := range cases {
			assert.Equal(t, want, Normalize(in), in)
		}
	})

	t.Run("empty input stays empty", func(t *testing.T) {
		assert.Equal(t, "", Normalize(""))
	})
}

func TestRequireSecureURL(t *testing.T) {
	allowed := []string{
		"https://api.inkwell.app",
		"https://evil.com", // https is always fine, even for odd hosts
		"",
		"http://localhost:3001",
		"http://127.0.0.1:8080",
		"http://[::1]:3000",
		"http://api.inkwell.localhost:3001",
		"http://app.localhost",
		"http://localhost:3001/v1/documents",
	}
	for _, in := range allowed {
		assert.NoError(t, RequireSecureURL(in), in)
	}

	rejected := []string{
		"http://evil.com",
		"http://api.example.com",
		"http://staging.inkwell.app",
	}
	for _, in := range rejected {
		err := RequireSecureURL(in)
		assert.Error(t, err, in)
		assert.Contains(t, err.Error(), "insecure http://")
	}
}

func TestIsLocalhost(t *testing.T) {
	local := []string{
		"localhost",
		"localhost:3000",
		"app.localhost",
		"app.localhost:3000",
		"a.b.localhost:8080",
		"127.0.0.1",
		"127.0.0.1:3000",
		"[::1]",
		"[::1]:3000",
	}
	for _, in := range local {
		assert.True(t, IsLocalhost(in), in)
	}

	remote := []string{
		"::1", // bare ::1 is not a valid URL host
		"example.com",
		"localhost.example.com",
		"127.0.0.2",
		"192.168.1.1",
		"",
	}
	for _, in := range remote {
		assert.False(t, IsLocalhost(in), in)
	}
}
