package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/inkwell-cli/internal/config"
	"github.com/inkwell/inkwell-cli/internal/output"
)

func TestNewStore(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("INKWELL_NO_KEYRING", "1")
	store := NewStore(tmpDir)

	require.NotNil(t, store, "NewStore returned nil")
	assert.False(t, store.UsingKeyring())
}

func TestStoreFileBackend(t *testing.T) {
	tmpDir := t.TempDir()

	// Force file backend by creating store with useKeyring=false
	store := &Store{useKeyring: false, fallbackDir: tmpDir}

	origin := "https://test.example.com"
	creds := &Credentials{
		AccessToken:  "test-access-token",
		RefreshToken: "test-refresh-token",
		ExpiresAt:    time.Now().Unix() + 3600,
		Scope:        "read",
		AccountID:    "12345",
		Email:        "writer@example.com",
	}

	// Save credentials
	err := store.Save(origin, creds)
	require.NoError(t, err, "Save failed")

	// Verify file was created with correct permissions
	credFile := filepath.Join(tmpDir, "credentials.json")
	info, err := os.Stat(credFile)
	require.NoError(t, err, "Credentials file not created")
	perms := info.Mode().Perm()
	assert.Equal(t, os.FileMode(0600), perms, "File permissions mismatch")

	// Load credentials
	loaded, err := store.Load(origin)
	require.NoError(t, err, "Load failed")

	// Verify values match
	assert.Equal(t, creds.AccessToken, loaded.AccessToken)
	assert.Equal(t, creds.RefreshToken, loaded.RefreshToken)
	assert.Equal(t, creds.ExpiresAt, loaded.ExpiresAt)
	assert.Equal(t, creds.Scope, loaded.Scope)
	assert.Equal(t, creds.AccountID, loaded.AccountID)
	assert.Equal(t, creds.Email, loaded.Email)
}

func TestStoreMultipleOrigins(t *testing.T) {
	tmpDir := t.TempDir()
	store := &Store{useKeyring: false, fallbackDir: tmpDir}

	// Save credentials for two different origins
	origin1 := "https://origin1.example.com"
	origin2 := "https://origin2.example.com"

	creds1 := &Credentials{AccessToken: "token1", ExpiresAt: time.Now().Unix() + 3600}
	creds2 := &Credentials{AccessToken: "token2", ExpiresAt: time.Now().Unix() + 3600}

	require.NoError(t, store.Save(origin1, creds1), "Save origin1 failed")
	require.NoError(t, store.Save(origin2, creds2), "Save origin2 failed")

	// Load and verify each origin
	loaded1, err := store.Load(origin1)
	require.NoError(t, err, "Load origin1 failed")
	assert.Equal(t, "token1", loaded1.AccessToken)

	loaded2, err := store.Load(origin2)
	require.NoError(t, err, "Load origin2 failed")
	assert.Equal(t, "token2", loaded2.AccessToken)
}

func TestStoreDelete(t *testing.T) {
	tmpDir := t.TempDir()
	store := &Store{useKeyring: false, fallbackDir: tmpDir}

	origin := "https://delete-test.example.com"
	creds := &Credentials{AccessToken: "to-be-deleted", ExpiresAt: time.Now().Unix() + 3600}

	// Save then delete
	require.NoError(t, store.Save(origin, creds), "Save failed")
	require.NoError(t, store.Delete(origin), "Delete failed")

	// Load should fail
	_, err := store.Load(origin)
	assert.Error(t, err, "Load should fail after delete")
}

func TestStoreLoadMissing(t *testing.T) {
	tmpDir := t.TempDir()
	store := &Store{useKeyring: false, fallbackDir: tmpDir}

	// Load non-existent origin should fail
	_, err := store.Load("https://nonexistent.example.com")
	assert.Error(t, err, "Load should fail for non-existent origin")
}

func TestKeyFunction(t *testing.T) {
	tests := []struct {
		origin   string
		expected string
	}{
		{"https://api.inkwell.app", "inkwell::https://api.inkwell.app"},
		{"http://localhost:3000", "inkwell::http://localhost:3000"},
		{"https://custom.example.com", "inkwell::https://custom.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			result := key(tt.origin)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestNewManager(t *testing.T) {
	cfg := &config.Config{
		BaseURL: "https://api.inkwell.app",
	}

	manager := NewManager(cfg, http.DefaultClient)

	require.NotNil(t, manager, "NewManager returned nil")
	assert.Equal(t, cfg, manager.cfg, "Manager config not set correctly")
	assert.Equal(t, http.DefaultClient, manager.httpClient, "Manager httpClient not set correctly")
	assert.NotNil(t, manager.store, "Manager store not initialized")
}

func TestIsAuthenticatedWithEnvToken(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := &config.Config{
		BaseURL: "https://api.inkwell.app",
	}
	manager := NewManager(cfg, http.DefaultClient)
	// Use file backend with empty temp dir to ensure no stored creds
	manager.store = &Store{useKeyring: false, fallbackDir: tmpDir}

	// Without env token
	t.Setenv("INKWELL_TOKEN", "")
	os.Unsetenv("INKWELL_TOKEN")
	assert.False(t, manager.IsAuthenticated(), "Should not be authenticated without token")

	// With env token
	t.Setenv("INKWELL_TOKEN", "test-env-token")
	assert.True(t, manager.IsAuthenticated(), "Should be authenticated with INKWELL_TOKEN env var")
}

func TestAccessTokenEnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	manager := NewManager(&config.Config{BaseURL: "https://api.inkwell.app"}, http.DefaultClient)
	manager.store = &Store{useKeyring: false, fallbackDir: tmpDir}

	t.Setenv("INKWELL_TOKEN", "env-token")

	token, err := manager.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "env-token", token)
}

func TestIsAuthenticatedWithStoredCreds(t *testing.T) {
	t.Setenv("INKWELL_TOKEN", "")
	os.Unsetenv("INKWELL_TOKEN")

	tmpDir := t.TempDir()

	cfg := &config.Config{
		BaseURL: "https://api.inkwell.app",
	}
	manager := NewManager(cfg, http.DefaultClient)
	manager.store = &Store{useKeyring: false, fallbackDir: tmpDir}

	// Without stored creds
	assert.False(t, manager.IsAuthenticated(), "Should not be authenticated without stored credentials")

	// Save credentials
	creds := &Credentials{
		AccessToken:  "test-token",
		RefreshToken: "test-refresh",
		ExpiresAt:    time.Now().Unix() + 3600,
	}
	manager.store.Save("https://api.inkwell.app", creds)

	// With stored creds
	assert.True(t, manager.IsAuthenticated(), "Should be authenticated with stored credentials")
}

func TestAccessTokenNeverExpiresWithoutExpiry(t *testing.T) {
	t.Setenv("INKWELL_TOKEN", "")
	os.Unsetenv("INKWELL_TOKEN")

	tmpDir := t.TempDir()
	manager := NewManager(&config.Config{BaseURL: "https://api.inkwell.app"}, http.DefaultClient)
	manager.store = &Store{useKeyring: false, fallbackDir: tmpDir}

	// Personal access tokens carry no expiry and must never trigger refresh.
	manager.store.Save("https://api.inkwell.app", &Credentials{AccessToken: "pat-token"})

	token, err := manager.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pat-token", token)
}

func TestAccessTokenRefreshesExpired(t *testing.T) {
	t.Setenv("INKWELL_TOKEN", "")
	os.Unsetenv("INKWELL_TOKEN")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "/v1/oauth/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.Form.Get("refresh_token"))

		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "fresh-token",
			"refresh_token": "new-refresh",
			"expires_in":    3600,
		})
	}))
	defer server.Close()

	tmpDir := t.TempDir()
	manager := NewManager(&config.Config{BaseURL: server.URL}, server.Client())
	manager.store = &Store{useKeyring: false, fallbackDir: tmpDir}

	manager.store.Save(server.URL, &Credentials{
		AccessToken:  "stale-token",
		RefreshToken: "old-refresh",
		ExpiresAt:    time.Now().Unix() - 10,
	})

	token, err := manager.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)

	loaded, err := manager.store.Load(server.URL)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", loaded.AccessToken)
	assert.Equal(t, "new-refresh", loaded.RefreshToken)
	assert.Greater(t, loaded.ExpiresAt, time.Now().Unix())
}

func TestAccessTokenExpiredWithoutRefreshToken(t *testing.T) {
	t.Setenv("INKWELL_TOKEN", "")
	os.Unsetenv("INKWELL_TOKEN")

	tmpDir := t.TempDir()
	manager := NewManager(&config.Config{BaseURL: "https://api.inkwell.app"}, http.DefaultClient)
	manager.store = &Store{useKeyring: false, fallbackDir: tmpDir}

	manager.store.Save("https://api.inkwell.app", &Credentials{
		AccessToken: "stale-token",
		ExpiresAt:   time.Now().Unix() - 10,
	})

	_, err := manager.AccessToken(context.Background())
	require.Error(t, err)
	e := output.AsError(err)
	assert.Equal(t, output.CodeAuth, e.Code)
}

func TestLoginWithToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "GET", r.Method)
		require.Equal(t, "/v1/me", r.URL.Path)

		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":    "acct-1",
			"email": "writer@example.com",
			"name":  "Writer",
		})
	}))
	defer server.Close()

	tmpDir := t.TempDir()
	manager := NewManager(&config.Config{BaseURL: server.URL}, server.Client())
	manager.store = &Store{useKeyring: false, fallbackDir: tmpDir}

	account, err := manager.LoginWithToken(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, "acct-1", account.ID)
	assert.Equal(t, "writer@example.com", account.Email)

	loaded, err := manager.store.Load(server.URL)
	require.NoError(t, err)
	assert.Equal(t, "good-token", loaded.AccessToken)
	assert.Equal(t, "acct-1", loaded.AccountID)
	assert.Equal(t, "writer@example.com", loaded.Email)
}

func TestLoginWithTokenRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	tmpDir := t.TempDir()
	manager := NewManager(&config.Config{BaseURL: server.URL}, server.Client())
	manager.store = &Store{useKeyring: false, fallbackDir: tmpDir}

	_, err := manager.LoginWithToken(context.Background(), "bad-token")
	require.Error(t, err)
	e := output.AsError(err)
	assert.Equal(t, output.CodeAuth, e.Code)

	// Nothing stored on rejection
	assert.False(t, manager.IsAuthenticated())
}

func TestLoginWithTokenEmpty(t *testing.T) {
	manager := NewManager(&config.Config{BaseURL: "https://api.inkwell.app"}, http.DefaultClient)
	manager.store = &Store{useKeyring: false, fallbackDir: t.TempDir()}

	_, err := manager.LoginWithToken(context.Background(), "   ")
	require.Error(t, err)
	e := output.AsError(err)
	assert.Equal(t, output.CodeUsage, e.Code)
}

func TestLogout(t *testing.T) {
	t.Setenv("INKWELL_TOKEN", "")
	os.Unsetenv("INKWELL_TOKEN")

	tmpDir := t.TempDir()

	cfg := &config.Config{
		BaseURL: "https://api.inkwell.app",
	}
	manager := NewManager(cfg, http.DefaultClient)
	manager.store = &Store{useKeyring: false, fallbackDir: tmpDir}

	// Save credentials
	creds := &Credentials{
		AccessToken: "test-token",
		ExpiresAt:   time.Now().Unix() + 3600,
	}
	manager.store.Save("https://api.inkwell.app", creds)

	// Logout
	err := manager.Logout()
	require.NoError(t, err, "Logout failed")

	// Should no longer be authenticated
	assert.False(t, manager.IsAuthenticated(), "Should not be authenticated after logout")
}

func TestTokensPageURL(t *testing.T) {
	tests := []struct {
		baseURL  string
		expected string
	}{
		{"https://api.inkwell.app", "https://inkwell.app/settings/tokens"},
		{"https://api.inkwell.app/", "https://inkwell.app/settings/tokens"},
		{"http://localhost:3000", "http://localhost:3000/settings/tokens"},
		{"https://staging.inkwell.app", "https://staging.inkwell.app/settings/tokens"},
	}

	for _, tt := range tests {
		t.Run(tt.baseURL, func(t *testing.T) {
			manager := NewManager(&config.Config{BaseURL: tt.baseURL}, http.DefaultClient)
			assert.Equal(t, tt.expected, manager.TokensPageURL())
		})
	}
}

func TestAccountEmail(t *testing.T) {
	tmpDir := t.TempDir()

	manager := NewManager(&config.Config{BaseURL: "https://api.inkwell.app"}, http.DefaultClient)
	manager.store = &Store{useKeyring: false, fallbackDir: tmpDir}

	assert.Empty(t, manager.AccountEmail())

	manager.store.Save("https://api.inkwell.app", &Credentials{
		AccessToken: "test-token",
		Email:       "writer@example.com",
	})

	assert.Equal(t, "writer@example.com", manager.AccountEmail())
}

func TestCredentialsJSON(t *testing.T) {
	creds := &Credentials{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    1234567890,
		Scope:        "read",
		AccountID:    "12345",
		Email:        "writer@example.com",
	}

	data, err := json.Marshal(creds)
	require.NoError(t, err, "Marshal failed")

	var loaded Credentials
	require.NoError(t, json.Unmarshal(data, &loaded), "Unmarshal failed")

	assert.Equal(t, creds.AccessToken, loaded.AccessToken, "AccessToken mismatch")
	assert.Equal(t, creds.RefreshToken, loaded.RefreshToken, "RefreshToken mismatch")
	assert.Equal(t, creds.ExpiresAt, loaded.ExpiresAt, "ExpiresAt mismatch")
	assert.Equal(t, creds.Scope, loaded.Scope, "Scope mismatch")
	assert.Equal(t, creds.AccountID, loaded.AccountID, "AccountID mismatch")
	assert.Equal(t, creds.Email, loaded.Email, "Email mismatch")
}

func TestUsingKeyring(t *testing.T) {
	store := &Store{useKeyring: true, fallbackDir: "/tmp"}
	assert.True(t, store.UsingKeyring(), "UsingKeyring() should be true")

	store = &Store{useKeyring: false, fallbackDir: "/tmp"}
	assert.False(t, store.UsingKeyring(), "UsingKeyring() should be false")
}
