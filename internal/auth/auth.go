// Package auth provides token authentication for the Inkwell service.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/inkwell/inkwell-cli/internal/config"
	"github.com/inkwell/inkwell-cli/internal/models"
	"github.com/inkwell/inkwell-cli/internal/output"
)

// tokenEndpointPath is where refresh grants are exchanged.
const tokenEndpointPath = "/v1/oauth/token"

// Manager handles authentication: personal access tokens pasted at login,
// optional refresh tokens, and credential storage.
type Manager struct {
	cfg        *config.Config
	store      *Store
	httpClient *http.Client

	mu sync.Mutex
}

// NewManager creates a new auth manager.
func NewManager(cfg *config.Config, httpClient *http.Client) *Manager {
	return &Manager{
		cfg:        cfg,
		store:      NewStore(config.GlobalConfigDir()),
		httpClient: httpClient,
	}
}

// AccessToken returns a valid access token, refreshing if needed.
// If INKWELL_TOKEN env var is set, it's used directly without storage.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	// Check for INKWELL_TOKEN environment variable first
	if token := os.Getenv("INKWELL_TOKEN"); token != "" {
		return token, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	origin := config.NormalizeBaseURL(m.cfg.BaseURL)
	creds, err := m.store.Load(origin)
	if err != nil {
		return "", output.ErrAuth("Not authenticated")
	}

	// Check if token is expired (with 5 minute buffer). ExpiresAt == 0
	// means a personal access token that never expires.
	if creds.ExpiresAt > 0 && time.Now().Unix() >= creds.ExpiresAt-300 {
		if err := m.refreshLocked(ctx, origin, creds); err != nil {
			return "", err
		}
		// Reload refreshed credentials
		creds, err = m.store.Load(origin)
		if err != nil {
			return "", err
		}
	}

	return creds.AccessToken, nil
}

// IsAuthenticated checks if there are valid credentials.
// Returns true if INKWELL_TOKEN env var is set or if stored credentials exist.
func (m *Manager) IsAuthenticated() bool {
	// Check for INKWELL_TOKEN environment variable first
	if os.Getenv("INKWELL_TOKEN") != "" {
		return true
	}

	origin := config.NormalizeBaseURL(m.cfg.BaseURL)
	creds, err := m.store.Load(origin)
	if err != nil {
		return false
	}
	return creds.AccessToken != ""
}

// Refresh forces a token refresh.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	origin := config.NormalizeBaseURL(m.cfg.BaseURL)
	creds, err := m.store.Load(origin)
	if err != nil {
		return output.ErrAuth("Not authenticated")
	}

	return m.refreshLocked(ctx, origin, creds)
}

func (m *Manager) refreshLocked(ctx context.Context, origin string, creds *Credentials) error {
	if creds.RefreshToken == "" {
		return output.ErrAuth("Token expired and no refresh token available")
	}

	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", creds.RefreshToken)

	endpoint := origin + tokenEndpointPath
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return output.ErrNetwork(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return output.ErrAPI(resp.StatusCode, fmt.Sprintf("token refresh failed: %s", string(body)))
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return err
	}

	creds.AccessToken = tokenResp.AccessToken
	if tokenResp.RefreshToken != "" {
		creds.RefreshToken = tokenResp.RefreshToken
	}
	if tokenResp.ExpiresIn > 0 {
		creds.ExpiresAt = time.Now().Unix() + tokenResp.ExpiresIn
	}

	return m.store.Save(origin, creds)
}

// LoginWithToken validates a pasted personal access token against /v1/me
// and stores it on success. Returns the authenticated account.
func (m *Manager) LoginWithToken(ctx context.Context, token string) (*models.Account, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, output.ErrUsage("Token must not be empty")
	}

	origin := config.NormalizeBaseURL(m.cfg.BaseURL)

	req, err := http.NewRequestWithContext(ctx, "GET", origin+"/v1/me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, output.ErrNetwork(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, output.ErrAuth("Token rejected by the server")
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, output.ErrAPI(resp.StatusCode, fmt.Sprintf("token validation failed: %s", string(body)))
	}

	var account models.Account
	if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
		return nil, fmt.Errorf("invalid /v1/me response: %w", err)
	}

	creds := &Credentials{
		AccessToken: token,
		AccountID:   account.ID,
		Email:       account.Email,
	}
	if err := m.store.Save(origin, creds); err != nil {
		return nil, err
	}
	return &account, nil
}

// Logout removes stored credentials.
func (m *Manager) Logout() error {
	origin := config.NormalizeBaseURL(m.cfg.BaseURL)
	return m.store.Delete(origin)
}

// TokensPageURL returns the web page where the user can create a personal
// access token for the configured service.
func (m *Manager) TokensPageURL() string {
	origin := config.NormalizeBaseURL(m.cfg.BaseURL)
	u, err := url.Parse(origin)
	if err != nil {
		return "https://inkwell.app/settings/tokens"
	}
	// The API host api.<domain> serves tokens from the bare web domain.
	host := strings.TrimPrefix(u.Host, "api.")
	return u.Scheme + "://" + host + "/settings/tokens"
}

// OpenTokensPage opens the token settings page in the default browser.
func (m *Manager) OpenTokensPage() error {
	return openBrowser(m.TokensPageURL())
}

// openBrowser opens the specified URL in the default browser.
func openBrowser(url string) error {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "linux":
		cmd = "xdg-open"
		args = []string{url}
	case "windows":
		cmd = "rundll32"
		args = []string{"url.dll,FileProtocolHandler", url}
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return exec.Command(cmd, args...).Start() //nolint:gosec,noctx // G204: cmd is hardcoded per-platform; fire-and-forget
}

// AccountEmail returns the stored account email for the current origin.
func (m *Manager) AccountEmail() string {
	origin := config.NormalizeBaseURL(m.cfg.BaseURL)
	creds, err := m.store.Load(origin)
	if err != nil {
		return ""
	}
	return creds.Email
}

// GetStore returns the credential store.
func (m *Manager) GetStore() *Store {
	return m.store
}
