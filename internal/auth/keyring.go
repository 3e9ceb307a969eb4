package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/zalando/go-keyring"
)

const serviceName = "inkwell-cli"

// Credentials holds API tokens and metadata for one origin.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresAt    int64  `json:"expires_at"` // unix seconds; 0 = never expires
	Scope        string `json:"scope,omitempty"`
	AccountID    string `json:"account_id,omitempty"`
	Email        string `json:"email,omitempty"`
}

// Store persists credentials, preferring the system keychain and
// falling back to a plaintext file under fallbackDir.
type Store struct {
	useKeyring  bool
	fallbackDir string
}

// NewStore creates a credential store. INKWELL_NO_KEYRING forces the
// file fallback, which tests rely on.
func NewStore(fallbackDir string) *Store {
	s := &Store{fallbackDir: fallbackDir}
	if os.Getenv("INKWELL_NO_KEYRING") != "" {
		return s
	}

	if probeKeyring() {
		s.useKeyring = true
		return s
	}

	fmt.Fprintf(os.Stderr, "warning: system keyring unavailable, credentials stored in plaintext at %s\n",
		s.credentialsPath())
	return s
}

// probeKeyring checks that the system keychain accepts writes.
func probeKeyring() bool {
	const probe = "inkwell::test"
	if err := keyring.Set(serviceName, probe, "test"); err != nil {
		return false
	}
	_ = keyring.Delete(serviceName, probe)
	return true
}

// key returns the keyring key for an origin.
func key(origin string) string {
	return fmt.Sprintf("inkwell::%s", origin)
}

// Load retrieves credentials for the given origin.
func (s *Store) Load(origin string) (*Credentials, error) {
	if !s.useKeyring {
		return s.fileLoad(origin)
	}

	data, err := keyring.Get(serviceName, key(origin))
	if err != nil {
		return nil, fmt.Errorf("credentials not found: %w", err)
	}
	var creds Credentials
	if err := json.Unmarshal([]byte(data), &creds); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", err)
	}
	return &creds, nil
}

// Save stores credentials for the given origin.
func (s *Store) Save(origin string, creds *Credentials) error {
	if !s.useKeyring {
		return s.fileSave(origin, creds)
	}
	return s.keychainSave(origin, creds)
}

// Delete removes credentials for the given origin.
func (s *Store) Delete(origin string) error {
	if !s.useKeyring {
		return s.fileDelete(origin)
	}
	return keyring.Delete(serviceName, key(origin))
}

func (s *Store) keychainSave(origin string, creds *Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return keyring.Set(serviceName, key(origin), string(data))
}

// File fallback. All origins share one credentials.json keyed by origin.

func (s *Store) credentialsPath() string {
	return filepath.Join(s.fallbackDir, "credentials.json")
}

func (s *Store) fileLoadAll() (map[string]*Credentials, error) {
	data, err := os.ReadFile(s.credentialsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*Credentials), nil
		}
		return nil, err
	}

	var all map[string]*Credentials
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	return all, nil
}

func (s *Store) fileSaveAll(all map[string]*Credentials) error {
	if err := os.MkdirAll(s.fallbackDir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}
	return replaceFile(s.fallbackDir, s.credentialsPath(), data)
}

// replaceFile writes data to a temp file in dir and renames it over
// dest, so readers never observe a partially written file.
func replaceFile(dir, dest string, data []byte) error {
	tmp, err := os.CreateTemp(dir, "credentials-*.json.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	cleanup := func(err error) error {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Chmod(0600); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	// Unix rename atomically replaces the destination. Windows rename
	// fails when the destination exists, so remove and retry there.
	if err := os.Rename(tmpPath, dest); err != nil {
		if runtime.GOOS == "windows" {
			_ = os.Remove(dest)
			return os.Rename(tmpPath, dest)
		}
		os.Remove(tmpPath)
		return err
	}
	return nil
}

func (s *Store) fileLoad(origin string) (*Credentials, error) {
	all, err := s.fileLoadAll()
	if err != nil {
		return nil, err
	}

	creds, ok := all[origin]
	if !ok {
		return nil, fmt.Errorf("credentials not found for %s", origin)
	}
	return creds, nil
}

func (s *Store) fileSave(origin string, creds *Credentials) error {
	all, err := s.fileLoadAll()
	if err != nil {
		return err
	}

	all[origin] = creds
	return s.fileSaveAll(all)
}

func (s *Store) fileDelete(origin string) error {
	all, err := s.fileLoadAll()
	if err != nil {
		return err
	}

	delete(all, origin)
	return s.fileSaveAll(all)
}

// MigrateToKeyring moves file-stored credentials into the keychain and
// removes the plaintext file on success.
func (s *Store) MigrateToKeyring() error {
	if !s.useKeyring {
		return nil
	}

	all, err := s.fileLoadAll()
	if err != nil {
		return nil //nolint:nilerr // nothing to migrate
	}

	for origin, creds := range all {
		if err := s.keychainSave(origin, creds); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", origin, err)
		}
	}

	_ = os.Remove(s.credentialsPath())
	return nil
}

// UsingKeyring reports whether the system keychain backs this store.
func (s *Store) UsingKeyring() bool {
	return s.useKeyring
}
