package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/surajshivkumar/ConvoLens/internal/config"
)

// CalendarGrant is the OAuth2 authorization that lets convolens create
// events on the user's calendar.
type CalendarGrant struct {
	ClientID     string        `json:"client_id"`
	ClientSecret string        `json:"client_secret"`
	Scope        string        `json:"scope"`
	GrantedAt    time.Time     `json:"granted_at"`
	Token        *oauth2.Token `json:"token"`
}

// Usable reports whether the grant can mint access tokens on its own.
func (g *CalendarGrant) Usable() bool {
	return g != nil && g.Token != nil && g.Token.RefreshToken != ""
}

// Credentials is the on-disk credentials document.
type Credentials struct {
	// APIKeys maps a provider name (openai, anthropic) to its key.
	APIKeys  map[string]string `json:"api_keys,omitempty"`
	Calendar *CalendarGrant    `json:"calendar,omitempty"`
}

// Store reads and writes the credentials file. Writes are serialized so a
// token refresh cannot interleave with another update.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore returns a store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultStore returns the store at ~/.convolens/credentials.json.
func DefaultStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}
	return NewStore(filepath.Join(home, ".convolens", "credentials.json")), nil
}

// Path is the file the store reads and writes.
func (s *Store) Path() string { return s.path }

// Load returns the stored credentials, or an empty document when the file
// does not exist yet.
func (s *Store) Load() (*Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Update applies fn to the stored credentials and writes the result back
// with mode 0600.
func (s *Store) Update(fn func(c *Credentials)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.load()
	if err != nil {
		return err
	}
	fn(creds)
	return s.save(creds)
}

func (s *Store) load() (*Credentials, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &Credentials{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parsing credentials %s: %w", s.path, err)
	}
	return &creds, nil
}

func (s *Store) save(creds *Credentials) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("creating credentials directory: %w", err)
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling credentials: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

// APIKey resolves the key for provider: the provider's environment
// variable wins, then the stored key.
func (s *Store) APIKey(provider config.ProviderType) string {
	envVar := config.APIKeyEnvVar(provider)
	if envVar == "" {
		return ""
	}
	if key := os.Getenv(envVar); key != "" {
		return key
	}
	creds, err := s.Load()
	if err != nil {
		return ""
	}
	return creds.APIKeys[string(provider)]
}
