// Package session holds the signed-in user for one client process. A Session
// is loaded once at startup and passed by reference; Logout tears it down.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrNotLoggedIn is returned when an operation needs a user and none is set.
var ErrNotLoggedIn = errors.New("not logged in")

const fileName = "session.json"

var validate = validator.New()

// User identifies the person using the client.
type User struct {
	Email    string    `json:"email" validate:"required,email"`
	Name     string    `json:"name,omitempty"`
	LoggedIn time.Time `json:"loggedIn"`
}

// Session is the explicit replacement for ambient browser storage.
type Session struct {
	path string

	mu       sync.RWMutex
	user     *User
	teardown []func()
}

// Load reads the session stored in dataDir. A missing file yields an empty
// session.
func Load(dataDir string) (*Session, error) {
	s := &Session{path: filepath.Join(dataDir, fileName)}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("parsing session: %w", err)
	}
	if validate.Struct(u) == nil {
		s.user = &u
	}
	return s, nil
}

// User returns the signed-in user.
func (s *Session) User() (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, ErrNotLoggedIn
	}
	return *s.user, nil
}

// Login validates u and persists it.
func (s *Session) Login(u User) error {
	if err := validate.Struct(u); err != nil {
		return fmt.Errorf("invalid user: %w", err)
	}
	if u.LoggedIn.IsZero() {
		u.LoggedIn = time.Now().UTC()
	}
	data, err := json.MarshalIndent(u, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}

	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()
	return nil
}

// OnLogout registers fn to run when the session is torn down.
func (s *Session) OnLogout(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardown = append(s.teardown, fn)
}

// Logout clears the user, removes the stored session and runs the teardown
// hooks in reverse registration order.
func (s *Session) Logout() error {
	s.mu.Lock()
	s.user = nil
	hooks := s.teardown
	s.teardown = nil
	s.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session: %w", err)
	}
	return nil
}
