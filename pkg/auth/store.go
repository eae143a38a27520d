// Package auth owns user records and their session bindings. Passwords
// are stored as bcrypt hashes; session ids are v4 UUIDs minted at login.
// Credential failures never reveal whether the username or the password
// was wrong.
package auth

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUserExists is returned when registering a taken username.
	ErrUserExists = errors.New("username already exists")
	// ErrInvalidCredentials is returned for any login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnknownSession is returned when logging out an unbound session.
	ErrUnknownSession = errors.New("unknown session")
)

// User is a registered account with its active session ids.
type User struct {
	Username     string   `json:"username"`
	PasswordHash string   `json:"password_hash"`
	Sessions     []string `json:"sessions"`
}

// Store holds user records in memory. Records are never deleted; only
// session membership changes after registration.
type Store struct {
	mu    sync.RWMutex
	users map[string]*User
	// order preserves registration order so session scans are
	// deterministic.
	order []string
}

// NewStore creates an empty user store.
func NewStore() *Store {
	return &Store{users: make(map[string]*User)}
}

// Register creates a user with a bcrypt-hashed password.
func (s *Store) Register(username, password string) error {
	if username == "" || password == "" {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; exists {
		return ErrUserExists
	}

	s.users[username] = &User{Username: username, PasswordHash: string(hash)}
	s.order = append(s.order, username)

	log.Info().Str("username", username).Msg("User registered")
	return nil
}

// Login verifies credentials and mints a new session id bound to the
// user. The returned id is a v4 UUID.
func (s *Store) Login(username, password string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[username]
	if !exists {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	sessionID := uuid.NewString()
	user.Sessions = append(user.Sessions, sessionID)

	log.Info().Str("username", username).Msg("User logged in")
	return sessionID, nil
}

// Logout removes a session binding from whichever user holds it.
func (s *Store) Logout(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, username := range s.order {
		user := s.users[username]
		for i, id := range user.Sessions {
			if id == sessionID {
				user.Sessions = append(user.Sessions[:i], user.Sessions[i+1:]...)
				log.Info().Str("username", username).Msg("User logged out")
				return nil
			}
		}
	}

	return ErrUnknownSession
}

// IsSessionBound reports whether a session id belongs to any user and,
// if so, which one. Users are scanned in registration order so the
// answer is deterministic.
func (s *Store) IsSessionBound(sessionID string) (bool, string) {
	if sessionID == "" {
		return false, ""
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, username := range s.order {
		for _, id := range s.users[username].Sessions {
			if id == sessionID {
				return true, username
			}
		}
	}

	return false, ""
}

// Usernames returns all registered usernames in registration order.
func (s *Store) Usernames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// snapshot captures the store for persistence.
func (s *Store) snapshot() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]User, 0, len(s.order))
	for _, username := range s.order {
		u := s.users[username]
		sessions := make([]string, len(u.Sessions))
		copy(sessions, u.Sessions)
		out = append(out, User{Username: u.Username, PasswordHash: u.PasswordHash, Sessions: sessions})
	}
	return out
}

// restore replaces the store's contents.
func (s *Store) restore(users []User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = make(map[string]*User, len(users))
	s.order = s.order[:0]
	for i := range users {
		u := users[i]
		s.users[u.Username] = &u
		s.order = append(s.order, u.Username)
	}
}
