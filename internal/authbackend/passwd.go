package authbackend

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// PasswdBackend authenticates against a local file of
// "username:bcrypt-hash" lines, generated by cmd/radiusd-hashpw. It
// backs the `-c` "cache /etc/passwd and friends" flag.
type PasswdBackend struct {
	path string

	mu    sync.RWMutex
	creds map[string]string
}

// NewPasswdBackend loads path and returns a ready backend.
func NewPasswdBackend(path string) (*PasswdBackend, error) {
	b := &PasswdBackend{path: path}
	if err := b.Reload(); err != nil {
		return nil, err
	}
	return b, nil
}

// Reload re-reads the credential file, swapping the in-memory table
// atomically so a concurrent Authenticate never observes a half-loaded
// file.
func (b *PasswdBackend) Reload() error {
	f, err := os.Open(b.path)
	if err != nil {
		return fmt.Errorf("opening passwd file %s: %w", b.path, err)
	}
	defer f.Close()

	creds := make(map[string]string)
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		parts := strings.SplitN(text, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("%s:%d: malformed line, want user:hash", b.path, line)
		}
		creds[parts[0]] = parts[1]
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading passwd file %s: %w", b.path, err)
	}

	b.mu.Lock()
	b.creds = creds
	b.mu.Unlock()
	return nil
}

// Authenticate reports whether password matches the stored bcrypt hash
// for username. An unknown username is a non-error rejection.
func (b *PasswdBackend) Authenticate(username, password string) (bool, error) {
	b.mu.RLock()
	hash, ok := b.creds[username]
	b.mu.RUnlock()
	if !ok {
		return false, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch err {
	case nil:
		return true, nil
	case bcrypt.ErrMismatchedHashAndPassword:
		return false, nil
	default:
		return false, err
	}
}
