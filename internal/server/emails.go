package server

import (
	"regexp"
	"strings"
	"sync"
)

// EmailCheckPath is the async uniqueness endpoint referenced by schemas.
const EmailCheckPath = "/api/validate/email"

var emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)

// DefaultEmails are registered on a fresh backend.
var DefaultEmails = []string{"test@example.com", "admin@example.com"}

// EmailRegistry tracks addresses already taken by a registration.
type EmailRegistry struct {
	mu    sync.RWMutex
	taken map[string]struct{}
}

// NewEmailRegistry returns a registry holding seed.
func NewEmailRegistry(seed ...string) *EmailRegistry {
	r := &EmailRegistry{taken: make(map[string]struct{})}
	for _, email := range seed {
		r.Register(email)
	}
	return r
}

// Register marks email as taken. Addresses compare case-insensitively.
func (r *EmailRegistry) Register(email string) {
	key := normalizeEmail(email)
	if key == "" {
		return
	}
	r.mu.Lock()
	r.taken[key] = struct{}{}
	r.mu.Unlock()
}

// Check reports whether email is well formed and unused.
func (r *EmailRegistry) Check(email string) (bool, string) {
	if !emailPattern.MatchString(email) {
		return false, "Invalid email format"
	}
	r.mu.RLock()
	_, taken := r.taken[normalizeEmail(email)]
	r.mu.RUnlock()
	if taken {
		return false, "This email is already registered"
	}
	return true, "Email is available"
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
