package core

import "sync"

// MinCipherPasswordLen is the shortest password the toggles accept.
const MinCipherPasswordLen = 4

// EncryptionToggle is the password-gated switch controlling whether outgoing
// bodies are obfuscated. Two instances exist: one scoped to rooms, which
// persists across room switches, and one scoped to private messages, which
// is reset whenever a new PM target is opened.
type EncryptionToggle struct {
	mu       sync.Mutex
	enabled  bool
	password string
}

func NewEncryptionToggle() *EncryptionToggle {
	return &EncryptionToggle{}
}

// Enable arms the toggle with password. Passwords under four characters are
// rejected locally before anything touches the network.
func (t *EncryptionToggle) Enable(password string) error {
	if len([]rune(password)) < MinCipherPasswordLen {
		return NewValidationError("password", "must be at least 4 characters")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = true
	t.password = password
	return nil
}

// Disable turns the toggle off and drops the password.
func (t *EncryptionToggle) Disable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = false
	t.password = ""
}

// Armed returns the password and whether the toggle is on.
func (t *EncryptionToggle) Armed() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.password, t.enabled
}
