package models

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a prefixed identifier like "poll_1f3a9c0d2b4e".
// Identifiers are opaque strings on the wire; the prefix only helps
// humans reading logs and database dumps.
func NewID(prefix string) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "_" + hex[:12]
}

// NewOptionID is shorter than the other ids; options are scoped to a poll.
func NewOptionID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "opt_" + hex[:8]
}

// NewSessionToken returns a full-length opaque session token.
func NewSessionToken() string {
	return "session_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
