package domain

import "github.com/google/uuid"

// NewFileID generates a random identifier for a file descriptor.
func NewFileID() string {
	return uuid.NewString()
}

// DeriveID returns a stable identifier for a catalog entity, derived from its
// qualified name, so ids survive restarts without being configured.
func DeriveID(qualifiedName string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("deltashare:"+qualifiedName)).String()
}
