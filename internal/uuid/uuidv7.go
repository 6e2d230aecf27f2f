// Package uuid generates time-ordered identifiers for database rows.
package uuid

import (
	googleuuid "github.com/google/uuid"
)

// New generates a UUIDv7. Its 48-bit millisecond timestamp prefix keeps
// primary keys roughly insertion-ordered, which also serves as the
// created_at tie-break for transactions recorded in the same instant.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		// Fallback to a random UUID if the clock sequence cannot be read.
		return googleuuid.New().String()
	}
	return id.String()
}

// Parse validates and normalizes a UUID string.
func Parse(s string) (string, error) {
	parsed, err := googleuuid.Parse(s)
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}

// IsValid checks if a string is a valid UUID.
func IsValid(s string) bool {
	_, err := googleuuid.Parse(s)
	return err == nil
}
