// Package utils provides shared utility functions used across the application.
//
// Go Learning Note — "pkg/" Directory Convention:
// Code under pkg/ is intended to be importable by external projects (unlike
// internal/ which is compiler-enforced private). Nothing here knows about
// the domain: ids, tokens and great-circle distance.
package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateID creates a new UUID v4 string for use as an entity identifier.
func GenerateID() string {
	return uuid.New().String()
}

// GenerateToken returns an opaque random token without dashes. Used for
// refresh tokens and anonymous browser tokens.
func GenerateToken() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "") +
		strings.ReplaceAll(uuid.New().String(), "-", "")
}
