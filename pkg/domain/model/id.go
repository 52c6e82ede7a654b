package model

import (
	"strings"

	"github.com/google/uuid"
)

// newShortID returns prefix + "-" + the first 8 hex characters of a random UUID
func newShortID(prefix string) string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return prefix + "-" + hex[:8]
}

// NewCorrelationID returns a fresh correlation ID for a unit of work
func NewCorrelationID() string {
	return uuid.New().String()
}
