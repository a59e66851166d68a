// Package uuid generates the identifiers attached to subscriptions and HTTP
// requests.
package uuid

import (
	"github.com/google/uuid"
)

// NewID returns a UUIDv7 string so IDs sort by creation time. If the v7
// source fails it falls back to a random v4.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
