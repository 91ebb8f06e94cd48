package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"seyon/internal/storage"
)

var (
	// ErrInvalidCredentials is returned for an unknown user and for a wrong
	// password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized covers missing, malformed, tampered and expired tokens.
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("project not found")
	ErrMissingFile  = errors.New("an image file is required")
	ErrTooManyFiles = errors.New("only one image file may be uploaded")

	ErrUnsupportedMediaType = storage.ErrUnsupportedMediaType
	ErrFileTooLarge         = storage.ErrFileTooLarge
)

// ValidationError reports rejected input fields, keyed by field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
