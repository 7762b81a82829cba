package domain

import (
	"errors"
	"fmt"
)

// Ingestion failures.
var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrParse             = errors.New("parse error")
	ErrEmptyDocument     = errors.New("empty document")
)

// Remote-service failures.
var (
	ErrEmbeddingService = errors.New("embedding service error")
	ErrAPI              = errors.New("api error")
	ErrGeneration       = errors.New("generation error")
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTemporary    = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
