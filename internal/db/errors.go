package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"venuechat/internal/models"
)

// Domain-level database error sentinels.
var (
	// ErrStorageUnavailable means the store could not be reached. It fails
	// the whole call.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// isUnavailable reports whether err means the store itself is unreachable
// rather than a single statement failing.
func isUnavailable(err error) bool {
	if err == nil || errors.Is(err, pgx.ErrNoRows) || errors.Is(err, models.ErrMalformedCandidate) {
		return false
	}
	if errors.Is(err, ErrStorageUnavailable) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08: connection exception. 57P0x: server shutting down.
		return strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57P0")
	}

	// Dial, IO, closed pool, and context errors all leave the store unusable
	// for this call.
	return true
}

// storageError wraps unreachable-store errors with ErrStorageUnavailable and
// leaves statement errors untouched.
func storageError(err error) error {
	if err == nil || errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if isUnavailable(err) {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return err
}
