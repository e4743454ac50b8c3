package domain

import (
	"fmt"
	"strings"
)

// ValidationError reports a missing or malformed required field. The failing
// field is always named so the caller can surface it directly.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s is required", e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError reports a reference to an id that does not exist.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// DuplicateActiveEntryError reports an attempted double-add of an animal to a
// track that already holds an active entry for it. Informational, not
// alarming: no state changed.
type DuplicateActiveEntryError struct {
	AnimalID string
	Track    Track
}

func (e DuplicateActiveEntryError) Error() string {
	return fmt.Sprintf("animal %s already has an active entry on the %s track", e.AnimalID, e.Track)
}

// ConflictError reports an optimistic concurrency failure: the record changed
// since the caller last read it.
type ConflictError struct {
	Entity          EntityType
	ID              string
	ExpectedVersion int64
	ActualVersion   int64
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("%s %s modified concurrently: expected version %d, found %d",
		e.Entity, e.ID, e.ExpectedVersion, e.ActualVersion)
}

// ReferentialIntegrityError blocks an administrative purge while worklist or
// exit records still reference the target.
type ReferentialIntegrityError struct {
	Entity EntityType
	ID     string
	Reason string
}

func (e ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("%s %s cannot be deleted: %s", e.Entity, e.ID, e.Reason)
}

// TransientError wraps a network or backend failure that is safe to retry
// without re-entering data.
type TransientError struct {
	Op  string
	Err error
}

func (e TransientError) Error() string {
	return fmt.Sprintf("%s: transient failure: %v", e.Op, e.Err)
}

func (e TransientError) Unwrap() error { return e.Err }

// BatchRowError identifies one failed row of a batch operation.
type BatchRowError struct {
	EntryID string
	Err     error
}

// PartialBatchError reports that a subset of a batch operation failed.
// Succeeded rows stay committed; the caller retries only the failed rows.
type PartialBatchError struct {
	Succeeded int
	Failed    []BatchRowError
}

func (e PartialBatchError) Error() string {
	ids := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		ids = append(ids, f.EntryID)
	}
	return fmt.Sprintf("batch finalize: %d succeeded, %d failed (%s)",
		e.Succeeded, len(e.Failed), strings.Join(ids, ", "))
}
