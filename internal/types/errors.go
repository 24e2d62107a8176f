package types

import "errors"

// Error kinds the façade and CLI distinguish by value (spec §7).
var (
	// ErrReadOnly is returned when a write path or migration runs against
	// a database opened read-only.
	ErrReadOnly = errors.New("database is read-only")

	// ErrFutureSchema is returned when the on-disk schema_version exceeds
	// the maximum version this binary knows how to migrate.
	ErrFutureSchema = errors.New("database schema is newer than this program supports")

	// ErrCapacityExhausted is returned when no free category bit index
	// remains in the 0..62 range.
	ErrCapacityExhausted = errors.New("no free category bit index remains (63 bits exhausted)")

	// ErrInvalidArgument covers malformed call arguments: reindex across
	// more than one synth, negative limits, contradictory filters.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUniqueViolation is the raw (synth_name, content_hash) collision
	// from Insert. Merge never lets this escape to its caller.
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrStorageFailure wraps any other engine-level error.
	ErrStorageFailure = errors.New("storage failure")

	// ErrAborted is returned when a progress reporter signals cancellation
	// mid-operation.
	ErrAborted = errors.New("operation aborted")

	// ErrNotFound is returned by lookups that find no matching row.
	ErrNotFound = errors.New("not found")
)
