package gtfsstrip

import (
	"errors"
	"fmt"
)

var (
	// ErrEntryNotFound is returned by Archive.Stream when the archive has no such entry.
	// It is not fatal: the table is created empty and the run continues.
	ErrEntryNotFound = errors.New("entry not found in archive")

	ErrInvalidInput = errors.New("invalid input")
	ErrCatalogOrder = errors.New("catalog table references a table declared after it")
)

type ArchiveOpenError struct {
	Path string
	Err  error
}

func (e *ArchiveOpenError) Error() string {
	return fmt.Sprintf("failed to open %s: %s", e.Path, e.Err)
}

func (e *ArchiveOpenError) Unwrap() error { return e.Err }

// StreamError is a read failure on an entry that was found in the archive.
type StreamError struct {
	Entry string
	Err   error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("failed to read %s: %s", e.Entry, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// SchemaError is a failure creating or opening part of the output store.
type SchemaError struct {
	Table string
	Err   error
}

func (e *SchemaError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("failed to prepare store: %s", e.Err)
	}
	return fmt.Sprintf("failed to create table '%s': %s", e.Table, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// WriteError is a failure writing rows or resolving the transaction.
type WriteError struct {
	Table string
	Op    string
	Err   error
}

func (e *WriteError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("failed to %s: %s", e.Op, e.Err)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Op, e.Table, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
