package gtfsstrip

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
)

// Sink creates the output store of a feed.
type Sink interface {
	// Create replaces whatever store exists at path with a fresh, empty one.
	Create(path string) (Store, error)
}

// Store is a transactional relational output. All tables of one feed are written
// inside a single transaction.
type Store interface {
	Begin() error
	CreateTable(spec TableSpec) error
	InsertRows(spec TableSpec, rows []Row) (int, error)
	Commit() error
	Rollback() error
	Close() error
}

var storePragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA synchronous = OFF",
}

// SQLiteSink writes each feed to a SQLite database file.
type SQLiteSink struct{}

func (SQLiteSink) Create(outputPath string) (Store, error) {
	if outputPath == "" {
		panic("Missing outputPath")
	}

	for _, suffix := range []string{"", "-wal", "-shm", "-journal"} {
		err := os.Remove(outputPath + suffix)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, &SchemaError{Err: err}
		}
	}

	db, err := sqlite.OpenConn(outputPath, 0)
	if err != nil {
		return nil, &SchemaError{Err: fmt.Errorf("failed to open '%s': %w", outputPath, err)}
	}

	for _, pragma := range storePragmas {
		if err := sqlitex.ExecTransient(db, pragma, sqlitexNoop); err != nil {
			_ = db.Close()
			return nil, &SchemaError{Err: fmt.Errorf("%s: %w", pragma, err)}
		}
	}
	return &sqliteStore{db: db}, nil
}

type sqliteStore struct {
	db     *sqlite.Conn
	inTx   bool
	closed bool
}

func sqlitexNoop(*sqlite.Stmt) error { return nil }

func (s *sqliteStore) Begin() error {
	if err := sqlitex.Exec(s.db, "BEGIN", sqlitexNoop); err != nil {
		return &SchemaError{Err: fmt.Errorf("failed to start transaction: %w", err)}
	}
	s.inTx = true
	return nil
}

func (s *sqliteStore) CreateTable(spec TableSpec) error {
	if err := sqlitex.ExecTransient(s.db, spec.CreateStatement(), sqlitexNoop); err != nil {
		return &SchemaError{Table: spec.Name, Err: err}
	}
	return nil
}

func insertStatement(spec TableSpec) string {
	var argFragments []string
	for i := range spec.Fields {
		argFragments = append(argFragments, fmt.Sprintf("?%d", i+1))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		spec.Name, strings.Join(spec.FieldNames(), ", "), strings.Join(argFragments, ", "))
}

// columnValue returns the value written for field, and false when it is written as
// NULL. Empty values of non-text fields are written as 0.
func columnValue(field Field, row Row) (string, bool) {
	value, ok := row[field.Name]
	if !ok {
		return "", false
	}
	if field.Type != Text && value == "" {
		return "0", true
	}
	return value, true
}

func (s *sqliteStore) InsertRows(spec TableSpec, rows []Row) (int, error) {
	insertStmt, err := s.db.Prepare(insertStatement(spec))
	if err != nil {
		return 0, &WriteError{Table: spec.Name, Op: "prepare insert into", Err: err}
	}

	written := 0
	for _, row := range rows {
		if err := insertStmt.Reset(); err != nil {
			return written, &WriteError{Table: spec.Name, Op: "insert into", Err: err}
		}
		if err := insertStmt.ClearBindings(); err != nil {
			return written, &WriteError{Table: spec.Name, Op: "insert into", Err: err}
		}

		values := make([]string, len(spec.Fields))
		for i, field := range spec.Fields {
			param := i + 1
			value, ok := columnValue(field, row)
			if ok {
				insertStmt.BindText(param, value)
				values[i] = value
			} else {
				insertStmt.BindNull(param)
				values[i] = "NULL"
			}
		}

		if _, err := insertStmt.Step(); err != nil {
			return written, &WriteError{
				Table: spec.Name,
				Op:    "insert into",
				Err:   fmt.Errorf("row '%s': %w", strings.Join(values, ", "), err),
			}
		}
		written++
	}
	return written, nil
}

func (s *sqliteStore) Commit() error {
	issues, err := foreignKeyIssues(s.db)
	if err != nil {
		return &WriteError{Op: "check references before commit", Err: err}
	}
	if len(issues) > 0 {
		return &WriteError{Op: "commit transaction", Err: issuesError(issues)}
	}

	if err := sqlitex.Exec(s.db, "COMMIT", sqlitexNoop); err != nil {
		return &WriteError{Op: "commit transaction", Err: err}
	}
	s.inTx = false
	return nil
}

func (s *sqliteStore) Rollback() error {
	if !s.inTx {
		return nil
	}
	s.inTx = false
	if err := sqlitex.Exec(s.db, "ROLLBACK", sqlitexNoop); err != nil {
		return &WriteError{Op: "roll back transaction", Err: err}
	}
	return nil
}

func (s *sqliteStore) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
