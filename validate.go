package gtfsstrip

import (
	"fmt"
	"strings"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
)

// Deferred foreign keys are only enforced at COMMIT, where sqlite does not say which
// rows are at fault. Checking first lets the error name them.

const maxReportedIssues = 20

type foreignKeyViolation struct {
	table  string
	rowid  int64
	parent string
	fkid   int64
}

func foreignKeyIssues(db *sqlite.Conn) ([]string, error) {
	var violations []foreignKeyViolation
	err := sqlitex.Exec(db, "PRAGMA foreign_key_check", func(stmt *sqlite.Stmt) error {
		violations = append(violations, foreignKeyViolation{
			table:  stmt.ColumnText(0),
			rowid:  stmt.ColumnInt64(1),
			parent: stmt.ColumnText(2),
			fkid:   stmt.ColumnInt64(3),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	var issues []string
	for _, v := range violations {
		column, err := foreignKeyColumn(db, v.table, v.fkid)
		if err != nil {
			return nil, err
		}
		issue, err := describeViolation(db, v, column)
		if err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

func foreignKeyColumn(db *sqlite.Conn, table string, fkid int64) (string, error) {
	var column string
	err := sqlitex.Exec(db, "SELECT \"from\" FROM pragma_foreign_key_list(?) WHERE id = ?", func(stmt *sqlite.Stmt) error {
		column = stmt.ColumnText(0)
		return nil
	}, table, fkid)
	return column, err
}

func describeViolation(db *sqlite.Conn, v foreignKeyViolation, column string) (string, error) {
	var issue string
	query := fmt.Sprintf("SELECT * FROM %s WHERE rowid = ?", v.table)
	err := sqlitex.Exec(db, query, func(stmt *sqlite.Stmt) error {
		issue = fmt.Sprintf("%s in %s is not a valid %s reference [%s]",
			stmt.GetText(column), v.table, v.parent, prettyPrintRow(stmt))
		return nil
	}, v.rowid)
	return issue, err
}

func prettyPrintRow(row *sqlite.Stmt) string {
	var out []string
	for i := range row.ColumnCount() {
		column := row.ColumnName(i)
		value := row.GetText(column)
		if column != "rowid" && value != "" {
			out = append(out, fmt.Sprintf("%s: %s", column, value))
		}
	}
	return strings.Join(out, ", ")
}

func issuesError(issues []string) error {
	reported := issues
	if len(reported) > maxReportedIssues {
		reported = reported[:maxReportedIssues]
	}
	msg := strings.Join(reported, "; ")
	if len(issues) > len(reported) {
		msg += fmt.Sprintf("; and %d more", len(issues)-len(reported))
	}
	return fmt.Errorf("%w: %d dangling reference(s): %s", ErrInvalidInput, len(issues), msg)
}
