package gtfsstrip

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
)

type ExportOpts struct {
	Catalog []TableSpec // DefaultCatalog() if nil
}

// Export writes a converted store back out as a feed archive. Each catalog table
// present in the store becomes its entry, columns in catalog order. NULLs are written
// as empty values.
func Export(inputPath string, outputPath string, opts *ExportOpts) error {
	if inputPath == "" {
		panic("Missing inputPath")
	}
	if outputPath == "" {
		panic("Missing outputPath")
	}
	if opts == nil {
		opts = &ExportOpts{}
	}
	catalog := opts.Catalog
	if catalog == nil {
		catalog = DefaultCatalog()
	}

	slog.Info(fmt.Sprintf("Exporting %s to %s", inputPath, outputPath))

	db, err := sqlite.OpenConn(inputPath, sqlite.SQLITE_OPEN_READONLY)
	if err != nil {
		return err
	}
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()

	tables, err := storeTables(db)
	if err != nil {
		return err
	}

	outputF, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	outputZip := zip.NewWriter(outputF)
	defer func() {
		_ = outputZip.Close()
		_ = outputF.Close()
	}()

	for _, spec := range catalog {
		if !slices.Contains(tables, spec.Name) {
			continue
		}
		if err := exportTableIn(db, outputZip, spec); err != nil {
			return err
		}
	}

	if err := outputZip.Close(); err != nil {
		return err
	}
	if err := outputF.Close(); err != nil {
		return err
	}

	err = db.Close()
	db = nil
	if err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("Wrote %s", outputPath))
	return nil
}

func storeTables(db *sqlite.Conn) ([]string, error) {
	var tables []string
	err := sqlitex.Exec(db, "SELECT name FROM sqlite_master WHERE type = 'table'", func(stmt *sqlite.Stmt) error {
		tables = append(tables, stmt.GetText("name"))
		return nil
	})
	return tables, err
}

func exportTableIn(db *sqlite.Conn, outputZip *zip.Writer, spec TableSpec) error {
	outputF, err := outputZip.Create(spec.Entry)
	if err != nil {
		return err
	}
	outputCSV := csv.NewWriter(outputF)

	cols := spec.FieldNames()
	if err := outputCSV.Write(cols); err != nil {
		return err
	}

	rowCount := 0
	err = sqlitex.Exec(db, "SELECT * FROM "+spec.Name+" ORDER BY rowid", func(stmt *sqlite.Stmt) error {
		row := make([]string, 0, len(cols))
		for _, col := range cols {
			row = append(row, stmt.GetText(col))
		}
		if err := outputCSV.Write(row); err != nil {
			return err
		}
		rowCount++
		return nil
	})
	if err != nil {
		return err
	}
	slog.Info(fmt.Sprintf("Wrote %d rows to %s", rowCount, spec.Entry))

	outputCSV.Flush()
	return outputCSV.Error()
}
