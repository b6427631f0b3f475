package gtfsstrip

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"io"
	"path"
	"strings"
)

// ArchiveSource opens feed archives.
type ArchiveSource interface {
	Open(path string) (Archive, error)
}

// Archive gives access to the tables of one feed.
type Archive interface {
	// Stream returns the records of entry, or ErrEntryNotFound.
	Stream(entry string) (RecordStream, error)
	Close() error
}

// RecordStream yields the header record and then the data records, in file order,
// returning io.EOF after the last one.
type RecordStream interface {
	Read() ([]string, error)
	Close() error
}

// ZipSource reads GTFS zip files from disk.
type ZipSource struct{}

func (ZipSource) Open(inputPath string) (Archive, error) {
	r, err := zip.OpenReader(inputPath)
	if err != nil {
		return nil, &ArchiveOpenError{Path: inputPath, Err: err}
	}
	return &zipArchive{r: r}, nil
}

type zipArchive struct {
	r *zip.ReadCloser
}

func (a *zipArchive) Close() error {
	return a.r.Close()
}

// locate finds entry by exact name, falling back to a match on the base name so
// feeds zipped with an enclosing directory still resolve.
func (a *zipArchive) locate(entry string) *zip.File {
	var byBase *zip.File
	for _, f := range a.r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if f.Name == entry {
			return f
		}
		if byBase == nil && path.Base(f.Name) == entry {
			byBase = f
		}
	}
	return byBase
}

func (a *zipArchive) Stream(entry string) (RecordStream, error) {
	f := a.locate(entry)
	if f == nil {
		return nil, ErrEntryNotFound
	}
	inputF, err := f.Open()
	if err != nil {
		return nil, &StreamError{Entry: entry, Err: err}
	}

	inputCSV := csv.NewReader(inputF)
	inputCSV.FieldsPerRecord = -1 // Allow variable numbers of fields
	return &csvStream{entry: entry, f: inputF, r: inputCSV}, nil
}

type csvStream struct {
	entry    string
	f        io.ReadCloser
	r        *csv.Reader
	readHead bool
}

func (s *csvStream) Read() ([]string, error) {
	record, err := s.r.Read()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	} else if err != nil {
		return nil, &StreamError{Entry: s.entry, Err: err}
	}
	if !s.readHead {
		s.readHead = true
		if len(record) > 0 {
			record[0] = strings.TrimPrefix(record[0], "\ufeff")
		}
	}
	return record, nil
}

func (s *csvStream) Close() error {
	return s.f.Close()
}
