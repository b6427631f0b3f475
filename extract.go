package gtfsstrip

import (
	"errors"
	"io"
)

type ExtractResult struct {
	Found bool // false when the table's entry is missing from the archive
	Read  int
	Kept  int

	// Filter is the input filter plus the values harvested from the kept rows.
	Filter FilterSet
}

// Extract streams the rows of spec's entry through remap and filter, calling emit for
// every row that passes. The returned filter is what later tables are filtered
// against; the filter passed in is not modified.
func Extract(archive Archive, spec TableSpec, remap Remap, filter FilterSet, emit func(Row) error) (ExtractResult, error) {
	result := ExtractResult{Filter: filter}

	stream, err := archive.Stream(spec.Entry)
	if errors.Is(err, ErrEntryNotFound) {
		return result, nil
	} else if err != nil {
		return result, err
	}
	defer func() { _ = stream.Close() }()
	result.Found = true

	header, err := stream.Read()
	if errors.Is(err, io.EOF) {
		return result, nil
	} else if err != nil {
		return result, err
	}

	harvest := newHarvester(spec.Harvest)
	for {
		record, err := stream.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return result, err
		}
		result.Read++

		row := buildRow(header, record, remap)
		if !filter.Allows(row) {
			continue
		}
		result.Kept++
		harvest.add(row)

		if err := emit(row); err != nil {
			return result, err
		}
	}

	result.Filter = harvest.apply(filter)
	return result, nil
}
