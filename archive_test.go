package gtfsstrip

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAllRecords(t *testing.T, stream RecordStream) [][]string {
	t.Helper()
	var records [][]string
	for {
		record, err := stream.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		records = append(records, record)
	}
	return records
}

func TestZipSourceOpenMissing(t *testing.T) {
	_, err := ZipSource{}.Open(testTempdir(t) + "/missing.zip")

	var openErr *ArchiveOpenError
	require.ErrorAs(t, err, &openErr)
	assert.Contains(t, err.Error(), "missing.zip")
}

func TestZipSourceOpenCorrupt(t *testing.T) {
	dir := testTempdir(t)
	writeFile(t, dir+"/corrupt.zip", "not a zip")

	_, err := ZipSource{}.Open(dir + "/corrupt.zip")
	var openErr *ArchiveOpenError
	assert.ErrorAs(t, err, &openErr)
}

func TestZipArchiveStream(t *testing.T) {
	dir := testTempdir(t)
	writeFeedZip(t, dir+"/feed.zip", map[string]string{
		"agency.txt":     "\ufeffagency_id,agency_name\nA1,\"One, Inc\"\nA2\n",
		"gtfs/stops.txt": "stop_id\nS1\n",
	})

	archive, err := ZipSource{}.Open(dir + "/feed.zip")
	require.NoError(t, err)
	defer func() { _ = archive.Close() }()

	stream, err := archive.Stream("agency.txt")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"agency_id", "agency_name"},
		{"A1", "One, Inc"},
		{"A2"},
	}, readAllRecords(t, stream))
	require.NoError(t, stream.Close())

	stream, err = archive.Stream("stops.txt")
	require.NoError(t, err, "entries under a directory resolve by base name")
	assert.Equal(t, [][]string{{"stop_id"}, {"S1"}}, readAllRecords(t, stream))
	require.NoError(t, stream.Close())

	_, err = archive.Stream("frequencies.txt")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}
