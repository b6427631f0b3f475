package gtfsstrip

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
	"github.com/stretchr/testify/require"
)

var sampleFeed = map[string]string{
	"agency.txt": `agency_id,agency_name,agency_url,agency_timezone
A1,Agency One,http://one.example,America/New_York
A2,Agency Two,http://two.example,America/New_York
`,
	"routes.txt": `route_id,agency_id,route_short_name,route_long_name,route_type,route_color
R1,A1,1,First,3,FF0000
R2,A2,2,Second,3,
R3,A1,3,Third,3,00FF00
`,
	"trips.txt": `route_id,service_id,trip_id,trip_headsign,direction_id
R1,WKDY,T1,North,0
R1,WKND,T2,South,
R2,WKDY,T3,East,1
R3,SAT,T4,West,1
`,
	"calendar.txt": `service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date
WKDY,1,1,1,1,1,0,0,20240101,20241231
WKND,0,0,0,0,0,1,1,20240101,20241231
SAT,0,0,0,0,0,1,0,20240101,20241231
`,
	"calendar_dates.txt": `service_id,date,exception_type
WKDY,20240704,2
SAT,20240705,1
`,
	"frequencies.txt": `trip_id,start_time,end_time,headway_secs
T1,06:00:00,09:00:00,600
T3,06:00:00,09:00:00,900
`,
	"stops.txt": `stop_id,stop_name,stop_lat,stop_lon
S1,First St,42.5,-71.25
S2,Second St,42.75,-71.5
S3,Third St,43.25,-70.75
`,
	"stop_times.txt": `trip_id,arrival_time,departure_time,stop_id,stop_sequence
T1,06:00:00,06:00:00,S1,1
T1,06:10:00,06:10:00,S2,2
T2,10:00:00,10:00:00,S1,1
T3,07:00:00,07:00:00,S3,1
T4,08:00:00,08:00:00,S3,1
`,
}

// feedWith returns a copy of sampleFeed with entries replaced, or removed when the
// replacement is "".
func feedWith(changes map[string]string) map[string]string {
	out := make(map[string]string, len(sampleFeed))
	for name, content := range sampleFeed {
		out[name] = content
	}
	for name, content := range changes {
		if content == "" {
			delete(out, name)
		} else {
			out[name] = content
		}
	}
	return out
}

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeFeedZip(t *testing.T, zipPath string, files map[string]string) {
	t.Helper()
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	for name, content := range files {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(entry, content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}

// memArchive serves entries from memory.
type memArchive map[string]string

func (a memArchive) Stream(entry string) (RecordStream, error) {
	content, ok := a[entry]
	if !ok {
		return nil, ErrEntryNotFound
	}
	r := csv.NewReader(strings.NewReader(content))
	r.FieldsPerRecord = -1
	return &csvStream{entry: entry, f: io.NopCloser(strings.NewReader("")), r: r}, nil
}

func (a memArchive) Close() error { return nil }

func openStore(t *testing.T, path string) *sqlite.Conn {
	t.Helper()
	conn, err := sqlite.OpenConn(path, sqlite.SQLITE_OPEN_READONLY)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func queryStrings(t *testing.T, conn *sqlite.Conn, query string) []string {
	t.Helper()
	var out []string
	err := sqlitex.Exec(conn, query, func(stmt *sqlite.Stmt) error {
		out = append(out, stmt.ColumnText(0))
		return nil
	})
	require.NoError(t, err)
	return out
}

func queryCount(t *testing.T, conn *sqlite.Conn, query string) int {
	t.Helper()
	var count int
	err := sqlitex.Exec(conn, query, func(stmt *sqlite.Stmt) error {
		count = int(stmt.ColumnInt64(0))
		return nil
	})
	require.NoError(t, err)
	return count
}

func testTempdir(t *testing.T) string {
	dir, err := os.MkdirTemp("", "")
	require.NoError(t, err)
	t.Cleanup(func() {
		if t.Failed() {
			fmt.Println("Preserving tempdir after failed test", dir)
		} else {
			_ = os.RemoveAll(dir)
		}
	})
	return dir
}
