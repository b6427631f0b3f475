package gtfsstrip

import (
	"fmt"
	"log/slog"
	"strconv"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
	"github.com/tidwall/geojson"
	"github.com/tidwall/geojson/geometry"
)

// Clip writes a copy of a converted store keeping only trips that call at a stop
// inside clipFeature, and the rows those trips still reach.
func Clip(inputPath string, outputPath string, clipFeature string) error {
	feature, err := geojson.Parse(clipFeature, &geojson.ParseOptions{RequireValid: true})
	if err != nil {
		return fmt.Errorf("parse clip feature: %w", err)
	}

	slog.Info(fmt.Sprintf("Writing a clipped copy of %s to %s (clipFeature has %d points)",
		inputPath, outputPath, feature.NumPoints()))

	inputDB, err := sqlite.OpenConn(inputPath, sqlite.SQLITE_OPEN_READONLY)
	if err != nil {
		return err
	}
	defer func() {
		if inputDB != nil {
			_ = inputDB.Close()
		}
	}()

	db, err := inputDB.BackupToDB("", outputPath)
	if err != nil {
		return err
	}
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()

	err = inputDB.Close()
	inputDB = nil
	if err != nil {
		return err
	}
	slog.Info("Copied input db")

	if err := sqlitex.ExecTransient(db, "CREATE TEMP TABLE stops_inside (stop_id TEXT)", sqlitexNoop); err != nil {
		return err
	}

	var inside []string
	totalStopCount := 0
	err = sqlitex.Exec(db, "SELECT stop_id, stop_lon, stop_lat FROM stops", func(stmt *sqlite.Stmt) error {
		stopID := stmt.GetText("stop_id")
		totalStopCount++

		lng, err := strconv.ParseFloat(stmt.GetText("stop_lon"), 64)
		if err != nil {
			slog.Error("Failed to parse stop_lon", "stop_id", stopID)
			return nil
		}
		lat, err := strconv.ParseFloat(stmt.GetText("stop_lat"), 64)
		if err != nil {
			slog.Error("Failed to parse stop_lat", "stop_id", stopID)
			return nil
		}
		point := geojson.NewPoint(geometry.Point{X: lng, Y: lat})

		if feature.Contains(point) {
			inside = append(inside, stopID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, stopID := range inside {
		if err := sqlitex.Exec(db, "INSERT INTO stops_inside (stop_id) VALUES (?)", sqlitexNoop, stopID); err != nil {
			return err
		}
	}
	slog.Info(fmt.Sprintf("%d of %d stops are inside", len(inside), totalStopCount))

	if err := sqlitex.ExecTransient(db, "PRAGMA foreign_keys = ON", sqlitexNoop); err != nil {
		return err
	}

	// ExecScript runs in a savepoint, so the deferred foreign keys are enforced when
	// it is released.
	script := `
CREATE TEMP TABLE trips_kept AS
	SELECT DISTINCT trip_id FROM stop_times WHERE stop_id IN (SELECT stop_id FROM stops_inside);

DELETE FROM stop_times WHERE trip_id NOT IN (SELECT trip_id FROM trips_kept);
DELETE FROM frequencies WHERE trip_id NOT IN (SELECT trip_id FROM trips_kept);
DELETE FROM trips WHERE trip_id NOT IN (SELECT trip_id FROM trips_kept);

DELETE FROM stops WHERE stop_id NOT IN (SELECT DISTINCT stop_id FROM stop_times);

DELETE FROM routes WHERE route_id NOT IN (SELECT DISTINCT route_id FROM trips);
DELETE FROM agency WHERE agency_id NOT IN (SELECT DISTINCT agency_id FROM routes);

DELETE FROM calendar WHERE service_id NOT IN (SELECT DISTINCT service_id FROM trips);
DELETE FROM calendar_dates WHERE service_id NOT IN (SELECT DISTINCT service_id FROM trips);

DROP TABLE trips_kept;
DROP TABLE stops_inside;
`
	if err := sqlitex.ExecScript(db, script); err != nil {
		return err
	}
	issues, err := foreignKeyIssues(db)
	if err != nil {
		return err
	}
	if len(issues) > 0 {
		return issuesError(issues)
	}

	err = db.Close()
	db = nil
	if err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("Wrote %s", outputPath))
	return nil
}
