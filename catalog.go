package gtfsstrip

import (
	"fmt"
	"strings"
)

type FieldType string

const (
	Text    FieldType = "TEXT"
	Integer FieldType = "INTEGER"
	Real    FieldType = "REAL"
)

type TableSpec struct {
	Name       string
	Entry      string // name of the entry inside the feed archive
	Fields     []Field
	Constraint string // optional table-level clause, appended after the fields

	// Harvest lists the fields whose surviving values are added to the filter once
	// this table is done.
	Harvest []string
}

type Field struct {
	Name       string
	Type       FieldType
	NotNull    bool
	PrimaryKey bool
	References *Reference
}

type Reference struct {
	Table  string
	Column string
}

func (f Field) Definition() string {
	var b strings.Builder
	b.WriteString(f.Name)
	b.WriteString(" ")
	b.WriteString(string(f.Type))
	if f.NotNull {
		b.WriteString(" NOT NULL")
	}
	if f.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
	}
	if f.References != nil {
		fmt.Fprintf(&b, " REFERENCES %s(%s) DEFERRABLE INITIALLY DEFERRED",
			f.References.Table, f.References.Column)
	}
	return b.String()
}

func (t TableSpec) CreateStatement() string {
	var fragments []string
	for _, field := range t.Fields {
		fragments = append(fragments, field.Definition())
	}
	if t.Constraint != "" {
		fragments = append(fragments, t.Constraint)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", t.Name, strings.Join(fragments, ", "))
}

func (t TableSpec) FieldNames() []string {
	names := make([]string, len(t.Fields))
	for i, field := range t.Fields {
		names[i] = field.Name
	}
	return names
}

// ValidateCatalog checks that every referenced table is declared earlier in the
// catalog than the table referencing it. Self references are allowed.
func ValidateCatalog(catalog []TableSpec) error {
	declared := make(map[string]map[string]bool)
	for _, table := range catalog {
		if _, dup := declared[table.Name]; dup {
			return fmt.Errorf("table %s declared twice", table.Name)
		}
		columns := make(map[string]bool)
		for _, field := range table.Fields {
			columns[field.Name] = true
		}
		declared[table.Name] = columns

		for _, field := range table.Fields {
			ref := field.References
			if ref == nil {
				continue
			}
			parent, ok := declared[ref.Table]
			if !ok {
				return fmt.Errorf("%w: %s.%s references %s", ErrCatalogOrder, table.Name, field.Name, ref.Table)
			}
			if !parent[ref.Column] {
				return fmt.Errorf("%s.%s references unknown column %s.%s", table.Name, field.Name, ref.Table, ref.Column)
			}
		}
	}
	return nil
}

func references(table, column string) *Reference {
	return &Reference{Table: table, Column: column}
}

// DefaultCatalog returns the tables written for every feed, in processing order.
func DefaultCatalog() []TableSpec {
	return []TableSpec{
		{
			Name:  "agency",
			Entry: "agency.txt",
			Fields: []Field{
				{Name: "agency_id", Type: Text, NotNull: true, PrimaryKey: true},
				{Name: "agency_name", Type: Text},
				{Name: "agency_url", Type: Text},
				{Name: "agency_timezone", Type: Text},
				{Name: "agency_lang", Type: Text},
				{Name: "agency_phone", Type: Text},
			},
		},
		{
			Name:  "routes",
			Entry: "routes.txt",
			Fields: []Field{
				{Name: "route_id", Type: Text, NotNull: true, PrimaryKey: true},
				{Name: "agency_id", Type: Text, NotNull: true, References: references("agency", "agency_id")},
				{Name: "route_short_name", Type: Text},
				{Name: "route_long_name", Type: Text},
				{Name: "route_desc", Type: Text},
				{Name: "route_type", Type: Text},
				{Name: "route_color", Type: Text},
			},
			Harvest: []string{"agency_id"},
		},
		{
			Name:  "trips",
			Entry: "trips.txt",
			Fields: []Field{
				{Name: "route_id", Type: Text, NotNull: true, References: references("routes", "route_id")},
				{Name: "service_id", Type: Text, NotNull: true},
				{Name: "trip_id", Type: Text, NotNull: true, PrimaryKey: true},
				{Name: "trip_headsign", Type: Text},
				{Name: "direction_id", Type: Integer},
			},
			Harvest: []string{"trip_id", "service_id"},
		},
		{
			Name:  "calendar",
			Entry: "calendar.txt",
			Fields: []Field{
				{Name: "service_id", Type: Text, NotNull: true},
				{Name: "monday", Type: Integer},
				{Name: "tuesday", Type: Integer},
				{Name: "wednesday", Type: Integer},
				{Name: "thursday", Type: Integer},
				{Name: "friday", Type: Integer},
				{Name: "saturday", Type: Integer},
				{Name: "sunday", Type: Integer},
				{Name: "start_date", Type: Integer, NotNull: true},
				{Name: "end_date", Type: Integer, NotNull: true},
			},
		},
		{
			Name:  "calendar_dates",
			Entry: "calendar_dates.txt",
			Fields: []Field{
				{Name: "service_id", Type: Text, NotNull: true},
				{Name: "date", Type: Integer, NotNull: true},
				{Name: "exception_type", Type: Integer},
			},
		},
		{
			Name:  "frequencies",
			Entry: "frequencies.txt",
			Fields: []Field{
				{Name: "trip_id", Type: Text, NotNull: true, References: references("trips", "trip_id")},
				{Name: "start_time", Type: Text, NotNull: true},
				{Name: "end_time", Type: Text, NotNull: true},
				{Name: "headway_secs", Type: Integer},
			},
		},
		{
			// Declared before stop_times, so stop_id values harvested there never
			// prune this table.
			Name:  "stops",
			Entry: "stops.txt",
			Fields: []Field{
				{Name: "stop_id", Type: Text, NotNull: true, PrimaryKey: true},
				{Name: "stop_code", Type: Text},
				{Name: "stop_name", Type: Text},
				{Name: "stop_desc", Type: Text},
				{Name: "stop_lat", Type: Real},
				{Name: "stop_lon", Type: Real},
			},
		},
		{
			Name:  "stop_times",
			Entry: "stop_times.txt",
			Fields: []Field{
				{Name: "trip_id", Type: Text, NotNull: true, References: references("trips", "trip_id")},
				{Name: "arrival_time", Type: Text, NotNull: true},
				{Name: "departure_time", Type: Text, NotNull: true},
				{Name: "stop_id", Type: Text, NotNull: true, References: references("stops", "stop_id")},
				{Name: "stop_sequence", Type: Integer, NotNull: true},
				{Name: "pickup_type", Type: Integer},
				{Name: "drop_off_type", Type: Integer},
			},
			Constraint: "UNIQUE (trip_id, stop_sequence)",
			Harvest:    []string{"stop_id"},
		},
	}
}
