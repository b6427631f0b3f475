package gtfsstrip

import (
	"maps"
	"slices"
)

// Row is one source record after remapping, keyed by header name.
type Row map[string]string

// Remap substitutes field values during extraction: field name -> old value -> new value.
type Remap map[string]map[string]string

func buildRow(header []string, record []string, remap Remap) Row {
	row := make(Row, len(header))
	for i, field := range header {
		var value string
		if i < len(record) {
			value = record[i]
		}
		if substitutes, ok := remap[field]; ok && i < len(record) {
			if replacement, ok := substitutes[value]; ok {
				value = replacement
			}
		}
		row[field] = value
	}
	return row
}

// FilterSet maps field names to the values a row may carry in that field.
//
// A field with no key is not filtered. A key with an empty set does not restrict
// anything either. Methods never modify the receiver, so a FilterSet handed to a
// table step is unaffected by what that step harvests.
type FilterSet struct {
	allowed map[string]map[string]struct{}
}

func NewFilterSet() FilterSet {
	return FilterSet{}
}

// With returns a copy of f with values added to the allowed set for field.
func (f FilterSet) With(field string, values ...string) FilterSet {
	return f.merge(map[string]map[string]struct{}{field: setOf(values)})
}

// Allows reports whether row passes every key of the filter.
func (f FilterSet) Allows(row Row) bool {
	for field, allowed := range f.allowed {
		if len(allowed) == 0 {
			continue
		}
		value, ok := row[field]
		if !ok {
			continue
		}
		if _, ok := allowed[value]; !ok {
			return false
		}
	}
	return true
}

func (f FilterSet) Has(field string) bool {
	_, ok := f.allowed[field]
	return ok
}

// Values returns the allowed values for field, sorted.
func (f FilterSet) Values(field string) []string {
	return slices.Sorted(maps.Keys(f.allowed[field]))
}

func (f FilterSet) Fields() []string {
	return slices.Sorted(maps.Keys(f.allowed))
}

func (f FilterSet) merge(additions map[string]map[string]struct{}) FilterSet {
	if len(additions) == 0 {
		return f
	}
	out := FilterSet{allowed: make(map[string]map[string]struct{}, len(f.allowed)+len(additions))}
	for field, values := range f.allowed {
		out.allowed[field] = values
	}
	for field, values := range additions {
		merged := make(map[string]struct{}, len(out.allowed[field])+len(values))
		for v := range out.allowed[field] {
			merged[v] = struct{}{}
		}
		for v := range values {
			merged[v] = struct{}{}
		}
		out.allowed[field] = merged
	}
	return out
}

func setOf(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// harvester collects values for the harvest fields of one table.
type harvester struct {
	fields []string
	values map[string]map[string]struct{}
}

func newHarvester(fields []string) *harvester {
	return &harvester{fields: fields, values: make(map[string]map[string]struct{})}
}

func (h *harvester) add(row Row) {
	for _, field := range h.fields {
		value, ok := row[field]
		if !ok || value == "" {
			continue
		}
		set, ok := h.values[field]
		if !ok {
			set = make(map[string]struct{})
			h.values[field] = set
		}
		set[value] = struct{}{}
	}
}

func (h *harvester) apply(f FilterSet) FilterSet {
	return f.merge(h.values)
}
