package gtfsstrip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRowRemap(t *testing.T) {
	remap := Remap{"agency_id": {"A1": "A2"}}
	header := []string{"agency_id", "agency_name"}

	row := buildRow(header, []string{"A1", "One"}, remap)
	assert.Equal(t, Row{"agency_id": "A2", "agency_name": "One"}, row)

	row = buildRow(header, []string{"A3", "Three"}, remap)
	assert.Equal(t, Row{"agency_id": "A3", "agency_name": "Three"}, row)
}

func TestBuildRowMissingValues(t *testing.T) {
	row := buildRow([]string{"a", "b", "c"}, []string{"1"}, nil)
	assert.Equal(t, Row{"a": "1", "b": "", "c": ""}, row)
}

func TestFilterSetAllows(t *testing.T) {
	filter := NewFilterSet().With("route_id", "R1", "R2")

	assert.True(t, filter.Allows(Row{"route_id": "R1"}))
	assert.False(t, filter.Allows(Row{"route_id": "R3"}))
	assert.True(t, filter.Allows(Row{"stop_id": "S1"}), "rows without a filtered field pass through")
}

func TestFilterSetEmptyValuesDoNotRestrict(t *testing.T) {
	filter := NewFilterSet().With("route_id")
	require.True(t, filter.Has("route_id"))
	assert.True(t, filter.Allows(Row{"route_id": "anything"}))
}

func TestFilterSetEveryKeyMustPass(t *testing.T) {
	filter := NewFilterSet().With("trip_id", "T1").With("stop_id", "S1")

	assert.True(t, filter.Allows(Row{"trip_id": "T1", "stop_id": "S1"}))
	assert.False(t, filter.Allows(Row{"trip_id": "T1", "stop_id": "S2"}))
	assert.False(t, filter.Allows(Row{"trip_id": "T2", "stop_id": "S1"}))
}

func TestFilterSetWithDoesNotModifyReceiver(t *testing.T) {
	base := NewFilterSet().With("route_id", "R1")
	grown := base.With("route_id", "R2").With("agency_id", "A1")

	assert.Equal(t, []string{"R1"}, base.Values("route_id"))
	assert.False(t, base.Has("agency_id"))
	assert.Equal(t, []string{"R1", "R2"}, grown.Values("route_id"))
	assert.Equal(t, []string{"agency_id", "route_id"}, grown.Fields())
}

func TestHarvesterSkipsEmptyValues(t *testing.T) {
	h := newHarvester([]string{"agency_id"})
	h.add(Row{"agency_id": "A1"})
	h.add(Row{"agency_id": ""})
	h.add(Row{"route_id": "R1"})

	filter := h.apply(NewFilterSet())
	assert.Equal(t, []string{"A1"}, filter.Values("agency_id"))
}

func TestHarvesterWithNothingKeptAddsNoKey(t *testing.T) {
	filter := newHarvester([]string{"trip_id"}).apply(NewFilterSet())
	assert.False(t, filter.Has("trip_id"))
}
