package gtfsstrip

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigYAML(t *testing.T) {
	dir := testTempdir(t)
	writeFile(t, dir+"/feeds.yaml", `
data_dir: /srv/transit
parallelism: 2
feeds:
  - id: mbta
    routes: [Red, Orange]
    agency_remap: {"1": mbta}
  - id: ride
    archive: /tmp/ride.zip
    output: /tmp/ride.sqlite
    route_remap: {"10": ride-10}
    field_remaps:
      stop_id: {"70061": ride-70061}
`)

	cfg, err := LoadConfig(dir + "/feeds.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/srv/transit", cfg.DataDir)
	assert.Equal(t, 2, cfg.Parallelism)
	require.Len(t, cfg.Feeds, 2)
	assert.Equal(t, []string{"Red", "Orange"}, cfg.Feeds[0].Routes)
	assert.Equal(t, map[string]string{"1": "mbta"}, cfg.Feeds[0].AgencyRemap)

	ride := cfg.Feeds[1]
	assert.Equal(t, Remap{
		"route_id": {"10": "ride-10"},
		"stop_id":  {"70061": "ride-70061"},
	}, ride.Remap())

	runnerCfg := cfg.RunnerConfig()
	assert.Equal(t, "/srv/transit", runnerCfg.DataDir)
	assert.Equal(t, 2, runnerCfg.Parallelism)
}

func TestLoadConfigTOML(t *testing.T) {
	dir := testTempdir(t)
	writeFile(t, dir+"/feeds.toml", `
batch_size = 100

[[feeds]]
id = "mbta"
routes = ["Red"]

[feeds.agency_remap]
"1" = "mbta"
`)

	cfg, err := LoadConfig(dir + "/feeds.toml")
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.BatchSize)
	require.Len(t, cfg.Feeds, 1)
	assert.Equal(t, "mbta", cfg.Feeds[0].ID)
	assert.Equal(t, map[string]string{"1": "mbta"}, cfg.Feeds[0].AgencyRemap)
}

func TestLoadConfigInvalid(t *testing.T) {
	for _, tc := range []struct {
		name    string
		content string
	}{
		{name: "NoFeeds", content: "data_dir: data\n"},
		{name: "MissingID", content: "feeds:\n  - routes: [R1]\n"},
		{name: "DuplicateID", content: "feeds:\n  - id: a\n  - id: a\n"},
		{name: "PathInID", content: "feeds:\n  - id: a/b\n"},
		{name: "EmptyRoute", content: "feeds:\n  - id: a\n    routes: [\"\"]\n"},
		{name: "NegativeParallelism", content: "parallelism: -1\nfeeds:\n  - id: a\n"},
		{name: "Malformed", content: "feeds: [\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dir := testTempdir(t)
			writeFile(t, dir+"/feeds.yml", tc.content)
			_, err := LoadConfig(dir + "/feeds.yml")
			assert.Error(t, err)
		})
	}
}

func TestFeedConfigRemapPrecedence(t *testing.T) {
	feed := FeedConfig{
		AgencyRemap: map[string]string{"A1": "X1"},
		FieldRemaps: map[string]map[string]string{"agency_id": {"A1": "Y1", "A2": "Y2"}},
	}
	assert.Equal(t, Remap{"agency_id": {"A1": "X1", "A2": "Y2"}}, feed.Remap())
	assert.Equal(t, map[string]string{"A1": "Y1", "A2": "Y2"}, feed.FieldRemaps["agency_id"])
}

func TestFeedConfigInitialFilter(t *testing.T) {
	assert.False(t, FeedConfig{}.InitialFilter().Has("route_id"))
	assert.Equal(t, []string{"R1", "R2"}, FeedConfig{Routes: []string{"R2", "R1"}}.InitialFilter().Values("route_id"))
}

func TestFeedConfigDefaults(t *testing.T) {
	feed := FeedConfig{ID: "mbta"}.withDefaults("data")
	assert.Equal(t, filepath.Join("data", "gtfs", "gtfs-mbta.zip"), feed.Archive)
	assert.Equal(t, filepath.Join("data", "gtfs", "gtfs-mbta.sqlite"), feed.Output)

	feed = FeedConfig{ID: "mbta", Archive: "a.zip", Output: "b.sqlite"}.withDefaults("data")
	assert.Equal(t, "a.zip", feed.Archive)
	assert.Equal(t, "b.sqlite", feed.Output)
}
