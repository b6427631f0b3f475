package main

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/dzfranklin/gtfsstrip"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

/* Example usage:
    gtfsstrip convert --config feeds.yaml
    gtfsstrip convert --id mbta --archive mbta.zip --route Red --route Orange --agency-remap 1=mbta
    gtfsstrip export gtfs-mbta.sqlite -o mbta-stripped.zip
    gtfsstrip clip gtfs-mbta.sqlite --clip-feature downtown.json
*/

type feedFlags struct {
	configPath  string
	dataDir     string
	parallelism int
	batchSize   int

	feed gtfsstrip.FeedConfig
}

func (f *feedFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.configPath, "config", "c", "", "YAML or TOML file listing the feeds to convert")
	fs.StringVar(&f.dataDir, "data-dir", "", "Base directory of default archive and output paths (default \"data\")")
	fs.IntVarP(&f.parallelism, "parallel", "p", 0, "Convert this many feeds at once, attempting every feed even after a failure")
	fs.IntVar(&f.batchSize, "batch-size", 0, "Rows per insert batch (default 500)")

	fs.StringVar(&f.feed.ID, "id", "", "Feed identifier, when not using --config")
	fs.StringVarP(&f.feed.Archive, "archive", "i", "", "Feed zip (default <data-dir>/gtfs/gtfs-<id>.zip)")
	fs.StringVarP(&f.feed.Output, "out", "o", "", "Output database (default <data-dir>/gtfs/gtfs-<id>.sqlite)")
	fs.StringSliceVarP(&f.feed.Routes, "route", "r", nil, "Route id to keep, repeatable (default all routes)")
	fs.StringToStringVar(&f.feed.AgencyRemap, "agency-remap", nil, "Replace agency ids, old=new")
	fs.StringToStringVar(&f.feed.RouteRemap, "route-remap", nil, "Replace route ids, old=new")
}

func (f *feedFlags) load() (*gtfsstrip.Config, error) {
	var cfg *gtfsstrip.Config
	if f.configPath != "" {
		if f.feed.ID != "" {
			return nil, fmt.Errorf("--id cannot be combined with --config")
		}
		loaded, err := gtfsstrip.LoadConfig(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = &gtfsstrip.Config{Feeds: []gtfsstrip.FeedConfig{f.feed}}
	}

	if f.dataDir != "" {
		cfg.DataDir = f.dataDir
	}
	if f.parallelism != 0 {
		cfg.Parallelism = f.parallelism
	}
	if f.batchSize != 0 {
		cfg.BatchSize = f.batchSize
	}
	return cfg, cfg.Validate()
}

func convertCmd() *cobra.Command {
	flags := &feedFlags{}
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert GTFS feeds into one stripped SQLite database each",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			report, err := gtfsstrip.NewRunner(cfg.RunnerConfig()).Run(cfg.Feeds)
			for _, feed := range report.Feeds {
				fmt.Printf("%s: %s\n", feed.Feed, feed.State)
			}
			return err
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func exportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <feed.sqlite>",
		Short: "Export a converted database back to a GTFS zip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputPath := outputPathOrDefault(args[0], output, ".sqlite", ".zip")
			return gtfsstrip.Export(args[0], outputPath, nil)
		},
	}
	cmd.Flags().StringVarP(&output, "out", "o", "", "Path to write output to")
	return cmd
}

func clipCmd() *cobra.Command {
	var output, clipFeaturePath string
	cmd := &cobra.Command{
		Use:   "clip <feed.sqlite>",
		Short: "Clip a converted database to the trips calling inside a GeoJSON feature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			feature, err := os.ReadFile(clipFeaturePath)
			if err != nil {
				return err
			}
			featureName := trimFileExt(path.Base(clipFeaturePath))

			outputPath := outputPathOrDefault(args[0], output, ".sqlite", fmt.Sprintf("_%s.sqlite", featureName))
			return gtfsstrip.Clip(args[0], outputPath, string(feature))
		},
	}
	cmd.Flags().StringVarP(&output, "out", "o", "", "Path to write output to")
	cmd.Flags().StringVar(&clipFeaturePath, "clip-feature", "", "GeoJSON feature to clip to")
	_ = cmd.MarkFlagRequired("clip-feature")
	return cmd
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "gtfsstrip",
		Short:         "Strip GTFS feeds down to selected routes and load them into SQLite",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(convertCmd(), exportCmd(), clipCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}
	fmt.Println("All done")
}

func outputPathOrDefault(inputPath string, outputPath string, suffixToTrim string, newSuffix string) string {
	if outputPath != "" {
		return outputPath
	}
	inputPath = path.Clean(inputPath)
	return strings.TrimSuffix(path.Base(inputPath), suffixToTrim) + newSuffix
}

func trimFileExt(name string) string {
	i := strings.LastIndex(name, ".")
	if i == -1 {
		return name
	} else {
		return name[:i]
	}
}
