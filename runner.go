package gtfsstrip

import (
	"fmt"
	"log/slog"
	"strings"

	nanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/errgroup"
)

// RunnerConfig holds the settings of a Runner. Zero values select the defaults noted
// on each field.
type RunnerConfig struct {
	DataDir string // base of default feed paths, DefaultDataDir if empty

	// Parallelism above 1 converts that many feeds at once and attempts every feed
	// even after a failure. Otherwise feeds run one by one and the first failure
	// stops the batch.
	Parallelism int

	BatchSize int           // rows per insert batch, 500 if zero
	Catalog   []TableSpec   // DefaultCatalog() if nil
	Source    ArchiveSource // ZipSource if nil
	Sink      Sink          // SQLiteSink if nil
	Logger    *slog.Logger  // slog.Default() if nil
}

type Runner struct {
	cfg         RunnerConfig
	transformer *Transformer
	initErr     error
}

func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir
	}
	if cfg.Source == nil {
		cfg.Source = ZipSource{}
	}
	if cfg.Sink == nil {
		cfg.Sink = SQLiteSink{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	transformer, err := NewTransformer(cfg.Source, cfg.Sink, &TransformerOpts{
		Catalog:   cfg.Catalog,
		BatchSize: cfg.BatchSize,
	})
	return &Runner{cfg: cfg, transformer: transformer, initErr: err}
}

// Report is the result of a run.
type Report struct {
	RunID   string
	Notices []string
	Feeds   []FeedOutcome

	// Err is the first fatal error, in feed order.
	Err error
}

func (r *Report) OK() bool {
	return r.Err == nil
}

// Messages returns the progress notices, one per line.
func (r *Report) Messages() string {
	return strings.Join(r.Notices, "\n")
}

// Error returns the terminal error message of the run, or "" when it succeeded.
func (r *Report) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

const runIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func newRunID() (string, error) {
	id, err := nanoid.Generate(runIDAlphabet, 10)
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	return "run-" + id, nil
}

// Run converts feeds in the order given. The returned error is Report.Err.
func (r *Runner) Run(feeds []FeedConfig) (*Report, error) {
	runID, err := newRunID()
	if err != nil {
		return &Report{Err: err}, err
	}
	report := &Report{RunID: runID}
	if r.initErr != nil {
		report.Err = r.initErr
		return report, report.Err
	}

	logger := r.cfg.Logger.With("run", runID)
	logger.Info(fmt.Sprintf("Converting %d feed(s)", len(feeds)))

	var outcomes []FeedOutcome
	var notices []*Notices
	if r.cfg.Parallelism > 1 {
		outcomes, notices = r.runParallel(logger, feeds)
	} else {
		outcomes, notices = r.runSequential(logger, feeds)
	}

	all := NewNotices(logger)
	for i, outcome := range outcomes {
		if notices[i] != nil {
			all.append(notices[i])
		}
		if outcome.Err != nil && report.Err == nil {
			report.Err = fmt.Errorf("%s: %w", outcome.Feed, outcome.Err)
		}
	}
	report.Notices = all.Lines()
	report.Feeds = outcomes

	if report.Err != nil {
		logger.Error(report.Err.Error())
	} else {
		logger.Info("All feeds converted")
	}
	return report, report.Err
}

func (r *Runner) runSequential(logger *slog.Logger, feeds []FeedConfig) ([]FeedOutcome, []*Notices) {
	outcomes := make([]FeedOutcome, len(feeds))
	notices := make([]*Notices, len(feeds))
	failed := false
	for i, feed := range feeds {
		if failed {
			outcomes[i] = FeedOutcome{Feed: feed.ID, State: StateSkipped}
			continue
		}
		notices[i] = NewNotices(logger.With("feed", feed.ID))
		outcomes[i] = r.transformer.Transform(feed.withDefaults(r.cfg.DataDir), notices[i])
		failed = outcomes[i].Err != nil
	}
	return outcomes, notices
}

func (r *Runner) runParallel(logger *slog.Logger, feeds []FeedConfig) ([]FeedOutcome, []*Notices) {
	outcomes := make([]FeedOutcome, len(feeds))
	notices := make([]*Notices, len(feeds))

	var g errgroup.Group
	g.SetLimit(r.cfg.Parallelism)
	for i, feed := range feeds {
		notices[i] = NewNotices(logger.With("feed", feed.ID))
		g.Go(func() error {
			outcomes[i] = r.transformer.Transform(feed.withDefaults(r.cfg.DataDir), notices[i])
			return nil
		})
	}
	_ = g.Wait()
	return outcomes, notices
}
