package gtfsstrip

import "fmt"

type FeedState int

const (
	StateIdle FeedState = iota
	StateArchiveOpened
	StateTransactionOpen
	StateCommitted
	StateAborted
	// StateSkipped marks a feed the runner never started because an earlier one failed.
	StateSkipped
)

func (s FeedState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArchiveOpened:
		return "archive opened"
	case StateTransactionOpen:
		return "transaction open"
	case StateCommitted:
		return "committed"
	case StateAborted:
		return "aborted"
	case StateSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("FeedState(%d)", int(s))
	}
}

type TableOutcome struct {
	Table string
	Found bool
	Read  int
	Added int
}

type FeedOutcome struct {
	Feed   string
	State  FeedState
	Tables []TableOutcome
	Err    error
}

type TransformerOpts struct {
	Catalog   []TableSpec // DefaultCatalog() if nil
	BatchSize int         // rows per InsertRows call, 500 if zero
}

const defaultBatchSize = 500

// Transformer converts one feed at a time from an archive into a fresh store.
type Transformer struct {
	source    ArchiveSource
	sink      Sink
	catalog   []TableSpec
	batchSize int
}

func NewTransformer(source ArchiveSource, sink Sink, opts *TransformerOpts) (*Transformer, error) {
	if opts == nil {
		opts = &TransformerOpts{}
	}
	catalog := opts.Catalog
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if err := ValidateCatalog(catalog); err != nil {
		return nil, err
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Transformer{source: source, sink: sink, catalog: catalog, batchSize: batchSize}, nil
}

// Transform opens the feed's archive, replaces its output store and writes every
// catalog table inside one transaction. Nothing is committed unless every table
// succeeds. The previous store is removed before any table is read, so a failed
// run leaves an empty store rather than the old one.
func (t *Transformer) Transform(feed FeedConfig, notices *Notices) FeedOutcome {
	if feed.Archive == "" {
		panic("Missing archive path")
	}
	if feed.Output == "" {
		panic("Missing output path")
	}

	outcome := FeedOutcome{Feed: feed.ID, State: StateIdle}
	abort := func(err error) FeedOutcome {
		outcome.State = StateAborted
		outcome.Err = err
		return outcome
	}

	notices.Add("Processing %s...", feed.ID)

	archive, err := t.source.Open(feed.Archive)
	if err != nil {
		return abort(err)
	}
	defer func() { _ = archive.Close() }()
	outcome.State = StateArchiveOpened

	store, err := t.sink.Create(feed.Output)
	if err != nil {
		return abort(err)
	}
	defer func() { _ = store.Close() }()

	if err := store.Begin(); err != nil {
		return abort(err)
	}
	outcome.State = StateTransactionOpen

	if err := t.writeTables(archive, store, feed, notices, &outcome); err != nil {
		if rbErr := store.Rollback(); rbErr != nil {
			notices.logger.Warn(fmt.Sprintf("Rollback of %s failed: %s", feed.ID, rbErr))
		}
		return abort(err)
	}

	if err := store.Commit(); err != nil {
		if rbErr := store.Rollback(); rbErr != nil {
			notices.logger.Warn(fmt.Sprintf("Rollback of %s failed: %s", feed.ID, rbErr))
		}
		return abort(err)
	}
	if err := store.Close(); err != nil {
		return abort(&WriteError{Op: "close store", Err: err})
	}

	outcome.State = StateCommitted
	return outcome
}

func (t *Transformer) writeTables(archive Archive, store Store, feed FeedConfig, notices *Notices, outcome *FeedOutcome) error {
	remap := feed.Remap()
	filter := feed.InitialFilter()

	for _, spec := range t.catalog {
		notices.Add("-- populating table %s", spec.Name)

		if err := store.CreateTable(spec); err != nil {
			return err
		}

		notices.Add("    -- processing %s", spec.Entry)

		added := 0
		batch := make([]Row, 0, t.batchSize)
		flush := func() error {
			n, err := store.InsertRows(spec, batch)
			added += n
			batch = batch[:0]
			return err
		}

		result, err := Extract(archive, spec, remap, filter, func(row Row) error {
			batch = append(batch, row)
			if len(batch) >= t.batchSize {
				return flush()
			}
			return nil
		})
		if err != nil {
			return err
		}
		if len(batch) > 0 {
			if err := flush(); err != nil {
				return err
			}
		}

		if result.Found {
			notices.Add("    -- processed %s", spec.Entry)
		} else {
			notices.Add("       -- could not find %s in archive, skipping", spec.Entry)
		}
		notices.Add("    -- added %d rows to %s", added, spec.Name)

		outcome.Tables = append(outcome.Tables, TableOutcome{
			Table: spec.Name,
			Found: result.Found,
			Read:  result.Read,
			Added: added,
		})
		filter = result.Filter
	}
	return nil
}
