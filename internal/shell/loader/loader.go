// Package loader copies township, ward and village options from the DHIS2
// registry into the reference store.
package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/artpar/villagelookup/internal/core/domain"
	"github.com/artpar/villagelookup/internal/core/linkage"
	"github.com/artpar/villagelookup/internal/shell/registry"
	"github.com/artpar/villagelookup/internal/shell/store"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize is the number of ward or village rows per transaction.
const DefaultBatchSize = 1000

// maxUnmatchedLogged caps the unmatched group names written to the log.
const maxUnmatchedLogged = 10

// Source provides registry metadata. registry.Client satisfies it.
type Source interface {
	FetchOptions(ctx context.Context, optionSetUID string) ([]registry.Option, error)
	FetchOptionGroups(ctx context.Context) ([]registry.OptionGroup, error)
}

// Config names the option sets to load.
type Config struct {
	TownshipOptionSet string
	WardOptionSet     string
	VillageOptionSet  string
	BatchSize         int
}

// Validate reports a missing option set uid.
func (c Config) Validate() error {
	if c.TownshipOptionSet == "" {
		return fmt.Errorf("township option set uid is required")
	}
	if c.WardOptionSet == "" {
		return fmt.Errorf("ward option set uid is required")
	}
	if c.VillageOptionSet == "" {
		return fmt.Errorf("village option set uid is required")
	}
	return nil
}

// Summary describes a completed load.
type Summary struct {
	RunID     string
	Townships int
	Wards     int
	Villages  int
	Unmatched []string
	Duration  time.Duration
}

// Print writes a human-readable summary.
func (s Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "Load %s done in %s.\n", s.RunID, s.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Townships : %d\n", s.Townships)
	fmt.Fprintf(w, "  Wards     : %d\n", s.Wards)
	fmt.Fprintf(w, "  Villages  : %d\n", s.Villages)
	if len(s.Unmatched) > 0 {
		fmt.Fprintf(w, "  Unmatched option groups: %d\n", len(s.Unmatched))
	}
}

// Loader runs the fetch, link and upsert pipeline.
type Loader struct {
	source Source
	store  store.Store
	config Config
	logger *slog.Logger
}

// New creates a Loader. logger may be nil.
func New(source Source, s store.Store, cfg Config, logger *slog.Logger) *Loader {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{source: source, store: s, config: cfg, logger: logger}
}

type fetched struct {
	townships []domain.AreaOption
	wards     []domain.AreaOption
	villages  []domain.AreaOption
	groups    []linkage.OptionGroup
}

// Run performs one full load. Townships are committed before wards and
// villages; each ward or village batch commits on its own.
func (l *Loader) Run(ctx context.Context) (Summary, error) {
	if err := l.config.Validate(); err != nil {
		return Summary{}, err
	}

	start := time.Now()
	runID := uuid.NewString()
	logger := l.logger.With("run_id", runID)

	data, err := l.fetch(ctx)
	if err != nil {
		return Summary{}, err
	}
	logger.Info("fetched registry metadata",
		"townships", len(data.townships),
		"wards", len(data.wards),
		"villages", len(data.villages),
		"option_groups", len(data.groups),
	)

	links := linkage.Build(data.townships, data.groups)
	logger.Info("built township linkage",
		"wards_linked", len(links.Wards),
		"villages_linked", len(links.Villages),
	)
	if len(links.Unmatched) > 0 {
		shown := links.Unmatched[:min(len(links.Unmatched), maxUnmatchedLogged)]
		logger.Warn("option groups did not match any township",
			"count", len(links.Unmatched),
			"groups", shown,
		)
	}

	var ids map[string]int
	err = l.store.WithTx(ctx, func(tx store.Store) error {
		var err error
		ids, err = tx.UpsertTownships(ctx, data.townships)
		return err
	})
	if err != nil {
		return Summary{}, fmt.Errorf("upsert townships: %w", err)
	}
	logger.Info("saved townships", "count", len(ids))

	wardRows := linkage.Resolve(data.wards, links.Wards, ids)
	if err := l.upsertBatches(ctx, logger, "wards", wardRows, store.Store.UpsertWards); err != nil {
		return Summary{}, err
	}

	villageRows := linkage.Resolve(data.villages, links.Villages, ids)
	if err := l.upsertBatches(ctx, logger, "villages", villageRows, store.Store.UpsertVillages); err != nil {
		return Summary{}, err
	}

	return Summary{
		RunID:     runID,
		Townships: len(ids),
		Wards:     len(wardRows),
		Villages:  len(villageRows),
		Unmatched: links.Unmatched,
		Duration:  time.Since(start),
	}, nil
}

// fetch reads the three option sets and the option groups concurrently.
func (l *Loader) fetch(ctx context.Context) (fetched, error) {
	var data fetched
	g, gctx := errgroup.WithContext(ctx)

	options := func(uid, label string, dest *[]domain.AreaOption) func() error {
		return func() error {
			opts, err := l.source.FetchOptions(gctx, uid)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", label, err)
			}
			out := make([]domain.AreaOption, 0, len(opts))
			for _, o := range opts {
				out = append(out, o.AreaOption())
			}
			*dest = out
			return nil
		}
	}

	g.Go(options(l.config.TownshipOptionSet, "townships", &data.townships))
	g.Go(options(l.config.WardOptionSet, "wards", &data.wards))
	g.Go(options(l.config.VillageOptionSet, "villages", &data.villages))
	g.Go(func() error {
		groups, err := l.source.FetchOptionGroups(gctx)
		if err != nil {
			return fmt.Errorf("fetch option groups: %w", err)
		}
		data.groups = make([]linkage.OptionGroup, 0, len(groups))
		for _, grp := range groups {
			data.groups = append(data.groups, grp.Linkage())
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fetched{}, err
	}
	return data, nil
}

func (l *Loader) upsertBatches(
	ctx context.Context,
	logger *slog.Logger,
	table string,
	rows []domain.LinkedOption,
	upsert func(store.Store, context.Context, []domain.LinkedOption) error,
) error {
	done := 0
	for _, batch := range linkage.Batches(rows, l.config.BatchSize) {
		err := l.store.WithTx(ctx, func(tx store.Store) error {
			return upsert(tx, ctx, batch)
		})
		if err != nil {
			return fmt.Errorf("upsert %s after %d of %d rows: %w", table, done, len(rows), err)
		}
		done += len(batch)
		logger.Debug("upserted batch", "table", table, "done", done, "total", len(rows))
	}
	logger.Info("saved "+table, "count", len(rows))
	return nil
}
