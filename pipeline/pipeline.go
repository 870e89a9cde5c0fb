// Package pipeline sequences category discovery, the catalog walk, and
// report generation, persisting snapshots along the way.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aluiziolira/go-book-pipeline/config"
	"github.com/aluiziolira/go-book-pipeline/fetch"
	"github.com/aluiziolira/go-book-pipeline/models"
	"github.com/aluiziolira/go-book-pipeline/snapshot"
	"github.com/aluiziolira/go-book-pipeline/walker"
)

// Orchestrator drives one pipeline run start to finish. Each instance owns
// its fetcher and accumulators, so concurrent runs share nothing but the
// output directory, where timestamped filenames avoid collisions.
type Orchestrator struct {
	cfg        *config.Config
	fetcher    *fetch.Fetcher
	categories *walker.CategoryWalker
	catalog    *walker.CatalogWalker
	store      *snapshot.Store
	metrics    *fetch.Metrics
}

// New wires an orchestrator from configuration. Output directory creation is
// best-effort; a read-only environment downgrades to skipped persistence
// rather than failing construction.
func New(cfg *config.Config) (*Orchestrator, error) {
	metrics := fetch.NewMetrics()
	fetcher, err := fetch.New(cfg, fetch.PolicyFromConfig(cfg), metrics)
	if err != nil {
		return nil, fmt.Errorf("build fetcher: %w", err)
	}
	catalog, err := walker.NewCatalogWalker(fetcher, cfg, metrics)
	if err != nil {
		return nil, fmt.Errorf("build catalog walker: %w", err)
	}

	return &Orchestrator{
		cfg:        cfg,
		fetcher:    fetcher,
		categories: walker.NewCategoryWalker(fetcher, cfg.BaseURL),
		catalog:    catalog,
		store:      snapshot.NewStore(cfg.DataDir),
		metrics:    metrics,
	}, nil
}

// Metrics exposes the run's Prometheus registry for the metrics endpoint.
func (o *Orchestrator) Metrics() *fetch.Metrics {
	return o.metrics
}

// Store exposes the snapshot store, the read surface for the API
// collaborator.
func (o *Orchestrator) Store() *snapshot.Store {
	return o.store
}

// Fetcher exposes the underlying fetcher. Tests install mock transports
// through it.
func (o *Orchestrator) Fetcher() *fetch.Fetcher {
	return o.fetcher
}

// RunCategories discovers and validates the category set and persists the
// category artifacts.
func (o *Orchestrator) RunCategories(ctx context.Context) ([]models.ValidatedCategory, models.CategoryStats, error) {
	slog.Info("category stage started")

	categories, err := o.categories.Discover(ctx)
	if err != nil {
		return nil, models.CategoryStats{}, fmt.Errorf("discover categories: %w", err)
	}
	validated := o.categories.Validate(ctx, categories)
	stats := o.categories.Stats(categories)

	now := time.Now()
	o.persist("categories", func() (string, error) {
		return o.store.WriteCategoriesCSV("categories", now, categories)
	})
	o.persist("categories_validated", func() (string, error) {
		return o.store.WriteValidatedCSV("categories_validated", now, validated)
	})
	o.persist("category_stats", func() (string, error) {
		return o.store.WriteJSON("category_stats", now, stats)
	})

	slog.Info("category stage completed", slog.Int("categories", len(validated)))
	return validated, stats, nil
}

// RunBooks walks the global catalog and persists the book snapshot. A
// first-page fetch failure is fatal; everything else degrades to skipped
// pages or dropped items.
func (o *Orchestrator) RunBooks(ctx context.Context, followDetails bool, maxPages int) ([]models.Book, error) {
	slog.Info("book stage started",
		slog.Bool("follow_details", followDetails),
		slog.Int("max_pages", maxPages),
	)

	books, err := o.catalog.WalkAll(ctx, followDetails, maxPages)
	if err != nil {
		return nil, err
	}

	prefix := "books_basic"
	if followDetails {
		prefix = "books_detailed"
	}
	now := time.Now()
	o.persist(prefix+".csv", func() (string, error) {
		return o.store.WriteBooksCSV(prefix, now, books)
	})
	o.persist(prefix+".json", func() (string, error) {
		return o.store.WriteBooksJSON(prefix, now, books)
	})

	slog.Info("book stage completed", slog.Int("books", len(books)))
	return books, nil
}

// RunCategoryBooks walks a single category's listing. The category may be
// given as a name (resolved through discovery) or as a direct URL.
func (o *Orchestrator) RunCategoryBooks(ctx context.Context, nameOrURL string, followDetails bool) ([]models.Book, error) {
	categoryURL := nameOrURL
	categoryName := nameOrURL
	if !strings.HasPrefix(nameOrURL, "http://") && !strings.HasPrefix(nameOrURL, "https://") {
		categories, err := o.categories.Discover(ctx)
		if err != nil {
			return nil, fmt.Errorf("discover categories: %w", err)
		}
		categoryURL = ""
		for _, category := range categories {
			if strings.EqualFold(category.Name, nameOrURL) {
				categoryURL = category.URL
				categoryName = category.Name
				break
			}
		}
		if categoryURL == "" {
			return nil, fmt.Errorf("category %q not found", nameOrURL)
		}
	}

	books, err := o.catalog.WalkCategory(ctx, categoryURL, followDetails)
	if err != nil {
		return nil, err
	}

	suffix := "basic"
	if followDetails {
		suffix = "detailed"
	}
	prefix := fmt.Sprintf("books_%s_%s", safeName(categoryName), suffix)
	now := time.Now()
	o.persist(prefix+".csv", func() (string, error) {
		return o.store.WriteBooksCSV(prefix, now, books)
	})
	o.persist(prefix+".json", func() (string, error) {
		return o.store.WriteBooksJSON(prefix, now, books)
	})
	return books, nil
}

// Report samples the catalog and builds the comprehensive run report.
// Failures are recorded inside the report; this stage never aborts a run.
func (o *Orchestrator) Report(ctx context.Context) *models.Report {
	slog.Info("report stage started")
	report := &models.Report{GeneratedAt: time.Now()}

	categories, err := o.categories.Discover(ctx)
	if err != nil {
		report.Error = err.Error()
		o.persistReport(report)
		return report
	}

	report.TotalCategories = len(categories)
	report.CategoryNames = make([]string, 0, len(categories))
	for _, category := range categories {
		report.CategoryNames = append(report.CategoryNames, category.Name)
	}
	report.CategoryStats = o.categories.Stats(categories)

	sampleCount := len(categories)
	if sampleCount > 5 {
		sampleCount = 5
	}
	for _, category := range categories[:sampleCount] {
		detail, err := o.categoryDetail(ctx, category)
		if err != nil {
			slog.Warn("skipping category sample",
				slog.String("category", category.Name),
				slog.Any("error", err),
			)
			continue
		}
		report.CategorySamples = append(report.CategorySamples, detail)
	}

	sample, err := o.catalog.PageSample(ctx)
	if err != nil {
		slog.Warn("book sampling failed", slog.Any("error", err))
	} else if len(sample) > 0 {
		report.SampleSize = len(sample)
		stats := Statistics(sample)
		report.SampleStats = &stats
		if len(sample) > 5 {
			sample = sample[:5]
		}
		report.BookSample = sample
	}

	o.persistReport(report)
	slog.Info("report stage completed")
	return report
}

// Run executes the full pipeline: INIT -> CATEGORIES -> BOOKS -> REPORT ->
// DONE|FAILED. The terminal record always carries wall-clock duration and a
// completion timestamp, and is written once to the snapshot store.
func (o *Orchestrator) Run(ctx context.Context, params models.RunParameters) *models.PipelineRun {
	start := time.Now()
	run := &models.PipelineRun{
		StartedAt:  start,
		Parameters: params,
		Stage:      models.StageInit,
	}
	slog.Info("pipeline started",
		slog.Bool("follow_details", params.FollowDetailLinks),
		slog.Int("max_pages", params.MaxPages),
	)

	if !o.store.Enabled() {
		slog.Warn("persistence disabled, run continues without artifacts")
	}

	run.Stage = models.StageCategories
	validated, _, err := o.RunCategories(ctx)
	if err != nil {
		return o.fail(run, err)
	}
	run.Categories = validated
	run.CategoryCount = len(validated)

	run.Stage = models.StageBooks
	books, err := o.RunBooks(ctx, params.FollowDetailLinks, params.MaxPages)
	if err != nil {
		return o.fail(run, err)
	}
	run.Books = books
	run.BookCount = len(books)

	run.Stage = models.StageReport
	run.Report = o.Report(ctx)

	run.Stage = models.StageDone
	run.Success = true
	o.finalize(run)
	return run
}

func (o *Orchestrator) fail(run *models.PipelineRun, err error) *models.PipelineRun {
	slog.Error("pipeline failed",
		slog.String("stage", string(run.Stage)),
		slog.Any("error", err),
	)
	run.Stage = models.StageFailed
	run.Error = err.Error()
	o.finalize(run)
	return run
}

func (o *Orchestrator) finalize(run *models.PipelineRun) {
	run.CompletedAt = time.Now()
	run.DurationSeconds = run.CompletedAt.Sub(run.StartedAt).Seconds()

	o.persist("pipeline_results", func() (string, error) {
		return o.store.WriteJSON("pipeline_results", run.StartedAt, run)
	})
	slog.Info("pipeline finished",
		slog.Bool("success", run.Success),
		slog.String("stage", string(run.Stage)),
		slog.Float64("duration_seconds", run.DurationSeconds),
		slog.Int("books", run.BookCount),
		slog.Int("categories", run.CategoryCount),
	)
}

func (o *Orchestrator) persistReport(report *models.Report) {
	o.persist("comprehensive_report", func() (string, error) {
		return o.store.WriteJSON("comprehensive_report", report.GeneratedAt, report)
	})
}

// persist runs one best-effort artifact write. Failures are logged and the
// run continues without that artifact.
func (o *Orchestrator) persist(kind string, write func() (string, error)) {
	path, err := write()
	if err != nil {
		if errors.Is(err, snapshot.ErrDisabled) {
			slog.Warn("skipping artifact, persistence disabled", slog.String("kind", kind))
		} else {
			slog.Warn("failed to persist artifact", slog.String("kind", kind), slog.Any("error", err))
		}
		return
	}
	slog.Info("artifact written", slog.String("kind", kind), slog.String("path", path))
}

func safeName(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
}
