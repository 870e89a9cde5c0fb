package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-book-pipeline/config"
	"github.com/aluiziolira/go-book-pipeline/models"
	"github.com/aluiziolira/go-book-pipeline/pipeline"
)

func main() {
	configFile := flag.String("config", "", "Optional TOML config file")
	mode := flag.String("mode", "full-pipeline", "Mode: categories, books, category-books, report, or full-pipeline")
	category := flag.String("category", "", "Category name or URL for category-books mode")
	fullDetails := flag.Bool("full-details", false, "Follow each item's detail link for enriched fields")
	maxPages := flag.Int("max-pages", 0, "Maximum catalog pages to walk (0 walks everything)")
	rateLimit := flag.Float64("rate-limit", 1.0, "Politeness delay between requests (seconds)")
	maxRetries := flag.Int("max-retries", 3, "Maximum retry attempts per request")
	dataDir := flag.String("data-dir", "data", "Snapshot output directory")
	baseURL := flag.String("base-url", "https://books.toscrape.com", "Base URL to crawl")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configFile != "" {
		if err := config.LoadFile(*configFile, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "loading config file: %v\n", err)
			os.Exit(1)
		}
	}
	if err := config.ApplyEnv(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "reading environment: %v\n", err)
		os.Exit(1)
	}

	// Flags passed explicitly win over the config file and the environment.
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["full-details"] {
		cfg.FollowDetailLinks = *fullDetails
	}
	if set["max-pages"] {
		cfg.MaxPages = *maxPages
	}
	if set["rate-limit"] {
		cfg.RateLimit = time.Duration(*rateLimit * float64(time.Second))
	}
	if set["max-retries"] {
		cfg.MaxRetries = *maxRetries
	}
	if set["data-dir"] {
		cfg.DataDir = *dataDir
	}
	if set["base-url"] {
		cfg.BaseURL = *baseURL
	}
	if set["metrics-addr"] {
		cfg.MetricsAddr = *metricsAddr
	}
	cfg.Verbose = *verbose

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	orchestrator, err := pipeline.New(cfg)
	if err != nil {
		slog.Error("initialising pipeline", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(orchestrator.Metrics().Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	exitCode := run(ctx, orchestrator, cfg, *mode, *category)

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	os.Exit(exitCode)
}

func run(ctx context.Context, orchestrator *pipeline.Orchestrator, cfg *config.Config, mode, category string) int {
	switch mode {
	case "categories":
		validated, _, err := orchestrator.RunCategories(ctx)
		if err != nil {
			slog.Error("category scraping failed", slog.Any("error", err))
			return 1
		}
		fmt.Printf("Discovered %d categories\n", len(validated))

	case "books":
		books, err := orchestrator.RunBooks(ctx, cfg.FollowDetailLinks, cfg.MaxPages)
		if err != nil {
			slog.Error("book scraping failed", slog.Any("error", err))
			return 1
		}
		fmt.Printf("Scraped %d books\n", len(books))

	case "category-books":
		if category == "" {
			slog.Error("-category is required for category-books mode")
			return 1
		}
		books, err := orchestrator.RunCategoryBooks(ctx, category, cfg.FollowDetailLinks)
		if err != nil {
			slog.Error("category book scraping failed", slog.Any("error", err))
			return 1
		}
		fmt.Printf("Scraped %d books from %s\n", len(books), category)

	case "report":
		report := orchestrator.Report(ctx)
		if report.Error != "" {
			slog.Error("report generation failed", slog.String("error", report.Error))
			return 1
		}
		fmt.Printf("Report covers %d categories\n", report.TotalCategories)

	case "full-pipeline":
		result := orchestrator.Run(ctx, models.RunParameters{
			FollowDetailLinks: cfg.FollowDetailLinks,
			MaxPages:          cfg.MaxPages,
			RateLimit:         cfg.RateLimit.Seconds(),
			MaxRetries:        cfg.MaxRetries,
		})
		printSummary(result)
		if !result.Success {
			return 1
		}

	default:
		slog.Error("unsupported mode", slog.String("mode", mode))
		return 1
	}
	return 0
}

func printSummary(result *models.PipelineRun) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Pipeline complete")
	fmt.Printf("  Success:      %v\n", result.Success)
	fmt.Printf("  Stage:        %s\n", result.Stage)
	fmt.Printf("  Categories:   %d\n", result.CategoryCount)
	fmt.Printf("  Books:        %d\n", result.BookCount)
	fmt.Printf("  Duration:     %.2fs\n", result.DurationSeconds)
	if result.Error != "" {
		fmt.Printf("  Error:        %s\n", result.Error)
	}
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
