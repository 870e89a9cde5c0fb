package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/aluiziolira/go-book-pipeline/config"
	"github.com/aluiziolira/go-book-pipeline/models"
)

const testBase = "http://books.test/"

func newTestOrchestrator(t *testing.T) (*Orchestrator, *httpmock.MockTransport, string) {
	t.Helper()

	dataDir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.BaseURL = testBase
	cfg.RateLimit = 0
	cfg.MaxRetries = 0
	cfg.RetryBackoff = time.Millisecond
	cfg.DataDir = dataDir

	orchestrator, err := New(cfg)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	transport := httpmock.NewMockTransport()
	orchestrator.Fetcher().SetTransport(transport)
	return orchestrator, transport, dataDir
}

func pod(title, href string, price float64, rating string) string {
	return fmt.Sprintf(`<article class="product_pod">
<h3><a href=%q title=%q>%s</a></h3>
<p class="price_color">£%.2f</p>
<p class="star-rating %s"></p>
<p class="instock availability">In stock</p>
</article>`, href, title, title, price, rating)
}

func page(body string) string {
	return "<html><body>" + body + "</body></html>"
}

const rootHTML = `<html><body>
<div class="side_categories">
<ul><li><a href="catalogue/category/books_1/index.html">Books</a>
<ul>
<li><a href="catalogue/category/books/travel_2/index.html">Travel (2)</a></li>
<li><a href="catalogue/category/books/mystery_3/index.html">Mystery (1)</a></li>
</ul>
</li></ul>
</div>
</body></html>`

// registerSite wires a minimal two-category catalog into the transport.
func registerSite(transport *httpmock.MockTransport) {
	transport.RegisterResponder("GET", testBase,
		httpmock.NewStringResponder(200, rootHTML))

	transport.RegisterResponder("GET", testBase+"catalogue/category/books/travel_2/index.html",
		httpmock.NewStringResponder(200, page(
			`<h1>Travel</h1>`+
				pod("On the Road", "on-the-road_1/index.html", 20.00, "Four")+
				pod("Neither Here nor There", "neither-here_2/index.html", 30.00, "Two"))))
	transport.RegisterResponder("GET", testBase+"catalogue/category/books/mystery_3/index.html",
		httpmock.NewStringResponder(200, page(
			`<h1>Mystery</h1>`+
				pod("Sharp Objects", "sharp-objects_3/index.html", 47.82, "Four"))))

	transport.RegisterResponder("GET", testBase+"catalogue/page-1.html",
		httpmock.NewStringResponder(200, page(
			`<li class="current">Page 1 of 1</li>`+
				pod("On the Road", "on-the-road_1/index.html", 20.00, "Four")+
				pod("Sharp Objects", "sharp-objects_3/index.html", 47.82, "Four")+
				pod("Soumission", "soumission_4/index.html", 50.10, "One"))))
}

func csvFiles(t *testing.T, dataDir, prefix string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dataDir, "csv", prefix+"_*.csv"))
	if err != nil {
		t.Fatalf("globbing snapshots: %v", err)
	}
	return matches
}

func jsonFiles(t *testing.T, dataDir, prefix string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dataDir, "json", prefix+"_*.json"))
	if err != nil {
		t.Fatalf("globbing snapshots: %v", err)
	}
	return matches
}

func TestRunSuccess(t *testing.T) {
	orchestrator, transport, dataDir := newTestOrchestrator(t)
	registerSite(transport)

	run := orchestrator.Run(context.Background(), models.RunParameters{})

	if !run.Success {
		t.Fatalf("run failed: stage=%s error=%s", run.Stage, run.Error)
	}
	if run.Stage != models.StageDone {
		t.Errorf("Stage = %s, want %s", run.Stage, models.StageDone)
	}
	if run.CategoryCount != 2 {
		t.Errorf("CategoryCount = %d, want 2", run.CategoryCount)
	}
	if run.BookCount != 3 {
		t.Errorf("BookCount = %d, want 3", run.BookCount)
	}
	if run.Report == nil {
		t.Error("Report should be attached to a successful run")
	}
	if run.CompletedAt.IsZero() || run.DurationSeconds < 0 {
		t.Errorf("timing not recorded: completed=%v duration=%v", run.CompletedAt, run.DurationSeconds)
	}

	for _, prefix := range []string{"categories", "categories_validated", "books_basic"} {
		if len(csvFiles(t, dataDir, prefix)) != 1 {
			t.Errorf("expected one %s CSV snapshot", prefix)
		}
	}
	for _, prefix := range []string{"category_stats", "books_basic", "comprehensive_report", "pipeline_results"} {
		if len(jsonFiles(t, dataDir, prefix)) != 1 {
			t.Errorf("expected one %s JSON snapshot", prefix)
		}
	}
}

func TestRunFailsWhenCatalogUnavailable(t *testing.T) {
	orchestrator, transport, dataDir := newTestOrchestrator(t)
	registerSite(transport)
	transport.RegisterResponder("GET", testBase+"catalogue/page-1.html",
		httpmock.NewStringResponder(500, "boom"))

	run := orchestrator.Run(context.Background(), models.RunParameters{})

	if run.Success {
		t.Fatal("run should fail when the first catalog page is unavailable")
	}
	if run.Stage != models.StageFailed {
		t.Errorf("Stage = %s, want %s", run.Stage, models.StageFailed)
	}
	if run.Error == "" {
		t.Error("failed run should record an error")
	}
	if run.CompletedAt.IsZero() {
		t.Error("failed run should still record completion time")
	}

	// The category stage completed before the failure; its artifacts stay.
	if len(csvFiles(t, dataDir, "categories")) == 0 {
		t.Error("category snapshot should survive a later-stage failure")
	}
	if len(jsonFiles(t, dataDir, "pipeline_results")) != 1 {
		t.Error("failed run should still persist the run record")
	}
}

func TestRunFailsWhenDiscoveryFails(t *testing.T) {
	orchestrator, transport, _ := newTestOrchestrator(t)
	transport.RegisterResponder("GET", testBase,
		httpmock.NewStringResponder(500, "boom"))

	run := orchestrator.Run(context.Background(), models.RunParameters{})

	if run.Success || run.Stage != models.StageFailed {
		t.Fatalf("run = %+v, want failure at discovery", run)
	}
	if !strings.Contains(run.Error, "discover categories") {
		t.Errorf("Error = %q, want discovery failure", run.Error)
	}
}

func TestRunCategories(t *testing.T) {
	orchestrator, transport, _ := newTestOrchestrator(t)
	registerSite(transport)

	validated, stats, err := orchestrator.RunCategories(context.Background())
	if err != nil {
		t.Fatalf("RunCategories returned error: %v", err)
	}
	if len(validated) != 2 {
		t.Fatalf("got %d categories, want 2", len(validated))
	}
	for _, entry := range validated {
		if !entry.IsValid {
			t.Errorf("category %s should validate: %s", entry.Name, entry.Error)
		}
	}
	if stats.TotalBooks != 3 {
		t.Errorf("TotalBooks = %d, want 3", stats.TotalBooks)
	}
}

func TestRunCategoryBooksByName(t *testing.T) {
	orchestrator, transport, dataDir := newTestOrchestrator(t)
	registerSite(transport)

	books, err := orchestrator.RunCategoryBooks(context.Background(), "travel", false)
	if err != nil {
		t.Fatalf("RunCategoryBooks returned error: %v", err)
	}
	if len(books) != 2 {
		t.Fatalf("got %d books, want 2", len(books))
	}
	if len(csvFiles(t, dataDir, "books_travel_basic")) != 1 {
		t.Error("expected one books_travel_basic CSV snapshot")
	}
}

func TestRunCategoryBooksByURL(t *testing.T) {
	orchestrator, transport, _ := newTestOrchestrator(t)
	registerSite(transport)

	books, err := orchestrator.RunCategoryBooks(context.Background(),
		testBase+"catalogue/category/books/mystery_3/index.html", false)
	if err != nil {
		t.Fatalf("RunCategoryBooks returned error: %v", err)
	}
	if len(books) != 1 {
		t.Fatalf("got %d books, want 1", len(books))
	}
}

func TestRunCategoryBooksUnknownName(t *testing.T) {
	orchestrator, transport, _ := newTestOrchestrator(t)
	registerSite(transport)

	if _, err := orchestrator.RunCategoryBooks(context.Background(), "gardening", false); err == nil {
		t.Fatal("expected error for unknown category name")
	}
}

func TestReport(t *testing.T) {
	orchestrator, transport, dataDir := newTestOrchestrator(t)
	registerSite(transport)

	report := orchestrator.Report(context.Background())

	if report.Error != "" {
		t.Fatalf("report recorded error: %s", report.Error)
	}
	if report.TotalCategories != 2 {
		t.Errorf("TotalCategories = %d, want 2", report.TotalCategories)
	}
	if len(report.CategorySamples) != 2 {
		t.Errorf("got %d category samples, want 2", len(report.CategorySamples))
	}
	if report.SampleSize != 3 {
		t.Errorf("SampleSize = %d, want 3", report.SampleSize)
	}
	if report.SampleStats == nil {
		t.Fatal("SampleStats should be set")
	}
	if report.SampleStats.TotalBooks != 3 {
		t.Errorf("sample TotalBooks = %d, want 3", report.SampleStats.TotalBooks)
	}
	if len(jsonFiles(t, dataDir, "comprehensive_report")) != 1 {
		t.Error("expected one comprehensive_report JSON snapshot")
	}

	travel := report.CategorySamples[0]
	if travel.Title != "Travel" {
		t.Errorf("sample Title = %q, want Travel", travel.Title)
	}
	if travel.BooksOnFirstPage != 2 {
		t.Errorf("BooksOnFirstPage = %d, want 2", travel.BooksOnFirstPage)
	}
	if travel.PriceRange == nil || travel.PriceRange.Min != 20.00 || travel.PriceRange.Max != 30.00 {
		t.Errorf("PriceRange = %+v", travel.PriceRange)
	}
	if travel.RatingAverage != 3.0 {
		t.Errorf("RatingAverage = %v, want 3.0", travel.RatingAverage)
	}
}

func TestReportRecordsDiscoveryFailure(t *testing.T) {
	orchestrator, transport, _ := newTestOrchestrator(t)
	transport.RegisterResponder("GET", testBase,
		httpmock.NewStringResponder(500, "boom"))

	report := orchestrator.Report(context.Background())
	if report.Error == "" {
		t.Fatal("report should record the discovery failure")
	}
}

func TestRunContinuesWithoutPersistence(t *testing.T) {
	dataDir := t.TempDir()
	blocker := filepath.Join(dataDir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("creating blocker file: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.BaseURL = testBase
	cfg.RateLimit = 0
	cfg.MaxRetries = 0
	cfg.DataDir = filepath.Join(blocker, "data")

	orchestrator, err := New(cfg)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	transport := httpmock.NewMockTransport()
	orchestrator.Fetcher().SetTransport(transport)
	registerSite(transport)

	run := orchestrator.Run(context.Background(), models.RunParameters{})
	if !run.Success {
		t.Fatalf("run should succeed without persistence: %s", run.Error)
	}
	if orchestrator.Store().Enabled() {
		t.Error("store should be disabled")
	}
}

func TestStatistics(t *testing.T) {
	books := []models.Book{
		{Title: "a", Price: 10.00, Rating: 4, Category: "Travel", Availability: "In Stock"},
		{Title: "b", Price: 20.00, Rating: 4, Category: "Travel", Availability: "In Stock"},
		{Title: "c", Price: 30.00, Rating: 2, Category: "Mystery", Availability: "Out of Stock"},
		{Title: "d", Price: 0.0, Rating: 0},
	}

	stats := Statistics(books)

	if stats.TotalBooks != 4 {
		t.Errorf("TotalBooks = %d, want 4", stats.TotalBooks)
	}
	if stats.Price.Min != 10.00 || stats.Price.Max != 30.00 || stats.Price.Avg != 20.00 {
		t.Errorf("Price = %+v", stats.Price)
	}
	if stats.Price.Median != 20.00 || stats.Price.Total != 60.00 {
		t.Errorf("Price spread = %+v", stats.Price)
	}
	if stats.Rating.Average != 3.33 {
		t.Errorf("Rating.Average = %v, want 3.33", stats.Rating.Average)
	}
	if stats.Rating.MostCommon != 4 {
		t.Errorf("Rating.MostCommon = %d, want 4", stats.Rating.MostCommon)
	}
	if stats.Rating.TotalRated != 3 {
		t.Errorf("Rating.TotalRated = %d, want 3", stats.Rating.TotalRated)
	}
	if stats.Categories["Travel"] != 2 || stats.Categories["Unknown"] != 1 {
		t.Errorf("Categories = %v", stats.Categories)
	}
	if stats.Availability["In Stock"] != 2 || stats.Availability["Unknown"] != 1 {
		t.Errorf("Availability = %v", stats.Availability)
	}
	if stats.MostPopular != "Travel" {
		t.Errorf("MostPopular = %q, want Travel", stats.MostPopular)
	}
}

func TestStatisticsEmpty(t *testing.T) {
	stats := Statistics(nil)
	if stats.TotalBooks != 0 || stats.Price.Max != 0 || stats.Rating.TotalRated != 0 {
		t.Errorf("empty stats = %+v, want zero value aggregates", stats)
	}
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Travel", "travel"},
		{"Science Fiction", "science_fiction"},
		{"  Historical Fiction  ", "historical_fiction"},
	}
	for _, tt := range tests {
		if got := safeName(tt.in); got != tt.want {
			t.Errorf("safeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
