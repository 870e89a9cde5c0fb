// Package walker traverses the catalog site: category discovery and
// validation, and the paginated listing walk.
package walker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-book-pipeline/extract"
	"github.com/aluiziolira/go-book-pipeline/fetch"
	"github.com/aluiziolira/go-book-pipeline/models"
	"github.com/aluiziolira/go-book-pipeline/parser"
)

// paginationSelector matches either pagination control on a listing page.
const paginationSelector = "li.current, li.next"

// CategoryWalker discovers the category set from the navigation sidebar and
// optionally validates each category URL.
type CategoryWalker struct {
	fetcher *fetch.Fetcher
	baseURL string
}

// NewCategoryWalker builds a walker rooted at the site base URL.
func NewCategoryWalker(fetcher *fetch.Fetcher, baseURL string) *CategoryWalker {
	return &CategoryWalker{fetcher: fetcher, baseURL: baseURL}
}

// Discover fetches the site root and enumerates the sidebar categories. The
// first sidebar link lists all items rather than a category, so it is
// skipped.
func (w *CategoryWalker) Discover(ctx context.Context) ([]models.Category, error) {
	doc, err := w.fetcher.Fetch(ctx, w.baseURL)
	if err != nil {
		return nil, fmt.Errorf("fetch site root: %w", err)
	}

	nav := doc.Find("div.side_categories")
	if nav.Length() == 0 {
		return nil, fmt.Errorf("category navigation not found on %s", w.baseURL)
	}

	var categories []models.Category
	nav.Find("a").Each(func(i int, link *goquery.Selection) {
		if i == 0 {
			return
		}
		name, count := parser.ParseCategoryLabel(link.Text())
		category := parser.SanitizeCategory(models.Category{
			Name:      name,
			URL:       extract.ResolveURL(w.baseURL, link.AttrOr("href", "")),
			BookCount: count,
			ScrapedAt: time.Now(),
		})
		categories = append(categories, category)
	})

	slog.Info("categories discovered", slog.Int("count", len(categories)))
	return categories, nil
}

// Validate re-fetches each category URL and confirms listing items or
// pagination controls are present. Each category is checked independently;
// one failure never blocks the rest.
func (w *CategoryWalker) Validate(ctx context.Context, categories []models.Category) []models.ValidatedCategory {
	validated := make([]models.ValidatedCategory, 0, len(categories))

	for _, category := range categories {
		entry := models.ValidatedCategory{Category: category}

		if category.URL == "" {
			entry.Error = "no URL provided"
			validated = append(validated, entry)
			continue
		}

		doc, err := w.fetcher.Fetch(ctx, category.URL)
		if err != nil {
			entry.Error = fmt.Sprintf("could not fetch category page: %v", err)
			validated = append(validated, entry)
			continue
		}

		items := doc.Find(extract.ListingSelector).Length()
		pagination := doc.Find(paginationSelector).Length() > 0
		if items > 0 || pagination {
			entry.IsValid = true
			entry.ActualBookCount = items
			entry.HasPagination = pagination
		} else {
			entry.Error = "no books found on category page"
		}

		slog.Info("category validated",
			slog.String("name", category.Name),
			slog.Bool("valid", entry.IsValid),
		)
		validated = append(validated, entry)
	}

	return validated
}

// Stats aggregates the discovered category set.
func (w *CategoryWalker) Stats(categories []models.Category) models.CategoryStats {
	stats := models.CategoryStats{
		TotalCategories: len(categories),
		ScrapedAt:       time.Now(),
	}
	if len(categories) == 0 {
		return stats
	}

	for _, category := range categories {
		stats.TotalBooks += category.BookCount
	}
	stats.AverageBooks = math.Round(float64(stats.TotalBooks)/float64(len(categories))*100) / 100

	for i := range categories {
		category := categories[i]
		if category.BookCount <= 0 {
			continue
		}
		if stats.MostBooks == nil || category.BookCount > stats.MostBooks.BookCount {
			stats.MostBooks = &categories[i]
		}
		if stats.LeastBooks == nil || category.BookCount < stats.LeastBooks.BookCount {
			stats.LeastBooks = &categories[i]
		}
	}
	return stats
}
