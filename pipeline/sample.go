package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-book-pipeline/extract"
	"github.com/aluiziolira/go-book-pipeline/models"
	"github.com/aluiziolira/go-book-pipeline/parser"
)

// categoryDetail samples one category's first page for the comprehensive
// report: page title, item count, total pages, and price/rating spread.
func (o *Orchestrator) categoryDetail(ctx context.Context, category models.Category) (models.CategoryDetail, error) {
	doc, err := o.fetcher.Fetch(ctx, category.URL)
	if err != nil {
		return models.CategoryDetail{}, err
	}

	detail := models.CategoryDetail{
		Name:       category.Name,
		Title:      strings.TrimSpace(doc.Find("h1").First().Text()),
		URL:        category.URL,
		TotalPages: parser.TotalPages(doc.Find("li.current").First().Text()),
		ScrapedAt:  time.Now(),
	}
	if detail.Title == "" {
		detail.Title = "Unknown"
	}

	var prices []float64
	ratingTotal, ratingCount := 0, 0
	doc.Find(extract.ListingSelector).Each(func(_ int, sel *goquery.Selection) {
		item, err := extract.ListingItem(sel, category.URL)
		if err != nil {
			return
		}
		detail.BooksOnFirstPage++
		if item.Price > 0 {
			prices = append(prices, item.Price)
		}
		if item.Rating > 0 {
			ratingTotal += item.Rating
			ratingCount++
		}
	})

	if len(prices) > 0 {
		stats := priceStats(prices, false)
		detail.PriceRange = &stats
	}
	if ratingCount > 0 {
		detail.RatingAverage = round2(float64(ratingTotal) / float64(ratingCount))
	}
	return detail, nil
}
