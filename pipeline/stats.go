package pipeline

import (
	"math"
	"sort"
	"time"

	"github.com/aluiziolira/go-book-pipeline/models"
)

// Statistics computes the summary block over a book set: price spread,
// rating distribution, category and availability counts. Zero prices and
// unrated books are excluded from the numeric aggregates, matching how the
// extraction defaults (price 0.0, rating 0) mark missing data.
func Statistics(books []models.Book) models.BookStatistics {
	stats := models.BookStatistics{
		TotalBooks:   len(books),
		Categories:   make(map[string]int),
		Availability: make(map[string]int),
		CalculatedAt: time.Now(),
	}

	var prices []float64
	var ratings []int
	for _, book := range books {
		if book.Price > 0 {
			prices = append(prices, book.Price)
		}
		if book.Rating >= 1 && book.Rating <= 5 {
			ratings = append(ratings, book.Rating)
		}
		category := book.Category
		if category == "" {
			category = "Unknown"
		}
		stats.Categories[category]++

		availability := book.Availability
		if availability == "" {
			availability = "Unknown"
		}
		stats.Availability[availability]++
	}

	if len(prices) > 0 {
		stats.Price = priceStats(prices, true)
	}
	if len(ratings) > 0 {
		stats.Rating = ratingStats(ratings)
	}

	best := 0
	for category, count := range stats.Categories {
		if count > best || (count == best && (stats.MostPopular == "" || category < stats.MostPopular)) {
			best = count
			stats.MostPopular = category
		}
	}
	return stats
}

// priceStats summarizes a non-empty price slice. withSpread adds median and
// total, which only the full statistics block reports.
func priceStats(prices []float64, withSpread bool) models.PriceStats {
	sorted := make([]float64, len(prices))
	copy(sorted, prices)
	sort.Float64s(sorted)

	total := 0.0
	for _, price := range sorted {
		total += price
	}

	stats := models.PriceStats{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: round2(total / float64(len(sorted))),
	}
	if withSpread {
		stats.Median = sorted[len(sorted)/2]
		stats.Total = round2(total)
	}
	return stats
}

func ratingStats(ratings []int) models.RatingStats {
	distribution := make(map[int]int, 5)
	for rating := 1; rating <= 5; rating++ {
		distribution[rating] = 0
	}

	total := 0
	for _, rating := range ratings {
		distribution[rating]++
		total += rating
	}

	mostCommon := 1
	for rating := 2; rating <= 5; rating++ {
		if distribution[rating] > distribution[mostCommon] {
			mostCommon = rating
		}
	}

	return models.RatingStats{
		Average:      round2(float64(total) / float64(len(ratings))),
		Distribution: distribution,
		MostCommon:   mostCommon,
		TotalRated:   len(ratings),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
