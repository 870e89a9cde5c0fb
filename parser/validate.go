package parser

import (
	"log/slog"
	"math"
	"net/url"
	"strings"

	"github.com/aluiziolira/go-book-pipeline/models"
)

// IsAbsoluteURL reports whether s parses as an absolute http(s) URL.
func IsAbsoluteURL(s string) bool {
	parsed, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

// SanitizeBook applies field-level validation and returns a corrected copy.
// Out-of-range values are replaced with safe defaults and logged at warning
// level; nothing is raised to the caller.
func SanitizeBook(book models.Book) models.Book {
	title := strings.TrimSpace(book.Title)
	if title == "" {
		slog.Warn("book has empty title", slog.String("url", book.DetailURL))
		book.Title = "Unknown Title"
	} else {
		book.Title = whitespaceRe.ReplaceAllString(title, " ")
	}

	if book.Price < 0 {
		slog.Warn("negative price clamped", slog.Float64("price", book.Price), slog.String("title", book.Title))
		book.Price = 0
	}
	book.Price = math.Round(book.Price*100) / 100

	if book.Rating < 0 || book.Rating > 5 {
		slog.Warn("rating out of range", slog.Int("rating", book.Rating), slog.String("title", book.Title))
		book.Rating = 0
	}

	if book.Tax < 0 {
		book.Tax = 0
	}

	category := strings.TrimSpace(book.Category)
	if category == "" {
		book.Category = "Unknown"
	} else {
		book.Category = TitleCase(category)
	}

	if book.DetailURL != "" && !IsAbsoluteURL(book.DetailURL) {
		slog.Warn("invalid detail url cleared", slog.String("url", book.DetailURL))
		book.DetailURL = ""
	}
	if book.ImageURL != "" && !IsAbsoluteURL(book.ImageURL) {
		slog.Warn("invalid image url cleared", slog.String("url", book.ImageURL))
		book.ImageURL = ""
	}

	book.Availability = StandardizeAvailability(book.Availability)
	return book
}

// SanitizeCategory validates and corrects one discovered category.
func SanitizeCategory(category models.Category) models.Category {
	name := strings.TrimSpace(category.Name)
	if name == "" {
		slog.Warn("category has empty name", slog.String("url", category.URL))
		category.Name = "Unknown Category"
	} else {
		category.Name = TitleCase(name)
	}

	if category.URL != "" && !IsAbsoluteURL(category.URL) {
		slog.Warn("invalid category url cleared", slog.String("url", category.URL))
		category.URL = ""
	}

	if category.BookCount < 0 {
		category.BookCount = 0
	}
	return category
}
