// Package parser provides field-level cleaning for scraped values.
package parser

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	currencyRe   = regexp.MustCompile(`[£$€¥₹]`)
	nonNumericRe = regexp.MustCompile(`[^\d.]`)
	totalPagesRe = regexp.MustCompile(`Page \d+ of (\d+)`)
	numberRe     = regexp.MustCompile(`(\d+)`)
	whitespaceRe = regexp.MustCompile(`\s+`)

	titleCaser = cases.Title(language.English)
)

// ratingWords is checked in order; the first word contained in the class
// string wins. The mapping is fixed, not configurable.
var ratingWords = []struct {
	word   string
	rating int
}{
	{"one", 1},
	{"two", 2},
	{"three", 3},
	{"four", 4},
	{"five", 5},
}

// CleanPrice strips currency symbols and embedded text from a price string
// and parses the remainder. Empty or unparseable input yields 0.0 with a
// warning; the catalog walk continues.
func CleanPrice(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0.0
	}

	cleaned := currencyRe.ReplaceAllString(text, "")
	cleaned = nonNumericRe.ReplaceAllString(cleaned, "")
	if cleaned == "" {
		slog.Warn("could not parse price", slog.String("text", text))
		return 0.0
	}

	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		slog.Warn("could not parse price", slog.String("text", text))
		return 0.0
	}
	return price
}

// RatingFromClass converts a star-rating CSS class to 1..5. The match is a
// case-insensitive substring check against one..five; no match yields 0.
func RatingFromClass(class string) int {
	lower := strings.ToLower(class)
	for _, entry := range ratingWords {
		if strings.Contains(lower, entry.word) {
			return entry.rating
		}
	}
	return 0
}

// StandardizeAvailability normalizes stock text. Empty input maps to
// "Unknown"; unrecognized text passes through trimmed.
func StandardizeAvailability(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "Unknown"
	}

	lower := strings.ToLower(trimmed)
	switch {
	case strings.Contains(lower, "in stock"):
		if match := numberRe.FindString(lower); match != "" {
			return "In Stock (" + match + " available)"
		}
		return "In Stock"
	case strings.Contains(lower, "out of stock"):
		return "Out of Stock"
	default:
		return trimmed
	}
}

// ParseCategoryLabel splits sidebar link text of the form "Name (count)".
// The count is taken after the last "("; text without a count yields 0.
func ParseCategoryLabel(text string) (string, int) {
	trimmed := strings.TrimSpace(text)
	open := strings.LastIndex(trimmed, "(")
	end := strings.LastIndex(trimmed, ")")
	if open == -1 || end == -1 || end < open {
		return whitespaceRe.ReplaceAllString(trimmed, " "), 0
	}

	name := strings.TrimSpace(trimmed[:open])
	count, err := strconv.Atoi(strings.TrimSpace(trimmed[open+1 : end]))
	if err != nil {
		count = 0
	}
	return whitespaceRe.ReplaceAllString(name, " "), count
}

// TotalPages extracts the total from a "Page X of Y" pagination marker.
// Absence of the marker means a single page.
func TotalPages(text string) int {
	match := totalPagesRe.FindStringSubmatch(text)
	if len(match) < 2 {
		return 1
	}
	total, err := strconv.Atoi(match[1])
	if err != nil || total < 1 {
		return 1
	}
	return total
}

// ExtractNumber returns the first integer found in text, or 0.
func ExtractNumber(text string) int {
	match := numberRe.FindString(text)
	if match == "" {
		return 0
	}
	n, _ := strconv.Atoi(match)
	return n
}

// TitleCase capitalizes a category name the way the reports expect.
func TitleCase(s string) string {
	return titleCaser.String(s)
}
