// Package models defines data structures shared across the pipeline.
package models

import "time"

// Book represents one catalog entry. Basic listing extraction fills the
// listing fields only; detail extraction additionally fills Category,
// Description, UPC, ProductType, and Tax.
type Book struct {
	Title        string    `csv:"title" json:"title"`
	Price        float64   `csv:"price" json:"price"`
	Rating       int       `csv:"rating" json:"rating"`
	Availability string    `csv:"availability" json:"availability"`
	Category     string    `csv:"category" json:"category"`
	ImageURL     string    `csv:"image_url" json:"image_url"`
	DetailURL    string    `csv:"detail_url" json:"detail_url"`
	Description  string    `csv:"description" json:"description"`
	UPC          string    `csv:"upc" json:"upc"`
	ProductType  string    `csv:"product_type" json:"product_type"`
	Tax          float64   `csv:"tax" json:"tax"`
	ScrapedAt    time.Time `csv:"scraped_at" json:"scraped_at"`
}

// Category is one entry from the navigation sidebar. Identity is the
// cleaned name; categories are rediscovered on every run.
type Category struct {
	Name      string    `csv:"name" json:"name"`
	URL       string    `csv:"url" json:"url"`
	BookCount int       `csv:"book_count" json:"book_count"`
	ScrapedAt time.Time `csv:"scraped_at" json:"scraped_at"`
}

// ValidatedCategory is a Category after the validation pass re-fetched its
// URL and confirmed listing items or pagination controls were present.
type ValidatedCategory struct {
	Category
	IsValid         bool   `csv:"is_valid" json:"is_valid"`
	Error           string `csv:"error" json:"error,omitempty"`
	ActualBookCount int    `csv:"actual_book_count" json:"actual_book_count"`
	HasPagination   bool   `csv:"has_pagination" json:"has_pagination"`
}

// CategoryStats aggregates the discovered category set.
type CategoryStats struct {
	TotalCategories int       `json:"total_categories"`
	TotalBooks      int       `json:"total_books_across_categories"`
	AverageBooks    float64   `json:"average_books_per_category"`
	MostBooks       *Category `json:"category_with_most_books,omitempty"`
	LeastBooks      *Category `json:"category_with_least_books,omitempty"`
	ScrapedAt       time.Time `json:"scraped_at"`
}
