package models

import "time"

// Stage identifies where the orchestrator is in a pipeline run.
type Stage string

const (
	StageInit       Stage = "INIT"
	StageCategories Stage = "CATEGORIES"
	StageBooks      Stage = "BOOKS"
	StageReport     Stage = "REPORT"
	StageDone       Stage = "DONE"
	StageFailed     Stage = "FAILED"
)

// RunParameters captures the caller-supplied knobs for one pipeline run.
type RunParameters struct {
	FollowDetailLinks bool    `json:"follow_detail_links"`
	MaxPages          int     `json:"max_pages"`
	RateLimit         float64 `json:"rate_limit_seconds"`
	MaxRetries        int     `json:"max_retries"`
}

// PipelineRun is the immutable record of one full pipeline execution,
// written once to the snapshot store after the terminal stage.
type PipelineRun struct {
	StartedAt       time.Time           `json:"pipeline_started_at"`
	CompletedAt     time.Time           `json:"pipeline_completed_at"`
	DurationSeconds float64             `json:"duration_seconds"`
	Parameters      RunParameters       `json:"parameters"`
	Stage           Stage               `json:"stage"`
	Categories      []ValidatedCategory `json:"categories"`
	Books           []Book              `json:"books"`
	CategoryCount   int                 `json:"category_count"`
	BookCount       int                 `json:"book_count"`
	Report          *Report             `json:"report,omitempty"`
	Success         bool                `json:"success"`
	Error           string              `json:"error,omitempty"`
}

// PriceStats summarizes prices over a set of books.
type PriceStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Avg    float64 `json:"avg"`
	Median float64 `json:"median,omitempty"`
	Total  float64 `json:"total,omitempty"`
}

// RatingStats summarizes ratings over a set of books.
type RatingStats struct {
	Average      float64     `json:"average"`
	Distribution map[int]int `json:"distribution"`
	MostCommon   int         `json:"most_common,omitempty"`
	TotalRated   int         `json:"total_rated"`
}

// BookStatistics is the full statistics block computed over a book set.
type BookStatistics struct {
	TotalBooks   int            `json:"total_books"`
	Price        PriceStats     `json:"price_statistics"`
	Rating       RatingStats    `json:"rating_statistics"`
	Categories   map[string]int `json:"category_distribution"`
	MostPopular  string         `json:"most_popular_category,omitempty"`
	Availability map[string]int `json:"availability_statistics"`
	CalculatedAt time.Time      `json:"calculated_at"`
}

// CategoryDetail is a per-category sample used in the comprehensive report.
type CategoryDetail struct {
	Name             string      `json:"name"`
	Title            string      `json:"title"`
	URL              string      `json:"url"`
	BooksOnFirstPage int         `json:"books_on_first_page"`
	TotalPages       int         `json:"total_pages"`
	PriceRange       *PriceStats `json:"price_range,omitempty"`
	RatingAverage    float64     `json:"average_rating,omitempty"`
	ScrapedAt        time.Time   `json:"scraped_at"`
}

// Report is the comprehensive run summary persisted as JSON.
type Report struct {
	GeneratedAt     time.Time        `json:"report_generated_at"`
	TotalCategories int              `json:"total_categories"`
	CategoryNames   []string         `json:"category_list"`
	CategoryStats   CategoryStats    `json:"category_statistics"`
	CategorySamples []CategoryDetail `json:"category_samples"`
	SampleSize      int              `json:"book_sample_size"`
	BookSample      []Book           `json:"sample_books,omitempty"`
	SampleStats     *BookStatistics  `json:"book_sample_statistics,omitempty"`
	Error           string           `json:"error,omitempty"`
}
