package snapshot

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/aluiziolira/go-book-pipeline/models"
)

// BookHeader is the CSV column set for book snapshots, matching the Book
// field order consumed by the API collaborator.
var BookHeader = []string{
	"title", "price", "rating", "availability", "category",
	"image_url", "detail_url", "description", "upc", "product_type",
	"tax", "scraped_at",
}

var categoryHeader = []string{"name", "url", "book_count", "scraped_at"}

var validatedHeader = []string{
	"name", "url", "book_count", "scraped_at",
	"is_valid", "error", "actual_book_count", "has_pagination",
}

// WriteBooksCSV persists one book snapshot as CSV and returns its path.
func (s *Store) WriteBooksCSV(prefix string, ts time.Time, books []models.Book) (string, error) {
	name := Filename(prefix, ts, "csv")
	return s.write(s.csvDir, name, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(BookHeader); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		for _, book := range books {
			if err := cw.Write(bookRecord(book)); err != nil {
				return fmt.Errorf("write csv record: %w", err)
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// WriteBooksJSON persists one book snapshot as a JSON array.
func (s *Store) WriteBooksJSON(prefix string, ts time.Time, books []models.Book) (string, error) {
	return s.WriteJSON(prefix, ts, books)
}

// WriteCategoriesCSV persists the discovered category set.
func (s *Store) WriteCategoriesCSV(prefix string, ts time.Time, categories []models.Category) (string, error) {
	name := Filename(prefix, ts, "csv")
	return s.write(s.csvDir, name, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(categoryHeader); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		for _, category := range categories {
			record := []string{
				category.Name,
				category.URL,
				strconv.Itoa(category.BookCount),
				category.ScrapedAt.Format(time.RFC3339),
			}
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("write csv record: %w", err)
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// WriteValidatedCSV persists the category validation pass.
func (s *Store) WriteValidatedCSV(prefix string, ts time.Time, categories []models.ValidatedCategory) (string, error) {
	name := Filename(prefix, ts, "csv")
	return s.write(s.csvDir, name, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(validatedHeader); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		for _, category := range categories {
			record := []string{
				category.Name,
				category.URL,
				strconv.Itoa(category.BookCount),
				category.ScrapedAt.Format(time.RFC3339),
				strconv.FormatBool(category.IsValid),
				category.Error,
				strconv.Itoa(category.ActualBookCount),
				strconv.FormatBool(category.HasPagination),
			}
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("write csv record: %w", err)
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// WriteJSON persists any value as an indented JSON snapshot.
func (s *Store) WriteJSON(prefix string, ts time.Time, v any) (string, error) {
	name := Filename(prefix, ts, "json")
	return s.write(s.jsonDir, name, func(w io.Writer) error {
		buffered := bufio.NewWriter(w)
		encoder := json.NewEncoder(buffered)
		encoder.SetIndent("", "  ")
		encoder.SetEscapeHTML(false)
		if err := encoder.Encode(v); err != nil {
			return fmt.Errorf("encode json snapshot: %w", err)
		}
		return buffered.Flush()
	})
}

func bookRecord(book models.Book) []string {
	return []string{
		book.Title,
		strconv.FormatFloat(book.Price, 'f', 2, 64),
		strconv.Itoa(book.Rating),
		book.Availability,
		book.Category,
		book.ImageURL,
		book.DetailURL,
		book.Description,
		book.UPC,
		book.ProductType,
		strconv.FormatFloat(book.Tax, 'f', 2, 64),
		book.ScrapedAt.Format(time.RFC3339),
	}
}
