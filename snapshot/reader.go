package snapshot

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aluiziolira/go-book-pipeline/models"
)

// LatestBooks returns the records of the most recent detailed book snapshot.
// This is the read interface for the API collaborator; it never triggers a
// fetch, only reads what previous runs persisted.
func (s *Store) LatestBooks() ([]models.Book, error) {
	path, err := s.LatestCSV("books_detailed")
	if err != nil {
		return nil, err
	}
	return ReadBooksCSV(path)
}

// ReadBooksCSV loads a book snapshot back from disk. Columns are matched by
// header name, so column order changes stay readable.
func ReadBooksCSV(path string) ([]models.Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	index := make(map[string]int, len(rows[0]))
	for i, column := range rows[0] {
		index[column] = i
	}
	field := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	books := make([]models.Book, 0, len(rows)-1)
	for _, row := range rows[1:] {
		price, _ := strconv.ParseFloat(field(row, "price"), 64)
		rating, _ := strconv.Atoi(field(row, "rating"))
		tax, _ := strconv.ParseFloat(field(row, "tax"), 64)
		scrapedAt, _ := time.Parse(time.RFC3339, field(row, "scraped_at"))

		books = append(books, models.Book{
			Title:        field(row, "title"),
			Price:        price,
			Rating:       rating,
			Availability: field(row, "availability"),
			Category:     field(row, "category"),
			ImageURL:     field(row, "image_url"),
			DetailURL:    field(row, "detail_url"),
			Description:  field(row, "description"),
			UPC:          field(row, "upc"),
			ProductType:  field(row, "product_type"),
			Tax:          tax,
			ScrapedAt:    scrapedAt,
		})
	}
	return books, nil
}
