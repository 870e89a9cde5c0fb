package walker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-book-pipeline/config"
	"github.com/aluiziolira/go-book-pipeline/extract"
	"github.com/aluiziolira/go-book-pipeline/fetch"
	"github.com/aluiziolira/go-book-pipeline/models"
	"github.com/aluiziolira/go-book-pipeline/parser"
)

// CatalogWalker paginates through listings, extracting items per page and
// optionally re-deriving each item from its detail page.
type CatalogWalker struct {
	fetcher           *fetch.Fetcher
	metrics           *fetch.Metrics
	baseURL           string
	categoryPageLimit int
	seen              *lru.Cache[string, struct{}]
}

// NewCatalogWalker builds a walker configured from cfg. The seen-URL cache
// drops duplicate catalog entries within one run.
func NewCatalogWalker(fetcher *fetch.Fetcher, cfg *config.Config, metrics *fetch.Metrics) (*CatalogWalker, error) {
	seen, err := lru.New[string, struct{}](cfg.DedupeMaxSize)
	if err != nil {
		return nil, fmt.Errorf("create dedupe cache: %w", err)
	}
	return &CatalogWalker{
		fetcher:           fetcher,
		metrics:           metrics,
		baseURL:           strings.TrimSuffix(cfg.BaseURL, "/"),
		categoryPageLimit: cfg.CategoryPageLimit,
		seen:              seen,
	}, nil
}

// WalkAll walks the global listing. The first page determines the total from
// the "Page X of Y" marker; its fetch failure is fatal to the walk. Every
// later page or item failure is logged and skipped. maxPages of zero means
// the full total.
func (w *CatalogWalker) WalkAll(ctx context.Context, followDetails bool, maxPages int) ([]models.Book, error) {
	firstURL := w.listingPageURL(1)
	doc, err := w.fetcher.Fetch(ctx, firstURL)
	if err != nil {
		return nil, fmt.Errorf("fetch first catalog page: %w", err)
	}

	totalPages := parser.TotalPages(doc.Find("li.current").First().Text())
	if maxPages > 0 && maxPages < totalPages {
		totalPages = maxPages
	}
	slog.Info("starting catalog walk",
		slog.Int("pages", totalPages),
		slog.Bool("follow_details", followDetails),
	)

	books := w.pageItems(ctx, doc, firstURL, followDetails)
	slog.Info("page walked", slog.Int("page", 1), slog.Int("items", len(books)), slog.Int("total", len(books)))

	for page := 2; page <= totalPages; page++ {
		pageURL := w.listingPageURL(page)
		doc, err := w.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			slog.Error("skipping catalog page", slog.Int("page", page), slog.Any("error", err))
			continue
		}
		items := w.pageItems(ctx, doc, pageURL, followDetails)
		books = append(books, items...)
		slog.Info("page walked",
			slog.Int("page", page),
			slog.Int("items", len(items)),
			slog.Int("total", len(books)),
		)
	}

	slog.Info("catalog walk completed", slog.Int("books", len(books)))
	return books, nil
}

// WalkCategory walks one category's listing, following next-page links until
// none remain. The loop has no natural bound, so a hard page ceiling guards
// against a next-link chain that never terminates.
func (w *CatalogWalker) WalkCategory(ctx context.Context, categoryURL string, followDetails bool) ([]models.Book, error) {
	var books []models.Book
	pageURL := categoryURL

	for page := 1; ; page++ {
		if page > w.categoryPageLimit {
			slog.Warn("category page ceiling reached",
				slog.String("category", categoryURL),
				slog.Int("limit", w.categoryPageLimit),
			)
			break
		}

		doc, err := w.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("fetch first category page: %w", err)
			}
			slog.Error("stopping category walk", slog.Int("page", page), slog.Any("error", err))
			break
		}

		items := w.pageItems(ctx, doc, pageURL, followDetails)
		books = append(books, items...)
		slog.Info("category page walked",
			slog.Int("page", page),
			slog.Int("items", len(items)),
			slog.Int("total", len(books)),
		)

		href, ok := doc.Find("li.next a").First().Attr("href")
		if !ok {
			break
		}
		pageURL = extract.ResolveURL(pageURL, href)
	}

	slog.Info("category walk completed", slog.String("category", categoryURL), slog.Int("books", len(books)))
	return books, nil
}

// PageSample extracts the basic items from a single listing page without
// following detail links. The report stage samples with this, so the
// seen-URL cache is bypassed: sampling must neither drop items already
// walked nor consume URLs a later walk still needs.
func (w *CatalogWalker) PageSample(ctx context.Context) ([]models.Book, error) {
	pageURL := w.listingPageURL(1)
	doc, err := w.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	var items []models.Book
	doc.Find(extract.ListingSelector).Each(func(_ int, sel *goquery.Selection) {
		item, err := extract.ListingItem(sel, pageURL)
		if err != nil {
			slog.Error("skipping listing item", slog.String("page", pageURL), slog.Any("error", err))
			return
		}
		items = append(items, *item)
	})
	return items, nil
}

// pageItems extracts every item block on one listing page. Item-level
// failures are logged and skipped, never aborting the page. With
// followDetails set, the listing record only supplies the detail URL; items
// whose detail fetch fails are dropped entirely.
func (w *CatalogWalker) pageItems(ctx context.Context, doc *goquery.Document, pageURL string, followDetails bool) []models.Book {
	var items []models.Book

	doc.Find(extract.ListingSelector).Each(func(_ int, sel *goquery.Selection) {
		basic, err := extract.ListingItem(sel, pageURL)
		if err != nil {
			slog.Error("skipping listing item", slog.String("page", pageURL), slog.Any("error", err))
			return
		}

		if basic.DetailURL != "" {
			if _, dup := w.seen.Get(basic.DetailURL); dup {
				slog.Debug("duplicate item skipped", slog.String("url", basic.DetailURL))
				return
			}
			w.seen.Add(basic.DetailURL, struct{}{})
		}

		if !followDetails {
			items = append(items, *basic)
			w.metrics.IncItems()
			return
		}

		if basic.DetailURL == "" {
			slog.Warn("item without detail url dropped", slog.String("title", basic.Title))
			return
		}
		detailDoc, err := w.fetcher.Fetch(ctx, basic.DetailURL)
		if err != nil {
			slog.Error("detail fetch failed, dropping item",
				slog.String("url", basic.DetailURL),
				slog.Any("error", err),
			)
			return
		}
		items = append(items, *extract.Detail(detailDoc, basic.DetailURL))
		w.metrics.IncItems()
	})

	w.metrics.IncPages()
	return items
}

func (w *CatalogWalker) listingPageURL(page int) string {
	return fmt.Sprintf("%s/catalogue/page-%d.html", w.baseURL, page)
}
