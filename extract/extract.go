// Package extract pulls structured fields out of parsed catalog pages.
package extract

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-book-pipeline/models"
	"github.com/aluiziolira/go-book-pipeline/parser"
)

// ListingSelector matches one item block on a listing page.
const ListingSelector = "article.product_pod"

// ListingItem extracts the abbreviated record from one listing-page item
// block. Relative URLs are resolved against pageURL. A missing title anchor
// means the block is not a product pod; the caller skips it.
func ListingItem(sel *goquery.Selection, pageURL string) (*models.Book, error) {
	link := sel.Find("h3 a").First()
	if link.Length() == 0 {
		return nil, fmt.Errorf("listing item on %s has no title link", pageURL)
	}

	availability := strings.TrimSpace(sel.Find("p.instock.availability").Text())
	if availability == "" {
		availability = strings.TrimSpace(sel.Find("p.availability").Text())
	}

	imageURL := ""
	if src, ok := sel.Find("div.image_container img").First().Attr("src"); ok {
		imageURL = ResolveURL(pageURL, src)
	}

	book := models.Book{
		Title:        strings.TrimSpace(link.AttrOr("title", "")),
		Price:        parser.CleanPrice(sel.Find("p.price_color").First().Text()),
		Rating:       parser.RatingFromClass(sel.Find("p.star-rating").First().AttrOr("class", "")),
		Availability: availability,
		ImageURL:     imageURL,
		DetailURL:    ResolveURL(pageURL, link.AttrOr("href", "")),
		ScrapedAt:    time.Now(),
	}

	sanitized := parser.SanitizeBook(book)
	return &sanitized, nil
}

// Detail extracts the full record from an item's detail page. Fields absent
// from the page fall back to the documented defaults; the function never
// fails outright once the document was fetched.
func Detail(doc *goquery.Document, detailURL string) *models.Book {
	info := productInfo(doc)

	imageURL := ""
	if src, ok := doc.Find("div.item.active img").First().Attr("src"); ok {
		imageURL = ResolveURL(detailURL, src)
	}

	book := models.Book{
		Title:        strings.TrimSpace(doc.Find("h1").First().Text()),
		Price:        parser.CleanPrice(doc.Find("p.price_color").First().Text()),
		Rating:       parser.RatingFromClass(doc.Find("p.star-rating").First().AttrOr("class", "")),
		Availability: strings.TrimSpace(doc.Find("p.instock.availability").First().Text()),
		Category:     breadcrumbCategory(doc),
		ImageURL:     imageURL,
		DetailURL:    detailURL,
		Description:  description(doc),
		UPC:          info["UPC"],
		ProductType:  info["Product Type"],
		Tax:          parser.CleanPrice(info["Tax"]),
		ScrapedAt:    time.Now(),
	}

	sanitized := parser.SanitizeBook(book)
	return &sanitized
}

// breadcrumbCategory reads the last breadcrumb link before the item itself.
// Fewer than two links means there is no category level in the trail.
func breadcrumbCategory(doc *goquery.Document) string {
	links := doc.Find("ul.breadcrumb a")
	if links.Length() < 2 {
		return "Unknown"
	}
	return strings.TrimSpace(links.Last().Text())
}

// productInfo flattens the key/value product information table.
func productInfo(doc *goquery.Document) map[string]string {
	info := make(map[string]string)
	doc.Find("table.table.table-striped tr").Each(func(_ int, row *goquery.Selection) {
		key := strings.TrimSpace(row.Find("th").First().Text())
		value := strings.TrimSpace(row.Find("td").First().Text())
		if key == "" {
			return
		}
		info[key] = value
	})
	return info
}

// description returns the paragraph following the product description
// heading, or the empty string when the section is absent.
func description(doc *goquery.Document) string {
	section := doc.Find("#product_description")
	if section.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(section.NextAllFiltered("p").First().Text())
}

// ResolveURL resolves ref against base, returning ref unchanged when either
// side fails to parse.
func ResolveURL(base, ref string) string {
	if ref == "" {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
