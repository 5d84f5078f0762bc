package scraper

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoDataFound indicates a page yielded neither a product name nor a
// price. The extractor still returns a degraded record in that case; the
// error is reserved for callers that opt out of the fallback.
var ErrNoDataFound = errors.New("no product data found")

// ProductData is one extraction result from a vendor product page.
type ProductData struct {
	Name     string
	Price    float64
	Currency string
	Brand    string
	ImageURL string
	InStock  bool
	Platform string

	// Degraded marks a best-effort record built from the URL alone (no
	// name and no price found on the page). Degraded records are returned
	// to the caller but never written to price history.
	Degraded bool
}

// Extractor pulls product fields out of raw page content using the vendor's
// ordered selector strategies.
type Extractor struct {
	parser *PriceParser
}

// NewExtractor creates a page extractor
func NewExtractor() *Extractor {
	return &Extractor{parser: NewPriceParser()}
}

// Extract parses pageContent for the given vendor. Each field tries the
// vendor's selectors in order and keeps the first non-empty, well-formed
// match. If neither a name nor a price can be found, a degraded record
// named after the URL path segment is returned instead of an error.
func (e *Extractor) Extract(pageContent string, vendor *Vendor, sourceURL string) (*ProductData, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageContent))
	if err != nil {
		return nil, err
	}

	data := &ProductData{
		Platform: vendor.Name,
		Currency: vendor.Currency,
		InStock:  true,
	}

	data.Name = firstText(doc, vendor.NameSelectors)
	data.Brand = cleanBrand(firstText(doc, vendor.BrandSelectors))
	data.ImageURL = firstAttr(doc, vendor.ImageSelectors, "src")

	for _, sel := range vendor.PriceSelectors {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if text == "" {
			continue
		}
		price, currency, err := e.parser.Parse(text)
		if err != nil {
			continue
		}
		data.Price = price
		if currency != "" {
			data.Currency = currency
		}
		break
	}

	if stock := firstText(doc, vendor.StockSelectors); stock != "" {
		lower := strings.ToLower(stock)
		for _, marker := range vendor.OutOfStockText {
			if strings.Contains(lower, marker) {
				data.InStock = false
				break
			}
		}
	}

	if data.Name == "" && data.Price == 0 {
		name := NameFromURLPath(sourceURL)
		if name == "" {
			return nil, ErrNoDataFound
		}
		data.Name = name
		data.Degraded = true
	}

	if data.Name == "" {
		data.Name = NameFromURLPath(sourceURL)
	}

	return data, nil
}

// firstText returns the first selector's non-empty trimmed text.
func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// firstAttr returns the first selector's non-empty attribute value.
func firstAttr(doc *goquery.Document, selectors []string, attr string) string {
	for _, sel := range selectors {
		if val := strings.TrimSpace(doc.Find(sel).First().AttrOr(attr, "")); val != "" {
			return val
		}
	}
	return ""
}

// cleanBrand strips vendor boilerplate like "Visit the Logitech Store" or
// "Brand: Logitech" down to the brand itself.
func cleanBrand(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "Visit the ")
	text = strings.TrimSuffix(text, " Store")
	if idx := strings.Index(text, ":"); idx >= 0 {
		text = text[idx+1:]
	}
	return strings.TrimSpace(text)
}
