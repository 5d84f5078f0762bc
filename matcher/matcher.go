package matcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sort"
	"strings"
	"time"

	"pricepilot/config"
	"pricepilot/models"
	"pricepilot/scraper"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
)

// ErrMissingIdentity is returned when neither a product name nor a product
// id resolvable to a name is supplied.
var ErrMissingIdentity = errors.New("product name or id is required")

// Candidate is one accepted listing from an alternate platform.
type Candidate struct {
	Platform   string  `json:"platform"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Currency   string  `json:"currency"`
	URL        string  `json:"url"`
	Similarity float64 `json:"similarity"`
}

// SearchResult aggregates accepted candidates across all searched vendors,
// ranked ascending by price.
type SearchResult struct {
	Results  []Candidate `json:"results"`
	Count    int         `json:"count"`
	Message  string      `json:"message"`
	BestDeal *Candidate  `json:"best_deal,omitempty"`
}

// Recorder persists accepted candidates as price records.
type Recorder interface {
	Add(ctx context.Context, record *models.PriceRecord) error
}

// Matcher searches the supported platforms for listings of a product and
// scores them against its canonical name.
type Matcher struct {
	fetcher  scraper.Fetcher
	parser   *scraper.PriceParser
	recorder Recorder
	cfg      config.MatcherConfig

	// sleep is swapped out in tests
	sleep func(time.Duration)
}

// New creates a platform matcher.
func New(fetcher scraper.Fetcher, recorder Recorder, cfg config.MatcherConfig) *Matcher {
	return &Matcher{
		fetcher:  fetcher,
		parser:   scraper.NewPriceParser(),
		recorder: recorder,
		cfg:      cfg,
		sleep:    time.Sleep,
	}
}

// FindAlternates searches every supported vendor for the product and returns
// accepted candidates ranked ascending by price. Failures of a single
// (vendor, query) pair are logged and skipped; the accumulated results are
// always returned. Requests are sequential with a fixed inter-request delay
// to stay polite toward the searched vendors.
func (m *Matcher) FindAlternates(ctx context.Context, canonicalName, brand string, productID uuid.UUID) (*SearchResult, error) {
	canonicalName = strings.TrimSpace(canonicalName)
	if canonicalName == "" {
		return nil, ErrMissingIdentity
	}

	queries := queryVariants(canonicalName, brand)
	if len(queries) > m.cfg.MaxQueriesPerVendor {
		queries = queries[:m.cfg.MaxQueriesPerVendor]
	}

	var accepted []Candidate
	first := true
	for i := range scraper.Vendors {
		vendor := &scraper.Vendors[i]
		var vendorCandidates []Candidate

		for _, query := range queries {
			if !first {
				m.sleep(m.cfg.RequestDelay)
			}
			first = false

			candidates, err := m.searchVendor(ctx, vendor, query, canonicalName)
			if err != nil {
				log.Printf("⚠️ Search failed on %s for %q: %v", vendor.Name, query, err)
				continue
			}
			vendorCandidates = append(vendorCandidates, candidates...)
		}

		accepted = append(accepted, dedupe(vendorCandidates, m.cfg.DedupThreshold)...)
	}

	sort.Slice(accepted, func(i, j int) bool { return accepted[i].Price < accepted[j].Price })

	result := &SearchResult{
		Results: accepted,
		Count:   len(accepted),
		Message: fmt.Sprintf("Found %d matching listings across %d platforms", len(accepted), len(scraper.Vendors)),
	}
	if len(accepted) > 0 {
		result.BestDeal = &accepted[0]
	}

	if productID != uuid.Nil && m.recorder != nil {
		m.persist(ctx, productID, accepted)
	}

	return result, nil
}

// searchVendor issues one search request and scores the result listing.
func (m *Matcher) searchVendor(ctx context.Context, vendor *scraper.Vendor, query, canonicalName string) ([]Candidate, error) {
	searchURL := fmt.Sprintf(vendor.SearchURL, url.QueryEscape(query))

	content, err := m.fetcher.Fetch(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	doc.Find(vendor.ResultSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		name := firstSelectionText(sel, vendor.ResultName)
		if name == "" {
			return true
		}

		priceText := firstSelectionText(sel, vendor.ResultPrice)
		price, currency, err := m.parser.Parse(priceText)
		if err != nil {
			return true
		}
		if currency == "" {
			currency = vendor.Currency
		}

		score := Similarity(canonicalName, name)
		if score < m.cfg.SimilarityThreshold {
			return true
		}

		link := sel.Find(vendor.ResultLink).First().AttrOr("href", "")
		if link != "" && !strings.HasPrefix(link, "http") {
			link = vendorBase(vendor) + link
		}

		candidates = append(candidates, Candidate{
			Platform:   vendor.Name,
			Name:       name,
			Price:      price,
			Currency:   currency,
			URL:        link,
			Similarity: score,
		})
		return len(candidates) < 10
	})

	return candidates, nil
}

// persist appends each accepted candidate as a price record for the product.
// Persistence failures are logged, never fatal.
func (m *Matcher) persist(ctx context.Context, productID uuid.UUID, candidates []Candidate) {
	for _, c := range candidates {
		record := &models.PriceRecord{
			ID:          uuid.New(),
			ProductID:   productID,
			Platform:    c.Platform,
			PlatformURL: c.URL,
			Price:       c.Price,
			Currency:    c.Currency,
			InStock:     true,
			CapturedAt:  time.Now(),
		}
		if err := m.recorder.Add(ctx, record); err != nil {
			log.Printf("⚠️ Failed to record %s candidate for product %s: %v", c.Platform, productID, err)
		}
	}
}

// dedupe collapses same-vendor candidates whose names score above the dedup
// threshold against each other, keeping the lower-priced of each pair.
func dedupe(candidates []Candidate, threshold float64) []Candidate {
	var kept []Candidate
	for _, cand := range candidates {
		replaced := false
		duplicate := false
		for i, existing := range kept {
			if Similarity(cand.Name, existing.Name) <= threshold {
				continue
			}
			duplicate = true
			if cand.Price < existing.Price {
				kept[i] = cand
				replaced = true
			}
			break
		}
		if !duplicate && !replaced {
			kept = append(kept, cand)
		}
	}
	return kept
}

// queryVariants builds the 2-3 search queries tried per vendor: the cleaned
// name alone, brand prefixed, and brand suffixed.
func queryVariants(name, brand string) []string {
	words := significantWords(name)
	if len(words) > 6 {
		words = words[:6]
	}
	cleaned := strings.Join(words, " ")
	if cleaned == "" {
		cleaned = strings.TrimSpace(name)
	}

	variants := []string{cleaned}
	brand = strings.TrimSpace(strings.ToLower(brand))
	if brand != "" && !strings.HasPrefix(cleaned, brand) {
		variants = append(variants, brand+" "+cleaned, cleaned+" "+brand)
	}
	return variants
}

func firstSelectionText(sel *goquery.Selection, selectors []string) string {
	for _, s := range selectors {
		if text := strings.TrimSpace(sel.Find(s).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func vendorBase(vendor *scraper.Vendor) string {
	u, err := url.Parse(fmt.Sprintf(vendor.SearchURL, ""))
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
