package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"pricepilot/cache"
	"pricepilot/config"
	"pricepilot/matcher"
	"pricepilot/models"
	"pricepilot/scraper"

	"github.com/google/uuid"
)

// ProductStore is the product persistence surface the pipeline needs.
type ProductStore interface {
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context) ([]models.Product, error)
}

// RecordStore is the price-history persistence surface the pipeline needs.
type RecordStore interface {
	Add(ctx context.Context, record *models.PriceRecord) error
	History(ctx context.Context, productID uuid.UUID, limit int) ([]models.PriceRecord, error)
}

// AlertChecker fires price alerts after a new observation.
type AlertChecker interface {
	CheckAlerts(ctx context.Context, productID uuid.UUID, currentPrice, previousPrice float64) ([]models.PriceAlert, error)
}

// AlternateFinder searches other platforms for the same product.
type AlternateFinder interface {
	FindAlternates(ctx context.Context, canonicalName, brand string, productID uuid.UUID) (*matcher.SearchResult, error)
}

// StepError carries the pipeline step a product run failed at.
type StepError struct {
	Step  models.PipelineStep
	Cause error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("pipeline failed at %s: %v", e.Step, e.Cause)
}

func (e *StepError) Unwrap() error { return e.Cause }

// Orchestrator wires extractor, stores, matcher and cache together. Each
// run moves a product through pending -> scraped -> recorded ->
// match_triggered -> done; a step failure stops that product's run without
// blocking others.
type Orchestrator struct {
	fetcher    scraper.Fetcher
	extractor  *scraper.Extractor
	products   ProductStore
	records    RecordStore
	alerts     AlertChecker
	finder     AlternateFinder
	priceCache *cache.PriceCache
	cfg        config.MatcherConfig

	// asyncMatch runs the on-demand matcher trigger in a goroutine.
	// Disabled in tests.
	asyncMatch bool
	// sleep is swapped out in tests
	sleep func(time.Duration)
}

// New creates an orchestrator. alerts, finder and priceCache may be nil.
func New(fetcher scraper.Fetcher, products ProductStore, records RecordStore, alerts AlertChecker, finder AlternateFinder, priceCache *cache.PriceCache, cfg config.MatcherConfig) *Orchestrator {
	return &Orchestrator{
		fetcher:    fetcher,
		extractor:  scraper.NewExtractor(),
		products:   products,
		records:    records,
		alerts:     alerts,
		finder:     finder,
		priceCache: priceCache,
		cfg:        cfg,
		asyncMatch: true,
		sleep:      time.Sleep,
	}
}

// TrackURL handles one user submission: validate the vendor, scrape the
// page, create the product, record the price, then trigger the platform
// matcher best-effort. Matcher failure never fails the submission.
func (o *Orchestrator) TrackURL(ctx context.Context, rawURL, userID string) (*models.TrackResponse, error) {
	vendor, err := scraper.VendorForURL(rawURL)
	if err != nil {
		return nil, &StepError{Step: models.StepPending, Cause: err}
	}

	content, err := o.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, &StepError{Step: models.StepPending, Cause: err}
	}

	data, err := o.extractor.Extract(content, vendor, rawURL)
	if err != nil {
		return nil, &StepError{Step: models.StepScraped, Cause: err}
	}

	product, err := o.products.Create(ctx, &models.Product{
		UserID:    userID,
		Name:      data.Name,
		Brand:     data.Brand,
		ImageURL:  data.ImageURL,
		SourceURL: rawURL,
	})
	if err != nil {
		return nil, &StepError{Step: models.StepScraped, Cause: err}
	}

	// Degraded zero-price extractions are returned to the user but kept
	// out of price history.
	if !data.Degraded && data.Price > 0 {
		if err := o.record(ctx, product.ID, rawURL, data); err != nil {
			return nil, &StepError{Step: models.StepRecorded, Cause: err}
		}
	}

	o.triggerMatch(product, data)

	return &models.TrackResponse{
		Success:      true,
		Product:      product,
		CurrentPrice: data.Price,
		Currency:     data.Currency,
		Degraded:     data.Degraded,
	}, nil
}

// RefreshProduct re-scrapes one tracked product for the daily run.
func (o *Orchestrator) RefreshProduct(ctx context.Context, product *models.Product) error {
	vendor, err := scraper.VendorForURL(product.SourceURL)
	if err != nil {
		return &StepError{Step: models.StepPending, Cause: err}
	}

	content, err := o.fetcher.Fetch(ctx, product.SourceURL)
	if err != nil {
		return &StepError{Step: models.StepPending, Cause: err}
	}

	data, err := o.extractor.Extract(content, vendor, product.SourceURL)
	if err != nil {
		return &StepError{Step: models.StepScraped, Cause: err}
	}
	if data.Degraded || data.Price <= 0 {
		return &StepError{Step: models.StepScraped, Cause: fmt.Errorf("extraction yielded no usable price for %s", product.SourceURL)}
	}

	if err := o.record(ctx, product.ID, product.SourceURL, data); err != nil {
		return &StepError{Step: models.StepRecorded, Cause: err}
	}

	return nil
}

// RunDaily re-scrapes all tracked products sequentially with a fixed delay
// between products. A failed product is skipped, never retried within the
// run.
func (o *Orchestrator) RunDaily(ctx context.Context) models.DailyRunResult {
	products, err := o.products.List(ctx)
	if err != nil {
		return models.DailyRunResult{Message: fmt.Sprintf("Failed to list products: %v", err)}
	}

	result := models.DailyRunResult{Success: true}
	for i := range products {
		if i > 0 {
			o.sleep(o.cfg.ProductDelay)
		}

		if err := o.RefreshProduct(ctx, &products[i]); err != nil {
			log.Printf("❌ Daily refresh failed for %s: %v", products[i].Name, err)
			result.ErrorCount++
			continue
		}
		result.SuccessCount++
	}

	result.Message = fmt.Sprintf("Checked %d products: %d succeeded, %d failed",
		len(products), result.SuccessCount, result.ErrorCount)
	log.Printf("📊 %s", result.Message)
	return result
}

// record appends the observation, refreshes the latest-price cache and
// fires any alerts. Cache and alert failures are logged, never fatal.
func (o *Orchestrator) record(ctx context.Context, productID uuid.UUID, sourceURL string, data *scraper.ProductData) error {
	previous := 0.0
	if history, err := o.records.History(ctx, productID, 1); err == nil && len(history) > 0 {
		previous = history[0].Price
	}

	rec := &models.PriceRecord{
		ID:          uuid.New(),
		ProductID:   productID,
		Platform:    data.Platform,
		PlatformURL: sourceURL,
		Price:       data.Price,
		Currency:    data.Currency,
		InStock:     data.InStock,
		CapturedAt:  time.Now(),
	}

	if err := o.records.Add(ctx, rec); err != nil {
		return err
	}

	if err := o.priceCache.SetLatest(ctx, rec); err != nil {
		log.Printf("⚠️ Failed to cache latest price for %s: %v", productID, err)
	}

	if o.alerts != nil {
		triggered, err := o.alerts.CheckAlerts(ctx, productID, data.Price, previous)
		if err != nil {
			log.Printf("⚠️ Failed to check alerts for %s: %v", productID, err)
		} else if len(triggered) > 0 {
			log.Printf("🔔 %d alerts triggered for product %s at %.2f", len(triggered), productID, data.Price)
		}
	}

	return nil
}

// triggerMatch launches the cross-platform search best-effort after a
// submission. It must not block or fail the user-facing request.
func (o *Orchestrator) triggerMatch(product *models.Product, data *scraper.ProductData) {
	if o.finder == nil || data.Degraded {
		return
	}

	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if _, err := o.finder.FindAlternates(ctx, product.Name, product.Brand, product.ID); err != nil {
			log.Printf("⚠️ Platform match failed for %s: %v", product.Name, err)
		}
	}

	if o.asyncMatch {
		go run()
	} else {
		run()
	}
}
