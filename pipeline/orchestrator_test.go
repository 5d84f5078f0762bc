package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"pricepilot/config"
	"pricepilot/matcher"
	"pricepilot/models"
	"pricepilot/scraper"

	"github.com/google/uuid"
)

const productPage = `
<html><body>
	<span id="productTitle">Logitech M331 Silent Plus Wireless Mouse</span>
	<a id="bylineInfo" href="#">Visit the Logitech Store</a>
	<span class="a-price"><span class="a-offscreen">₹1,299.00</span></span>
	<div id="availability"><span>In stock</span></div>
</body></html>`

const emptyPage = `<html><body><p>Robot check</p></body></html>`

type fakeFetcher struct {
	pages map[string]string
	err   error
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	page, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("no page for %s", url)
	}
	return page, nil
}

type fakeProducts struct {
	created []*models.Product
}

func (s *fakeProducts) Create(_ context.Context, product *models.Product) (*models.Product, error) {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	product.IsActive = true
	s.created = append(s.created, product)
	return product, nil
}

func (s *fakeProducts) GetByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	for _, p := range s.created {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (s *fakeProducts) List(_ context.Context) ([]models.Product, error) {
	out := make([]models.Product, 0, len(s.created))
	for _, p := range s.created {
		out = append(out, *p)
	}
	return out, nil
}

type fakeRecords struct {
	added []*models.PriceRecord
}

func (s *fakeRecords) Add(_ context.Context, record *models.PriceRecord) error {
	s.added = append(s.added, record)
	return nil
}

func (s *fakeRecords) History(_ context.Context, productID uuid.UUID, limit int) ([]models.PriceRecord, error) {
	var history []models.PriceRecord
	for i := len(s.added) - 1; i >= 0; i-- {
		if s.added[i].ProductID == productID {
			history = append(history, *s.added[i])
		}
		if len(history) == limit {
			break
		}
	}
	return history, nil
}

type fakeAlerts struct {
	calls []float64
}

func (a *fakeAlerts) CheckAlerts(_ context.Context, _ uuid.UUID, currentPrice, _ float64) ([]models.PriceAlert, error) {
	a.calls = append(a.calls, currentPrice)
	return nil, nil
}

type fakeFinder struct {
	calls []string
	err   error
}

func (f *fakeFinder) FindAlternates(_ context.Context, name, _ string, _ uuid.UUID) (*matcher.SearchResult, error) {
	f.calls = append(f.calls, name)
	if f.err != nil {
		return nil, f.err
	}
	return &matcher.SearchResult{}, nil
}

type fixture struct {
	orch     *Orchestrator
	fetcher  *fakeFetcher
	products *fakeProducts
	records  *fakeRecords
	alerts   *fakeAlerts
	finder   *fakeFinder
	sleeps   int
}

func newFixture(pages map[string]string) *fixture {
	f := &fixture{
		fetcher:  &fakeFetcher{pages: pages},
		products: &fakeProducts{},
		records:  &fakeRecords{},
		alerts:   &fakeAlerts{},
		finder:   &fakeFinder{},
	}
	f.orch = New(f.fetcher, f.products, f.records, f.alerts, f.finder, nil, config.MatcherConfig{ProductDelay: time.Second})
	f.orch.asyncMatch = false
	f.orch.sleep = func(time.Duration) { f.sleeps++ }
	return f
}

const trackedURL = "https://www.amazon.in/Logitech-M331/dp/B01MTO2419"

func TestTrackURL(t *testing.T) {
	f := newFixture(map[string]string{trackedURL: productPage})

	resp, err := f.orch.TrackURL(context.Background(), trackedURL, "user-1")
	if err != nil {
		t.Fatalf("TrackURL returned error: %v", err)
	}

	if !resp.Success {
		t.Error("Success = false")
	}
	if resp.CurrentPrice != 1299.00 {
		t.Errorf("CurrentPrice = %v, want 1299.00", resp.CurrentPrice)
	}
	if resp.Degraded {
		t.Error("Degraded = true for a complete extraction")
	}
	if resp.Product == nil || resp.Product.ID == uuid.Nil {
		t.Fatal("response carries no created product")
	}
	if resp.Product.Brand != "Logitech" {
		t.Errorf("Brand = %q, want Logitech", resp.Product.Brand)
	}

	if len(f.records.added) != 1 {
		t.Fatalf("recorded %d price records, want 1", len(f.records.added))
	}
	rec := f.records.added[0]
	if rec.Price != 1299.00 || rec.Currency != "INR" || rec.ProductID != resp.Product.ID {
		t.Errorf("price record = %+v", rec)
	}

	if len(f.alerts.calls) != 1 || f.alerts.calls[0] != 1299.00 {
		t.Errorf("alert checks = %v, want one at 1299.00", f.alerts.calls)
	}

	// A successful submission triggers the cross-platform match.
	if len(f.finder.calls) != 1 {
		t.Fatalf("finder called %d times, want 1", len(f.finder.calls))
	}
	if f.finder.calls[0] != "Logitech M331 Silent Plus Wireless Mouse" {
		t.Errorf("finder called with %q", f.finder.calls[0])
	}
}

func TestTrackURLMinimalPage(t *testing.T) {
	url := "https://www.amazon.in/dp/ABC123"
	page := `<html><body>
		<span id="productTitle">Wireless Mouse</span>
		<span class="a-price"><span class="a-offscreen">₹799</span></span>
	</body></html>`

	f := newFixture(map[string]string{url: page})

	resp, err := f.orch.TrackURL(context.Background(), url, "user-1")
	if err != nil {
		t.Fatalf("TrackURL returned error: %v", err)
	}

	if resp.Product.Name != "Wireless Mouse" {
		t.Errorf("Name = %q, want %q", resp.Product.Name, "Wireless Mouse")
	}
	if len(f.records.added) != 1 {
		t.Fatalf("recorded %d price records, want 1", len(f.records.added))
	}
	rec := f.records.added[0]
	if rec.Platform != "Amazon" || rec.Price != 799 || rec.Currency != "INR" {
		t.Errorf("price record = %+v, want Amazon/799/INR", rec)
	}
}

func TestTrackURLDegradedNotRecorded(t *testing.T) {
	f := newFixture(map[string]string{trackedURL: emptyPage})

	resp, err := f.orch.TrackURL(context.Background(), trackedURL, "user-1")
	if err != nil {
		t.Fatalf("TrackURL returned error: %v", err)
	}

	if !resp.Degraded {
		t.Error("Degraded = false for a page with no data")
	}
	if resp.Product.Name != "Logitech M331" {
		t.Errorf("degraded Name = %q, want the URL-derived name", resp.Product.Name)
	}
	if len(f.records.added) != 0 {
		t.Errorf("recorded %d price records for a degraded extraction, want 0", len(f.records.added))
	}
	if len(f.finder.calls) != 0 {
		t.Errorf("finder called %d times for a degraded extraction, want 0", len(f.finder.calls))
	}
}

func TestTrackURLUnsupportedVendor(t *testing.T) {
	f := newFixture(nil)

	_, err := f.orch.TrackURL(context.Background(), "https://www.example.com/product/1", "user-1")
	if !errors.Is(err, scraper.ErrUnsupportedVendor) {
		t.Fatalf("error = %v, want ErrUnsupportedVendor", err)
	}

	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatal("error is not a StepError")
	}
	if stepErr.Step != models.StepPending {
		t.Errorf("failed step = %q, want %q", stepErr.Step, models.StepPending)
	}
}

func TestTrackURLFetchFailure(t *testing.T) {
	f := newFixture(nil)
	f.fetcher.err = scraper.ErrBlocked

	_, err := f.orch.TrackURL(context.Background(), trackedURL, "user-1")
	if !errors.Is(err, scraper.ErrBlocked) {
		t.Fatalf("error = %v, want ErrBlocked", err)
	}

	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.Step != models.StepPending {
		t.Errorf("error = %v, want StepError at %q", err, models.StepPending)
	}
	if len(f.products.created) != 0 {
		t.Errorf("created %d products despite fetch failure", len(f.products.created))
	}
}

func TestTrackURLMatcherFailureIsSwallowed(t *testing.T) {
	f := newFixture(map[string]string{trackedURL: productPage})
	f.finder.err = errors.New("all vendors unreachable")

	resp, err := f.orch.TrackURL(context.Background(), trackedURL, "user-1")
	if err != nil {
		t.Fatalf("TrackURL returned error: %v", err)
	}
	if !resp.Success {
		t.Error("Success = false when only the matcher failed")
	}
	if len(f.records.added) != 1 {
		t.Errorf("recorded %d price records, want 1", len(f.records.added))
	}
}

func TestRefreshProductRejectsDegraded(t *testing.T) {
	f := newFixture(map[string]string{trackedURL: emptyPage})

	err := f.orch.RefreshProduct(context.Background(), &models.Product{
		ID:        uuid.New(),
		Name:      "Logitech M331",
		SourceURL: trackedURL,
	})

	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.Step != models.StepScraped {
		t.Fatalf("error = %v, want StepError at %q", err, models.StepScraped)
	}
	if len(f.records.added) != 0 {
		t.Errorf("recorded %d price records for a degraded refresh, want 0", len(f.records.added))
	}
}

func TestRunDaily(t *testing.T) {
	goodURL := "https://www.amazon.in/Logitech-M331/dp/B01MTO2419"
	deadURL := "https://www.flipkart.com/sony-headphones/p/itm999"

	f := newFixture(map[string]string{goodURL: productPage})
	f.products.created = []*models.Product{
		{ID: uuid.New(), Name: "Logitech M331", SourceURL: goodURL},
		{ID: uuid.New(), Name: "Sony Headphones", SourceURL: deadURL},
	}

	result := f.orch.RunDaily(context.Background())

	if result.SuccessCount != 1 {
		t.Errorf("SuccessCount = %d, want 1", result.SuccessCount)
	}
	if result.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1", result.ErrorCount)
	}
	// One inter-product delay for two products.
	if f.sleeps != 1 {
		t.Errorf("slept %d times, want 1", f.sleeps)
	}
	if len(f.records.added) != 1 {
		t.Errorf("recorded %d price records, want 1", len(f.records.added))
	}
}
