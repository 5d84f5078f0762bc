package scraper

import (
	"errors"
	"testing"
)

const amazonProductPage = `
<html><body>
	<span id="productTitle"> Logitech M331 Silent Plus Wireless Mouse </span>
	<a id="bylineInfo" href="#">Visit the Logitech Store</a>
	<span class="a-price"><span class="a-offscreen">₹1,299.00</span></span>
	<div id="availability"><span> In stock </span></div>
	<img id="landingImage" src="https://m.media-amazon.com/images/I/abc123.jpg"/>
</body></html>`

func amazonVendor(t *testing.T) *Vendor {
	t.Helper()
	vendor, ok := VendorByName("Amazon")
	if !ok {
		t.Fatal("Amazon vendor missing from vendor table")
	}
	return vendor
}

func TestExtractProductPage(t *testing.T) {
	extractor := NewExtractor()

	data, err := extractor.Extract(amazonProductPage, amazonVendor(t), "https://www.amazon.in/Logitech-M331-Silent-Wireless-Mouse/dp/B01MTO2419")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if data.Name != "Logitech M331 Silent Plus Wireless Mouse" {
		t.Errorf("Name = %q", data.Name)
	}
	if data.Price != 1299.00 {
		t.Errorf("Price = %v, want 1299.00", data.Price)
	}
	if data.Currency != "INR" {
		t.Errorf("Currency = %q, want INR", data.Currency)
	}
	if data.Brand != "Logitech" {
		t.Errorf("Brand = %q, want Logitech", data.Brand)
	}
	if data.ImageURL != "https://m.media-amazon.com/images/I/abc123.jpg" {
		t.Errorf("ImageURL = %q", data.ImageURL)
	}
	if !data.InStock {
		t.Error("InStock = false, want true")
	}
	if data.Degraded {
		t.Error("complete extraction marked degraded")
	}
	if data.Platform != "Amazon" {
		t.Errorf("Platform = %q, want Amazon", data.Platform)
	}
}

func TestExtractOutOfStock(t *testing.T) {
	page := `
<html><body>
	<span id="productTitle">Wireless Mouse</span>
	<span class="a-price"><span class="a-offscreen">₹799</span></span>
	<div id="availability"><span>Currently unavailable.</span></div>
</body></html>`

	data, err := NewExtractor().Extract(page, amazonVendor(t), "https://www.amazon.in/dp/B000000001")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if data.InStock {
		t.Error("InStock = true for an unavailable listing")
	}
	if data.Price != 799 {
		t.Errorf("Price = %v, want 799", data.Price)
	}
}

func TestExtractSelectorFallback(t *testing.T) {
	// Primary selectors absent, later ones present.
	page := `
<html><body>
	<h1 id="title"><span>Budget Wireless Keyboard</span></h1>
	<span id="priceblock_ourprice">₹649.00</span>
</body></html>`

	data, err := NewExtractor().Extract(page, amazonVendor(t), "https://www.amazon.in/dp/B000000002")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if data.Name != "Budget Wireless Keyboard" {
		t.Errorf("Name = %q", data.Name)
	}
	if data.Price != 649 {
		t.Errorf("Price = %v, want 649", data.Price)
	}
}

func TestExtractDegradedFallback(t *testing.T) {
	data, err := NewExtractor().Extract("<html><body>Robot check</body></html>", amazonVendor(t),
		"https://www.amazon.in/wireless-mouse-black/dp/B0ABC1234")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if !data.Degraded {
		t.Error("expected degraded extraction")
	}
	if data.Name != "wireless mouse black" {
		t.Errorf("degraded Name = %q, want name derived from the URL path", data.Name)
	}
	if data.Price != 0 {
		t.Errorf("degraded Price = %v, want 0", data.Price)
	}
}

func TestExtractNoDataAndNoUsablePath(t *testing.T) {
	_, err := NewExtractor().Extract("<html><body></body></html>", amazonVendor(t),
		"https://www.amazon.in/dp/B0ABC1234")
	if !errors.Is(err, ErrNoDataFound) {
		t.Fatalf("Extract error = %v, want ErrNoDataFound", err)
	}
}

func TestCleanBrand(t *testing.T) {
	tests := map[string]string{
		"Visit the Logitech Store": "Logitech",
		"Brand: Samsung":           "Samsung",
		"  boAt  ":                 "boAt",
	}
	for in, want := range tests {
		if got := cleanBrand(in); got != want {
			t.Errorf("cleanBrand(%q) = %q, want %q", in, got, want)
		}
	}
}
