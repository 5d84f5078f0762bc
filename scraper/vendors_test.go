package scraper

import (
	"errors"
	"testing"
)

func TestVendorForURL(t *testing.T) {
	tests := []struct {
		url    string
		vendor string
	}{
		{"https://www.amazon.in/dp/B01MTO2419", "Amazon"},
		{"https://amazon.com/dp/B01MTO2419", "Amazon"},
		{"https://www.flipkart.com/logitech-m331/p/itm123", "Flipkart"},
		{"https://www.snapdeal.com/product/logitech-m331/123456", "Snapdeal"},
		{"https://www.croma.com/logitech-m331-/p/123456", "Croma"},
	}

	for _, tt := range tests {
		vendor, err := VendorForURL(tt.url)
		if err != nil {
			t.Errorf("VendorForURL(%q) returned error: %v", tt.url, err)
			continue
		}
		if vendor.Name != tt.vendor {
			t.Errorf("VendorForURL(%q) = %q, want %q", tt.url, vendor.Name, tt.vendor)
		}
	}
}

func TestVendorForURLUnsupported(t *testing.T) {
	for _, url := range []string{
		"https://www.example.com/product/123",
		"https://myamazon.in.evil.example/dp/B01",
		"not a url",
		"",
	} {
		if _, err := VendorForURL(url); !errors.Is(err, ErrUnsupportedVendor) {
			t.Errorf("VendorForURL(%q) error = %v, want ErrUnsupportedVendor", url, err)
		}
	}
}

func TestNameFromURLPath(t *testing.T) {
	tests := map[string]string{
		"https://www.amazon.in/Logitech-M331-Silent-Wireless/dp/B01MTO2419": "Logitech M331 Silent Wireless",
		"https://www.flipkart.com/logitech-m331-wireless-mouse/p/itm123456": "logitech m331 wireless mouse",
		"https://www.amazon.in/dp/B01MTO2419":                               "",
		"https://www.amazon.in/":                                            "",
	}

	for url, want := range tests {
		if got := NameFromURLPath(url); got != want {
			t.Errorf("NameFromURLPath(%q) = %q, want %q", url, got, want)
		}
	}
}
