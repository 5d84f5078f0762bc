package scraper

import "testing"

func TestPriceParser(t *testing.T) {
	parser := NewPriceParser()

	tests := []struct {
		name     string
		text     string
		price    float64
		currency string
	}{
		{"indian grouping", "₹1,29,900.00", 129900.00, "INR"},
		{"indian grouping no decimals", "₹2,999", 2999, "INR"},
		{"us grouping", "$1,234.56", 1234.56, "USD"},
		{"european grouping", "€1.234,56", 1234.56, "EUR"},
		{"plain with symbol", "₹799", 799, "INR"},
		{"plain with decimals", "₹799.00", 799, "INR"},
		{"rupee abbreviation", "Rs. 1499", 1499, "INR"},
		{"currency code", "INR 649", 649, "INR"},
		{"pound", "£45.99", 45.99, "GBP"},
		{"bare number", "799", 799, ""},
		{"surrounded by text", "M.R.P.: ₹2,999 Save 25%", 2999, "INR"},
		{"whitespace", "  ₹ 1,299.00  ", 1299, "INR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, currency, err := parser.Parse(tt.text)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.text, err)
			}
			if price != tt.price {
				t.Errorf("Parse(%q) price = %v, want %v", tt.text, price, tt.price)
			}
			if currency != tt.currency {
				t.Errorf("Parse(%q) currency = %q, want %q", tt.text, currency, tt.currency)
			}
		})
	}
}

func TestPriceParserRejectsJunk(t *testing.T) {
	parser := NewPriceParser()

	for _, text := range []string{"", "Price unavailable", "Out of stock", "₹0", "free"} {
		if price, _, err := parser.Parse(text); err == nil {
			t.Errorf("Parse(%q) = %v, want error", text, price)
		}
	}
}
