package scraper

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// PriceParser turns localized price text into a numeric value. It handles
// currency symbols, thousands separators and both decimal conventions.
type PriceParser struct {
	patterns []pricePattern
}

type pricePattern struct {
	name string
	re   *regexp.Regexp
}

var currencySymbols = map[string]string{
	"₹": "INR",
	"$": "USD",
	"£": "GBP",
	"€": "EUR",
}

// NewPriceParser creates a locale-aware price parser
func NewPriceParser() *PriceParser {
	return &PriceParser{
		patterns: []pricePattern{
			// European grouping: €1.234,56. Must be tried before the
			// comma-grouped pattern, which would otherwise match the
			// trailing "234,56" of the same string.
			{"european", regexp.MustCompile(`(₹|\$|£|€)?\s*([0-9]{1,3}(?:\.[0-9]{3})+(?:,[0-9]{1,2})?)`)},

			// Indian/US grouping: ₹1,29,900.00 or $1,234.56
			{"grouped", regexp.MustCompile(`(₹|\$|£|€|Rs\.?|INR)?\s*([0-9]{1,3}(?:,[0-9]{2,3})+(?:\.[0-9]{1,2})?)`)},

			// Symbol with a plain number: ₹799 or ₹799.00
			{"plain", regexp.MustCompile(`(₹|\$|£|€|Rs\.?|INR)\s*([0-9]+(?:[.,][0-9]{1,2})?)`)},

			// Bare number, last resort
			{"bare", regexp.MustCompile(`([0-9]+(?:[.,][0-9]{1,2})?)`)},
		},
	}
}

// Parse extracts the first well-formed price from text. It rejects
// non-positive results so that empty or junk matches never become records.
func (p *PriceParser) Parse(text string) (float64, string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, "", fmt.Errorf("empty price text")
	}

	for _, pattern := range p.patterns {
		matches := pattern.re.FindStringSubmatch(text)
		if matches == nil {
			continue
		}

		var symbol, number string
		if len(matches) == 3 {
			symbol, number = matches[1], matches[2]
		} else {
			number = matches[1]
		}

		value, err := decimal.NewFromString(normalizeNumber(number, pattern.name))
		if err != nil {
			continue
		}

		price, _ := value.Round(2).Float64()
		if price <= 0 {
			continue
		}

		return price, currencyForSymbol(symbol), nil
	}

	return 0, "", fmt.Errorf("no valid price found in %q", text)
}

// normalizeNumber converts locale-specific grouping to a plain decimal string
func normalizeNumber(number, locale string) string {
	switch locale {
	case "grouped":
		return strings.ReplaceAll(number, ",", "")
	case "european":
		number = strings.ReplaceAll(number, ".", "")
		return strings.ReplaceAll(number, ",", ".")
	default:
		// A lone comma acts as the decimal separator: 799,50 -> 799.50
		if strings.Count(number, ",") == 1 && !strings.Contains(number, ".") {
			return strings.ReplaceAll(number, ",", ".")
		}
		return strings.ReplaceAll(number, ",", "")
	}
}

func currencyForSymbol(symbol string) string {
	symbol = strings.TrimSpace(symbol)
	if code, ok := currencySymbols[symbol]; ok {
		return code
	}
	if strings.HasPrefix(symbol, "Rs") || symbol == "INR" {
		return "INR"
	}
	return ""
}
