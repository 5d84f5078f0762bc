package scraper

import (
	"errors"
	"net/url"
	"strings"
)

// ErrUnsupportedVendor is returned when a submitted URL's domain does not
// match any entry in the vendor table.
var ErrUnsupportedVendor = errors.New("unsupported vendor")

// Vendor describes one supported e-commerce platform: how to recognize its
// URLs, how to pull product fields out of its pages, and how to search it.
// Adding a vendor is a data addition here, not new control flow.
type Vendor struct {
	Name     string
	Domains  []string
	Currency string

	// Ordered extraction strategies for product pages. The first selector
	// yielding a non-empty, well-formed value wins.
	NameSelectors  []string
	PriceSelectors []string
	BrandSelectors []string
	ImageSelectors []string
	StockSelectors []string
	OutOfStockText []string

	// Search endpoint and result-listing selectors used by the matcher.
	// SearchURL receives the url-encoded query.
	SearchURL      string
	ResultSelector string
	ResultName     []string
	ResultPrice    []string
	ResultLink     string
}

// Vendors is the closed set of supported platforms.
var Vendors = []Vendor{
	{
		Name:     "Amazon",
		Domains:  []string{"amazon.in", "amazon.com"},
		Currency: "INR",
		NameSelectors: []string{
			"#productTitle",
			"h1#title span",
			"h1.product-title-word-break",
		},
		PriceSelectors: []string{
			"span.a-price span.a-offscreen",
			"span#priceblock_ourprice",
			"span#priceblock_dealprice",
			"span.a-price-whole",
		},
		BrandSelectors: []string{
			"#bylineInfo",
			"a#brand",
			"tr.po-brand td.a-span9 span",
		},
		ImageSelectors: []string{
			"img#landingImage",
			"#imgTagWrapperId img",
		},
		StockSelectors: []string{"#availability span"},
		OutOfStockText: []string{"currently unavailable", "out of stock"},
		SearchURL:      "https://www.amazon.in/s?k=%s",
		ResultSelector: "div.s-main-slot div[data-component-type='s-search-result']",
		ResultName:     []string{"h2 span", "h2 a span"},
		ResultPrice:    []string{"span.a-price span.a-offscreen", "span.a-price-whole"},
		ResultLink:     "h2 a",
	},
	{
		Name:     "Flipkart",
		Domains:  []string{"flipkart.com"},
		Currency: "INR",
		NameSelectors: []string{
			"span.B_NuCI",
			"span.VU-ZEz",
			"h1 span",
		},
		PriceSelectors: []string{
			"div._30jeq3._16Jk6d",
			"div.Nx9bqj.CxhGGd",
			"div._30jeq3",
		},
		BrandSelectors: []string{
			"span.G6XhRU",
			"div._2J4LW6",
		},
		ImageSelectors: []string{
			"img._396cs4",
			"img.DByuf4",
		},
		StockSelectors: []string{"div._16FRp0"},
		OutOfStockText: []string{"sold out", "out of stock"},
		SearchURL:      "https://www.flipkart.com/search?q=%s",
		ResultSelector: "div._1AtVbE div._13oc-S, div.slAVV4",
		ResultName:     []string{"div._4rR01T", "a.s1Q9rs", "a.wjcEIp", "div.KzDlHZ"},
		ResultPrice:    []string{"div._30jeq3", "div.Nx9bqj"},
		ResultLink:     "a._1fQZEK, a.s1Q9rs, a.CGtC98, a.wjcEIp",
	},
	{
		Name:     "Snapdeal",
		Domains:  []string{"snapdeal.com"},
		Currency: "INR",
		NameSelectors: []string{
			"h1.pdp-e-i-head",
			"h1[itemprop='name']",
		},
		PriceSelectors: []string{
			"span.payBlkBig",
			"span.pdp-final-price",
			"span[itemprop='price']",
		},
		BrandSelectors: []string{
			"span.pdp-e-brand-name",
		},
		ImageSelectors: []string{
			"img.cloudzoom",
			"ul#bx-slider li img",
		},
		StockSelectors: []string{"div.notifyMe-soldout"},
		OutOfStockText: []string{"sold out", "out of stock"},
		SearchURL:      "https://www.snapdeal.com/search?keyword=%s",
		ResultSelector: "div.product-tuple-listing",
		ResultName:     []string{"p.product-title"},
		ResultPrice:    []string{"span.product-price", "span.lfloat.product-price"},
		ResultLink:     "a.dp-widget-link",
	},
	{
		Name:     "Croma",
		Domains:  []string{"croma.com"},
		Currency: "INR",
		NameSelectors: []string{
			"h1.pd-title",
			"h1[itemprop='name']",
		},
		PriceSelectors: []string{
			"span#pdp-product-price",
			"span.amount",
			"span.new-price",
		},
		BrandSelectors: []string{
			"span.pd-brand",
		},
		ImageSelectors: []string{
			"img.pd-main-img",
			"div.pd-img-wrap img",
		},
		StockSelectors: []string{"div.out-of-stock-msg"},
		OutOfStockText: []string{"out of stock"},
		SearchURL:      "https://www.croma.com/searchB?q=%s",
		ResultSelector: "li.product-item",
		ResultName:     []string{"h3.product-title a", "h3.product-title"},
		ResultPrice:    []string{"span.amount", "span.new-price"},
		ResultLink:     "h3.product-title a",
	},
}

// VendorForURL matches the URL's host against the vendor table. Unrecognized
// domains fail with ErrUnsupportedVendor.
func VendorForURL(rawURL string) (*Vendor, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return nil, ErrUnsupportedVendor
	}

	host := strings.ToLower(parsed.Hostname())
	for i := range Vendors {
		for _, domain := range Vendors[i].Domains {
			if host == domain || strings.HasSuffix(host, "."+domain) {
				return &Vendors[i], nil
			}
		}
	}

	return nil, ErrUnsupportedVendor
}

// VendorByName looks a vendor up by its platform name.
func VendorByName(name string) (*Vendor, bool) {
	for i := range Vendors {
		if strings.EqualFold(Vendors[i].Name, name) {
			return &Vendors[i], true
		}
	}
	return nil, false
}

// NameFromURLPath derives a human-readable product name from the last
// meaningful URL path segment. Used as the degraded fallback when a page
// yields neither name nor price, and by the search handler when a stored
// product has no resolvable name.
func NameFromURLPath(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		seg := segments[i]
		// Skip vendor routing tokens and opaque ids like dp/B0ABC123.
		if seg == "" || seg == "dp" || seg == "p" || seg == "product" || isOpaqueID(seg) {
			continue
		}
		seg = strings.ReplaceAll(seg, "-", " ")
		seg = strings.ReplaceAll(seg, "_", " ")
		return strings.TrimSpace(seg)
	}

	return ""
}

func isOpaqueID(seg string) bool {
	if strings.ContainsAny(seg, "-_ ") {
		return false
	}
	digits := 0
	for _, r := range seg {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits > 0 || (len(seg) >= 8 && strings.ToUpper(seg) == seg)
}
