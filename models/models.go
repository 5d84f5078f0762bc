package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultCurrency is used whenever a vendor page or search result does not
// expose an explicit currency code.
const DefaultCurrency = "INR"

// Product represents a tracked retail item, owned by one user and identified
// by its original source URL.
type Product struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Name      string    `json:"product_name" db:"product_name"`
	Brand     string    `json:"brand,omitempty" db:"brand"`
	Category  string    `json:"category,omitempty" db:"category"`
	ImageURL  string    `json:"image_url,omitempty" db:"image_url"`
	SourceURL string    `json:"source_url" db:"source_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	IsActive  bool      `json:"is_active" db:"is_active"`
}

// PriceRecord is one timestamped price observation for a product on a named
// platform. Records are append-only and never mutated after creation.
type PriceRecord struct {
	ID          uuid.UUID `json:"id" db:"id"`
	ProductID   uuid.UUID `json:"product_id" db:"product_id"`
	Platform    string    `json:"platform" db:"platform"`
	PlatformURL string    `json:"platform_url" db:"platform_url"`
	Price       float64   `json:"price" db:"price"`
	Currency    string    `json:"currency" db:"currency"`
	InStock     bool      `json:"in_stock" db:"in_stock"`
	CapturedAt  time.Time `json:"captured_at" db:"captured_at"`
}

// ErrNoHistory is returned when statistics are requested for a product with
// zero price records.
var ErrNoHistory = errors.New("no price history")

// PriceStats summarizes a product's price history. It is derived, never
// persisted. Current is the price of the most recently captured record.
type PriceStats struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Avg     float64 `json:"avg"`
	Current float64 `json:"current"`
}

// ComputeStats derives PriceStats from records ordered by capture time
// descending (most recent first).
func ComputeStats(records []PriceRecord) (PriceStats, error) {
	if len(records) == 0 {
		return PriceStats{}, ErrNoHistory
	}

	stats := PriceStats{
		Min:     records[0].Price,
		Max:     records[0].Price,
		Current: records[0].Price,
	}

	sum := 0.0
	for _, rec := range records {
		if rec.Price < stats.Min {
			stats.Min = rec.Price
		}
		if rec.Price > stats.Max {
			stats.Max = rec.Price
		}
		sum += rec.Price
	}
	stats.Avg = sum / float64(len(records))

	return stats, nil
}

// Recommendation is a buy/wait judgment for a product. It is ephemeral and
// recomputed per view, never stored.
type Recommendation struct {
	ShouldBuy  bool   `json:"should_buy"`
	Reason     string `json:"reason"`
	PricePoint string `json:"price_point"`
	Confidence int    `json:"confidence"` // 0-100
}

// PriceAlert represents a price drop alert on a tracked product.
type PriceAlert struct {
	ID          int        `json:"id" db:"id"`
	ProductID   uuid.UUID  `json:"product_id" db:"product_id"`
	TargetPrice float64    `json:"target_price" db:"target_price"`
	AlertType   string     `json:"alert_type" db:"alert_type"` // "price_drop", "percentage_drop"
	Percentage  float64    `json:"percentage" db:"percentage"`
	IsActive    bool       `json:"is_active" db:"is_active"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	TriggeredAt *time.Time `json:"triggered_at" db:"triggered_at"`
}

// TrackRequest is the payload for submitting a product URL to track.
type TrackRequest struct {
	URL    string `json:"url" validate:"required,url"`
	UserID string `json:"user_id" validate:"required"`
}

// TrackResponse is returned by the scrape handler after a submission.
type TrackResponse struct {
	Success      bool     `json:"success"`
	Product      *Product `json:"product,omitempty"`
	CurrentPrice float64  `json:"current_price,omitempty"`
	Currency     string   `json:"currency,omitempty"`
	Degraded     bool     `json:"degraded,omitempty"`
}

// SearchPlatformsRequest is the payload for the cross-platform search
// handler. ProductName may be empty when ProductID is set; the handler
// resolves the name from the stored product.
type SearchPlatformsRequest struct {
	ProductName string    `json:"product_name"`
	Brand       string    `json:"brand,omitempty"`
	Category    string    `json:"category,omitempty"`
	ProductID   uuid.UUID `json:"product_id"`
}

// SetAlertRequest is the payload for creating a price alert.
type SetAlertRequest struct {
	TargetPrice float64 `json:"target_price"`
	AlertType   string  `json:"alert_type"`
	Percentage  float64 `json:"percentage"`
}

// DailyRunResult reports the outcome of one scheduled run across all
// tracked products.
type DailyRunResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	SuccessCount int    `json:"success_count"`
	ErrorCount   int    `json:"error_count"`
}
