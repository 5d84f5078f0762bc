package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pricepilot/models"

	"github.com/google/uuid"
)

type PriceRecordRepository struct {
	db *sql.DB
}

func NewPriceRecordRepository(db *sql.DB) *PriceRecordRepository {
	return &PriceRecordRepository{db: db}
}

// Add appends one price observation. Pure append: no deduplication against
// the preceding record, so history reflects every observation including
// repeated identical prices.
func (r *PriceRecordRepository) Add(ctx context.Context, record *models.PriceRecord) error {
	query := `
		INSERT INTO price_records (id, product_id, platform, platform_url, price, currency, in_stock, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Currency == "" {
		record.Currency = models.DefaultCurrency
	}
	if record.CapturedAt.IsZero() {
		record.CapturedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query,
		record.ID, record.ProductID, record.Platform, record.PlatformURL,
		record.Price, record.Currency, record.InStock, record.CapturedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add price record: %v", err)
	}

	return nil
}

// History returns price records for a product, most recent first.
func (r *PriceRecordRepository) History(ctx context.Context, productID uuid.UUID, limit int) ([]models.PriceRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, product_id, platform, platform_url, price, currency, in_stock, captured_at
		FROM price_records
		WHERE product_id = $1
		ORDER BY captured_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get price history: %v", err)
	}
	defer rows.Close()

	var history []models.PriceRecord
	for rows.Next() {
		var rec models.PriceRecord
		err := rows.Scan(
			&rec.ID, &rec.ProductID, &rec.Platform, &rec.PlatformURL,
			&rec.Price, &rec.Currency, &rec.InStock, &rec.CapturedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price record: %v", err)
		}
		history = append(history, rec)
	}

	return history, rows.Err()
}

// Stats computes min/max/avg/current over a product's full history.
func (r *PriceRecordRepository) Stats(ctx context.Context, productID uuid.UUID) (models.PriceStats, error) {
	query := `
		SELECT MIN(price), MAX(price), AVG(price),
		       (SELECT price FROM price_records WHERE product_id = $1 ORDER BY captured_at DESC LIMIT 1)
		FROM price_records
		WHERE product_id = $1
	`

	var stats models.PriceStats
	var min, max, avg, current sql.NullFloat64
	err := r.db.QueryRowContext(ctx, query, productID).Scan(&min, &max, &avg, &current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return stats, models.ErrNoHistory
		}
		return stats, fmt.Errorf("failed to compute price stats: %v", err)
	}
	if !current.Valid {
		return stats, models.ErrNoHistory
	}

	stats.Min = min.Float64
	stats.Max = max.Float64
	stats.Avg = avg.Float64
	stats.Current = current.Float64
	return stats, nil
}
