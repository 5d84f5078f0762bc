package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pricepilot/models"

	"github.com/google/uuid"
)

type AlertRepository struct {
	db *sql.DB
}

func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// SetPriceAlert creates a new price alert
func (r *AlertRepository) SetPriceAlert(ctx context.Context, productID uuid.UUID, targetPrice float64, alertType string, percentage float64) (*models.PriceAlert, error) {
	query := `
		INSERT INTO price_alerts (product_id, target_price, alert_type, percentage, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, product_id, target_price, alert_type, percentage, is_active, created_at, triggered_at
	`

	var alert models.PriceAlert
	err := r.db.QueryRowContext(ctx, query, productID, targetPrice, alertType, percentage, time.Now()).Scan(
		&alert.ID, &alert.ProductID, &alert.TargetPrice,
		&alert.AlertType, &alert.Percentage, &alert.IsActive,
		&alert.CreatedAt, &alert.TriggeredAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set price alert: %v", err)
	}

	return &alert, nil
}

// GetPriceAlerts returns all active alerts for a product
func (r *AlertRepository) GetPriceAlerts(ctx context.Context, productID uuid.UUID) ([]models.PriceAlert, error) {
	query := `
		SELECT id, product_id, target_price, alert_type, percentage, is_active, created_at, triggered_at
		FROM price_alerts
		WHERE product_id = $1 AND is_active = true
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get price alerts: %v", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// DeletePriceAlert deactivates a price alert
func (r *AlertRepository) DeletePriceAlert(ctx context.Context, alertID int) error {
	query := `UPDATE price_alerts SET is_active = false WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, alertID)
	if err != nil {
		return fmt.Errorf("failed to delete price alert: %v", err)
	}
	return nil
}

// CheckAlerts returns the alerts a newly observed price triggers and marks
// them triggered+inactive so they fire once.
func (r *AlertRepository) CheckAlerts(ctx context.Context, productID uuid.UUID, currentPrice, previousPrice float64) ([]models.PriceAlert, error) {
	query := `
		SELECT id, product_id, target_price, alert_type, percentage, is_active, created_at, triggered_at
		FROM price_alerts
		WHERE product_id = $1 AND is_active = true
	`

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to check alerts: %v", err)
	}
	defer rows.Close()

	alerts, err := scanAlerts(rows)
	if err != nil {
		return nil, err
	}

	var triggered []models.PriceAlert
	for _, alert := range alerts {
		fire := false
		switch alert.AlertType {
		case "price_drop":
			fire = currentPrice <= alert.TargetPrice
		case "percentage_drop":
			if previousPrice > 0 {
				drop := (previousPrice - currentPrice) / previousPrice * 100
				fire = drop >= alert.Percentage
			}
		}
		if !fire {
			continue
		}

		if err := r.markTriggered(ctx, alert.ID); err != nil {
			return triggered, err
		}
		triggered = append(triggered, alert)
	}

	return triggered, nil
}

func (r *AlertRepository) markTriggered(ctx context.Context, alertID int) error {
	query := `UPDATE price_alerts SET is_active = false, triggered_at = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, alertID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark alert triggered: %v", err)
	}
	return nil
}

func scanAlerts(rows *sql.Rows) ([]models.PriceAlert, error) {
	var alerts []models.PriceAlert
	for rows.Next() {
		var alert models.PriceAlert
		err := rows.Scan(
			&alert.ID, &alert.ProductID, &alert.TargetPrice,
			&alert.AlertType, &alert.Percentage, &alert.IsActive,
			&alert.CreatedAt, &alert.TriggeredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price alert: %v", err)
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}
