package database

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"
)

// Connect opens the Postgres connection and verifies it.
func Connect(dbURL string) (*sql.DB, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %v", err)
	}

	log.Println("Successfully connected to database")
	return db, nil
}

// CreateTables creates the necessary tables if they don't exist
func CreateTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id UUID PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			product_name TEXT NOT NULL,
			brand TEXT DEFAULT '',
			category TEXT DEFAULT '',
			image_url TEXT DEFAULT '',
			source_url TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			is_active BOOLEAN DEFAULT TRUE,
			UNIQUE (user_id, source_url)
		)`,
		`CREATE TABLE IF NOT EXISTS price_records (
			id UUID PRIMARY KEY,
			product_id UUID REFERENCES products(id) ON DELETE CASCADE,
			platform VARCHAR(50) NOT NULL,
			platform_url TEXT NOT NULL,
			price DECIMAL(12,2) NOT NULL CHECK (price >= 0),
			currency VARCHAR(3) DEFAULT 'INR',
			in_stock BOOLEAN DEFAULT TRUE,
			captured_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS price_alerts (
			id SERIAL PRIMARY KEY,
			product_id UUID REFERENCES products(id) ON DELETE CASCADE,
			target_price DECIMAL(12,2) NOT NULL,
			alert_type VARCHAR(20) NOT NULL CHECK (alert_type IN ('price_drop', 'percentage_drop')),
			percentage DECIMAL(5,2),
			is_active BOOLEAN DEFAULT TRUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			triggered_at TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_products_user ON products (user_id) WHERE is_active`,
		`CREATE INDEX IF NOT EXISTS idx_price_records_product ON price_records (product_id, captured_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_price_alerts_product ON price_alerts (product_id) WHERE is_active`,
	}

	for _, query := range queries {
		_, err := db.Exec(query)
		if err != nil {
			return fmt.Errorf("failed to create table: %v", err)
		}
	}

	return nil
}
