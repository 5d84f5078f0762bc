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

// ErrProductNotFound is returned when a product lookup matches no row.
var ErrProductNotFound = errors.New("product not found")

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, user_id, product_name, brand, category, image_url, source_url, created_at, updated_at, is_active`

// Create inserts a product for the submitting user. A resubmission of the
// same source URL by the same user reuses the existing row instead of
// racing to create a duplicate.
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	query := `
		INSERT INTO products (id, user_id, product_name, brand, category, image_url, source_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (user_id, source_url) DO UPDATE
		SET product_name = EXCLUDED.product_name, brand = EXCLUDED.brand,
		    image_url = EXCLUDED.image_url, updated_at = EXCLUDED.updated_at, is_active = TRUE
		RETURNING ` + productColumns

	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	now := time.Now()

	var created models.Product
	err := r.db.QueryRowContext(ctx, query,
		product.ID, product.UserID, product.Name, product.Brand, product.Category,
		product.ImageURL, product.SourceURL, now,
	).Scan(
		&created.ID, &created.UserID, &created.Name, &created.Brand, &created.Category,
		&created.ImageURL, &created.SourceURL, &created.CreatedAt, &created.UpdatedAt, &created.IsActive,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %v", err)
	}

	return &created, nil
}

// GetByID returns a product by ID
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND is_active = true`

	var product models.Product
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&product.ID, &product.UserID, &product.Name, &product.Brand, &product.Category,
		&product.ImageURL, &product.SourceURL, &product.CreatedAt, &product.UpdatedAt, &product.IsActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %v", err)
	}

	return &product, nil
}

// GetByUser returns all active products owned by a user
func (r *ProductRepository) GetByUser(ctx context.Context, userID string) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE user_id = $1 AND is_active = true ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %v", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// List returns every active product across all users. Used by the daily run,
// which operates with elevated privilege.
func (r *ProductRepository) List(ctx context.Context) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE is_active = true ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %v", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// Deactivate soft-deletes a product. Price records stay attached until the
// row itself is purged, at which point they cascade.
func (r *ProductRepository) Deactivate(ctx context.Context, id uuid.UUID, userID string) error {
	query := `UPDATE products SET is_active = false, updated_at = $3 WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete product: %v", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrProductNotFound
	}

	return nil
}

func scanProducts(rows *sql.Rows) ([]models.Product, error) {
	var products []models.Product
	for rows.Next() {
		var product models.Product
		err := rows.Scan(
			&product.ID, &product.UserID, &product.Name, &product.Brand, &product.Category,
			&product.ImageURL, &product.SourceURL, &product.CreatedAt, &product.UpdatedAt, &product.IsActive,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %v", err)
		}
		products = append(products, product)
	}
	return products, rows.Err()
}
