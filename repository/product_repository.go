package repository

import (
	"context"
	"database/sql"
	"fmt"

	"foodDeliveryManagement/models"
)

// ProductRepository reads the catalog. The catalog is written by an external
// admin surface; the order core only needs authoritative prices.
type ProductRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new product repository.
func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts a product with its size variants. Used by seeding and tests.
func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	ctx, cancel := withExecTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO products (name, category, available, prep_time_min)
		VALUES (?, ?, ?, ?)`,
		p.Name, p.Category, p.Available, p.PrepTimeMin,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("product id: %w", err)
	}
	for _, s := range p.Sizes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO product_sizes (product_id, size, price) VALUES (?, ?, ?)`,
			p.ID, s.Size, s.Price,
		); err != nil {
			return fmt.Errorf("insert product size: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit product: %w", err)
	}
	return nil
}

// GetByID retrieves a product with its sizes, or nil if not found.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	var p models.Product
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, category, available, prep_time_min FROM products WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Category, &p.Available, &p.PrepTimeMin)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT size, price FROM product_sizes WHERE product_id = ? ORDER BY price`, id)
	if err != nil {
		return nil, fmt.Errorf("load product sizes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s models.ProductSize
		if err := rows.Scan(&s.Size, &s.Price); err != nil {
			return nil, fmt.Errorf("scan product size: %w", err)
		}
		p.Sizes = append(p.Sizes, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product sizes: %w", err)
	}
	return &p, nil
}

// SetAvailability flips a product's orderable flag.
func (r *ProductRepository) SetAvailability(ctx context.Context, id int64, available bool) (bool, error) {
	ctx, cancel := withExecTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `UPDATE products SET available = ? WHERE id = ?`, available, id)
	if err != nil {
		return false, fmt.Errorf("set availability: %w", err)
	}
	return oneRowChanged(res)
}
