package repository

import (
	"context"

	"github.com/rookgm/orderflow/internal/models"
	"github.com/rookgm/orderflow/internal/repository/postgres"
)

const (
	decrementStockQuery = `
						UPDATE products
						SET stock = stock - $2
						WHERE id = $1
`
	incrementDiscountUsageQuery = `
						UPDATE discount_codes
						SET usage_count = usage_count + 1
						WHERE code = $1
`
)

// InventoryRepository is an atomic inventory ledger
type InventoryRepository struct {
	db *postgres.DB
}

// NewInventoryRepository creates new InventoryRepository instance
func NewInventoryRepository(db *postgres.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// Decrement lowers product stock by qty in a single statement
func (ir *InventoryRepository) Decrement(ctx context.Context, productID string, qty int) error {
	cmd, err := ir.db.Exec(ctx, decrementStockQuery, productID, qty)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return models.ErrDataNotFound
	}

	return nil
}

// DiscountRepository is an atomic discount usage ledger
type DiscountRepository struct {
	db *postgres.DB
}

// NewDiscountRepository creates new DiscountRepository instance
func NewDiscountRepository(db *postgres.DB) *DiscountRepository {
	return &DiscountRepository{db: db}
}

// IncrementUsage counts one more use of code
func (dr *DiscountRepository) IncrementUsage(ctx context.Context, code string) error {
	cmd, err := dr.db.Exec(ctx, incrementDiscountUsageQuery, code)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return models.ErrDataNotFound
	}

	return nil
}
