package repository

import (
	"context"

	"github.com/polkiloo/quickcart/internal/domain/model"
)

// ProductRepository provides read access to the catalog. Catalog management
// lives outside the core; sold counts are incremented by stock finalization.
type ProductRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Product, error)
	ListActive(ctx context.Context) ([]model.Product, error)
}
