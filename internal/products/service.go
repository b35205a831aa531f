package products

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/freightdesk/logistics-backend/pkg/errors"
	"github.com/freightdesk/logistics-backend/pkg/pagination"
)

// Service exposes catalog read operations for the portal.
type Service interface {
	ListProducts(ctx context.Context, companyID uuid.UUID, params pagination.Params) (*ProductListResult, error)
	GetProduct(ctx context.Context, companyID, productID uuid.UUID) (*ProductDTO, error)
}

type service struct {
	repo *Repository
}

// NewService constructs a product service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

// ListProducts returns the company's active products, newest first.
func (s *service) ListProducts(ctx context.Context, companyID uuid.UUID, params pagination.Params) (*ProductListResult, error) {
	rows, err := s.repo.ListActive(ctx, companyID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list products")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	result := &ProductListResult{Items: make([]ProductDTO, 0, len(rows))}
	if len(rows) > limit {
		last := rows[limit-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
		rows = rows[:limit]
	}
	for i := range rows {
		result.Items = append(result.Items, *NewProductDTO(&rows[i]))
	}
	return result, nil
}

func (s *service) GetProduct(ctx context.Context, companyID, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByIDForCompany(ctx, productID, companyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return NewProductDTO(product), nil
}
