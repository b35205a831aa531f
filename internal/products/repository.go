package products

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freightdesk/logistics-backend/pkg/db/models"
	"github.com/freightdesk/logistics-backend/pkg/pagination"
)

// Repository exposes product persistence helpers. Every read and write is
// explicitly scoped to a company.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a product row.
func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// FindByIDForCompany loads a product scoped to the company. Products in
// other companies are reported as missing.
func (r *Repository) FindByIDForCompany(ctx context.Context, id, companyID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		First(&product, "id = ? AND company_id = ?", id, companyID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// FindByIDForCompanyTx is the transactional variant of FindByIDForCompany.
func (r *Repository) FindByIDForCompanyTx(tx *gorm.DB, id, companyID uuid.UUID) (*models.Product, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	var product models.Product
	err := tx.First(&product, "id = ? AND company_id = ?", id, companyID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// ListActive returns one cursor page of the company's active products.
func (r *Repository) ListActive(ctx context.Context, companyID uuid.UUID, params pagination.Params) ([]models.Product, error) {
	query := r.db.WithContext(ctx).
		Where("company_id = ? AND is_active = ?", companyID, true)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Product
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	return rows, err
}

// DecrementStockTx atomically takes qty units off the product's stock inside
// tx. The guard keeps stock from ever going negative; zero rows affected
// means there was not enough stock (or the product vanished).
func (r *Repository) DecrementStockTx(tx *gorm.DB, productID, companyID uuid.UUID, qty int) (bool, error) {
	if tx == nil {
		return false, errors.New("transaction required")
	}
	if qty <= 0 {
		return false, errors.New("quantity must be positive")
	}

	res := tx.Model(&models.Product{}).
		Where("id = ? AND company_id = ? AND is_active = ? AND stock_quantity >= ?",
			productID, companyID, true, qty).
		Update("stock_quantity", gorm.Expr("stock_quantity - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
