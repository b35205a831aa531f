package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freightdesk/logistics-backend/pkg/db/models"
	"github.com/freightdesk/logistics-backend/pkg/enums"
	"github.com/freightdesk/logistics-backend/pkg/pagination"
)

// Repository exposes order persistence helpers. Reads are scoped to a
// company; the transition helpers use guarded updates so concurrent workers
// can never double-apply a lifecycle step.
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

// CreateTx inserts an order row inside tx.
func (r *Repository) CreateTx(tx *gorm.DB, order *models.Order) (*models.Order, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	if err := tx.Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// FindByID loads an order without tenant scoping. Worker-side only.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// FindByIDForCompany loads an order scoped to the company. Orders placed by
// other companies are reported as missing.
func (r *Repository) FindByIDForCompany(ctx context.Context, id, companyID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Product").
		First(&order, "orders.id = ? AND orders.company_id = ?", id, companyID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// List returns one cursor page of the company's orders, newest first.
func (r *Repository) List(ctx context.Context, input ListOrdersInput) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Product").
		Where("company_id = ?", input.CompanyID)

	// Operators are scoped to their own orders.
	if input.Role == enums.RoleOperator && input.RequestedBy != uuid.Nil {
		query = query.Where("created_by_id = ?", input.RequestedBy)
	}

	if input.Status != nil {
		query = query.Where("status = ?", *input.Status)
	}

	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Order
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(input.Limit)).
		Find(&rows).Error
	return rows, err
}

// ClaimPendingTx moves the order from pending to processing. Zero rows
// affected means another worker got there first or the order is not pending.
func (r *Repository) ClaimPendingTx(tx *gorm.DB, id uuid.UUID) (bool, error) {
	if tx == nil {
		return false, errors.New("transaction required")
	}
	res := tx.Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusPending).
		Update("status", enums.OrderStatusProcessing)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// FinalizeApprovedTx settles a processing order as approved.
func (r *Repository) FinalizeApprovedTx(tx *gorm.DB, id uuid.UUID) error {
	return r.finalizeTx(tx, id, enums.OrderStatusApproved, nil)
}

// FinalizeFailedTx settles a processing order as failed with a reason.
func (r *Repository) FinalizeFailedTx(tx *gorm.DB, id uuid.UUID, reason string) error {
	return r.finalizeTx(tx, id, enums.OrderStatusFailed, &reason)
}

func (r *Repository) finalizeTx(tx *gorm.DB, id uuid.UUID, status enums.OrderStatus, reason *string) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	now := time.Now()
	updates := map[string]any{
		"status":         status,
		"processed":      true,
		"processed_at":   now,
		"failure_reason": reason,
	}
	res := tx.Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusProcessing).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ResetForRetryTx moves a failed order back to pending inside tx. Zero rows
// affected means the order is not in a retryable state.
func (r *Repository) ResetForRetryTx(tx *gorm.DB, id, companyID uuid.UUID) (bool, error) {
	if tx == nil {
		return false, errors.New("transaction required")
	}
	res := tx.Model(&models.Order{}).
		Where("id = ? AND company_id = ? AND status = ?", id, companyID, enums.OrderStatusFailed).
		Updates(map[string]any{
			"status":         enums.OrderStatusPending,
			"failure_reason": nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ExportRecord is the flattened row shape written to CSV exports.
type ExportRecord struct {
	ReferenceCode string `gorm:"column:reference_code"`
	ProductSKU    string `gorm:"column:product_sku"`
	Quantity      int    `gorm:"column:quantity"`
	Status        string `gorm:"column:status"`
	CreatedBy     string `gorm:"column:created_by"`
}

// StreamExportRecords yields the company's orders oldest first through fn,
// one row at a time. Used by the CSV exporter so large companies never get
// materialized in memory.
func (r *Repository) StreamExportRecords(ctx context.Context, companyID uuid.UUID, fn func(rec *ExportRecord) error) error {
	rows, err := r.db.WithContext(ctx).
		Table("orders").
		Select("orders.reference_code AS reference_code, products.sku AS product_sku, orders.quantity AS quantity, orders.status AS status, users.email AS created_by").
		Joins("JOIN products ON products.id = orders.product_id").
		Joins("JOIN profiles ON profiles.id = orders.created_by_id").
		Joins("JOIN users ON users.id = profiles.user_id").
		Where("orders.company_id = ?", companyID).
		Order("orders.created_at ASC").
		Order("orders.id ASC").
		Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var rec ExportRecord
		if err := r.db.ScanRows(rows, &rec); err != nil {
			return err
		}
		if err := fn(&rec); err != nil {
			return err
		}
	}
	return rows.Err()
}
