package exports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freightdesk/logistics-backend/pkg/db/models"
	"github.com/freightdesk/logistics-backend/pkg/enums"
)

// Repository exposes export job persistence helpers.
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

// CreateTx inserts an export row inside tx.
func (r *Repository) CreateTx(tx *gorm.DB, export *models.Export) (*models.Export, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	if err := tx.Create(export).Error; err != nil {
		return nil, err
	}
	return export, nil
}

// FindByID loads an export without tenant scoping. Worker-side only.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Export, error) {
	var export models.Export
	err := r.db.WithContext(ctx).First(&export, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &export, nil
}

// FindByIDForCompany loads an export scoped to the company. Exports owned by
// other companies are reported as missing.
func (r *Repository) FindByIDForCompany(ctx context.Context, id, companyID uuid.UUID) (*models.Export, error) {
	var export models.Export
	err := r.db.WithContext(ctx).
		First(&export, "id = ? AND company_id = ?", id, companyID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &export, nil
}

// ListByCompany returns the company's export jobs, newest first.
func (r *Repository) ListByCompany(ctx context.Context, companyID uuid.UUID, limit int) ([]models.Export, error) {
	var rows []models.Export
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// MarkReady flips a pending export to ready with the file location. Zero rows
// affected means the job already settled.
func (r *Repository) MarkReady(ctx context.Context, id uuid.UUID, filePath string, rowCount int) (bool, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&models.Export{}).
		Where("id = ? AND status = ?", id, enums.ExportStatusPending).
		Updates(map[string]any{
			"status":       enums.ExportStatusReady,
			"file_path":    filePath,
			"row_count":    rowCount,
			"completed_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkFailed flips a pending export to failed.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&models.Export{}).
		Where("id = ? AND status = ?", id, enums.ExportStatusPending).
		Updates(map[string]any{
			"status":       enums.ExportStatusFailed,
			"completed_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
