package profiles

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freightdesk/logistics-backend/pkg/db/models"
	"github.com/freightdesk/logistics-backend/pkg/enums"
)

// Repository exposes profile persistence helpers.
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

// Create inserts a profile row.
func (r *Repository) Create(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

// FindByID loads a profile, returning nil when it does not exist.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// FindByIDForCompany loads a profile scoped to the given company. A profile
// from another company is reported as missing.
func (r *Repository) FindByIDForCompany(ctx context.Context, id, companyID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).
		First(&profile, "id = ? AND company_id = ?", id, companyID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// FindByUserAndCompany loads the user's profile for the company.
func (r *Repository) FindByUserAndCompany(ctx context.Context, userID, companyID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).
		First(&profile, "user_id = ? AND company_id = ?", userID, companyID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// ListByUser returns all profiles held by the user.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Profile, error) {
	var rows []models.Profile
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// ListByCompany returns all profiles in the company.
func (r *Repository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]models.Profile, error) {
	var rows []models.Profile
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// UpdateRole changes the profile's role inside its company.
func (r *Repository) UpdateRole(ctx context.Context, id, companyID uuid.UUID, role enums.Role) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ? AND company_id = ?", id, companyID).
		Update("role", role)
	return res.RowsAffected, res.Error
}

// SetActive toggles the profile's active flag. Reactivating clears the
// failed order count so the profile starts from a clean slate.
func (r *Repository) SetActive(ctx context.Context, id, companyID uuid.UUID, active bool) (int64, error) {
	updates := map[string]any{"is_active": active}
	if active {
		updates["failed_order_count"] = 0
		updates["deactivated_at"] = nil
	} else {
		updates["deactivated_at"] = time.Now()
	}
	res := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ? AND company_id = ?", id, companyID).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// RecordFailureTx increments the failed order counter inside tx and
// deactivates the profile once the counter reaches threshold. Returns the
// new counter value and whether the profile was deactivated by this call.
func (r *Repository) RecordFailureTx(tx *gorm.DB, profileID uuid.UUID, threshold int) (int, bool, error) {
	if tx == nil {
		return 0, false, errors.New("transaction required")
	}

	res := tx.Model(&models.Profile{}).
		Where("id = ?", profileID).
		Update("failed_order_count", gorm.Expr("failed_order_count + 1"))
	if res.Error != nil {
		return 0, false, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, false, gorm.ErrRecordNotFound
	}

	var count int
	if err := tx.Model(&models.Profile{}).
		Where("id = ?", profileID).
		Select("failed_order_count").
		Scan(&count).Error; err != nil {
		return 0, false, err
	}

	if threshold <= 0 || count < threshold {
		return count, false, nil
	}

	deactivated := tx.Model(&models.Profile{}).
		Where("id = ? AND is_active = ?", profileID, true).
		Updates(map[string]any{
			"is_active":      false,
			"deactivated_at": time.Now(),
		})
	if deactivated.Error != nil {
		return count, false, deactivated.Error
	}
	return count, deactivated.RowsAffected > 0, nil
}
