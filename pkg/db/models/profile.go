package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/freightdesk/logistics-backend/pkg/enums"
)

// Profile links a user with a company and captures their role there.
// A user holds at most one profile per company. FailedOrderCount feeds
// the automatic deactivation at the configured threshold.
type Profile struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_profiles_user_company"`
	CompanyID        uuid.UUID  `gorm:"column:company_id;type:uuid;not null;uniqueIndex:idx_profiles_user_company"`
	Role             enums.Role `gorm:"column:role;type:text;not null"`
	IsActive         bool       `gorm:"column:is_active;not null;default:true"`
	FailedOrderCount int        `gorm:"column:failed_order_count;not null;default:0"`
	DeactivatedAt    *time.Time `gorm:"column:deactivated_at"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
