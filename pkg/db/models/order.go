package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/freightdesk/logistics-backend/pkg/enums"
)

// Order represents a stock request placed by a profile for a product.
// ReferenceCode is the stable external identifier; Processed flips the
// first time the order runs so approvals only ever decrement stock once.
type Order struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ReferenceCode uuid.UUID         `gorm:"column:reference_code;type:uuid;not null;uniqueIndex"`
	CompanyID     uuid.UUID         `gorm:"column:company_id;type:uuid;not null;index"`
	ProductID     uuid.UUID         `gorm:"column:product_id;type:uuid;not null"`
	CreatedByID   uuid.UUID         `gorm:"column:created_by_id;type:uuid;not null"`
	Quantity      int               `gorm:"column:quantity;not null"`
	Status        enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Processed     bool              `gorm:"column:processed;not null;default:false"`
	FailureReason *string           `gorm:"column:failure_reason"`
	ProcessedAt   *time.Time        `gorm:"column:processed_at"`
	Product       *Product          `gorm:"foreignKey:ProductID"`
	CreatedBy     *Profile          `gorm:"foreignKey:CreatedByID"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
