package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/freightdesk/logistics-backend/pkg/enums"
)

// Export represents an order CSV export job. FilePath is only set once
// the file has been written and the job flips to ready.
type Export struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyID     uuid.UUID          `gorm:"column:company_id;type:uuid;not null;index"`
	RequestedByID uuid.UUID          `gorm:"column:requested_by_id;type:uuid;not null"`
	Status        enums.ExportStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	FilePath      *string            `gorm:"column:file_path"`
	RowCount      int                `gorm:"column:row_count;not null;default:0"`
	Note          *string            `gorm:"column:note"`
	CompletedAt   *time.Time         `gorm:"column:completed_at"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
