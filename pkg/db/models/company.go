package models

import (
	"time"

	"github.com/google/uuid"
)

// Company represents a tenant on the platform. Every domain row hangs
// off a company and queries are always scoped to one.
type Company struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null;uniqueIndex"`
	Domain    string    `gorm:"column:domain;not null"` // unique on lower(domain)
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
