package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a company's catalog listing with live stock.
type Product struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyID     uuid.UUID       `gorm:"column:company_id;type:uuid;not null;uniqueIndex:idx_products_company_sku"`
	SKU           string          `gorm:"column:sku;not null;uniqueIndex:idx_products_company_sku"`
	Name          string          `gorm:"column:name;not null"`
	Description   *string         `gorm:"column:description"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	StockQuantity int             `gorm:"column:stock_quantity;not null;default:0"`
	IsActive      bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
