package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/freightdesk/logistics-backend/pkg/db/models"
	"github.com/freightdesk/logistics-backend/pkg/enums"
)

// OrderDTO is the API shape for an order.
type OrderDTO struct {
	ID            uuid.UUID         `json:"id"`
	ReferenceCode uuid.UUID         `json:"reference_code"`
	ProductID     uuid.UUID         `json:"product_id"`
	ProductSKU    string            `json:"product_sku,omitempty"`
	CreatedByID   uuid.UUID         `json:"created_by_id"`
	Quantity      int               `json:"quantity"`
	Status        enums.OrderStatus `json:"status"`
	Processed     bool              `json:"processed"`
	FailureReason *string           `json:"failure_reason,omitempty"`
	ProcessedAt   *time.Time        `json:"processed_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// NewOrderDTO maps the persistence model to the API shape.
func NewOrderDTO(order *models.Order) *OrderDTO {
	if order == nil {
		return nil
	}
	dto := &OrderDTO{
		ID:            order.ID,
		ReferenceCode: order.ReferenceCode,
		ProductID:     order.ProductID,
		CreatedByID:   order.CreatedByID,
		Quantity:      order.Quantity,
		Status:        order.Status,
		Processed:     order.Processed,
		FailureReason: order.FailureReason,
		ProcessedAt:   order.ProcessedAt,
		CreatedAt:     order.CreatedAt,
	}
	if order.Product != nil {
		dto.ProductSKU = order.Product.SKU
	}
	return dto
}

// OrderListResult carries one page of orders plus the next cursor.
type OrderListResult struct {
	Items      []OrderDTO `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// CreateOrderInput holds the validated payload to place an order.
type CreateOrderInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// BulkItemResult reports the outcome for one entry of a bulk request.
type BulkItemResult struct {
	Index int       `json:"index"`
	Order *OrderDTO `json:"order,omitempty"`
	Error string    `json:"error,omitempty"`
}

// BulkCreateResult aggregates per-item outcomes. A bulk request succeeds
// partially: bad rows are reported, good rows are created.
type BulkCreateResult struct {
	Created int              `json:"created"`
	Failed  int              `json:"failed"`
	Items   []BulkItemResult `json:"items"`
}

// ListOrdersInput captures the filters for a company-scoped order listing.
// RequestedBy and Role identify the caller: operators only see orders they
// placed themselves, admins and viewers see the whole company.
type ListOrdersInput struct {
	CompanyID   uuid.UUID
	RequestedBy uuid.UUID
	Role        enums.Role
	Status      *enums.OrderStatus
	Limit       int
	Cursor      string
}
