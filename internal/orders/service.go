package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freightdesk/logistics-backend/pkg/db"
	dbmodels "github.com/freightdesk/logistics-backend/pkg/db/models"
	"github.com/freightdesk/logistics-backend/pkg/enums"
	pkgerrors "github.com/freightdesk/logistics-backend/pkg/errors"
	"github.com/freightdesk/logistics-backend/pkg/logger"
	"github.com/freightdesk/logistics-backend/pkg/outbox"
	"github.com/freightdesk/logistics-backend/pkg/pagination"
)

const (
	reasonInsufficientStock  = "insufficient stock"
	reasonProductUnavailable = "product unavailable"
)

// Actor identifies the authenticated profile performing an operation.
type Actor struct {
	UserID    uuid.UUID
	ProfileID uuid.UUID
	CompanyID uuid.UUID
	Role      enums.Role
}

func (a Actor) ref() *outbox.ActorRef {
	profileID := a.ProfileID
	companyID := a.CompanyID
	return &outbox.ActorRef{
		UserID:    a.UserID,
		ProfileID: &profileID,
		CompanyID: &companyID,
		Role:      a.Role.String(),
	}
}

// Service exposes the order lifecycle: placement, listing, retry, and the
// worker-side processing step.
type Service interface {
	CreateOrder(ctx context.Context, actor Actor, input CreateOrderInput) (*OrderDTO, error)
	BulkCreateOrders(ctx context.Context, actor Actor, inputs []CreateOrderInput) (*BulkCreateResult, error)
	ListOrders(ctx context.Context, input ListOrdersInput) (*OrderListResult, error)
	GetOrder(ctx context.Context, companyID, orderID uuid.UUID) (*OrderDTO, error)
	RetryOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error)
	ProcessOrder(ctx context.Context, orderID uuid.UUID) error
}

type productStore interface {
	FindByIDForCompany(ctx context.Context, id, companyID uuid.UUID) (*dbmodels.Product, error)
	FindByIDForCompanyTx(tx *gorm.DB, id, companyID uuid.UUID) (*dbmodels.Product, error)
	DecrementStockTx(tx *gorm.DB, productID, companyID uuid.UUID, qty int) (bool, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type failureObserver interface {
	OrderFailed(ctx context.Context, tx *gorm.DB, profileID uuid.UUID) error
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	products productStore
	emitter  eventEmitter
	observer failureObserver
	logg     *logger.Logger
}

// ServiceParams collects the dependencies for NewService.
type ServiceParams struct {
	Repo     *Repository
	DBClient *db.Client
	Products productStore
	Emitter  eventEmitter
	Observer failureObserver
	Logger   *logger.Logger
}

// NewService constructs an order service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if params.DBClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product store required")
	}
	if params.Emitter == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	if params.Observer == nil {
		return nil, fmt.Errorf("failure observer required")
	}
	return &service{
		repo:     params.Repo,
		dbClient: params.DBClient,
		products: params.Products,
		emitter:  params.Emitter,
		observer: params.Observer,
		logg:     params.Logger,
	}, nil
}

// CreateOrder places a pending order and queues it for async processing.
func (s *service) CreateOrder(ctx context.Context, actor Actor, input CreateOrderInput) (*OrderDTO, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.products.FindByIDForCompany(ctx, input.ProductID, actor.CompanyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	if product == nil || !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	order := &dbmodels.Order{
		ID:            uuid.New(),
		ReferenceCode: uuid.New(),
		CompanyID:     actor.CompanyID,
		ProductID:     input.ProductID,
		CreatedByID:   actor.ProfileID,
		Quantity:      input.Quantity,
		Status:        enums.OrderStatusPending,
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.CreateTx(tx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert order")
		}
		return s.emitOrderRequested(ctx, tx, order, actor.ref())
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	order.Product = product
	return NewOrderDTO(order), nil
}

// BulkCreateOrders places every valid entry and reports per-item outcomes.
// One bad row never rolls back its siblings.
func (s *service) BulkCreateOrders(ctx context.Context, actor Actor, inputs []CreateOrderInput) (*BulkCreateResult, error) {
	if len(inputs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one order is required")
	}

	result := &BulkCreateResult{Items: make([]BulkItemResult, 0, len(inputs))}
	for i, input := range inputs {
		item := BulkItemResult{Index: i}
		dto, err := s.CreateOrder(ctx, actor, input)
		if err != nil {
			result.Failed++
			if typed := pkgerrors.As(err); typed != nil {
				item.Error = typed.Message()
			} else {
				item.Error = "order could not be created"
			}
		} else {
			result.Created++
			item.Order = dto
		}
		result.Items = append(result.Items, item)
	}
	return result, nil
}

// ListOrders returns the company's orders, newest first. Operators only get
// the orders they placed themselves.
func (s *service) ListOrders(ctx context.Context, input ListOrdersInput) (*OrderListResult, error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status filter")
	}

	rows, err := s.repo.List(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list orders")
	}

	limit := pagination.NormalizeLimit(input.Limit)
	result := &OrderListResult{Items: make([]OrderDTO, 0, len(rows))}
	if len(rows) > limit {
		last := rows[limit-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
		rows = rows[:limit]
	}
	for i := range rows {
		result.Items = append(result.Items, *NewOrderDTO(&rows[i]))
	}
	return result, nil
}

func (s *service) GetOrder(ctx context.Context, companyID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByIDForCompany(ctx, orderID, companyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return NewOrderDTO(order), nil
}

// RetryOrder moves a failed order back to pending and requeues it. Only the
// failed state is retryable; anything else is a state conflict.
func (s *service) RetryOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByIDForCompany(ctx, orderID, actor.CompanyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.Status != enums.OrderStatusFailed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order in status %q cannot be retried", order.Status))
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		reset, err := s.repo.ResetForRetryTx(tx, orderID, actor.CompanyID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reset order")
		}
		if !reset {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer retryable")
		}
		return s.emitOrderRequested(ctx, tx, order, actor.ref())
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retry order")
	}

	return s.GetOrder(ctx, actor.CompanyID, orderID)
}

// ProcessOrder runs the fulfillment step for one order: claim it, take the
// stock, settle the outcome. Redelivered messages for an already settled
// order are a no-op.
func (s *service) ProcessOrder(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
	}
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	return s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		claimed, err := s.repo.ClaimPendingTx(tx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: claim order")
		}
		if !claimed {
			// Already claimed or settled; ack the redelivery.
			if s.logg != nil {
				logCtx := s.logg.WithField(ctx, "order_id", orderID.String())
				s.logg.Info(logCtx, "order not pending, skipping")
			}
			return nil
		}

		decremented, err := s.products.DecrementStockTx(tx, order.ProductID, order.CompanyID, order.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: decrement stock")
		}

		if decremented {
			if err := s.repo.FinalizeApprovedTx(tx, orderID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: approve order")
			}
			return s.emitOrderSettled(ctx, tx, order, enums.EventOrderProcessed, "")
		}

		reason := reasonInsufficientStock
		product, err := s.products.FindByIDForCompanyTx(tx, order.ProductID, order.CompanyID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
		}
		if product == nil || !product.IsActive {
			reason = reasonProductUnavailable
		}

		if err := s.repo.FinalizeFailedTx(tx, orderID, reason); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: fail order")
		}
		if err := s.observer.OrderFailed(ctx, tx, order.CreatedByID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record order failure")
		}
		return s.emitOrderSettled(ctx, tx, order, enums.EventOrderFailed, reason)
	})
}

func (s *service) emitOrderRequested(ctx context.Context, tx *gorm.DB, order *dbmodels.Order, actor *outbox.ActorRef) error {
	return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderRequested,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Version:       1,
		Data: map[string]any{
			"orderId":       order.ID.String(),
			"referenceCode": order.ReferenceCode.String(),
			"companyId":     order.CompanyID.String(),
			"productId":     order.ProductID.String(),
			"quantity":      order.Quantity,
		},
	})
}

func (s *service) emitOrderSettled(ctx context.Context, tx *gorm.DB, order *dbmodels.Order, eventType enums.OutboxEventType, reason string) error {
	data := map[string]any{
		"orderId":   order.ID.String(),
		"companyId": order.CompanyID.String(),
	}
	if reason != "" {
		data["reason"] = reason
	}
	return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Data:          data,
	})
}
