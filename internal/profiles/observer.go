package profiles

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freightdesk/logistics-backend/pkg/logger"
)

// FailureObserver is notified whenever an order fails. Implementations run
// inside the caller's transaction so the counter moves with the order row.
type FailureObserver interface {
	OrderFailed(ctx context.Context, tx *gorm.DB, profileID uuid.UUID) error
}

type failureObserver struct {
	repo      *Repository
	threshold int
	logg      *logger.Logger
}

// NewFailureObserver builds the observer that deactivates profiles once
// their failed order count reaches threshold.
func NewFailureObserver(repo *Repository, threshold int, logg *logger.Logger) (FailureObserver, error) {
	if repo == nil {
		return nil, fmt.Errorf("profile repository required")
	}
	if threshold <= 0 {
		return nil, fmt.Errorf("failure threshold must be positive")
	}
	return &failureObserver{repo: repo, threshold: threshold, logg: logg}, nil
}

func (o *failureObserver) OrderFailed(ctx context.Context, tx *gorm.DB, profileID uuid.UUID) error {
	count, deactivated, err := o.repo.RecordFailureTx(tx, profileID, o.threshold)
	if err != nil {
		return err
	}
	if o.logg != nil {
		fields := map[string]any{
			"profile_id":         profileID.String(),
			"failed_order_count": count,
		}
		logCtx := o.logg.WithFields(ctx, fields)
		if deactivated {
			o.logg.Warn(logCtx, "profile deactivated after repeated order failures")
		} else {
			o.logg.Info(logCtx, "order failure recorded for profile")
		}
	}
	return nil
}
