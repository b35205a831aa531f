package profiles

import (
	"time"

	"github.com/google/uuid"

	"github.com/freightdesk/logistics-backend/pkg/db/models"
	"github.com/freightdesk/logistics-backend/pkg/enums"
)

// ProfileDTO is the API shape for a company profile.
type ProfileDTO struct {
	ID               uuid.UUID  `json:"id"`
	UserID           uuid.UUID  `json:"user_id"`
	CompanyID        uuid.UUID  `json:"company_id"`
	Role             enums.Role `json:"role"`
	IsActive         bool       `json:"is_active"`
	FailedOrderCount int        `json:"failed_order_count"`
	DeactivatedAt    *time.Time `json:"deactivated_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// NewProfileDTO maps the persistence model to the API shape.
func NewProfileDTO(profile *models.Profile) *ProfileDTO {
	if profile == nil {
		return nil
	}
	return &ProfileDTO{
		ID:               profile.ID,
		UserID:           profile.UserID,
		CompanyID:        profile.CompanyID,
		Role:             profile.Role,
		IsActive:         profile.IsActive,
		FailedOrderCount: profile.FailedOrderCount,
		DeactivatedAt:    profile.DeactivatedAt,
		CreatedAt:        profile.CreatedAt,
	}
}

// NewProfileDTOs maps a list of profiles.
func NewProfileDTOs(rows []models.Profile) []ProfileDTO {
	out := make([]ProfileDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewProfileDTO(&rows[i]))
	}
	return out
}
