package auth

import (
	"github.com/google/uuid"

	"github.com/freightdesk/logistics-backend/pkg/enums"
)

// LoginInput holds the validated login payload. CompanyID selects which of
// the user's profiles to authenticate as; it may be omitted when the user
// belongs to a single company.
type LoginInput struct {
	Email     string
	Password  string
	CompanyID *uuid.UUID
}

// LoginResult carries the minted token plus the resolved identity.
type LoginResult struct {
	AccessToken      string     `json:"access_token"`
	TokenType        string     `json:"token_type"`
	ExpiresInSeconds int        `json:"expires_in"`
	UserID           uuid.UUID  `json:"user_id"`
	ProfileID        uuid.UUID  `json:"profile_id"`
	CompanyID        uuid.UUID  `json:"company_id"`
	CompanyName      string     `json:"company_name"`
	Role             enums.Role `json:"role"`
}
