package auth

import (
	"github.com/freightdesk/logistics-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID    uuid.UUID
	ProfileID uuid.UUID
	CompanyID uuid.UUID
	Role      enums.Role
	JTI       string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID    uuid.UUID  `json:"user_id"`
	ProfileID uuid.UUID  `json:"profile_id"`
	CompanyID uuid.UUID  `json:"company_id"`
	Role      enums.Role `json:"role"`
	jwt.RegisteredClaims
}
