package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/freightdesk/logistics-backend/pkg/enums"
	pkgerrors "github.com/freightdesk/logistics-backend/pkg/errors"
)

type contextKey string

const (
	ctxUserID    contextKey = "user_id"
	ctxProfileID contextKey = "profile_id"
	ctxCompanyID contextKey = "company_id"
	ctxRole      contextKey = "actor_role"
)

func UserIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxUserID)
}

func ProfileIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxProfileID)
}

func CompanyIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxCompanyID)
}

func RoleFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxRole)
}

func stringFromContext(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// Identity is the authenticated caller as resolved from the bearer token.
type Identity struct {
	UserID    uuid.UUID
	ProfileID uuid.UUID
	CompanyID uuid.UUID
	Role      enums.Role
}

// IdentityFromContext parses the seeded context values back into typed IDs.
// It only fails when the auth middleware did not run.
func IdentityFromContext(ctx context.Context) (Identity, error) {
	userID, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	profileID, err := uuid.Parse(ProfileIDFromContext(ctx))
	if err != nil {
		return Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	companyID, err := uuid.Parse(CompanyIDFromContext(ctx))
	if err != nil {
		return Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return Identity{
		UserID:    userID,
		ProfileID: profileID,
		CompanyID: companyID,
		Role:      enums.Role(RoleFromContext(ctx)),
	}, nil
}

// WithIdentity seeds the context the way the auth middleware does. Test helper.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, id.UserID.String())
	ctx = context.WithValue(ctx, ctxProfileID, id.ProfileID.String())
	ctx = context.WithValue(ctx, ctxCompanyID, id.CompanyID.String())
	return context.WithValue(ctx, ctxRole, string(id.Role))
}
