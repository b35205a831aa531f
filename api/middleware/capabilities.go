package middleware

import (
	"net/http"

	"github.com/freightdesk/logistics-backend/api/responses"
	"github.com/freightdesk/logistics-backend/pkg/enums"
	pkgerrors "github.com/freightdesk/logistics-backend/pkg/errors"
	"github.com/freightdesk/logistics-backend/pkg/logger"
)

// RequireCapability gates a route on one entry of the role capability table.
// Unknown roles carry no capabilities and are always denied.
func RequireCapability(selector func(enums.Capabilities) bool, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := enums.Role(RoleFromContext(r.Context()))
			if !selector(role.Capabilities()) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
