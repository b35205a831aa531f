package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/freightdesk/logistics-backend/api/responses"
	"github.com/freightdesk/logistics-backend/api/validators"
	authsvc "github.com/freightdesk/logistics-backend/internal/auth"
	pkgerrors "github.com/freightdesk/logistics-backend/pkg/errors"
	"github.com/freightdesk/logistics-backend/pkg/logger"
)

type loginRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required"`
	CompanyID *string `json:"company_id,omitempty" validate:"omitempty,uuid"`
}

// Login exchanges credentials for a bearer token.
func Login(svc authsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var payload loginRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := authsvc.LoginInput{
			Email:    payload.Email,
			Password: payload.Password,
		}
		if payload.CompanyID != nil {
			companyID, err := uuid.Parse(*payload.CompanyID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid company id"))
				return
			}
			input.CompanyID = &companyID
		}

		result, err := svc.Login(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
