package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgauth "github.com/freightdesk/logistics-backend/pkg/auth"
	"github.com/freightdesk/logistics-backend/pkg/config"
	"github.com/freightdesk/logistics-backend/pkg/db/models"
	pkgerrors "github.com/freightdesk/logistics-backend/pkg/errors"
	"github.com/freightdesk/logistics-backend/pkg/logger"
	"github.com/freightdesk/logistics-backend/pkg/security"
)

// Service authenticates users and mints access tokens.
type Service interface {
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
}

type userFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type profileFinder interface {
	FindByUserAndCompany(ctx context.Context, userID, companyID uuid.UUID) (*models.Profile, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Profile, error)
}

type companyFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
}

type service struct {
	users     userFinder
	profiles  profileFinder
	companies companyFinder
	jwtCfg    config.JWTConfig
	logg      *logger.Logger
	now       func() time.Time
}

// ServiceParams collects the dependencies for NewService.
type ServiceParams struct {
	Users     userFinder
	Profiles  profileFinder
	Companies companyFinder
	JWT       config.JWTConfig
	Logger    *logger.Logger
}

// NewService constructs an auth service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user store required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile store required")
	}
	if params.Companies == nil {
		return nil, fmt.Errorf("company store required")
	}
	if params.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt secret required")
	}
	return &service{
		users:     params.Users,
		profiles:  params.Profiles,
		companies: params.Companies,
		jwtCfg:    params.JWT,
		logg:      params.Logger,
		now:       time.Now,
	}, nil
}

// Login verifies credentials, resolves the company profile, and mints a
// bearer token. Bad credentials never reveal whether the email exists.
func (s *service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is disabled")
	}

	profile, err := s.resolveProfile(ctx, user.ID, input.CompanyID)
	if err != nil {
		return nil, err
	}
	if !profile.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "profile is deactivated")
	}

	company, err := s.companies.FindByID(ctx, profile.CompanyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load company")
	}
	if company == nil || !company.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "company is not active")
	}

	now := s.now()
	token, err := pkgauth.MintAccessToken(s.jwtCfg, now, pkgauth.AccessTokenPayload{
		UserID:    user.ID,
		ProfileID: profile.ID,
		CompanyID: profile.CompanyID,
		Role:      profile.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil && s.logg != nil {
		s.logg.Error(ctx, "stamping last login", err)
	}

	return &LoginResult{
		AccessToken:      token,
		TokenType:        "Bearer",
		ExpiresInSeconds: s.jwtCfg.ExpirationMinutes * 60,
		UserID:           user.ID,
		ProfileID:        profile.ID,
		CompanyID:        profile.CompanyID,
		CompanyName:      company.Name,
		Role:             profile.Role,
	}, nil
}

func (s *service) resolveProfile(ctx context.Context, userID uuid.UUID, companyID *uuid.UUID) (*models.Profile, error) {
	if companyID != nil {
		profile, err := s.profiles.FindByUserAndCompany(ctx, userID, *companyID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load profile")
		}
		if profile == nil {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "no access to this company")
		}
		return profile, nil
	}

	rows, err := s.profiles.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list profiles")
	}
	switch len(rows) {
	case 0:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "no company access")
	case 1:
		return &rows[0], nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "company_id is required when the user belongs to multiple companies")
	}
}
