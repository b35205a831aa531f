package profiles

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/freightdesk/logistics-backend/pkg/db"
	dbmodels "github.com/freightdesk/logistics-backend/pkg/db/models"
	"github.com/freightdesk/logistics-backend/pkg/enums"
	pkgerrors "github.com/freightdesk/logistics-backend/pkg/errors"
)

// Service exposes company profile management. Every operation is scoped to
// the caller's company; profiles in other companies are invisible.
type Service interface {
	ListProfiles(ctx context.Context, companyID uuid.UUID) ([]ProfileDTO, error)
	CreateProfile(ctx context.Context, companyID uuid.UUID, input CreateProfileInput) (*ProfileDTO, error)
	UpdateRole(ctx context.Context, companyID, profileID uuid.UUID, role enums.Role) (*ProfileDTO, error)
	SetActive(ctx context.Context, companyID, profileID uuid.UUID, active bool) (*ProfileDTO, error)
}

// CreateProfileInput holds the validated payload to attach a user to a company.
type CreateProfileInput struct {
	UserID uuid.UUID
	Role   enums.Role
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*dbmodels.User, error)
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	users    userLoader
}

// NewService constructs a profile service instance.
func NewService(repo *Repository, dbClient *db.Client, users userLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("profile repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if users == nil {
		return nil, fmt.Errorf("user repository required")
	}
	return &service{repo: repo, dbClient: dbClient, users: users}, nil
}

func (s *service) ListProfiles(ctx context.Context, companyID uuid.UUID) ([]ProfileDTO, error) {
	rows, err := s.repo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list profiles")
	}
	return NewProfileDTOs(rows), nil
}

func (s *service) CreateProfile(ctx context.Context, companyID uuid.UUID, input CreateProfileInput) (*ProfileDTO, error) {
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}

	user, err := s.users.FindByID(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	existing, err := s.repo.FindByUserAndCompany(ctx, input.UserID, companyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check existing profile")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "user already has a profile in this company")
	}

	profile := &dbmodels.Profile{
		ID:        uuid.New(),
		UserID:    input.UserID,
		CompanyID: companyID,
		Role:      input.Role,
		IsActive:  true,
	}
	created, err := s.repo.Create(ctx, profile)
	if err != nil {
		if db.IsUniqueViolation(err, "idx_profiles_user_company") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "user already has a profile in this company")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert profile")
	}
	return NewProfileDTO(created), nil
}

func (s *service) UpdateRole(ctx context.Context, companyID, profileID uuid.UUID, role enums.Role) (*ProfileDTO, error) {
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}

	affected, err := s.repo.UpdateRole(ctx, profileID, companyID, role)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update role")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}
	return s.loadDTO(ctx, profileID, companyID)
}

func (s *service) SetActive(ctx context.Context, companyID, profileID uuid.UUID, active bool) (*ProfileDTO, error) {
	affected, err := s.repo.SetActive(ctx, profileID, companyID, active)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: set active")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}
	return s.loadDTO(ctx, profileID, companyID)
}

func (s *service) loadDTO(ctx context.Context, profileID, companyID uuid.UUID) (*ProfileDTO, error) {
	profile, err := s.repo.FindByIDForCompany(ctx, profileID, companyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load profile")
	}
	if profile == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}
	return NewProfileDTO(profile), nil
}
