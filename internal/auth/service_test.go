package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/freightdesk/logistics-backend/internal/companies"
	"github.com/freightdesk/logistics-backend/internal/profiles"
	"github.com/freightdesk/logistics-backend/internal/users"
	pkgauth "github.com/freightdesk/logistics-backend/pkg/auth"
	"github.com/freightdesk/logistics-backend/pkg/config"
	"github.com/freightdesk/logistics-backend/pkg/db/models"
	"github.com/freightdesk/logistics-backend/pkg/enums"
	pkgerrors "github.com/freightdesk/logistics-backend/pkg/errors"
	"github.com/freightdesk/logistics-backend/pkg/security"
)

const testPassword = "hunter2-hunter2"

var testJWTConfig = config.JWTConfig{
	Secret:            "auth-service-test-secret",
	Issuer:            "freightdesk-test",
	ExpirationMinutes: 60,
}

func setupAuthTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	schema := `
CREATE TABLE IF NOT EXISTS companies (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  domain TEXT NOT NULL DEFAULT '',
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  password_hash TEXT NOT NULL DEFAULT '',
  first_name TEXT NOT NULL DEFAULT '',
  last_name TEXT NOT NULL DEFAULT '',
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS profiles (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  company_id TEXT NOT NULL,
  role TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  failed_order_count INTEGER NOT NULL DEFAULT 0,
  deactivated_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, conn.Exec(schema).Error)
	return conn
}

type authFixture struct {
	userID    uuid.UUID
	profileID uuid.UUID
	companyID uuid.UUID
}

func seedAuthUser(t *testing.T, conn *gorm.DB, email string, userActive, profileActive bool) authFixture {
	t.Helper()

	hash, err := security.HashPassword(testPassword, config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	})
	require.NoError(t, err)

	fx := authFixture{
		userID:    uuid.New(),
		profileID: uuid.New(),
		companyID: uuid.New(),
	}
	require.NoError(t, conn.Create(&models.Company{
		ID:       fx.companyID,
		Name:     "Acme Freight",
		Domain:   "acme-freight.com",
		IsActive: true,
	}).Error)
	require.NoError(t, conn.Create(&models.User{
		ID:           fx.userID,
		Email:        email,
		PasswordHash: hash,
		IsActive:     userActive,
	}).Error)
	require.NoError(t, conn.Create(&models.Profile{
		ID:        fx.profileID,
		UserID:    fx.userID,
		CompanyID: fx.companyID,
		Role:      enums.RoleOperator,
		IsActive:  profileActive,
	}).Error)
	return fx
}

func newAuthService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		Users:     users.NewRepository(conn),
		Profiles:  profiles.NewRepository(conn),
		Companies: companies.NewRepository(conn),
		JWT:       testJWTConfig,
	})
	require.NoError(t, err)
	return svc
}

func TestLoginMintsToken(t *testing.T) {
	conn := setupAuthTestDB(t)
	fx := seedAuthUser(t, conn, "ops@acme.test", true, true)
	svc := newAuthService(t, conn)

	result, err := svc.Login(context.Background(), LoginInput{
		Email:    "ops@acme.test",
		Password: testPassword,
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", result.TokenType)
	assert.Equal(t, fx.companyID, result.CompanyID)
	assert.Equal(t, "Acme Freight", result.CompanyName)
	assert.Equal(t, enums.RoleOperator, result.Role)

	claims, err := pkgauth.ParseAccessToken(testJWTConfig, result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, fx.userID, claims.UserID)
	assert.Equal(t, fx.profileID, claims.ProfileID)
	assert.Equal(t, fx.companyID, claims.CompanyID)

	user, err := users.NewRepository(conn).FindByID(context.Background(), fx.userID)
	require.NoError(t, err)
	assert.NotNil(t, user.LastLoginAt)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	conn := setupAuthTestDB(t)
	seedAuthUser(t, conn, "ops@acme.test", true, true)
	svc := newAuthService(t, conn)

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "ops@acme.test",
		Password: "not-the-password",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestLoginRejectsUnknownEmail(t *testing.T) {
	conn := setupAuthTestDB(t)
	svc := newAuthService(t, conn)

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "nobody@acme.test",
		Password: testPassword,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestLoginRejectsDisabledUser(t *testing.T) {
	conn := setupAuthTestDB(t)
	seedAuthUser(t, conn, "ops@acme.test", false, true)
	svc := newAuthService(t, conn)

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "ops@acme.test",
		Password: testPassword,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestLoginRejectsDeactivatedProfile(t *testing.T) {
	conn := setupAuthTestDB(t)
	seedAuthUser(t, conn, "ops@acme.test", true, false)
	svc := newAuthService(t, conn)

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "ops@acme.test",
		Password: testPassword,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestLoginRequiresCompanyForMultiProfileUsers(t *testing.T) {
	conn := setupAuthTestDB(t)
	fx := seedAuthUser(t, conn, "ops@acme.test", true, true)
	second := uuid.New()
	require.NoError(t, conn.Create(&models.Company{
		ID:       second,
		Name:     "Globex Logistics",
		Domain:   "globex-logistics.com",
		IsActive: true,
	}).Error)
	require.NoError(t, conn.Create(&models.Profile{
		ID:        uuid.New(),
		UserID:    fx.userID,
		CompanyID: second,
		Role:      enums.RoleViewer,
		IsActive:  true,
	}).Error)
	svc := newAuthService(t, conn)

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "ops@acme.test",
		Password: testPassword,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	result, err := svc.Login(context.Background(), LoginInput{
		Email:     "ops@acme.test",
		Password:  testPassword,
		CompanyID: &second,
	})
	require.NoError(t, err)
	assert.Equal(t, second, result.CompanyID)
	assert.Equal(t, enums.RoleViewer, result.Role)
}

func TestLoginRejectsInactiveCompany(t *testing.T) {
	conn := setupAuthTestDB(t)
	fx := seedAuthUser(t, conn, "ops@acme.test", true, true)
	require.NoError(t, conn.Model(&models.Company{}).
		Where("id = ?", fx.companyID).
		Update("is_active", false).Error)
	svc := newAuthService(t, conn)

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "ops@acme.test",
		Password: testPassword,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestLoginRejectsForeignCompany(t *testing.T) {
	conn := setupAuthTestDB(t)
	seedAuthUser(t, conn, "ops@acme.test", true, true)
	svc := newAuthService(t, conn)

	foreign := uuid.New()
	_, err := svc.Login(context.Background(), LoginInput{
		Email:     "ops@acme.test",
		Password:  testPassword,
		CompanyID: &foreign,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}
