package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"pos-service/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var userByUsernameSQL = regexp.QuoteMeta("SELECT * FROM users WHERE username = $1")

func userRows(t *testing.T, password string) *sqlmock.Rows {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return sqlmock.NewRows([]string{"id", "username", "password_hash", "name", "role", "created_at"}).
		AddRow(1, "admin", string(hash), "Admin User", models.RoleAdmin, time.Now())
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	st, mock := newMockStore(t)
	svc := NewAuthService(st, "secret", time.Hour)

	mock.ExpectQuery(userByUsernameSQL).WithArgs("admin").WillReturnRows(userRows(t, "admin123"))

	resp, err := svc.Login(context.Background(), &LoginRequest{Username: "admin", Password: "admin123"})
	require.NoError(t, err)
	assert.Equal(t, "Admin User", resp.User.Name)

	claims, err := svc.ParseToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestLoginWrongPassword(t *testing.T) {
	st, mock := newMockStore(t)
	svc := NewAuthService(st, "secret", time.Hour)

	mock.ExpectQuery(userByUsernameSQL).WithArgs("admin").WillReturnRows(userRows(t, "admin123"))

	_, err := svc.Login(context.Background(), &LoginRequest{Username: "admin", Password: "nope"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownUser(t *testing.T) {
	st, mock := newMockStore(t)
	svc := NewAuthService(st, "secret", time.Hour)

	mock.ExpectQuery(userByUsernameSQL).WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := svc.Login(context.Background(), &LoginRequest{Username: "ghost", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseTokenRejectsForeignSignature(t *testing.T) {
	issuer := NewAuthService(nil, "other-secret", time.Hour)
	verifier := NewAuthService(nil, "secret", time.Hour)

	token, err := issuer.IssueToken(&models.User{ID: 1, Username: "admin", Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = verifier.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	svc := &AuthService{jwtSecret: []byte("secret"), tokenTTL: -time.Minute}

	token, err := svc.IssueToken(&models.User{ID: 1, Username: "admin", Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = svc.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
