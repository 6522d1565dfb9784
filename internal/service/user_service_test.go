package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newUsers(t *testing.T) (*UserService, sqlmock.Sqlmock) {
	st, mock := newMockStore(t)
	svc := NewUserService(st, NewReferentialGuard(st))
	svc.hashCost = bcrypt.MinCost
	return svc, mock
}

func TestDeleteOwnAccountIsRefused(t *testing.T) {
	svc, mock := newUsers(t)

	err := svc.DeleteUser(context.Background(), 1, 1)
	assert.ErrorIs(t, err, ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUserWithOrdersIsRefused(t *testing.T) {
	svc, mock := newUsers(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM orders WHERE user_id = $1")).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	err := svc.DeleteUser(context.Background(), 1, 2)
	assert.ErrorIs(t, err, ErrHasDependents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserHashesPassword(t *testing.T) {
	svc, mock := newUsers(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users (username, password_hash, name, role)")).
		WithArgs("jane", sqlmock.AnyArg(), "Jane Doe", "cashier").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(3, time.Now()))

	user, err := svc.CreateUser(context.Background(), &CreateUserRequest{
		Username: "jane", Password: "s3cret", Name: "Jane Doe", Role: "cashier",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(3), user.ID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret")))
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	svc, mock := newUsers(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := svc.CreateUser(context.Background(), &CreateUserRequest{
		Username: "admin", Password: "x", Name: "Other", Role: "admin",
	})
	assert.ErrorIs(t, err, ErrUserExists)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	svc, mock := newUsers(t)

	_, err := svc.CreateUser(context.Background(), &CreateUserRequest{
		Username: "bob", Password: "x", Name: "Bob", Role: "manager",
	})
	assert.ErrorIs(t, err, ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUserKeepsPasswordWhenEmpty(t *testing.T) {
	svc, mock := newUsers(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET name = $1, role = $2 WHERE id = $3")).
		WithArgs("John", "admin", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM users WHERE id = $1")).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "name", "role", "created_at"}).
			AddRow(2, "cashier", "hash", "John", "admin", time.Now()))

	user, err := svc.UpdateUser(context.Background(), 2, &UpdateUserRequest{Name: "John", Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}
