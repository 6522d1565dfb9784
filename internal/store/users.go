package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pos-service/internal/models"
)

type UserRepo struct {
	q Querier
}

// ListUsers returns all users, newest first
func (r *UserRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	err := r.q.SelectContext(ctx, &users, "SELECT * FROM users ORDER BY created_at DESC, id DESC")
	return users, err
}

// GetUserByID retrieves a user by ID
func (r *UserRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, "SELECT * FROM users WHERE id = $1", id)
}

// GetUserByUsername retrieves a user by login handle
func (r *UserRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, "SELECT * FROM users WHERE username = $1", username)
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var user models.User
	err := r.q.GetContext(ctx, &user, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %v: %w", arg, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts a user and fills in its id and created_at
func (r *UserRepo) CreateUser(ctx context.Context, u *models.User) error {
	return r.q.GetContext(ctx, u, `
		INSERT INTO users (username, password_hash, name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		u.Username, u.PasswordHash, u.Name, u.Role)
}

// UpdateUser changes name and role, and the password hash when one is given
func (r *UserRepo) UpdateUser(ctx context.Context, id int64, name, role, passwordHash string) error {
	var (
		res sql.Result
		err error
	)
	if passwordHash == "" {
		res, err = r.q.ExecContext(ctx,
			"UPDATE users SET name = $1, role = $2 WHERE id = $3", name, role, id)
	} else {
		res, err = r.q.ExecContext(ctx,
			"UPDATE users SET name = $1, role = $2, password_hash = $3 WHERE id = $4", name, role, passwordHash, id)
	}
	if err != nil {
		return err
	}
	return expectOneRow(res, id)
}

// DeleteUser removes a user
func (r *UserRepo) DeleteUser(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return err
	}
	return expectOneRow(res, id)
}

// EnsureUser upserts a user keyed by username
func (r *UserRepo) EnsureUser(ctx context.Context, u *models.User) error {
	return r.q.GetContext(ctx, &u.ID, `
		INSERT INTO users (username, password_hash, name, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO UPDATE
		SET password_hash = EXCLUDED.password_hash, name = EXCLUDED.name, role = EXCLUDED.role
		RETURNING id`,
		u.Username, u.PasswordHash, u.Name, u.Role)
}
