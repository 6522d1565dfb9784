package service

import (
	"context"

	"pos-service/internal/models"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserService manages till operators
type UserService struct {
	store    *store.Store
	guard    *ReferentialGuard
	hashCost int
	logger   *zap.Logger
}

func NewUserService(store *store.Store, guard *ReferentialGuard) *UserService {
	return &UserService{
		store:    store,
		guard:    guard,
		hashCost: bcrypt.DefaultCost,
		logger:   util.GetLogger(),
	}
}

type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required,max=100"`
	Role     string `json:"role" validate:"required,oneof=admin cashier"`
}

// UpdateUserRequest changes a user. An empty Password keeps the current one.
type UpdateUserRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Role     string `json:"role" validate:"required,oneof=admin cashier"`
	Password string `json:"password"`
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.store.Users().ListUsers(ctx)
}

func (s *UserService) CreateUser(ctx context.Context, req *CreateUserRequest) (*models.User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		Name:         req.Name,
		Role:         req.Role,
	}
	if err := s.store.Users().CreateUser(ctx, user); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	s.logger.Info("User created", zap.Int64("user_id", user.ID), zap.String("role", user.Role))
	return user, nil
}

func (s *UserService) UpdateUser(ctx context.Context, id int64, req *UpdateUserRequest) (*models.User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	var hash string
	if req.Password != "" {
		b, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
		if err != nil {
			return nil, err
		}
		hash = string(b)
	}

	if err := s.store.Users().UpdateUser(ctx, id, req.Name, req.Role, hash); err != nil {
		return nil, mapStoreErr(err)
	}

	user, err := s.store.Users().GetUserByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return user, nil
}

// DeleteUser removes a user with no orders. actorID is the caller; nobody may
// delete their own account.
func (s *UserService) DeleteUser(ctx context.Context, actorID, id int64) error {
	if actorID == id {
		return invalid("cannot delete your own account")
	}
	if err := s.guard.CheckUser(ctx, id); err != nil {
		return err
	}
	if err := s.store.Users().DeleteUser(ctx, id); err != nil {
		return mapStoreErr(err)
	}
	s.logger.Info("User deleted", zap.Int64("user_id", id), zap.Int64("by", actorID))
	return nil
}
