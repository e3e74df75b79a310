package service

import (
	"context"
	"errors"

	"debtboard/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid name or phone number")
	ErrAdminProtected     = errors.New("the primary administrator cannot be deleted")
)

type UserRepo interface {
	FindByName(ctx context.Context, name string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Create(ctx context.Context, name, passwordHash string) (*domain.User, error)
	Delete(ctx context.Context, id int64) error
}

// UserService manages the small set of named login accounts. The login
// password is the account's phone number, stored only as a bcrypt hash.
type UserService struct {
	repo      UserRepo
	adminName string
}

func NewUserService(repo UserRepo, adminName string) *UserService {
	return &UserService{
		repo:      repo,
		adminName: adminName,
	}
}

// Authenticate verifies name + phone number and returns the account. Unknown
// names and wrong phone numbers are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, name, phoneNumber string) (*domain.User, error) {
	user, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(phoneNumber)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.repo.List(ctx)
}

func (s *UserService) Create(ctx context.Context, name, phoneNumber string) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(phoneNumber), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	return s.repo.Create(ctx, name, string(hash))
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if user.Name == s.adminName {
		return ErrAdminProtected
	}

	return s.repo.Delete(ctx, id)
}
