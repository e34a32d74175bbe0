package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/baymax-health/apiserver/internal/auth"
	"github.com/baymax-health/apiserver/internal/store"
	"github.com/baymax-health/apiserver/internal/tracker"
	"github.com/baymax-health/apiserver/types"
)

const minPasswordLength = 6

var (
	ErrEmailTaken         = errors.New("user already exists with this email")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError reports an invalid input field.
type ValidationError = tracker.ValidationError

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
}

// UserService encapsulates account use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

type SignupInput struct {
	FirstName       string
	LastName        string
	Email           string
	Phone           string
	Password        string
	ConfirmPassword string
}

type ProfileInput struct {
	FirstName string
	LastName  string
	Phone     string

	// Password is optional; when set it must match ConfirmPassword.
	Password        string
	ConfirmPassword string
}

// NormalizeEmail trims and lowercases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkPassword(password, confirm string) error {
	if len(password) < minPasswordLength {
		return invalid("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if password != confirm {
		return invalid("confirmPassword", "Passwords do not match")
	}
	return nil
}

func (s *UserService) Signup(ctx context.Context, in SignupInput) (types.User, error) {
	user := types.User{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     NormalizeEmail(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
	}
	switch {
	case user.FirstName == "":
		return types.User{}, invalid("firstName", "firstName is required")
	case user.LastName == "":
		return types.User{}, invalid("lastName", "lastName is required")
	case user.Email == "":
		return types.User{}, invalid("email", "email is required")
	}
	if _, err := mail.ParseAddress(user.Email); err != nil {
		return types.User{}, invalid("email", "email is not a valid address")
	}
	if err := checkPassword(in.Password, in.ConfirmPassword); err != nil {
		return types.User{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return types.User{}, fmt.Errorf("while hashing password: %w", err)
	}
	user.PasswordHash = hash

	created, err := s.repo.Create(ctx, user)
	if errors.Is(err, store.ErrDuplicate) {
		return types.User{}, ErrEmailTaken
	}
	return created, err
}

// Login returns the user whose credentials match. Unknown email and wrong
// password both yield ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, email, password string) (types.User, error) {
	user, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) UpdateProfile(ctx context.Context, id string, in ProfileInput) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)
	if firstName == "" {
		return types.User{}, invalid("firstName", "firstName is required")
	}
	if lastName == "" {
		return types.User{}, invalid("lastName", "lastName is required")
	}
	user.FirstName = firstName
	user.LastName = lastName
	user.Phone = strings.TrimSpace(in.Phone)

	if in.Password != "" || in.ConfirmPassword != "" {
		if err := checkPassword(in.Password, in.ConfirmPassword); err != nil {
			return types.User{}, err
		}
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return types.User{}, fmt.Errorf("while hashing password: %w", err)
		}
		user.PasswordHash = hash
	}

	return s.repo.Update(ctx, user)
}
