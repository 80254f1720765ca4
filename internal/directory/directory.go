package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"semaphore/learning/internal/auth"
	"semaphore/learning/internal/crypto"
	"semaphore/learning/internal/logger"
	"semaphore/learning/internal/model"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const defaultListLimit = 100

type UserStore interface {
	CreateUser(ctx context.Context, user model.User) error
	GetUserByID(ctx context.Context, userID string) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	ListUsers(ctx context.Context, limit int) ([]model.User, error)
}

type TokenConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type Service struct {
	users  UserStore
	tokens TokenConfig
	now    func() time.Time
	log    *logger.Logger
}

type Registration struct {
	Name     string
	Email    string
	Password string
	Grade    *string
	Gender   *string
}

func NewService(users UserStore, tokens TokenConfig, log *logger.Logger) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		now:    func() time.Time { return time.Now().UTC() },
		log:    log.With("component", "directory"),
	}
}

// NormalizeEmail trims and lower-cases an address; emails are unique in
// their normalized form.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func (s *Service) Register(ctx context.Context, reg Registration) (model.User, error) {
	email := NormalizeEmail(reg.Email)
	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return model.User{}, ErrEmailTaken
	} else if !errors.Is(err, model.ErrNotFound) {
		return model.User{}, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := crypto.HashPassword(reg.Password)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := model.User{
		ID:              uuid.NewString(),
		Name:            strings.TrimSpace(reg.Name),
		Email:           email,
		PasswordHash:    hash,
		Grade:           trimmed(reg.Grade),
		Gender:          trimmed(reg.Gender),
		EnrolledCourses: []model.Enrollment{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, model.ErrDuplicate) {
			return model.User{}, ErrEmailTaken
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("User registered", "user_id", user.ID)
	return user, nil
}

// Login checks credentials and returns the user with a signed access token.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (model.User, string, error) {
	user, err := s.users.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.User{}, "", ErrInvalidCredentials
		}
		return model.User{}, "", fmt.Errorf("lookup email: %w", err)
	}
	if err := crypto.CheckPassword(user.PasswordHash, password); err != nil {
		return model.User{}, "", ErrInvalidCredentials
	}

	token, err := auth.NewAccessToken(s.tokens.Secret, s.tokens.Issuer, s.tokens.TTL, auth.Claims{
		UserID: user.ID,
		Email:  user.Email,
	})
	if err != nil {
		return model.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

func (s *Service) Get(ctx context.Context, userID string) (model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *Service) List(ctx context.Context, limit int) ([]model.User, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	users, err := s.users.ListUsers(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
