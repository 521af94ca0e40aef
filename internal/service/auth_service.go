package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/verimart/verimart/internal/domain"
	"github.com/verimart/verimart/internal/repo/postgres"
	"github.com/verimart/verimart/pkg/auth"
	"github.com/verimart/verimart/pkg/config"
	"github.com/verimart/verimart/pkg/events"
	"github.com/verimart/verimart/pkg/logger"
)

type AuthService interface {
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error)
	Attributes(ctx context.Context, username string) ([]string, error)
	HasAttribute(ctx context.Context, username, attribute string) (bool, error)
}

type authService struct {
	userRepo postgres.UserRepo
	attrRepo postgres.AttributeRepo
	eventBus events.Publisher
	config   *config.Config
}

func NewAuthService(
	userRepo postgres.UserRepo,
	attrRepo postgres.AttributeRepo,
	eventBus events.Publisher,
	config *config.Config,
) AuthService {
	return &authService{
		userRepo: userRepo,
		attrRepo: attrRepo,
		eventBus: eventBus,
		config:   config,
	}
}

func (s *authService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}

	passwordHash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.Create(ctx, req.Username, passwordHash, domain.DefaultAttributes())
	if err != nil {
		return nil, err
	}

	if err := s.eventBus.Publish(ctx, events.UserRegistered, events.UserRegisteredEvent{
		Username:     user.Username,
		RegisteredAt: user.CreatedAt,
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish user.registered", "error", err, "username", user.Username)
	}

	return user, nil
}

func (s *authService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}

	user, err := s.userRepo.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}

	valid, err := argon2id.ComparePasswordAndHash(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return nil, domain.ErrInvalidCredentials
	}

	token, err := auth.NewAccessToken(user.Username, s.config.Auth.JWTSecret, s.config.Auth.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	return &domain.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.Auth.AccessTokenTTL / time.Second),
		Username:    user.Username,
	}, nil
}

func (s *authService) Attributes(ctx context.Context, username string) ([]string, error) {
	return s.userRepo.AttributeNames(ctx, username)
}

// HasAttribute checks a single named capability for the caller. An unknown
// name is the caller's mistake here, unlike in gate requirements.
func (s *authService) HasAttribute(ctx context.Context, username, attribute string) (bool, error) {
	ids, err := s.attrRepo.ResolveIDs(ctx, []string{attribute})
	if err != nil {
		return false, err
	}

	set, err := s.userRepo.AttributeIDs(ctx, username)
	if err != nil {
		return false, err
	}
	return set.ContainsAll(ids), nil
}
