package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/verimart/verimart/internal/domain"
	"github.com/verimart/verimart/internal/repo/postgres"
	"github.com/verimart/verimart/pkg/events"
	"github.com/verimart/verimart/pkg/logger"
)

// AdminService holds the admin-gated role transitions. Approval is the one
// multi-step operation; its atomicity lives in SellerRepo.Approve.
type AdminService interface {
	CreateAdmin(ctx context.Context, req *domain.RegisterRequest) (*domain.User, error)
	ApproveSeller(ctx context.Context, username string) (sellerID int64, err error)
	RevokeSeller(ctx context.Context, username string) error
	ListUsers(ctx context.Context) ([]domain.UserWithAttributes, error)
	ListSellers(ctx context.Context) ([]domain.UserWithAttributes, error)
}

type adminService struct {
	userRepo   postgres.UserRepo
	sellerRepo postgres.SellerRepo
	eventBus   events.Publisher
}

func NewAdminService(
	userRepo postgres.UserRepo,
	sellerRepo postgres.SellerRepo,
	eventBus events.Publisher,
) AdminService {
	return &adminService{
		userRepo:   userRepo,
		sellerRepo: sellerRepo,
		eventBus:   eventBus,
	}
}

func (s *adminService) CreateAdmin(ctx context.Context, req *domain.RegisterRequest) (*domain.User, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}

	passwordHash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.Create(ctx, req.Username, passwordHash, []string{domain.AttrAdmin})
	if err != nil {
		return nil, err
	}

	if err := s.eventBus.Publish(ctx, events.AdminCreated, events.AdminCreatedEvent{
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish admin.created", "error", err, "username", user.Username)
	}

	return user, nil
}

func (s *adminService) ApproveSeller(ctx context.Context, username string) (int64, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return 0, fmt.Errorf("%w: username is required", domain.ErrValidation)
	}

	sellerID, err := s.sellerRepo.Approve(ctx, username)
	if err != nil {
		return 0, err
	}

	if err := s.eventBus.Publish(ctx, events.SellerApproved, events.SellerApprovedEvent{
		Username:   username,
		SellerID:   sellerID,
		ApprovedAt: time.Now(),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish seller.approved", "error", err, "username", username)
	}

	return sellerID, nil
}

// RevokeSeller removes only the SELLER tag. The profile row and any items it
// owns stay in place.
func (s *adminService) RevokeSeller(ctx context.Context, username string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return fmt.Errorf("%w: username is required", domain.ErrValidation)
	}

	if err := s.userRepo.RemoveAttribute(ctx, username, domain.AttrSeller); err != nil {
		return fmt.Errorf("failed to revoke seller rights: %w", err)
	}

	if err := s.eventBus.Publish(ctx, events.SellerRevoked, events.SellerRevokedEvent{
		Username:  username,
		RevokedAt: time.Now(),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish seller.revoked", "error", err, "username", username)
	}

	return nil
}

func (s *adminService) ListUsers(ctx context.Context) ([]domain.UserWithAttributes, error) {
	return s.userRepo.ListWithAttributes(ctx)
}

func (s *adminService) ListSellers(ctx context.Context) ([]domain.UserWithAttributes, error) {
	return s.userRepo.ListSellers(ctx)
}
