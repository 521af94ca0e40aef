package service

import (
	"context"
	"fmt"

	"github.com/verimart/verimart/internal/domain"
	"github.com/verimart/verimart/internal/repo/postgres"
	"github.com/verimart/verimart/pkg/events"
	"github.com/verimart/verimart/pkg/logger"
)

// ItemService runs the item lifecycle. All status preconditions are enforced
// by the repository's conditioned writes; this layer resolves the acting
// account to a buyer or seller reference and reports consistency violations.
type ItemService interface {
	Create(ctx context.Context, sellerUsername string, req *domain.CreateItemRequest) (*domain.Item, error)
	List(ctx context.Context) ([]domain.Item, error)
	SellerItems(ctx context.Context, sellerUsername string) ([]domain.Item, error)
	SellerProfile(ctx context.Context, username string) (*domain.SellerProfile, error)
	Buy(ctx context.Context, buyerUsername string, itemID int64) (*domain.Item, error)
	Sell(ctx context.Context, sellerUsername string, itemID int64) (*domain.Item, error)
	Deny(ctx context.Context, sellerUsername string, itemID int64) (*domain.Item, error)
}

type itemService struct {
	itemRepo   postgres.ItemRepo
	sellerRepo postgres.SellerRepo
	userRepo   postgres.UserRepo
	eventBus   events.Publisher
}

func NewItemService(
	itemRepo postgres.ItemRepo,
	sellerRepo postgres.SellerRepo,
	userRepo postgres.UserRepo,
	eventBus events.Publisher,
) ItemService {
	return &itemService{
		itemRepo:   itemRepo,
		sellerRepo: sellerRepo,
		userRepo:   userRepo,
		eventBus:   eventBus,
	}
}

func (s *itemService) Create(ctx context.Context, sellerUsername string, req *domain.CreateItemRequest) (*domain.Item, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}

	profile, err := s.requireProfile(ctx, sellerUsername)
	if err != nil {
		return nil, err
	}

	item, err := s.itemRepo.Create(ctx, profile.ID, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	s.publishItemEvent(ctx, events.ItemCreated, item)
	return item, nil
}

func (s *itemService) List(ctx context.Context) ([]domain.Item, error) {
	return s.itemRepo.List(ctx)
}

func (s *itemService) SellerItems(ctx context.Context, sellerUsername string) ([]domain.Item, error) {
	profile, err := s.requireProfile(ctx, sellerUsername)
	if err != nil {
		return nil, err
	}
	return s.itemRepo.ListBySeller(ctx, profile.ID)
}

// SellerProfile returns nil, nil when the caller has no profile; callers on
// the authenticated-only surface treat that as not-found, not as corruption.
func (s *itemService) SellerProfile(ctx context.Context, username string) (*domain.SellerProfile, error) {
	return s.sellerRepo.ProfileByUsername(ctx, username)
}

func (s *itemService) Buy(ctx context.Context, buyerUsername string, itemID int64) (*domain.Item, error) {
	buyer, err := s.userRepo.FindByUsername(ctx, buyerUsername)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve buyer: %w", err)
	}
	if buyer == nil {
		return nil, domain.ErrUserNotFound
	}

	item, err := s.itemRepo.Reserve(ctx, itemID, buyer.ID)
	if err != nil {
		return nil, err
	}

	s.publishItemEvent(ctx, events.ItemReserved, item)
	return item, nil
}

func (s *itemService) Sell(ctx context.Context, sellerUsername string, itemID int64) (*domain.Item, error) {
	profile, err := s.requireProfile(ctx, sellerUsername)
	if err != nil {
		return nil, err
	}

	item, err := s.itemRepo.Finalize(ctx, itemID, profile.ID)
	if err != nil {
		return nil, err
	}

	s.publishItemEvent(ctx, events.ItemSold, item)
	return item, nil
}

func (s *itemService) Deny(ctx context.Context, sellerUsername string, itemID int64) (*domain.Item, error) {
	profile, err := s.requireProfile(ctx, sellerUsername)
	if err != nil {
		return nil, err
	}

	item, err := s.itemRepo.Release(ctx, itemID, profile.ID)
	if err != nil {
		return nil, err
	}

	s.publishItemEvent(ctx, events.ItemReleased, item)
	return item, nil
}

// requireProfile resolves the seller profile of an account that already
// passed the SELLER gate. Absence means the approval invariant was violated
// somewhere; it is reported as a consistency failure, never patched over.
func (s *itemService) requireProfile(ctx context.Context, username string) (*domain.SellerProfile, error) {
	profile, err := s.sellerRepo.ProfileByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve seller profile: %w", err)
	}
	if profile == nil {
		logger.ErrorContext(ctx, "SELLER account has no seller profile", "username", username)
		return nil, domain.ErrNoSellerProfile
	}
	return profile, nil
}

func (s *itemService) publishItemEvent(ctx context.Context, subject string, item *domain.Item) {
	if err := s.eventBus.Publish(ctx, subject, events.ItemEvent{
		ItemID:   item.ID,
		SellerID: item.SellerID,
		BuyerID:  item.BuyerID,
		Status:   int(item.Status),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish item event", "error", err, "subject", subject, "item_id", item.ID)
	}
}
