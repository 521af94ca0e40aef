package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/verimart/verimart/internal/domain"
	"github.com/verimart/verimart/internal/mailer"
	"github.com/verimart/verimart/internal/repo/postgres"
	"github.com/verimart/verimart/pkg/config"
	"github.com/verimart/verimart/pkg/events"
	"github.com/verimart/verimart/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// AccountService drives the account-upgrade workflows: the one-time-code
// verification challenge and the seller application.
type AccountService interface {
	StartVerification(ctx context.Context, username string) error
	ConfirmVerification(ctx context.Context, username, code string) error
	ApplyAsSeller(ctx context.Context, username string) error
}

type accountService struct {
	verifyRepo postgres.VerifyRepo
	userRepo   postgres.UserRepo
	mailer     mailer.Service
	eventBus   events.Publisher
	config     *config.Config
}

func NewAccountService(
	verifyRepo postgres.VerifyRepo,
	userRepo postgres.UserRepo,
	mailer mailer.Service,
	eventBus events.Publisher,
	config *config.Config,
) AccountService {
	return &accountService{
		verifyRepo: verifyRepo,
		userRepo:   userRepo,
		mailer:     mailer,
		eventBus:   eventBus,
		config:     config,
	}
}

// StartVerification issues a fresh challenge, overwriting any pending one.
// Only the bcrypt hash of the code is stored; the plaintext goes out of band.
func (s *accountService) StartVerification(ctx context.Context, username string) error {
	code, err := generateVerificationCode()
	if err != nil {
		return fmt.Errorf("failed to generate verification code: %w", err)
	}

	codeHash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash verification code: %w", err)
	}

	expiresAt := time.Now().Add(s.config.Auth.VerifyCodeTTL)
	if err := s.verifyRepo.SetChallenge(ctx, username, string(codeHash), expiresAt); err != nil {
		return fmt.Errorf("failed to store verification challenge: %w", err)
	}

	if err := s.mailer.SendVerificationCode(username, code); err != nil {
		logger.ErrorContext(ctx, "Failed to deliver verification code", "error", err, "username", username)
		// The challenge exists; the caller can re-issue if delivery failed.
	}

	return nil
}

// ConfirmVerification redeems a code. The three failure modes are logged
// separately but collapse to domain.ErrInvalidCode for the caller so the
// response does not reveal whether a challenge exists or merely expired.
func (s *accountService) ConfirmVerification(ctx context.Context, username, code string) error {
	if code == "" {
		return fmt.Errorf("%w: code is required", domain.ErrValidation)
	}

	hash, expiresAt, err := s.verifyRepo.GetChallenge(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to load verification challenge: %w", err)
	}
	if hash == nil || expiresAt == nil {
		logger.WarnContext(ctx, "Verification rejected", "reason", domain.ErrNoPendingChallenge.Error(), "username", username)
		return domain.ErrInvalidCode
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*hash), []byte(code)); err != nil {
		logger.WarnContext(ctx, "Verification rejected", "reason", domain.ErrCodeMismatch.Error(), "username", username)
		return domain.ErrInvalidCode
	}

	if time.Now().After(*expiresAt) {
		logger.WarnContext(ctx, "Verification rejected", "reason", domain.ErrCodeExpired.Error(), "username", username)
		return domain.ErrInvalidCode
	}

	if err := s.verifyRepo.Consume(ctx, username); err != nil {
		return fmt.Errorf("failed to consume verification challenge: %w", err)
	}

	if err := s.eventBus.Publish(ctx, events.AccountVerified, events.AccountVerifiedEvent{
		Username:   username,
		VerifiedAt: time.Now(),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish account.verified", "error", err, "username", username)
	}

	return nil
}

// ApplyAsSeller records a pending application as an additive union; the
// admin approval transition later swaps it for SELLER.
func (s *accountService) ApplyAsSeller(ctx context.Context, username string) error {
	if err := s.userRepo.AddAttribute(ctx, username, domain.AttrPendingSeller); err != nil {
		return fmt.Errorf("failed to record seller application: %w", err)
	}

	if err := s.eventBus.Publish(ctx, events.SellerApplied, events.SellerAppliedEvent{
		Username:  username,
		AppliedAt: time.Now(),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish seller.applied", "error", err, "username", username)
	}

	return nil
}

// generateVerificationCode returns a 6-digit numeric code from crypto/rand.
func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
