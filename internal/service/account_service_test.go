package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/verimart/verimart/internal/domain"
	"github.com/verimart/verimart/pkg/config"
	"github.com/verimart/verimart/pkg/events"
)

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:      "test-secret",
			AccessTokenTTL: time.Hour,
			VerifyCodeTTL:  5 * time.Minute,
		},
	}
}

type accountFixture struct {
	svc    AccountService
	users  *memUserRepo
	mailer *stubMailer
	bus    *stubPublisher
	cfg    *config.Config
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()
	users := newMemUserRepo()
	if _, err := users.Create(context.Background(), "alice", "hash", domain.DefaultAttributes()); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	mailer := &stubMailer{}
	bus := &stubPublisher{}
	cfg := testConfig()
	return &accountFixture{
		svc:    NewAccountService(&memVerifyRepo{users: users}, users, mailer, bus, cfg),
		users:  users,
		mailer: mailer,
		bus:    bus,
		cfg:    cfg,
	}
}

var codePattern = regexp.MustCompile(`^\d{6}$`)

func TestStartVerificationIssuesChallenge(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	if err := f.svc.StartVerification(ctx, "alice"); err != nil {
		t.Fatalf("StartVerification() error = %v", err)
	}

	if !codePattern.MatchString(f.mailer.lastCode()) {
		t.Errorf("mailed code %q is not 6 digits", f.mailer.lastCode())
	}

	u, _ := f.users.FindByUsername(ctx, "alice")
	if u.CodeHash == nil || u.CodeExpires == nil {
		t.Fatal("challenge was not stored")
	}
	if *u.CodeHash == f.mailer.lastCode() {
		t.Error("plaintext code was stored instead of a hash")
	}
	wantExpiry := time.Now().Add(f.cfg.Auth.VerifyCodeTTL)
	if diff := u.CodeExpires.Sub(wantExpiry); diff < -time.Minute || diff > time.Minute {
		t.Errorf("expiry %v not near %v", u.CodeExpires, wantExpiry)
	}
}

func TestStartVerificationUnknownUser(t *testing.T) {
	f := newAccountFixture(t)

	err := f.svc.StartVerification(context.Background(), "nobody")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("StartVerification() error = %v, want ErrUserNotFound", err)
	}
}

// Delivery failure must not lose the challenge; the caller can re-issue.
func TestStartVerificationDeliveryFailure(t *testing.T) {
	f := newAccountFixture(t)
	f.mailer.err = errors.New("smtp down")

	if err := f.svc.StartVerification(context.Background(), "alice"); err != nil {
		t.Fatalf("StartVerification() error = %v, want nil despite delivery failure", err)
	}

	u, _ := f.users.FindByUsername(context.Background(), "alice")
	if u.CodeHash == nil {
		t.Fatal("challenge was dropped on delivery failure")
	}
}

func TestConfirmVerification(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	if err := f.svc.StartVerification(ctx, "alice"); err != nil {
		t.Fatalf("StartVerification() error = %v", err)
	}
	if err := f.svc.ConfirmVerification(ctx, "alice", f.mailer.lastCode()); err != nil {
		t.Fatalf("ConfirmVerification() error = %v", err)
	}

	if !f.users.holds("alice", domain.AttrVerified) {
		t.Error("VERIFIED was not granted")
	}
	if f.users.holds("alice", domain.AttrBuyer) == false || f.users.holds("alice", domain.AttrNewUser) == false {
		t.Error("verification disturbed unrelated attributes")
	}
	u, _ := f.users.FindByUsername(ctx, "alice")
	if u.CodeHash != nil || u.CodeExpires != nil {
		t.Error("challenge was not cleared after redemption")
	}
	if !f.bus.published(events.AccountVerified) {
		t.Error("account.verified event was not published")
	}
}

func TestConfirmVerificationRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("no pending challenge", func(t *testing.T) {
		f := newAccountFixture(t)
		err := f.svc.ConfirmVerification(ctx, "alice", "123456")
		if !errors.Is(err, domain.ErrInvalidCode) {
			t.Fatalf("error = %v, want ErrInvalidCode", err)
		}
	})

	t.Run("wrong code", func(t *testing.T) {
		f := newAccountFixture(t)
		if err := f.svc.StartVerification(ctx, "alice"); err != nil {
			t.Fatal(err)
		}
		wrong := "000000"
		if wrong == f.mailer.lastCode() {
			wrong = "000001"
		}
		err := f.svc.ConfirmVerification(ctx, "alice", wrong)
		if !errors.Is(err, domain.ErrInvalidCode) {
			t.Fatalf("error = %v, want ErrInvalidCode", err)
		}
		if f.users.holds("alice", domain.AttrVerified) {
			t.Error("VERIFIED was granted on a wrong code")
		}
	})

	t.Run("expired code", func(t *testing.T) {
		f := newAccountFixture(t)
		f.cfg.Auth.VerifyCodeTTL = -time.Minute
		if err := f.svc.StartVerification(ctx, "alice"); err != nil {
			t.Fatal(err)
		}
		err := f.svc.ConfirmVerification(ctx, "alice", f.mailer.lastCode())
		if !errors.Is(err, domain.ErrInvalidCode) {
			t.Fatalf("error = %v, want ErrInvalidCode", err)
		}
		if f.users.holds("alice", domain.AttrVerified) {
			t.Error("VERIFIED was granted on an expired code")
		}
	})

	t.Run("empty code", func(t *testing.T) {
		f := newAccountFixture(t)
		err := f.svc.ConfirmVerification(ctx, "alice", "")
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("error = %v, want ErrValidation", err)
		}
	})
}

func TestConfirmVerificationSingleUse(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	if err := f.svc.StartVerification(ctx, "alice"); err != nil {
		t.Fatal(err)
	}
	code := f.mailer.lastCode()
	if err := f.svc.ConfirmVerification(ctx, "alice", code); err != nil {
		t.Fatalf("first redemption error = %v", err)
	}

	err := f.svc.ConfirmVerification(ctx, "alice", code)
	if !errors.Is(err, domain.ErrInvalidCode) {
		t.Fatalf("second redemption error = %v, want ErrInvalidCode", err)
	}
}

// Re-issuing replaces the pending challenge; the old code stops working.
func TestReissueInvalidatesPreviousCode(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	if err := f.svc.StartVerification(ctx, "alice"); err != nil {
		t.Fatal(err)
	}
	first := f.mailer.lastCode()
	if err := f.svc.StartVerification(ctx, "alice"); err != nil {
		t.Fatal(err)
	}
	second := f.mailer.lastCode()
	if first == second {
		t.Skip("codes collided; cannot distinguish challenges")
	}

	if err := f.svc.ConfirmVerification(ctx, "alice", first); !errors.Is(err, domain.ErrInvalidCode) {
		t.Fatalf("old code redemption error = %v, want ErrInvalidCode", err)
	}
	if err := f.svc.ConfirmVerification(ctx, "alice", second); err != nil {
		t.Fatalf("current code redemption error = %v", err)
	}
}

func TestApplyAsSeller(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	if err := f.svc.ApplyAsSeller(ctx, "alice"); err != nil {
		t.Fatalf("ApplyAsSeller() error = %v", err)
	}
	if !f.users.holds("alice", domain.AttrPendingSeller) {
		t.Error("PENDING_SELLER was not granted")
	}
	if !f.bus.published(events.SellerApplied) {
		t.Error("seller.applied event was not published")
	}

	// Applying twice is an additive union, not an error.
	if err := f.svc.ApplyAsSeller(ctx, "alice"); err != nil {
		t.Fatalf("second ApplyAsSeller() error = %v", err)
	}
}
