package domain

import "errors"

// Sentinel errors shared between services, repositories and handlers.
// Handlers match with errors.Is and map to response categories; services may
// wrap these with fmt.Errorf("...: %w", err) for context.
var (
	// Validation: malformed input, nothing was mutated.
	ErrValidation = errors.New("validation failed")

	// Authentication.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// Authorization gate configuration: a requirement named an attribute the
	// catalog does not know. Operator error, surfaced as an internal error.
	ErrUnknownAttribute = errors.New("unknown attribute in requirement")

	// Preconditions: business state did not allow the transition.
	ErrDuplicateUsername     = errors.New("username already taken")
	ErrUserNotFound          = errors.New("user not found")
	ErrNotPendingSeller      = errors.New("user has no pending seller application")
	ErrItemNotFound          = errors.New("item not found")
	ErrItemUnavailable       = errors.New("item is not available")
	ErrNotOwnedOrNotReserved = errors.New("item not owned by caller or not reserved")

	// Verification challenge. The three internal outcomes are kept distinct
	// for telemetry but callers only ever see ErrInvalidCode.
	ErrInvalidCode        = errors.New("invalid or expired code")
	ErrNoPendingChallenge = errors.New("no pending verification challenge")
	ErrCodeMismatch       = errors.New("verification code mismatch")
	ErrCodeExpired        = errors.New("verification code expired")

	// Consistency: an invariant the role-transition operations guarantee was
	// found broken (e.g. SELLER attribute without a seller profile). Fatal,
	// never patched over.
	ErrNoSellerProfile = errors.New("seller profile missing for seller account")
)
