package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/verimart/verimart/internal/domain"
	mw "github.com/verimart/verimart/internal/http/middleware"
	"github.com/verimart/verimart/internal/http/response"
	"github.com/verimart/verimart/internal/service"
	"github.com/verimart/verimart/pkg/logger"
)

type Handlers struct {
	authService    service.AuthService
	accountService service.AccountService
	adminService   service.AdminService
	itemService    service.ItemService
}

func New(
	authService service.AuthService,
	accountService service.AccountService,
	adminService service.AdminService,
	itemService service.ItemService,
) *Handlers {
	return &Handlers{
		authService:    authService,
		accountService: accountService,
		adminService:   adminService,
		itemService:    itemService,
	}
}

// RouterDeps carries the gate and the optional throttling backends. Nil
// Limiter or Idempotency simply leaves that middleware unmounted (tests).
type RouterDeps struct {
	Gate        *mw.Gate
	Limiter     mw.RateLimitStore
	Idempotency mw.IdempotencyStore
}

// NewRouter mounts the operation surface. Each route group declares its
// attribute requirement statically; the gate enforces it per request.
func NewRouter(h *Handlers, deps RouterDeps) chi.Router {
	gate := deps.Gate
	r := chi.NewRouter()

	r.Route("/auth", func(r chi.Router) {
		if deps.Limiter != nil {
			r.With(mw.RateLimit(deps.Limiter, "login", 10, time.Minute)).Post("/login", h.Login)
		} else {
			r.Post("/login", h.Login)
		}
		r.Post("/register", h.Register)

		r.Group(func(r chi.Router) {
			r.Use(gate.RequireAuth)
			r.Get("/attributes", h.Attributes)
			r.Post("/check", h.CheckAttribute)
		})
	})

	r.Route("/user", func(r chi.Router) {
		r.Use(gate.RequireAuth)

		r.Group(func(r chi.Router) {
			r.Use(gate.RequireAttributes(domain.AttrBuyer))
			r.Use(gate.ForbidAttributes(domain.AttrVerified))
			if deps.Limiter != nil {
				r.With(mw.RateLimit(deps.Limiter, "verify", 5, time.Minute)).Post("/verify/start", h.StartVerify)
			} else {
				r.Post("/verify/start", h.StartVerify)
			}
			r.Post("/verify/confirm", h.ConfirmVerify)
		})

		r.Group(func(r chi.Router) {
			r.Use(gate.RequireAttributes(domain.AttrBuyer, domain.AttrVerified))
			r.Use(gate.ForbidAttributes(domain.AttrSeller, domain.AttrPendingSeller))
			r.Post("/seller-application", h.ApplyAsSeller)
		})

		r.Group(func(r chi.Router) {
			r.Use(gate.RequireAttributes(domain.AttrBuyer, domain.AttrVerified))
			if deps.Idempotency != nil {
				r.Use(mw.Idempotency(deps.Idempotency))
			}
			r.Post("/items/{id}/buy", h.BuyItem)
		})

		r.With(gate.RequireAttributes(domain.AttrBuyer)).Get("/items", h.ListItems)
		r.Get("/seller-id", h.SellerID)
	})

	r.Route("/seller", func(r chi.Router) {
		r.Use(gate.RequireAuth)
		r.Use(gate.RequireAttributes(domain.AttrVerified, domain.AttrSeller))
		if deps.Idempotency != nil {
			r.Use(mw.Idempotency(deps.Idempotency))
		}
		r.Post("/items", h.CreateItem)
		r.Get("/items", h.SellerItems)
		r.Post("/items/{id}/sell", h.SellItem)
		r.Post("/items/{id}/deny", h.DenySale)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(gate.RequireAuth)
		r.Use(gate.RequireAttributes(domain.AttrAdmin))
		r.Post("/users", h.CreateAdmin)
		r.Get("/users", h.ListUsers)
		r.Get("/sellers", h.ListSellers)
		r.Post("/sellers/approve", h.ApproveSeller)
		r.Post("/sellers/revoke", h.RevokeSeller)
	})

	return r
}

// writeServiceError maps domain sentinels to response categories.
// Authentication and authorization denials never explain themselves;
// precondition failures do, because they reflect business state.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		response.BadRequest(w, err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		response.WriteError(w, http.StatusUnauthorized, "Invalid username or password", response.CodeUnauthorized)
	case errors.Is(err, domain.ErrDuplicateUsername):
		response.Conflict(w, "Username already taken")
	case errors.Is(err, domain.ErrInvalidCode):
		response.WriteError(w, http.StatusBadRequest, "Invalid or expired code", "INVALID_CODE")
	case errors.Is(err, domain.ErrNotPendingSeller):
		response.Conflict(w, "User has no pending seller application")
	case errors.Is(err, domain.ErrUserNotFound):
		response.NotFound(w, "User not found")
	case errors.Is(err, domain.ErrItemNotFound):
		response.NotFound(w, "Item not found")
	case errors.Is(err, domain.ErrItemUnavailable):
		response.Conflict(w, "Item is not available")
	case errors.Is(err, domain.ErrNotOwnedOrNotReserved):
		response.Conflict(w, "Item is not reserved or not owned by you")
	default:
		// Includes consistency failures (ErrNoSellerProfile) and store
		// errors: logged in full, surfaced generically.
		logger.ErrorContext(r.Context(), "Request failed", "error", err, "path", r.URL.Path)
		response.InternalError(w, "Internal server error")
	}
}
