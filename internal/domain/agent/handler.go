package agent

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/coolnight20187/python-7ty-system/internal/domain/ledger"
	"github.com/coolnight20187/python-7ty-system/internal/domain/transaction"
	"github.com/coolnight20187/python-7ty-system/internal/middleware"
	"github.com/coolnight20187/python-7ty-system/internal/pkg/response"
	"github.com/coolnight20187/python-7ty-system/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	a, ap, err := h.svc.Register(r.Context(), RegisterInput{
		UserID:  middleware.GetUserID(r.Context()),
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Address: req.Address,
		Level:   req.Level,
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyRegistered) {
			response.Conflict(w, "user already has an agent profile")
			return
		}
		if errors.Is(err, ErrCodeConflict) {
			response.Conflict(w, "agent code collision, retry the request")
			return
		}
		response.InternalError(w)
		return
	}

	response.Created(w, map[string]interface{}{"agent": a, "approval": ap})
}

func (h *Handler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req WithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	t, ap, err := h.svc.RequestWithdrawal(r.Context(), WithdrawalInput{
		UserID:        middleware.GetUserID(r.Context()),
		Role:          middleware.GetRole(r.Context()),
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, transaction.ErrInvalidAmount):
			response.BadRequest(w, "amount must be greater than zero")
		case errors.Is(err, transaction.ErrLimitExceeded):
			response.LimitExceeded(w, "daily or monthly withdrawal limit exceeded")
		case errors.Is(err, ledger.ErrInsufficientFunds):
			response.InsufficientFunds(w, "balance is not enough for this withdrawal")
		case errors.Is(err, ledger.ErrAccountNotFound):
			response.NotFound(w, "balance account not found")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, map[string]interface{}{"transaction": t, "approval": ap})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid agent id")
		return
	}

	a, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "agent not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, a)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.GetByUserID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "agent profile not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, a)
}

func (h *Handler) Routes(auth, requireBackOffice, requireAgent func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth)

	r.Post("/", h.Register)
	r.Get("/me", h.Me)

	r.Group(func(r chi.Router) {
		r.Use(requireAgent)
		r.Post("/withdrawals", h.RequestWithdrawal)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireBackOffice)
		r.Get("/{id}", h.Get)
	})

	return r
}
