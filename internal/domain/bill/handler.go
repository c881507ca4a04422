package bill

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/coolnight20187/python-7ty-system/internal/domain/ledger"
	"github.com/coolnight20187/python-7ty-system/internal/middleware"
	"github.com/coolnight20187/python-7ty-system/internal/pkg/response"
	"github.com/coolnight20187/python-7ty-system/internal/pkg/validator"
)

// PaymentService settles a bill export: it creates and confirms the payment
// transaction and marks the bill sold in one unit of work.
type PaymentService interface {
	PayBill(ctx context.Context, billID, actorID uuid.UUID, actorRole, paymentMethod, notes string) (*PaymentResult, error)
}

type Handler struct {
	svc      *Service
	payments PaymentService
}

func NewHandler(svc *Service, payments PaymentService) *Handler {
	return &Handler{svc: svc, payments: payments}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	b := &Bill{
		CustomerCode:   req.CustomerCode,
		CustomerName:   req.CustomerName,
		ProviderID:     req.ProviderID,
		Period:         req.Period,
		PreviousAmount: req.PreviousAmount,
		CurrentAmount:  req.CurrentAmount,
		TotalAmount:    req.TotalAmount,
		Notes:          req.Notes,
	}
	created, err := h.svc.Create(r.Context(), b, middleware.GetUserID(r.Context()), middleware.GetRole(r.Context()))
	if err != nil {
		if errors.Is(err, ErrInvalidBill) {
			response.BadRequest(w, "bill amounts must be non-negative and total positive")
			return
		}
		response.InternalError(w)
		return
	}

	response.Created(w, created)
}

func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	var req LookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	bills, err := h.svc.Lookup(r.Context(), req.CustomerCode, req.ProviderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "no bills found for customer code")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, bills)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid bill id")
		return
	}

	b, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "bill not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, b)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	status := Status(r.URL.Query().Get("status"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	bills, total, err := h.svc.List(r.Context(), status, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.WithMeta(w, bills, response.Meta{Total: total, Offset: offset, Limit: limit})
}

func (h *Handler) Reserve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid bill id")
		return
	}

	b, err := h.svc.Reserve(r.Context(), id, middleware.GetUserID(r.Context()), middleware.GetRole(r.Context()))
	if err != nil {
		h.writeBillError(w, err)
		return
	}

	response.OK(w, b)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid bill id")
		return
	}

	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.payments.PayBill(r.Context(), id, middleware.GetUserID(r.Context()), middleware.GetRole(r.Context()), req.PaymentMethod, req.Notes)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			response.InsufficientFunds(w, "balance is not enough to pay this bill")
			return
		}
		h.writeBillError(w, err)
		return
	}

	response.OK(w, result)
}

func (h *Handler) writeBillError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "bill not found")
	case errors.Is(err, ErrBillSold):
		response.Conflict(w, "bill has already been sold")
	case errors.Is(err, ErrNotAvailable):
		response.InvalidState(w, "bill is not available")
	default:
		response.InternalError(w)
	}
}

func (h *Handler) Routes(auth, requireBackOffice, requireAgent func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth)

	r.Post("/lookup", h.Lookup)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(requireBackOffice)
		r.Post("/", h.Create)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAgent)
		r.Post("/{id}/reserve", h.Reserve)
		r.Post("/{id}/export", h.Export)
	})

	return r
}
