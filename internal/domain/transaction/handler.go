package transaction

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/coolnight20187/python-7ty-system/internal/domain/bill"
	"github.com/coolnight20187/python-7ty-system/internal/domain/ledger"
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

	in := CreateInput{
		Type:              Type(req.Type),
		Amount:            req.Amount,
		FeeAmount:         req.FeeAmount,
		ActorID:           middleware.GetUserID(r.Context()),
		ActorRole:         middleware.GetRole(r.Context()),
		RelatedEntityType: req.RelatedEntityType,
		PaymentMethod:     req.PaymentMethod,
		Notes:             req.Notes,
	}
	if req.RelatedEntityID != nil {
		in.RelatedEntityID = uuid.NullUUID{UUID: *req.RelatedEntityID, Valid: true}
	}

	t, err := h.svc.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, t)
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid transaction id")
		return
	}

	actor := Actor{ID: middleware.GetUserID(r.Context()), Role: middleware.GetRole(r.Context())}
	t, err := h.svc.Confirm(r.Context(), id, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, t)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid transaction id")
		return
	}

	// The body is optional; a bare cancel carries no reason.
	var req VoidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	actor := Actor{ID: middleware.GetUserID(r.Context()), Role: middleware.GetRole(r.Context())}
	t, err := h.svc.Cancel(r.Context(), id, actor, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, t)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid transaction id")
		return
	}

	t, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, t)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	items, total, err := h.svc.ListByActor(r.Context(), middleware.GetUserID(r.Context()), limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.WithMeta(w, items, response.Meta{Total: total, Offset: offset, Limit: limit})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "transaction not found")
	case errors.Is(err, ErrInvalidState):
		response.InvalidState(w, "transaction status does not allow this transition")
	case errors.Is(err, ErrInvalidAmount):
		response.BadRequest(w, "amount must be greater than zero")
	case errors.Is(err, ErrInvalidArgument):
		response.BadRequest(w, "invalid transaction arguments")
	case errors.Is(err, ErrCodeConflict):
		response.Conflict(w, "transaction code already exists, retry the request")
	case errors.Is(err, ErrLimitExceeded):
		response.LimitExceeded(w, "daily or monthly withdrawal limit exceeded")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		response.InsufficientFunds(w, "balance is not enough for this transaction")
	case errors.Is(err, ledger.ErrAccountNotFound):
		response.NotFound(w, "balance account not found")
	case errors.Is(err, bill.ErrBillSold):
		response.Conflict(w, "bill has already been sold")
	case errors.Is(err, bill.ErrNotAvailable):
		response.InvalidState(w, "bill is not available")
	default:
		response.InternalError(w)
	}
}

func (h *Handler) Routes(auth, requireBackOffice func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth)

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/cancel", h.Cancel)

	r.Group(func(r chi.Router) {
		r.Use(requireBackOffice)
		r.Post("/{id}/confirm", h.Confirm)
	})

	return r
}
