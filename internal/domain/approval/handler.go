package approval

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

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

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	a, err := h.svc.Submit(r.Context(), SubmitInput{
		Type:           Type(req.Type),
		TargetID:       req.TargetID,
		TargetType:     req.TargetType,
		TargetSnapshot: req.TargetSnapshot,
		RequesterID:    middleware.GetUserID(r.Context()),
		RequesterRole:  middleware.GetRole(r.Context()),
		Reason:         req.Reason,
		StepRoles:      req.StepRoles,
		TimeoutHours:   req.TimeoutHours,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, a)
}

func (h *Handler) ActOnStep(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid approval id")
		return
	}
	order, err := strconv.Atoi(chi.URLParam(r, "order"))
	if err != nil || order < 1 {
		response.BadRequest(w, "invalid step order")
		return
	}

	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	actor := Actor{ID: middleware.GetUserID(r.Context()), Role: middleware.GetRole(r.Context())}
	a, err := h.svc.ActOnStep(r.Context(), id, order, Decision(req.Decision), req.Notes, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, a)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid approval id")
		return
	}

	actor := Actor{ID: middleware.GetUserID(r.Context()), Role: middleware.GetRole(r.Context())}
	a, err := h.svc.Cancel(r.Context(), id, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, a)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid approval id")
		return
	}

	a, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, a)
}

func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	items, total, err := h.svc.ListPendingForRole(r.Context(), middleware.GetRole(r.Context()), limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.WithMeta(w, items, response.Meta{Total: total, Offset: offset, Limit: limit})
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	items, total, err := h.svc.ListByRequester(r.Context(), middleware.GetUserID(r.Context()), limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.WithMeta(w, items, response.Meta{Total: total, Offset: offset, Limit: limit})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrStepNotFound):
		response.NotFound(w, "approval or step not found")
	case errors.Is(err, ErrOutOfOrder):
		response.OutOfOrder(w, "approval steps must be acted on in order")
	case errors.Is(err, ErrForbidden):
		response.Forbidden(w, "your role cannot act on this step")
	case errors.Is(err, ErrAlreadyProcessed):
		response.AlreadyProcessed(w, "approval or step already processed")
	case errors.Is(err, ErrInvalidState):
		response.InvalidState(w, "approval status does not allow this action")
	case errors.Is(err, ErrInvalidArgument):
		response.BadRequest(w, "invalid approval arguments")
	default:
		response.InternalError(w)
	}
}

func (h *Handler) Routes(auth, requireBackOffice func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth)

	r.Post("/", h.Submit)
	r.Get("/mine", h.ListMine)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/cancel", h.Cancel)

	r.Group(func(r chi.Router) {
		r.Use(requireBackOffice)
		r.Get("/pending", h.ListPending)
		r.Post("/{id}/steps/{order}", h.ActOnStep)
	})

	return r
}
