package customer

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

type RegisterRequest struct {
	FullName string     `json:"full_name" validate:"required,max=100"`
	Phone    string     `json:"phone" validate:"max=20"`
	AgentID  *uuid.UUID `json:"agent_id,omitempty"`
}

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

	in := RegisterInput{
		FullName:      req.FullName,
		Phone:         req.Phone,
		RequesterID:   middleware.GetUserID(r.Context()),
		RequesterRole: middleware.GetRole(r.Context()),
	}
	if req.AgentID != nil {
		in.AgentID = uuid.NullUUID{UUID: *req.AgentID, Valid: true}
	}

	c, ap, err := h.svc.Register(r.Context(), in)
	if err != nil {
		if errors.Is(err, ErrCodeConflict) {
			response.Conflict(w, "customer code conflict, retry the request")
			return
		}
		response.InternalError(w)
		return
	}

	response.Created(w, map[string]interface{}{"customer": c, "approval": ap})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid customer id")
		return
	}

	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "customer not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, c)
}

func (h *Handler) ListByAgent(w http.ResponseWriter, r *http.Request) {
	agentID, err := uuid.Parse(chi.URLParam(r, "agentID"))
	if err != nil {
		response.BadRequest(w, "invalid agent id")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	items, total, err := h.svc.ListByAgent(r.Context(), agentID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.WithMeta(w, items, response.Meta{Total: total, Offset: offset, Limit: limit})
}

func (h *Handler) Routes(auth, requireBackOffice func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth)

	r.Post("/", h.Register)
	r.Get("/{id}", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(requireBackOffice)
		r.Get("/by-agent/{agentID}", h.ListByAgent)
	})

	return r
}
