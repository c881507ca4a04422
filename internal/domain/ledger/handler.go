package ledger

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/coolnight20187/python-7ty-system/internal/middleware"
	"github.com/coolnight20187/python-7ty-system/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) MyBalance(w http.ResponseWriter, r *http.Request) {
	h.writeBalance(w, r, middleware.GetUserID(r.Context()))
}

func (h *Handler) BalanceOf(w http.ResponseWriter, r *http.Request) {
	ownerID, err := uuid.Parse(chi.URLParam(r, "ownerID"))
	if err != nil {
		response.BadRequest(w, "invalid owner id")
		return
	}
	h.writeBalance(w, r, ownerID)
}

func (h *Handler) writeBalance(w http.ResponseWriter, r *http.Request, ownerID uuid.UUID) {
	b, err := h.svc.GetBalance(r.Context(), ownerID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			response.NotFound(w, "balance account not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, b)
}

func (h *Handler) Routes(auth, requireBackOffice func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth)

	r.Get("/balance", h.MyBalance)

	r.Group(func(r chi.Router) {
		r.Use(requireBackOffice)
		r.Get("/balance/{ownerID}", h.BalanceOf)
	})

	return r
}
