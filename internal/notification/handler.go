package notification

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sipro/internal/platform/middleware"
	"sipro/internal/transport/http/shared"
	"sipro/pkg/domain"
	dErrors "sipro/pkg/domain-errors"
	"sipro/pkg/requestcontext"
)

// Handler exposes a user's notification inbox.
type Handler struct {
	inbox     *Service
	validator middleware.TokenValidator
	logger    *slog.Logger
}

func NewHandler(inbox *Service, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{inbox: inbox, validator: validator, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth(h.validator, h.logger))
	router.Get("/", h.handleList)
	router.Get("/unread-count", h.handleUnreadCount)
	router.Post("/read-all", h.handleMarkAllRead)
	router.Post("/{id}/read", h.handleMarkRead)
	router.Delete("/{id}", h.handleDelete)

	r.Mount("/notifications", router)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	out, err := h.inbox.List(ctx, requestcontext.UserID(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if out == nil {
		out = []*Notification{}
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	count, err := h.inbox.UnreadCount(ctx, requestcontext.UserID(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int{"unread": count})
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.inbox.MarkAllRead(ctx, requestcontext.UserID(ctx)); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := notificationIDFromURL(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.inbox.MarkRead(ctx, id, requestcontext.UserID(ctx)); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := notificationIDFromURL(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.inbox.Delete(ctx, id, requestcontext.UserID(ctx)); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func notificationIDFromURL(r *http.Request) (domain.NotificationID, error) {
	id, err := domain.ParseNotificationID(chi.URLParam(r, "id"))
	if err != nil {
		return domain.NotificationID{}, dErrors.New(dErrors.CodeValidation, "invalid notification id")
	}
	return id, nil
}
