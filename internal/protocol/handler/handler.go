// Package handler exposes the protocol lifecycle over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sipro/internal/access"
	"sipro/internal/platform/middleware"
	"sipro/internal/protocol/models"
	"sipro/internal/protocol/service"
	"sipro/internal/protocol/store"
	"sipro/internal/transport/http/shared"
	"sipro/pkg/domain"
	dErrors "sipro/pkg/domain-errors"
	"sipro/pkg/requestcontext"
)

// Service is the slice of the lifecycle engine the handler consumes.
type Service interface {
	Create(ctx context.Context, in service.CreateInput) (*models.Protocol, error)
	GetProtocol(ctx context.Context, id domain.ProtocolID, actor access.Actor) (*models.Protocol, []*models.RoutingEntry, error)
	ListProtocols(ctx context.Context, actor access.Actor, filter store.Filter) ([]*models.Protocol, error)
	ConfirmReceipt(ctx context.Context, id domain.ProtocolID, actor access.Actor, credential string) error
	Route(ctx context.Context, id domain.ProtocolID, actor access.Actor, newDestinationID domain.SectorID, note string) error
	Archive(ctx context.Context, id domain.ProtocolID, actor access.Actor) error
	Unarchive(ctx context.Context, id domain.ProtocolID, actor access.Actor) error
	Delete(ctx context.Context, id domain.ProtocolID, actor access.Actor) error
}

// Handler routes protocol endpoints.
type Handler struct {
	protocols Service
	validator middleware.TokenValidator
	logger    *slog.Logger
}

func New(protocols Service, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{protocols: protocols, validator: validator, logger: logger}
}

// Register mounts the protocol routes. Everything requires a valid session.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth(h.validator, h.logger))
	router.Post("/", h.handleCreate)
	router.Get("/", h.handleList)
	router.Get("/{id}", h.handleGet)
	router.Post("/{id}/receive", h.handleConfirmReceipt)
	router.Post("/{id}/route", h.handleRoute)
	router.Post("/{id}/archive", h.handleArchive)
	router.Post("/{id}/unarchive", h.handleUnarchive)
	router.Delete("/{id}", h.handleDelete)

	r.Mount("/protocols", router)
}

func actorFrom(ctx context.Context) access.Actor {
	return access.Actor{
		UserID:   requestcontext.UserID(ctx),
		Role:     requestcontext.Role(ctx),
		SectorID: requestcontext.SectorID(ctx),
	}
}

type createRequest struct {
	DocumentTypeID      string `json:"document_type_id"`
	Subject             string `json:"subject"`
	Description         string `json:"description"`
	DestinationSectorID string `json:"destination_sector_id"`
	FileRef             string `json:"file_ref"`
}

type protocolResponse struct {
	*models.Protocol
	Trail []*models.RoutingEntry `json:"routing_entries,omitempty"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	docTypeID, err := domain.ParseDocumentTypeID(req.DocumentTypeID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid document_type_id"))
		return
	}
	destinationID, err := domain.ParseSectorID(req.DestinationSectorID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid destination_sector_id"))
		return
	}

	actor := actorFrom(ctx)
	p, err := h.protocols.Create(ctx, service.CreateInput{
		CreatorID:           actor.UserID,
		CreatorSectorID:     actor.SectorID,
		DocumentTypeID:      docTypeID,
		Subject:             req.Subject,
		Description:         req.Description,
		DestinationSectorID: destinationID,
		FileRef:             req.FileRef,
	})
	if err != nil {
		h.logError(ctx, "protocol creation failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, protocolResponse{Protocol: p})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := filterFromQuery(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out, err := h.protocols.ListProtocols(ctx, actorFrom(ctx), filter)
	if err != nil {
		h.logError(ctx, "protocol listing failed", err)
		shared.WriteError(w, err)
		return
	}
	if out == nil {
		out = []*models.Protocol{}
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func filterFromQuery(r *http.Request) (store.Filter, error) {
	var filter store.Filter
	q := r.URL.Query()

	if raw := q.Get("status"); raw != "" {
		status, err := models.ParseStatus(raw)
		if err != nil {
			return filter, err
		}
		filter.Status = status
	}
	if raw := q.Get("destination_sector_id"); raw != "" {
		id, err := domain.ParseSectorID(raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeValidation, "invalid destination_sector_id")
		}
		filter.DestinationSectorID = id
	}
	if raw := q.Get("document_type_id"); raw != "" {
		id, err := domain.ParseDocumentTypeID(raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeValidation, "invalid document_type_id")
		}
		filter.DocumentTypeID = id
	}
	if raw := q.Get("created_from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeValidation, "invalid created_from date")
		}
		filter.CreatedFrom = t
	}
	if raw := q.Get("created_to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeValidation, "invalid created_to date")
		}
		// Inclusive end of day.
		filter.CreatedTo = t.Add(24*time.Hour - time.Nanosecond)
	}
	filter.Term = q.Get("term")
	return filter, nil
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := protocolIDFromURL(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	p, trail, err := h.protocols.GetProtocol(ctx, id, actorFrom(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, protocolResponse{Protocol: p, Trail: trail})
}

type receiveRequest struct {
	Password string `json:"password"`
}

func (h *Handler) handleConfirmReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := protocolIDFromURL(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req receiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.protocols.ConfirmReceipt(ctx, id, actorFrom(ctx), req.Password); err != nil {
		h.logError(ctx, "receipt confirmation failed", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type routeRequest struct {
	DestinationSectorID string `json:"destination_sector_id"`
	Note                string `json:"note"`
}

func (h *Handler) handleRoute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := protocolIDFromURL(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req routeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	destinationID, err := domain.ParseSectorID(req.DestinationSectorID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid destination_sector_id"))
		return
	}
	if err := h.protocols.Route(ctx, id, actorFrom(ctx), destinationID, req.Note); err != nil {
		h.logError(ctx, "routing failed", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, h.protocols.Archive)
}

func (h *Handler) handleUnarchive(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, h.protocols.Unarchive)
}

func (h *Handler) simpleTransition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id domain.ProtocolID, actor access.Actor) error) {
	ctx := r.Context()
	id, err := protocolIDFromURL(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := op(ctx, id, actorFrom(ctx)); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, h.protocols.Delete)
}

func protocolIDFromURL(r *http.Request) (domain.ProtocolID, error) {
	id, err := domain.ParseProtocolID(chi.URLParam(r, "id"))
	if err != nil {
		return domain.ProtocolID{}, dErrors.New(dErrors.CodeValidation, "invalid protocol id")
	}
	return id, nil
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx), "error", err)
		return
	}
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx), "error", err)
}
