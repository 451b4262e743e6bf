package directory

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sipro/internal/platform/middleware"
	"sipro/internal/transport/http/shared"
	"sipro/pkg/domain"
	dErrors "sipro/pkg/domain-errors"
)

// Handler exposes the directory: sectors and document types are readable by
// any authenticated user; writes are admin-only.
type Handler struct {
	directory *Service
	validator middleware.TokenValidator
	logger    *slog.Logger
}

func NewHandler(directory *Service, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{directory: directory, validator: validator, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth(h.validator, h.logger))

	router.Get("/sectors", h.handleListSectors)
	router.Get("/document-types", h.handleListDocumentTypes)

	router.Group(func(admin chi.Router) {
		admin.Use(middleware.RequireRole(h.logger, domain.RoleAdmin))
		admin.Post("/sectors", h.handleCreateSector)
		admin.Post("/document-types", h.handleCreateDocumentType)
		admin.Post("/users", h.handleCreateUser)
		admin.Post("/users/{id}/deactivate", h.handleDeactivateUser)
	})

	r.Mount("/directory", router)
}

func (h *Handler) handleListSectors(w http.ResponseWriter, r *http.Request) {
	out, err := h.directory.ListSectors(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

type createSectorRequest struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (h *Handler) handleCreateSector(w http.ResponseWriter, r *http.Request) {
	var req createSectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	sector, err := h.directory.CreateSector(r.Context(), req.Name, req.Code, req.Description)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, sector)
}

func (h *Handler) handleListDocumentTypes(w http.ResponseWriter, r *http.Request) {
	out, err := h.directory.ListDocumentTypes(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

type createDocumentTypeRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	DeadlineDays int    `json:"deadline_days"`
}

func (h *Handler) handleCreateDocumentType(w http.ResponseWriter, r *http.Request) {
	var req createDocumentTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	dt, err := h.directory.CreateDocumentType(r.Context(), req.Name, req.Description, req.DeadlineDays)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, dt)
}

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	SectorID string `json:"sector_id"`
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var sectorID domain.SectorID
	if req.SectorID != "" {
		sectorID, err = domain.ParseSectorID(req.SectorID)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid sector_id"))
			return
		}
	}
	user, err := h.directory.CreateUser(r.Context(), CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
		SectorID: sectorID,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid user id"))
		return
	}
	if err := h.directory.DeactivateUser(r.Context(), id); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
