package families

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"archive-backend/internal/shared/server/middleware"
	"archive-backend/internal/shared/server/respond"
	"archive-backend/internal/users"
)

type Handler struct {
	Svc   *Service
	Users *users.Service
}

func NewHandler(svc *Service, usersSvc *users.Service) *Handler {
	return &Handler{Svc: svc, Users: usersSvc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/family", h.get)
	rg.PATCH("/family", h.rename)
}

type memberResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	PictureURL string `json:"pictureUrl,omitempty"`
}

func (h *Handler) get(c *gin.Context) {
	if middleware.IsGuestFromContext(c) {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "login required", nil)
		return
	}
	familyID := middleware.FamilyIDFromContext(c)
	fam, err := h.Svc.Get(c.Request.Context(), familyID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "family not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load family", nil)
		return
	}

	memberRows, err := h.Users.ListByFamily(c.Request.Context(), familyID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load family members", nil)
		return
	}
	members := make([]memberResponse, 0, len(memberRows))
	for _, m := range memberRows {
		members = append(members, memberResponse{
			ID:         m.ID,
			Name:       m.DisplayName(),
			Email:      m.Email,
			PictureURL: m.PictureURL,
		})
	}

	respond.JSON(c, http.StatusOK, gin.H{
		"id":        fam.ID,
		"name":      fam.Name,
		"createdAt": fam.CreatedAt,
		"members":   members,
	})
}

type renameRequest struct {
	Name string `json:"name"`
}

func (h *Handler) rename(c *gin.Context) {
	if middleware.IsGuestFromContext(c) {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "login required", nil)
		return
	}
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	familyID := middleware.FamilyIDFromContext(c)
	if err := h.Svc.Rename(c.Request.Context(), familyID, req.Name); err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "family not found", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	fam, err := h.Svc.Get(c.Request.Context(), familyID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load family", nil)
		return
	}
	respond.JSON(c, http.StatusOK, fam)
}
