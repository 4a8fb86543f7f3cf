package settings

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"archive-backend/internal/shared/server/middleware"
	"archive-backend/internal/shared/server/respond"
)

// Handler exposes the settings endpoint.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches settings routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/settings", h.getSettings)
}

type settingsResponse struct {
	EventTypes     []string `json:"eventTypes"`
	SenderNames    []string `json:"senderNames"`
	RecipientNames []string `json:"recipientNames"`
}

func (h *Handler) getSettings(c *gin.Context) {
	familyID := middleware.FamilyIDFromContext(c)
	s, err := h.Svc.GetOrCreate(c.Request.Context(), familyID)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			respond.Error(c, http.StatusRequestTimeout, "timeout", "request canceled", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch settings", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, settingsResponse{
		EventTypes:     s.EventTypes,
		SenderNames:    s.SenderNames,
		RecipientNames: s.RecipientNames,
	})
}
