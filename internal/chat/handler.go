package chat

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"archive-backend/internal/shared/server/middleware"
	"archive-backend/internal/shared/server/respond"
	"archive-backend/internal/usage"
)

// genericFailureMessage is the only wording a caller sees for provider or
// store failures. The underlying cause goes to the logs, never the wire.
const genericFailureMessage = "An error occurred while processing your query."

// Handler exposes the chat endpoint.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a chat Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes wires chat endpoints onto the API group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/chat/ask", h.ask)
}

func (h *Handler) ask(c *gin.Context) {
	if h.Svc == nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "chat service unavailable", nil)
		return
	}

	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	familyID := middleware.FamilyIDFromContext(c)
	if familyID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}

	ctx := WithRequestID(c.Request.Context(), c.GetString("requestId"))
	resp, err := h.Svc.Ask(ctx, familyID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, usage.ErrLimitReached):
			respond.Error(c, http.StatusTooManyRequests, "quota_exceeded", "question limit reached for this period", nil)
		case errors.Is(err, context.Canceled):
			respond.Error(c, http.StatusRequestTimeout, "timeout", "request canceled", nil)
		case errors.Is(err, context.DeadlineExceeded):
			respond.Error(c, http.StatusRequestTimeout, "timeout", "request timed out", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", genericFailureMessage, nil)
		}
		return
	}

	c.Set("retrievalTool", resp.Tool)
	respond.JSON(c, http.StatusOK, resp)
}
