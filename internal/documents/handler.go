package documents

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"archive-backend/internal/shared/server/middleware"
	"archive-backend/internal/shared/server/respond"
)

const maxUploadSize = 25 << 20 // 25MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.upload)
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id", h.get)
	rg.GET("/documents/:id/file", h.file)
	rg.GET("/documents/:id/thumbnail", h.thumbnail)
	rg.DELETE("/documents/:id", h.remove)
}

func (h *Handler) upload(c *gin.Context) {
	familyID := middleware.FamilyIDFromContext(c)
	userID := middleware.UserIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	docDateRaw := strings.TrimSpace(c.PostForm("docDate"))
	docDate, err := time.Parse("2006-01-02", docDateRaw)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "docDate must be YYYY-MM-DD", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	requestCtx := WithRequestID(c.Request.Context(), c.GetString("requestId"))
	doc, err := h.Svc.Upload(requestCtx, familyID, userID, UploadInput{
		FileName:      fileHeader.Filename,
		Reader:        file,
		SenderName:    c.PostForm("senderName"),
		RecipientName: c.PostForm("recipientName"),
		EventType:     c.PostForm("eventType"),
		DocDate:       docDate,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			respond.Error(c, http.StatusRequestTimeout, "timeout", "request canceled", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to upload document", nil)
		}
		return
	}

	respond.JSON(c, http.StatusCreated, toResponse(doc, h.Svc.ThumbnailRef(c.Request.Context(), doc)))
}

func (h *Handler) list(c *gin.Context) {
	familyID := middleware.FamilyIDFromContext(c)

	filters := Filters{
		Sender:    strings.TrimSpace(c.Query("sender")),
		EventType: strings.TrimSpace(c.Query("eventType")),
	}
	if v := strings.TrimSpace(c.Query("year")); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "year must be a number", nil)
			return
		}
		filters.Year = year
	}

	docs, err := h.Svc.List(c.Request.Context(), familyID, filters)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			respond.Error(c, http.StatusRequestTimeout, "timeout", "request canceled", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list documents", nil)
		}
		return
	}

	resp := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, toResponse(doc, h.Svc.ThumbnailRef(c.Request.Context(), doc)))
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) get(c *gin.Context) {
	familyID := middleware.FamilyIDFromContext(c)

	doc, err := h.Svc.Get(c.Request.Context(), familyID, c.Param("id"))
	if err != nil {
		h.respondGetError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, toResponse(doc, h.Svc.ThumbnailRef(c.Request.Context(), doc)))
}

func (h *Handler) file(c *gin.Context) {
	familyID := middleware.FamilyIDFromContext(c)

	doc, err := h.Svc.Get(c.Request.Context(), familyID, c.Param("id"))
	if err != nil {
		h.respondGetError(c, err)
		return
	}
	h.stream(c, doc, doc.StorageKey)
}

func (h *Handler) thumbnail(c *gin.Context) {
	familyID := middleware.FamilyIDFromContext(c)

	doc, err := h.Svc.Get(c.Request.Context(), familyID, c.Param("id"))
	if err != nil {
		h.respondGetError(c, err)
		return
	}
	if doc.ThumbnailKey == "" {
		respond.Error(c, http.StatusNotFound, "not_found", "document has no thumbnail", nil)
		return
	}
	h.stream(c, doc, doc.ThumbnailKey)
}

func (h *Handler) stream(c *gin.Context, doc Document, storageKey string) {
	body, err := h.Svc.Store.Open(c.Request.Context(), storageKey)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to open document", nil)
		return
	}
	defer body.Close()

	fileName := strings.ReplaceAll(doc.FileName, `"`, "")
	c.Header("Content-Type", doc.MimeType)
	c.Header("Content-Disposition", `inline; filename="`+fileName+`"`)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, body)
}

func (h *Handler) remove(c *gin.Context) {
	familyID := middleware.FamilyIDFromContext(c)

	if err := h.Svc.Delete(c.Request.Context(), familyID, c.Param("id")); err != nil {
		h.respondGetError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) respondGetError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusRequestTimeout, "timeout", "request canceled", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch document", nil)
	}
}
