package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/collabedit/docsync/internal/api/metrics"
	"github.com/collabedit/docsync/internal/core/domain"
	"github.com/collabedit/docsync/internal/core/ports"
)

type DocumentHandler struct {
	docs ports.DocumentService
}

func NewDocumentHandler(docs ports.DocumentService) *DocumentHandler {
	return &DocumentHandler{docs: docs}
}

// Read returns the current content of a document. A document that was never
// written reads as empty content at version 0.
//
// @Summary      Read document
// @Tags         documents
// @Produce      json
// @Param        id   path      string  false  "Document id (defaults to main)"
// @Success      200  {object}  documentResponse
// @Failure      400  {object}  errorResponse
// @Failure      503  {object}  errorResponse
// @Router       /api/documents/{id} [get]
// @Router       /api [get]
func (h *DocumentHandler) Read(c echo.Context) error {
	doc, err := h.docs.Read(c.Request().Context(), documentID(c))
	if err != nil {
		metrics.DocumentReadsTotal.WithLabelValues(readResult(err)).Inc()
		return err
	}
	metrics.DocumentReadsTotal.WithLabelValues(metrics.ResultOK).Inc()
	return c.JSON(http.StatusOK, documentResponse{Content: doc.Content, Version: doc.Version})
}

// Save replaces a document's content. Without expected_version the write is
// unconditional and the last save wins.
//
// @Summary      Save document
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        id    path      string       false  "Document id (defaults to main)"
// @Param        body  body      saveRequest  true   "New content"
// @Success      200   {object}  saveResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      413   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /api/documents/{id} [post]
func (h *DocumentHandler) Save(c echo.Context) error {
	var req saveRequest
	if err := decodeJSON(c, &req); err != nil {
		return err
	}
	return h.save(c, req)
}

func (h *DocumentHandler) save(c echo.Context, req saveRequest) error {
	if req.Content == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}
	id := documentID(c)

	start := time.Now()
	doc, err := h.docs.Replace(c.Request().Context(), id, *req.Content, req.ExpectedVersion)
	metrics.DocumentWriteDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DocumentWritesTotal.WithLabelValues(writeResult(err)).Inc()
		return err
	}

	metrics.DocumentWritesTotal.WithLabelValues(metrics.ResultOK).Inc()
	metrics.DocumentContentBytes.Set(float64(len(doc.Content)))
	return c.JSON(http.StatusOK, saveResponse{Success: true, Version: doc.Version})
}

// documentID takes the path parameter, then the ?id= query, then the default.
func documentID(c echo.Context) domain.DocumentID {
	if id := c.Param("id"); id != "" {
		return domain.DocumentID(id)
	}
	return domain.DocumentID(c.QueryParam("id")).Normalize()
}

func readResult(err error) string {
	if errors.Is(err, domain.ErrInvalidDocument) {
		return metrics.ResultInvalid
	}
	return metrics.ResultError
}

func writeResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrVersionConflict):
		return metrics.ResultConflict
	case errors.Is(err, domain.ErrContentTooLarge):
		return metrics.ResultTooLarge
	case errors.Is(err, domain.ErrInvalidDocument):
		return metrics.ResultInvalid
	default:
		return metrics.ResultError
	}
}
