package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"umlexport/internal/middlewares"
	"umlexport/internal/responses"
	"umlexport/internal/services"
)

// MaxDiagramBytes bounds inline diagram bodies.
const MaxDiagramBytes = 10 << 20

type ExportHandler struct {
	exportService *services.ExportService
}

func NewExportHandler(exportService *services.ExportService) *ExportHandler {
	return &ExportHandler{
		exportService: exportService,
	}
}

// attachmentSink streams the archive as the response body.
type attachmentSink struct {
	c       *gin.Context
	started bool
}

func (s *attachmentSink) Start(filename string, size int64) {
	s.c.Header("Content-Type", "application/zip")
	s.c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	s.c.Header("Content-Length", strconv.FormatInt(size, 10))
	s.c.Status(http.StatusOK)
	s.started = true
}

func (s *attachmentSink) Write(b []byte) (int, error) {
	return s.c.Writer.Write(b)
}

// ExportDiagram handles POST /api/v1/export/spring-boot/:id
func (h *ExportHandler) ExportDiagram(c *gin.Context) {
	sink := &attachmentSink{c: c}
	if _, err := h.exportService.ExportDiagram(c.Request.Context(), c.Param("id"), sink); err != nil {
		h.fail(c, err, sink)
	}
}

// ExportInline handles POST /api/v1/export/spring-boot
func (h *ExportHandler) ExportInline(c *gin.Context) {
	payload, ok := readBody(c)
	if !ok {
		return
	}
	sink := &attachmentSink{c: c}
	if _, err := h.exportService.ExportInline(c.Request.Context(), payload, sink); err != nil {
		h.fail(c, err, sink)
	}
}

// Preview handles POST /api/v1/export/spring-boot/preview
func (h *ExportHandler) Preview(c *gin.Context) {
	payload, ok := readBody(c)
	if !ok {
		return
	}
	preview, err := h.exportService.Preview(c.Request.Context(), payload)
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	responses.Success(c, http.StatusOK, preview, "Preview generated successfully")
}

// GetExport handles GET /api/v1/exports/:id
func (h *ExportHandler) GetExport(c *gin.Context) {
	export, err := h.exportService.GetExport(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	responses.Success(c, http.StatusOK, export, "Export retrieved successfully")
}

func readBody(c *gin.Context) ([]byte, bool) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, MaxDiagramBytes+1))
	if err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid request body")
		return nil, false
	}
	if len(payload) > MaxDiagramBytes {
		responses.Fail(c, http.StatusRequestEntityTooLarge, nil, "Diagram is too large")
		return nil, false
	}
	return payload, true
}

func (h *ExportHandler) fail(c *gin.Context, err error, sink *attachmentSink) {
	_ = c.Error(err)

	// Once the archive started streaming the status line is gone; the
	// client sees a truncated body.
	if (sink != nil && sink.started) || services.IsDeliveryFailure(err) {
		log.Warn().Err(err).Str("request_id", c.GetString(middlewares.RequestIDKey)).Msg("export delivery interrupted")
		c.Abort()
		return
	}

	var svcErr *services.ServiceError
	if !errors.As(err, &svcErr) {
		responses.Fail(c, http.StatusInternalServerError, nil, "Internal server error")
		return
	}
	responses.Fail(c, svcErr.Status, svcErr.PublicError(), svcErr.Message)
}
