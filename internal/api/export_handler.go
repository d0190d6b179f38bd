package api

import (
	"net/http"

	"github.com/blog-cms-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ExportHandler handles export endpoints
type ExportHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(services *service.Services, log zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		services: services,
		log:      log.With().Str("handler", "export").Logger(),
	}
}

// StreamExport handles GET /v1/exports?resource=...&format=...
// Streams the export directly to the response
func (h *ExportHandler) StreamExport(c *gin.Context) {
	ctx := c.Request.Context()

	resource := c.Query("resource")
	if resource == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "resource parameter is required (subscribers, posts, comments)"})
		return
	}
	if resource != "subscribers" && resource != "posts" && resource != "comments" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "resource must be one of: subscribers, posts, comments"})
		return
	}

	format := c.Query("format")
	if format == "" {
		format = "ndjson" // Default to NDJSON for streaming
	}
	if format != "ndjson" && format != "json" && format != "csv" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be one of: ndjson, json, csv"})
		return
	}

	// CSV only supported for subscribers
	if format == "csv" && resource != "subscribers" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "CSV format only supported for subscribers export"})
		return
	}

	h.log.Info().
		Str("resource", resource).
		Str("format", format).
		Msg("Starting streaming export")

	var err error
	switch resource {
	case "subscribers":
		err = h.services.Export.StreamSubscribers(ctx, c.Writer, format)
	case "posts":
		err = h.services.Export.StreamPosts(ctx, c.Writer, format)
	case "comments":
		err = h.services.Export.StreamComments(ctx, c.Writer, format)
	}

	if err != nil {
		h.log.Error().Err(err).Str("resource", resource).Msg("Export failed")
		// Can't return error JSON after streaming has started
		return
	}
}
