package api

import (
	"net/http"

	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// PageHandler handles page endpoints
type PageHandler struct {
	services *service.Services
	log      zerolog.Logger
}

func NewPageHandler(services *service.Services, log zerolog.Logger) *PageHandler {
	return &PageHandler{
		services: services,
		log:      log.With().Str("handler", "page").Logger(),
	}
}

// List handles GET /v1/pages
func (h *PageHandler) List(c *gin.Context) {
	pages, err := h.services.Page.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "failed to list pages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"pages": pages, "count": len(pages)})
}

func (h *PageHandler) Create(c *gin.Context) {
	var in models.PageInput
	if !bindJSON(c, &in) {
		return
	}
	page, err := h.services.Page.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err, "failed to create page")
		return
	}
	c.JSON(http.StatusCreated, page)
}

func (h *PageHandler) Get(c *gin.Context) {
	page, err := h.services.Page.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err, "failed to get page")
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *PageHandler) Update(c *gin.Context) {
	var in models.PageInput
	if !bindJSON(c, &in) {
		return
	}
	page, err := h.services.Page.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, h.log, err, "failed to update page")
		return
	}
	c.JSON(http.StatusOK, page)
}
