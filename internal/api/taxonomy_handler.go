package api

import (
	"net/http"

	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// TaxonomyHandler handles categories, tags and page categories
type TaxonomyHandler struct {
	services *service.Services
	log      zerolog.Logger
}

func NewTaxonomyHandler(services *service.Services, log zerolog.Logger) *TaxonomyHandler {
	return &TaxonomyHandler{
		services: services,
		log:      log.With().Str("handler", "taxonomy").Logger(),
	}
}

func (h *TaxonomyHandler) ListCategories(c *gin.Context) {
	categories, err := h.services.Taxonomy.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "failed to list categories")
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *TaxonomyHandler) CreateCategory(c *gin.Context) {
	var in models.TaxonomyInput
	if !bindJSON(c, &in) {
		return
	}
	category, err := h.services.Taxonomy.CreateCategory(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err, "failed to create category")
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *TaxonomyHandler) ListTags(c *gin.Context) {
	tags, err := h.services.Taxonomy.ListTags(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "failed to list tags")
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

func (h *TaxonomyHandler) CreateTag(c *gin.Context) {
	var in models.TaxonomyInput
	if !bindJSON(c, &in) {
		return
	}
	tag, err := h.services.Taxonomy.CreateTag(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err, "failed to create tag")
		return
	}
	c.JSON(http.StatusCreated, tag)
}

func (h *TaxonomyHandler) ListPageCategories(c *gin.Context) {
	groups, err := h.services.Taxonomy.ListPageCategories(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "failed to list page categories")
		return
	}
	c.JSON(http.StatusOK, gin.H{"page_categories": groups})
}

func (h *TaxonomyHandler) CreatePageCategory(c *gin.Context) {
	var in models.TaxonomyInput
	if !bindJSON(c, &in) {
		return
	}
	group, err := h.services.Taxonomy.CreatePageCategory(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err, "failed to create page category")
		return
	}
	c.JSON(http.StatusCreated, group)
}
