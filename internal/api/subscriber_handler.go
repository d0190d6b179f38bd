package api

import (
	"net/http"

	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// SubscriberHandler handles newsletter subscription endpoints
type SubscriberHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewSubscriberHandler creates a new SubscriberHandler
func NewSubscriberHandler(services *service.Services, log zerolog.Logger) *SubscriberHandler {
	return &SubscriberHandler{
		services: services,
		log:      log.With().Str("handler", "subscriber").Logger(),
	}
}

// subscribeRequest accepts both JSON and the blog's HTML form
type subscribeRequest struct {
	Email  string `json:"email" form:"email"`
	Tech   bool   `json:"tech" form:"tech"`
	Life   bool   `json:"life" form:"life"`
	Spirit bool   `json:"spirit" form:"spirit"`
}

// Subscribe handles POST /v1/subscribers
func (h *SubscriberHandler) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	sub, err := h.services.Subscription.Subscribe(c.Request.Context(), models.SubscribeInput{
		Email:  req.Email,
		Tech:   req.Tech,
		Life:   req.Life,
		Spirit: req.Spirit,
	})
	if err != nil {
		respondError(c, h.log, err, "failed to subscribe")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Thanks for subscribing! Check your inbox for a welcome email.",
		"subscriber": sub,
	})
}

// Confirm handles GET /v1/subscribers/confirm?token=
func (h *SubscriberHandler) Confirm(c *gin.Context) {
	sub, err := h.services.Subscription.Confirm(c.Request.Context(), c.Query("token"))
	if err != nil {
		respondError(c, h.log, err, "failed to confirm subscription")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Subscription confirmed",
		"email":   sub.Email,
	})
}

// Unsubscribe handles GET and POST /v1/subscribers/unsubscribe. The email
// links carry a token; the form posts an email address.
func (h *SubscriberHandler) Unsubscribe(c *gin.Context) {
	var req struct {
		Email string `json:"email" form:"email"`
		Token string `json:"token" form:"token"`
	}
	if c.Request.Method == http.MethodPost && c.Request.ContentLength != 0 {
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
	}
	if req.Token == "" {
		req.Token = c.Query("token")
	}
	if req.Email == "" {
		req.Email = c.Query("email")
	}

	sub, err := h.services.Subscription.Unsubscribe(c.Request.Context(), req.Email, req.Token)
	if err != nil {
		respondError(c, h.log, err, "failed to unsubscribe")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "You have been unsubscribed",
		"email":   sub.Email,
	})
}

// List handles GET /v1/subscribers (admin)
func (h *SubscriberHandler) List(c *gin.Context) {
	subs, err := h.services.Subscription.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "failed to list subscribers")
		return
	}

	active := 0
	for _, s := range subs {
		if s.Active {
			active++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"subscribers": subs,
		"count":       len(subs),
		"active":      active,
	})
}
