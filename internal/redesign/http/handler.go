package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/roomcraft/roomcraft-backend/internal/redesign/domain"
	"github.com/roomcraft/roomcraft-backend/internal/redesign/engine"
	"github.com/roomcraft/roomcraft-backend/internal/redesign/service"
)

// Handler handles HTTP requests for redesign projects
type Handler struct {
	gateway *service.Gateway
}

// New creates a new Handler
func New(gateway *service.Gateway) *Handler {
	return &Handler{gateway: gateway}
}

// Register registers the project routes
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/projects", h.CreateProject)
	rg.GET("/projects/:id", h.GetProject)
	rg.GET("/projects/:id/events", h.StreamProjectEvents)

	rg.POST("/projects/:id/photos", h.AddPhoto)
	rg.DELETE("/projects/:id/photos/:photo_id", h.RemovePhoto)
	rg.POST("/projects/:id/photos/confirm", h.ConfirmPhotos)
	rg.POST("/projects/:id/scan", h.SubmitScan)
	rg.POST("/projects/:id/scan/skip", h.SkipScan)

	rg.POST("/projects/:id/intake/messages", h.SendIntakeMessage)
	rg.POST("/projects/:id/intake/brief", h.SubmitBrief)
	rg.POST("/projects/:id/intake/skip", h.SkipIntake)

	rg.POST("/projects/:id/selection", h.SelectOption)
	rg.POST("/projects/:id/annotations", h.SubmitAnnotation)
	rg.POST("/projects/:id/feedback", h.SubmitFeedback)
	rg.POST("/projects/:id/approve", h.Approve)

	rg.POST("/projects/:id/retry", h.Retry)
	rg.POST("/projects/:id/start-over", h.StartOver)
	rg.POST("/projects/:id/cancel", h.Cancel)
	rg.POST("/projects/:id/streaming/claim", h.ClaimStreaming)
	rg.POST("/projects/:id/streaming/result", h.DeliverStreamedResult)

	rg.GET("/metrics", h.Metrics)
}

// Metrics reports engine and gateway counters.
func (h *Handler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"engine":  engine.GetMetrics(),
		"gateway": service.GetMetrics(),
	})
}

// writeError maps gateway errors onto status codes.
func writeError(c *gin.Context, err error) {
	var rej *domain.RejectionError
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &rej):
		c.JSON(http.StatusConflict, gin.H{"error": rej.Error(), "code": rej.Code, "phase": rej.Phase})
	case errors.As(err, &ve):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": ve.Error(), "field": ve.Field})
	case errors.Is(err, domain.ErrProjectNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
	case errors.Is(err, service.ErrIntakeUnavailable), errors.Is(err, domain.ErrEngineStopped):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func accepted(c *gin.Context, extra gin.H) {
	body := gin.H{"status": "accepted"}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusAccepted, body)
}
