package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/roomcraft/roomcraft-backend/internal/redesign/domain"
	"github.com/roomcraft/roomcraft-backend/internal/redesign/machine"
	"github.com/roomcraft/roomcraft-backend/internal/redesign/service"
)

// CreateProject starts a new project
func (h *Handler) CreateProject(c *gin.Context) {
	p, err := h.gateway.CreateProject(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"project": p})
}

// GetProject returns the project snapshot and how many more edits it accepts.
func (h *Handler) GetProject(c *gin.Context) {
	p, err := h.gateway.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": p, "remaining_edits": machine.RemainingSlots(p)})
}

func (h *Handler) AddPhoto(c *gin.Context) {
	var body service.PhotoRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	photoID, err := h.gateway.AddPhoto(c.Request.Context(), c.Param("id"), body)
	if err != nil {
		writeError(c, err)
		return
	}
	accepted(c, gin.H{"photo_id": photoID})
}

func (h *Handler) RemovePhoto(c *gin.Context) {
	h.signal(c, func(ctx context.Context, id string) error {
		return h.gateway.RemovePhoto(ctx, id, c.Param("photo_id"))
	})
}

func (h *Handler) ConfirmPhotos(c *gin.Context) {
	h.signal(c, h.gateway.ConfirmPhotos)
}

func (h *Handler) SubmitScan(c *gin.Context) {
	var body domain.ScanData
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h.signal(c, func(ctx context.Context, id string) error {
		return h.gateway.SubmitScan(ctx, id, &body)
	})
}

func (h *Handler) SkipScan(c *gin.Context) {
	h.signal(c, h.gateway.SkipScan)
}

func (h *Handler) SendIntakeMessage(c *gin.Context) {
	var body struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h.signal(c, func(ctx context.Context, id string) error {
		return h.gateway.SendIntakeMessage(ctx, id, body.Message)
	})
}

// SubmitBrief accepts an optional brief; an empty body submits none.
func (h *Handler) SubmitBrief(c *gin.Context) {
	var body struct {
		Brief *domain.DesignBrief `json:"brief"`
	}
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h.signal(c, func(ctx context.Context, id string) error {
		return h.gateway.SubmitBrief(ctx, id, body.Brief)
	})
}

func (h *Handler) SkipIntake(c *gin.Context) {
	h.signal(c, h.gateway.SkipIntake)
}

func (h *Handler) SelectOption(c *gin.Context) {
	var body struct {
		OptionIndex *int `json:"option_index"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.OptionIndex == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "option_index is required"})
		return
	}
	h.signal(c, func(ctx context.Context, id string) error {
		return h.gateway.SelectOption(ctx, id, *body.OptionIndex)
	})
}

func (h *Handler) SubmitAnnotation(c *gin.Context) {
	var body struct {
		Regions []domain.AnnotationRegion `json:"regions"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	actionID, err := h.gateway.SubmitAnnotation(c.Request.Context(), c.Param("id"), body.Regions)
	if err != nil {
		writeError(c, err)
		return
	}
	accepted(c, gin.H{"action_id": actionID})
}

func (h *Handler) SubmitFeedback(c *gin.Context) {
	var body struct {
		Feedback string `json:"feedback"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	actionID, err := h.gateway.SubmitFeedback(c.Request.Context(), c.Param("id"), body.Feedback)
	if err != nil {
		writeError(c, err)
		return
	}
	accepted(c, gin.H{"action_id": actionID})
}

func (h *Handler) Approve(c *gin.Context) {
	h.signal(c, h.gateway.Approve)
}

func (h *Handler) Retry(c *gin.Context) {
	h.signal(c, h.gateway.Retry)
}

func (h *Handler) StartOver(c *gin.Context) {
	h.signal(c, h.gateway.StartOver)
}

func (h *Handler) Cancel(c *gin.Context) {
	h.signal(c, h.gateway.Cancel)
}

func (h *Handler) ClaimStreaming(c *gin.Context) {
	h.signal(c, h.gateway.ClaimStreaming)
}

func (h *Handler) DeliverStreamedResult(c *gin.Context) {
	var body domain.StreamedResult
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h.signal(c, func(ctx context.Context, id string) error {
		return h.gateway.DeliverStreamedResult(ctx, id, &body)
	})
}

// signal runs a gateway call that carries no result besides acceptance.
func (h *Handler) signal(c *gin.Context, fn func(ctx context.Context, id string) error) {
	if err := fn(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	accepted(c, nil)
}
