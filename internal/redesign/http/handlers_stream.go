package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/roomcraft/roomcraft-backend/internal/redesign/domain"
)

// keepAliveInterval spaces SSE comment pings on idle streams.
var keepAliveInterval = 15 * time.Second

const recheckDelay = 200 * time.Millisecond

// StreamProjectEvents streams project snapshots using Server-Sent Events (SSE)
func (h *Handler) StreamProjectEvents(c *gin.Context) {
	projectID := c.Param("id")
	ctx := c.Request.Context()

	project, err := h.gateway.GetProject(ctx, projectID)
	if err != nil {
		writeError(c, err)
		return
	}

	changes, err := h.gateway.Watch(ctx, projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to watch project"})
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // nginx: disable buffering

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	writeEvent(c, flusher, "initial", gin.H{"project": project})
	lastVersion := project.Version

	// push sends the latest snapshot if it moved past lastVersion and reports
	// whether the stream should end.
	push := func() (changed, done bool) {
		updated, err := h.gateway.GetProject(ctx, projectID)
		if errors.Is(err, domain.ErrProjectNotFound) {
			writeEvent(c, flusher, "deleted", gin.H{"event": "deleted", "project_id": projectID})
			return false, true
		}
		if err != nil || updated.Version <= lastVersion {
			return false, false
		}
		lastVersion = updated.Version
		writeEvent(c, flusher, "update", gin.H{"project": updated})
		return true, false
	}

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	// A notification can arrive just before the engine's snapshot catches
	// up, so an unchanged read is checked once more shortly after.
	var recheck <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			flusher.Flush()

		case _, open := <-changes:
			if !open {
				return
			}
			changed, done := push()
			if done {
				return
			}
			if !changed {
				recheck = time.After(recheckDelay)
			}

		case <-recheck:
			recheck = nil
			if _, done := push(); done {
				return
			}
		}
	}
}

func writeEvent(c *gin.Context, flusher http.Flusher, event string, payload any) {
	data, _ := json.Marshal(payload)
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, string(data))
	flusher.Flush()
}
