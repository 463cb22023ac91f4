package api

import (
	"github.com/gin-gonic/gin"

	"github.com/seongmin-dev/lockerdesk/internal/notify"
)

// StreamHandler serves the live change feed. Connected viewers get a
// "connected" event on subscribe and a "changed" event after every
// committed mutation; they re-fetch the grid themselves.
type StreamHandler struct {
	hub *notify.Hub
}

func NewStreamHandler(hub *notify.Hub) *StreamHandler {
	return &StreamHandler{hub: hub}
}

func (h *StreamHandler) Register(router *gin.RouterGroup) {
	router.GET("/events", h.events)
}

func (h *StreamHandler) events(c *gin.Context) {
	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub)

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.SSEvent("connected", "ok")
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case event, ok := <-sub.C:
			if !ok {
				return
			}
			c.SSEvent(event, "update")
			c.Writer.Flush()
		case <-ctx.Done():
			return
		}
	}
}
