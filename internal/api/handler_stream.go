package api

import (
	"time"

	"github.com/gin-gonic/gin"
)

// GetStream handles GET /api/stream: a long-lived SSE connection that
// emits a greeting, then update messages as they occur, then periodic
// keepalives so idle connections are not reclaimed by proxies.
//
// The subscriber registration lives exactly as long as the
// connection: the request context observes the disconnect and the
// deferred Unsubscribe releases the queue on every exit path.
func (h *Handler) GetStream(c *gin.Context) {
	ch := h.hub.Subscribe()
	defer h.hub.Unsubscribe(ch)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	c.SSEvent("hello", gin.H{"ok": true, "ts": time.Now().UTC()})
	c.Writer.Flush()

	keepalive := time.NewTicker(h.cfg.Stream.KeepaliveInterval)
	defer keepalive.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ch:
			c.SSEvent("update", string(msg))
		case <-keepalive.C:
			c.SSEvent("keepalive", gin.H{"ts": time.Now().UTC()})
		}
		c.Writer.Flush()
	}
}
