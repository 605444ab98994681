package httpgin

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/moodcafe/internal/bus"
	"github.com/kirinyoku/moodcafe/internal/domain"
	"github.com/kirinyoku/moodcafe/internal/service"
)

const streamBuffer = 16

// @Summary  Live metrics as server-sent events
// @Produce  text/event-stream
// @Success  200 {object} domain.Metrics "event: metrics"
// @Router   /api/metrics/stream [get]
func handleMetricsStream(svcs *service.Services, b *bus.Bus) gin.HandlerFunc {
	return func(c *gin.Context) {
		updates := make(chan domain.Metrics, streamBuffer)
		unsubscribe := b.SubscribeTypes(func(_ context.Context, msg bus.Message) {
			m, ok := msg.Payload.(domain.Metrics)
			if !ok {
				return
			}
			// slow clients skip snapshots; the next one supersedes them anyway
			select {
			case updates <- m:
			default:
			}
		}, domain.TypeMetricsUpdate)
		defer unsubscribe()

		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")
		c.SSEvent("metrics", svcs.Monitor.Snapshot())
		c.Writer.Flush()

		ctx := c.Request.Context()
		c.Stream(func(io.Writer) bool {
			select {
			case <-ctx.Done():
				return false
			case m := <-updates:
				c.SSEvent("metrics", m)
				return true
			}
		})
	}
}
