package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/solarfin/backend/internal/infrastructure/telemetry"
)

// Profiling attaches Pyroscope labels (method, route, resource and action)
// to the work done for each API request, so profiles can be split by
// endpoint and by negotiation action.
func Profiling() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" || !strings.HasPrefix(route, "/api/") {
			c.Next()
			return
		}
		labels := map[string]string{
			telemetry.ProfilingLabelMethod:   c.Request.Method,
			telemetry.ProfilingLabelRoute:    route,
			telemetry.ProfilingLabelResource: resourceFromRoute(route),
		}
		if strings.Contains(route, ":action") {
			labels[telemetry.ProfilingLabelAction] = c.Param("action")
		}
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

// resourceFromRoute returns the first segment after the version,
// e.g. "/api/v1/quotes/:id" -> "quotes".
func resourceFromRoute(route string) string {
	for _, part := range strings.Split(route, "/") {
		if part == "" || part == "api" || isVersionSegment(part) || strings.HasPrefix(part, ":") {
			continue
		}
		return part
	}
	return ""
}

func isVersionSegment(segment string) bool {
	if len(segment) < 2 || (segment[0] != 'v' && segment[0] != 'V') {
		return false
	}
	for i := 1; i < len(segment); i++ {
		if segment[i] < '0' || segment[i] > '9' {
			return false
		}
	}
	return true
}
