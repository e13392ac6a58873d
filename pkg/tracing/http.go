package tracing

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// untracedPrefixes are health, scrape and documentation routes that would otherwise
// drown query spans.
var untracedPrefixes = []string{"/health", "/metrics", "/swagger"}

// Traced reports whether a request to path gets a server span.
func Traced(path string) bool {
	for _, prefix := range untracedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}

func GinMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName,
		otelgin.WithFilter(func(r *http.Request) bool { return Traced(r.URL.Path) }),
	)
}
