package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RedisErrors counts Redis command failures by operation. The cache layer
// increments it from its command hook.
var RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "solcast_redis_errors_total",
	Help: "Total number of Redis command errors by operation",
}, []string{"operation"})

var fiberProm *fiberprometheus.FiberPrometheus

// InitMetrics sets up the Prometheus HTTP metrics collector and registers
// the /metrics scrape endpoint on the app.
func InitMetrics(app *fiber.App, serviceName string) {
	// Collectors register globally; create them once even if several apps
	// are built in one process.
	if fiberProm == nil {
		fiberProm = fiberprometheus.New(serviceName)
	}
	fiberProm.RegisterAt(app, "/metrics")
}

// MetricsMiddleware records per-request HTTP metrics (count, latency, status).
// The collector is resolved per request, not at registration: middleware is
// installed before routes, so InitMetrics may not have run yet at that point.
func MetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if fiberProm == nil {
			// InitMetrics not called; pass through
			return c.Next()
		}
		return fiberProm.Middleware(c)
	}
}
