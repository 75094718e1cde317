// Package router wires the HTTP surface: the transport webhook, the CSV
// export and the health check.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/shift-checklist-bot/internal/handler"
	"github.com/iliyamo/shift-checklist-bot/internal/middleware"
)

// RegisterRoutes attaches every route to the Echo instance. The webhook
// sits behind the shared-secret check and, when Redis is available,
// update deduplication. The export route is guarded by the signed-link
// token; an empty export secret leaves the route unregistered.
func RegisterRoutes(e *echo.Echo, d *handler.Dispatcher, exp *handler.ExportHandler, webhookSecret, exportSecret string, dedup *redis.Client) {
	e.GET("/healthz", handler.Health)

	e.POST("/webhook",
		d.HandleWebhook,
		middleware.WebhookSecret(webhookSecret),
		middleware.Dedup(dedup),
	)

	if exportSecret != "" {
		e.GET("/v1/reports/export.csv", exp.ExportCSV, middleware.ExportAuth(exportSecret))
	}
}
