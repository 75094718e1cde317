package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// dedupTTL is how long a processed update_id is remembered. Transports
// redeliver within minutes; a day is comfortably past any retry window.
const dedupTTL = 24 * time.Hour

// Dedup drops webhook posts whose update_id was already processed, using
// a Redis SETNX per update. Duplicates are acknowledged with 200 so the
// transport stops redelivering. A nil client disables deduplication and
// the middleware passes everything through.
func Dedup(client *redis.Client) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if client == nil {
				return next(c)
			}
			body, err := io.ReadAll(c.Request().Body)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
			}
			c.Request().Body = io.NopCloser(bytes.NewReader(body))

			var probe struct {
				UpdateID *int64 `json:"update_id"`
			}
			if err := json.Unmarshal(body, &probe); err != nil || probe.UpdateID == nil {
				// Not a recognizable update; let the handler decide.
				return next(c)
			}

			key := fmt.Sprintf("checklist-bot:update:%d", *probe.UpdateID)
			fresh, err := client.SetNX(c.Request().Context(), key, 1, dedupTTL).Result()
			if err != nil {
				// Redis down: better to risk a duplicate than to drop updates.
				log.Printf("dedup: redis setnx failed: %v", err)
				return next(c)
			}
			if !fresh {
				return c.NoContent(http.StatusOK)
			}
			return next(c)
		}
	}
}
