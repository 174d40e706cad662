package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/metrics"
)

// Access logs every request and records its HTTP metrics. Mount it after
// the requestid middleware and before the routes.
func Access(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		release := metrics.TrackInFlight()
		defer release()

		err := c.Next()
		if err != nil {
			// let the app error handler write the response so the status is final
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		dur := time.Since(start)
		route := ""
		if r := c.Route(); r != nil {
			route = r.Path
		}
		metrics.RecordHTTP(c.Method(), route, status, dur)

		fields := []zap.Field{
			zap.Any("id", c.Locals("requestid")),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("duration", dur),
			zap.String("remote", c.IP()),
		}
		if uid, _, ok := CurrentUser(c); ok {
			fields = append(fields, zap.Stringer("user_id", uid))
		}
		switch {
		case status >= 500:
			log.Error("request", fields...)
		case status >= 400:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
		return nil
	}
}
