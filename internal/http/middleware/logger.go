package middleware

import (
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"qphub/internal/logger"
)

// Logger logs each completed HTTP request with its request ID, method, path,
// final status code, and latency.
func Logger() fiber.Handler {
	return loggerWith(logger.WithComponent("http"))
}

// LoggerWithWriter is like Logger but writes JSON log lines to w.
// Used by tests to capture output.
func LoggerWithWriter(w io.Writer) fiber.Handler {
	return loggerWith(zerolog.New(w).With().Timestamp().Logger())
}

func loggerWith(log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		rid, _ := c.Locals(RequestIDLocalKey).(string)
		status := c.Response().StatusCode()
		if err != nil {
			if fiberErr, ok := err.(*fiber.Error); ok {
				status = fiberErr.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		log.Info().
			Str("request_id", rid).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request")

		return err
	}
}
