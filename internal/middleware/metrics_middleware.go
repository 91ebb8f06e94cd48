package middleware

import (
	"strconv"
	"time"

	"seyon/internal/metrics"

	"github.com/gofiber/fiber/v2"
)

// Metrics records the duration of every request, labelled by the matched
// route pattern rather than the raw path.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		metrics.RecordHTTPRequest(c.Method(), c.Route().Path, strconv.Itoa(status), time.Since(start))
		return err
	}
}
