package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/opencourse-api/internal/utils"
)

// RateLimit throttles a route per authenticated user, falling back to the
// client IP when no user is attached. It must run after the JWT middleware.
func RateLimit(identifier string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return identifier + ":" + limiterSubject(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.SendError(c, fiber.StatusTooManyRequests, "rate limit exceeded, retry later")
		},
	})
}

func limiterSubject(c *fiber.Ctx) string {
	switch id := c.Locals("user_id").(type) {
	case uint:
		if id != 0 {
			return "user:" + strconv.FormatUint(uint64(id), 10)
		}
	case int:
		if id > 0 {
			return "user:" + strconv.Itoa(id)
		}
	}
	return "ip:" + c.IP()
}
