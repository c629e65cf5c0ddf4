// Package webapi exposes the running game host over HTTP:
// - settings: read and write the project settings database
// - packets: push events to the script runtime
// - /metrics: prometheus metrics of the bus and the socket
package webapi

import (
	"errors"
	"strings"

	"github.com/amirasaad/awgen/pkg/app"
	"github.com/amirasaad/awgen/webapi/common"
	packetsweb "github.com/amirasaad/awgen/webapi/packets"
	settingsweb "github.com/amirasaad/awgen/webapi/settings"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupApp Initialize Fiber with custom configuration
func SetupApp(a *app.App) *fiber.App {
	fiberApp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return common.ProblemDetailsJSON(c, utils.StatusMessage(code), err, code)
		},
	})

	// Uses X-Forwarded-For header when behind a proxy
	// Falls back to X-Real-IP or direct IP if needed
	if rl := a.Config.RateLimit; rl != nil && rl.MaxRequests > 0 {
		fiberApp.Use(limiter.New(limiter.Config{
			Max:        rl.MaxRequests,
			Expiration: rl.Window,
			KeyGenerator: func(c *fiber.Ctx) string {
				if forwardedFor := c.Get("X-Forwarded-For"); forwardedFor != "" {
					// Take the first IP in the chain
					if commaIndex := strings.Index(forwardedFor, ","); commaIndex != -1 {
						return strings.TrimSpace(forwardedFor[:commaIndex])
					}
					return strings.TrimSpace(forwardedFor)
				}
				if realIP := c.Get("X-Real-IP"); realIP != "" {
					return realIP
				}
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return common.ProblemDetailsJSON(
					c,
					"Too Many Requests",
					errors.New("rate limit exceeded"),
					fiber.StatusTooManyRequests,
				)
			},
		}))
	}
	fiberApp.Use(recover.New())
	fiberApp.Use(logger.New())

	fiberApp.Get("/health", func(c *fiber.Ctx) error {
		status := "running"
		select {
		case <-a.Engine.Done():
			status = "stopped"
		default:
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "awgen host is up", fiber.Map{
			"script":      status,
			"dispatching": a.Deps.Bus.Dispatching(),
		})
	})

	if a.Deps.Gatherer != nil {
		fiberApp.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(a.Deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// Debug endpoint to list all routes
	fiberApp.Get("/debug/routes", func(c *fiber.Ctx) error {
		routes := fiberApp.GetRoutes()
		var routeList []map[string]any
		for _, route := range routes {
			if route.Path != "" {
				routeList = append(routeList, map[string]any{
					"method": route.Method,
					"path":   route.Path,
				})
			}
		}
		return c.JSON(routeList)
	})

	settingsweb.Routes(fiberApp, a.Deps.Settings)
	packetsweb.Routes(fiberApp, a)
	return fiberApp
}
