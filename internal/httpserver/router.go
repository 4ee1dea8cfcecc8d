package httpserver

import (
	"context"
	"net/http"

	"github.com/Skotchmaster/sweet_shop/internal/transport"
	middleware "github.com/Skotchmaster/sweet_shop/pkg/middleware/auth"
	"github.com/Skotchmaster/sweet_shop/pkg/logging"
	"github.com/labstack/echo/v4"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	AuthHandler  *AuthHTTP
	SweetHandler *SweetHTTP
	Auth         *middleware.BearerAuth
	Store        Pinger
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, transport.HealthResponse{Status: "OK", Message: "Sweet Shop API is running"})
	})
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if err := d.Store.Ping(c.Request().Context()); err != nil {
			logging.FromContext(c.Request().Context()).Warn("not_ready", "status", 503, "error", err)
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})

	api := e.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)

	sweets := api.Group("/sweets", d.Auth.RequireAuth)
	sweets.GET("", d.SweetHandler.List)
	sweets.GET("/search", d.SweetHandler.Search)
	sweets.POST("/:id/purchase", d.SweetHandler.Purchase)

	sweets.POST("", d.SweetHandler.Create, d.Auth.RequireAdmin)
	sweets.PUT("/:id", d.SweetHandler.Update, d.Auth.RequireAdmin)
	sweets.DELETE("/:id", d.SweetHandler.Delete, d.Auth.RequireAdmin)
	sweets.POST("/:id/restock", d.SweetHandler.Restock, d.Auth.RequireAdmin)
}
