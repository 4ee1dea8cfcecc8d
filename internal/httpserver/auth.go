package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/sweet_shop/internal/service"
	"github.com/Skotchmaster/sweet_shop/internal/transport"
	"github.com/Skotchmaster/sweet_shop/pkg/logging"
	"github.com/labstack/echo/v4"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	res, err := h.Svc.Register(ctx, service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, transport.AuthResponse{
		Success: true,
		User:    transport.NewUserResponse(res.User),
		Token:   res.Token,
	})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, transport.AuthResponse{
		Success: true,
		User:    transport.NewUserResponse(res.User),
		Token:   res.Token,
	})
}
