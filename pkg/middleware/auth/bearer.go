package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Skotchmaster/sweet_shop/pkg/logging"
	"github.com/Skotchmaster/sweet_shop/pkg/tokens"
	"github.com/labstack/echo/v4"
)

const RoleAdmin = "admin"

// Identity is the caller resolved from a verified access token.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

type TokenVerifier interface {
	VerifyToken(token string) (*tokens.AccessClaims, error)
}

type identityKey struct{}

func IntoContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

type BearerAuth struct {
	Verifier TokenVerifier
}

func NewBearerAuth(v TokenVerifier) *BearerAuth {
	return &BearerAuth{Verifier: v}
}

// RequireAdmin must sit after RequireAuth.
func (m *BearerAuth) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := FromContext(c.Request().Context())
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "Access token is required")
		}
		if !id.IsAdmin() {
			logging.FromContext(c.Request().Context()).Warn("access_denied",
				"status", 403, "reason", "admin role required", "user_id", id.UserID, "role", id.Role)
			return echo.NewHTTPError(http.StatusForbidden, "Admin access required")
		}
		return next(c)
	}
}

func (m *BearerAuth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		l := logging.FromContext(ctx)

		raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "Access token is required")
		}

		claims, err := m.Verifier.VerifyToken(raw)
		if err != nil || claims == nil {
			l.Warn("token_rejected", "status", 401, "error", err)
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
		}

		id := Identity{UserID: claims.Subject, Email: claims.Email, Role: claims.Role}

		ctx = IntoContext(ctx, id)
		ctx = logging.IntoContext(ctx, l.With("user_id", id.UserID))
		c.SetRequest(c.Request().WithContext(ctx))

		return next(c)
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
