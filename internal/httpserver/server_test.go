package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Skotchmaster/sweet_shop/internal/events"
	"github.com/Skotchmaster/sweet_shop/internal/repo/gormrepo"
	"github.com/Skotchmaster/sweet_shop/internal/service"
	pkgdb "github.com/Skotchmaster/sweet_shop/pkg/db"
	middleware "github.com/Skotchmaster/sweet_shop/pkg/middleware/auth"
	loggingmw "github.com/Skotchmaster/sweet_shop/pkg/middleware/logging"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	e     *echo.Echo
	store *gormrepo.GormRepo
	auth  *service.AuthService
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("db down") }

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ctx := context.Background()
	db, err := pkgdb.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	store := gormrepo.New(db)
	require.NoError(t, store.Migrate(ctx))
	t.Cleanup(func() { _ = store.Close(ctx) })

	authSvc := &service.AuthService{
		Users:  store,
		Secret: []byte("test-jwt-secret"),
		TTL:    time.Hour,
		Events: events.Noop{},
	}
	sweetSvc := &service.SweetService{Repo: store, Events: events.Noop{}}

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	e.Use(loggingmw.RequestLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	Register(e, &Deps{
		AuthHandler:  &AuthHTTP{Svc: authSvc},
		SweetHandler: &SweetHTTP{Svc: sweetSvc},
		Auth:         middleware.NewBearerAuth(authSvc),
		Store:        store,
	})
	return &testServer{e: e, store: store, auth: authSvc}
}

type result struct {
	Code int
	Body map[string]any
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) result {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	res := result{Code: rec.Code}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res.Body), rec.Body.String())
	}
	return res
}

func (s *testServer) register(t *testing.T, email, role string) string {
	t.Helper()

	res := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": email, "password": "secret1", "name": "Tester", "role": role,
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Body)
	return res.Body["token"].(string)
}

func (s *testServer) createSweet(t *testing.T, adminToken string, body map[string]any) string {
	t.Helper()

	res := s.do(t, http.MethodPost, "/api/sweets", adminToken, body)
	require.Equal(t, http.StatusCreated, res.Code, res.Body)
	return res.Body["data"].(map[string]any)["id"].(string)
}
