package httpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/Skotchmaster/sweet_shop/internal/models"
	"github.com/Skotchmaster/sweet_shop/internal/service"
	"github.com/Skotchmaster/sweet_shop/internal/transport"
	middleware "github.com/Skotchmaster/sweet_shop/pkg/middleware/auth"
	"github.com/Skotchmaster/sweet_shop/pkg/logging"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const maxBodyBytes = 1 << 20

type SweetHTTP struct {
	Svc *service.SweetService
}

func sweetID(c echo.Context) (string, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "Invalid sweet ID format")
	}
	return id.String(), nil
}

func (h *SweetHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "sweet.create")

	var req transport.CreateSweetRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_sweet_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	sweet, err := h.Svc.Create(ctx, req.ToInput())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, transport.Response{
		Success: true,
		Message: "Sweet created successfully",
		Data:    sweet,
	})
}

func (h *SweetHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()

	sweets, err := h.Svc.List(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse("Sweets retrieved successfully", sweets))
}

func (h *SweetHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "sweet.search")

	f := models.SweetFilter{
		Name:     c.QueryParam("name"),
		Category: c.QueryParam("category"),
	}

	var bad []service.FieldError
	var err error
	if f.MinPrice, err = priceParam(c, "minPrice"); err != nil {
		bad = append(bad, service.FieldError{Field: "minPrice", Message: "Min price must be positive"})
	}
	if f.MaxPrice, err = priceParam(c, "maxPrice"); err != nil {
		bad = append(bad, service.FieldError{Field: "maxPrice", Message: "Max price must be positive"})
	}
	if len(bad) > 0 {
		l.Warn("search_failed", "status", 400, "reason", "bad price")
		return &service.ValidationError{Fields: bad}
	}

	sweets, err := h.Svc.Search(ctx, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse("Search completed successfully", sweets))
}

func (h *SweetHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "sweet.update")

	id, err := sweetID(c)
	if err != nil {
		return err
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes))
	if err != nil {
		l.Warn("update_sweet_failed", "status", 400, "reason", "cannot read body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	var keys map[string]json.RawMessage
	var req transport.PatchSweetRequest
	if err := json.Unmarshal(raw, &keys); err != nil {
		l.Warn("update_sweet_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		l.Warn("update_sweet_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	if err := service.CheckUpdateKeys(names); err != nil {
		l.Warn("update_sweet_failed", "status", 400, "reason", "read-only fields", "error", err)
		return err
	}

	sweet, err := h.Svc.Update(ctx, id, req.ToPatch())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, transport.Response{
		Success: true,
		Message: "Sweet updated successfully",
		Data:    sweet,
	})
}

func (h *SweetHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := sweetID(c)
	if err != nil {
		return err
	}

	if err := h.Svc.Delete(ctx, id); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, transport.Response{
		Success: true,
		Message: "Sweet deleted successfully",
	})
}

func (h *SweetHTTP) Purchase(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "sweet.purchase")

	id, err := sweetID(c)
	if err != nil {
		return err
	}

	var req transport.QuantityRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("purchase_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	who, _ := middleware.FromContext(ctx)
	sweet, err := h.Svc.Purchase(ctx, id, req.Value(), who.UserID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, transport.Response{
		Success: true,
		Message: "Purchase successful",
		Data:    sweet,
	})
}

func (h *SweetHTTP) Restock(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "sweet.restock")

	id, err := sweetID(c)
	if err != nil {
		return err
	}

	var req transport.QuantityRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("restock_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	who, _ := middleware.FromContext(ctx)
	sweet, err := h.Svc.Restock(ctx, id, req.Value(), who.UserID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, transport.Response{
		Success: true,
		Message: "Restock successful",
		Data:    sweet,
	})
}

func listResponse(msg string, sweets []models.Sweet) transport.ListResponse {
	if sweets == nil {
		sweets = []models.Sweet{}
	}
	return transport.ListResponse{Success: true, Message: msg, Data: sweets, Count: len(sweets)}
}

// priceParam returns nil for an absent parameter and an error for one
// that does not parse. Sign checks happen in the service.
func priceParam(c echo.Context, name string) (*float64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
