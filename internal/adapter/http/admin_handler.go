package http

import (
	"net/http"

	"pooled-lending/internal/usecase/registry"

	"github.com/labstack/echo/v4"
)

type AdminHandler struct{ registry *registry.Usecase }

func NewAdminHandler(r *registry.Usecase) *AdminHandler { return &AdminHandler{registry: r} }

type assetReq struct {
	Asset string `json:"asset" validate:"required"`
}

type thresholdReq struct {
	ThresholdPct uint32 `json:"threshold_pct" validate:"gte=1,lte=100"`
}

func (h *AdminHandler) AllowAsset(c echo.Context) error {
	var req assetReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	if err := h.registry.AllowAsset(c.Request().Context(), principal(c), req.Asset); err != nil {
		return respondError(c, err)
	}
	return h.assets(c, http.StatusCreated)
}

func (h *AdminHandler) DisallowAsset(c echo.Context) error {
	if err := h.registry.DisallowAsset(c.Request().Context(), principal(c), c.Param("asset")); err != nil {
		return respondError(c, err)
	}
	return h.assets(c, http.StatusOK)
}

func (h *AdminHandler) ListAssets(c echo.Context) error { return h.assets(c, http.StatusOK) }

func (h *AdminHandler) assets(c echo.Context, status int) error {
	list, err := h.registry.ListAssets(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status, map[string]any{"assets": list})
}

func (h *AdminHandler) SetThreshold(c echo.Context) error {
	var req thresholdReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	if err := h.registry.SetDefaultThreshold(c.Request().Context(), principal(c), req.ThresholdPct); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, req)
}

func (h *AdminHandler) GetThreshold(c echo.Context) error {
	pct, err := h.registry.DefaultThreshold(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, thresholdReq{ThresholdPct: pct})
}
