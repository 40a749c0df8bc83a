package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/villagegrid/outage-alerts/internal/core/ports"
)

type VillageHandler struct {
	villages ports.VillageService
}

func NewVillageHandler(villages ports.VillageService) *VillageHandler {
	return &VillageHandler{villages: villages}
}

// List returns every provisioned village ordered by name.
//
// @Summary      List villages
// @Tags         villages
// @Produce      json
// @Security     TokenAuth
// @Success      200  {array}   villageResponse
// @Failure      401  {object}  errorResponse
// @Router       /villages/ [get]
func (h *VillageHandler) List(c echo.Context) error {
	vs, err := h.villages.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toVillageList(vs))
}

// Get returns one village.
//
// @Summary      Get a village
// @Tags         villages
// @Produce      json
// @Security     TokenAuth
// @Param        id   path      string  true  "Village ID"
// @Success      200  {object}  villageResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /villages/{id}/ [get]
func (h *VillageHandler) Get(c echo.Context) error {
	v, err := h.villages.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toVillageResponse(v))
}
