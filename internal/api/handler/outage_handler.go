package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/villagegrid/outage-alerts/internal/core/ports"
)

// OutageHandler handles HTTP requests for outage operations.
type OutageHandler struct {
	service ports.OutageService
}

func NewOutageHandler(service ports.OutageService) *OutageHandler {
	return &OutageHandler{service: service}
}

// Create handles POST /outages/. The village defaults to the reporting
// employee's own village.
//
// @Summary      Report an outage
// @Tags         outages
// @Accept       json
// @Produce      json
// @Security     TokenAuth
// @Param        body  body      createOutageRequest  true  "Outage details"
// @Success      201   {object}  outageResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /outages/ [post]
func (h *OutageHandler) Create(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	var req createOutageRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	detail, err := h.service.Create(c.Request().Context(), sess, toCreateOutageInput(req))
	if err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderLocation, "/outages/"+detail.Outage.ID+"/")
	return c.JSON(http.StatusCreated, toOutageResponse(detail))
}

// Get handles GET /outages/:id/.
//
// @Summary      Get an outage
// @Tags         outages
// @Produce      json
// @Security     TokenAuth
// @Param        id   path      string  true  "Outage ID"
// @Success      200  {object}  outageResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /outages/{id}/ [get]
func (h *OutageHandler) Get(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	detail, err := h.service.Get(c.Request().Context(), sess, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toOutageResponse(detail))
}

// List handles GET /outages/ for employees.
//
// @Summary      List outages
// @Tags         outages
// @Produce      json
// @Security     TokenAuth
// @Param        village   query     string  false  "Village ID"
// @Param        resolved  query     bool    false  "Resolution state"
// @Param        severity  query     string  false  "low, medium or high"
// @Param        from      query     string  false  "Start time lower bound (RFC3339)"
// @Param        to        query     string  false  "Start time upper bound (RFC3339)"
// @Success      200       {array}   outageResponse
// @Failure      400       {object}  errorResponse
// @Failure      401       {object}  errorResponse
// @Failure      403       {object}  errorResponse
// @Router       /outages/ [get]
func (h *OutageHandler) List(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	in := ports.ListOutagesInput{
		VillageID: c.QueryParam("village"),
		Severity:  c.QueryParam("severity"),
	}
	if raw := c.QueryParam("resolved"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "resolved must be true or false")
		}
		in.Resolved = &b
	}
	if in.From, in.To, err = timeRange(c); err != nil {
		return err
	}

	ds, err := h.service.ListAll(c.Request().Context(), sess, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toOutageList(ds))
}

// Active handles GET /outages/active/. Residents always see their own village.
//
// @Summary      List active outages
// @Tags         outages
// @Produce      json
// @Security     TokenAuth
// @Param        village  query     string  false  "Village ID (employees only)"
// @Success      200      {array}   outageResponse
// @Failure      401      {object}  errorResponse
// @Router       /outages/active/ [get]
func (h *OutageHandler) Active(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	ds, err := h.service.ListActive(c.Request().Context(), sess, c.QueryParam("village"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toOutageList(ds))
}

// History handles GET /outages/history/, newest resolution first.
//
// @Summary      Outage history
// @Tags         outages
// @Produce      json
// @Security     TokenAuth
// @Param        village  query     string  false  "Village ID (employees only)"
// @Param        from     query     string  false  "Resolved time lower bound (RFC3339)"
// @Param        to       query     string  false  "Resolved time upper bound (RFC3339)"
// @Success      200      {array}   outageResponse
// @Failure      400      {object}  errorResponse
// @Failure      401      {object}  errorResponse
// @Router       /outages/history/ [get]
func (h *OutageHandler) History(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	in := ports.HistoryInput{VillageID: c.QueryParam("village")}
	if in.From, in.To, err = timeRange(c); err != nil {
		return err
	}
	ds, err := h.service.ListHistory(c.Request().Context(), sess, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toOutageList(ds))
}

// Resolve handles POST /outages/:id/resolve/. A second resolve returns 409.
//
// @Summary      Resolve an outage
// @Tags         outages
// @Produce      json
// @Security     TokenAuth
// @Param        id   path      string  true  "Outage ID"
// @Success      200  {object}  outageResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /outages/{id}/resolve/ [post]
func (h *OutageHandler) Resolve(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	detail, err := h.service.Resolve(c.Request().Context(), sess, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toOutageResponse(detail))
}

// Update handles PUT and PATCH /outages/:id/. Only the fields present in
// the body change.
//
// @Summary      Update an open outage
// @Tags         outages
// @Accept       json
// @Produce      json
// @Security     TokenAuth
// @Param        id    path      string               true  "Outage ID"
// @Param        body  body      updateOutageRequest  true  "Fields to change"
// @Success      200   {object}  outageResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /outages/{id}/ [put]
func (h *OutageHandler) Update(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	var req updateOutageRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}

	detail, err := h.service.Update(c.Request().Context(), sess, c.Param("id"), toOutagePatch(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toOutageResponse(detail))
}

// Delete handles DELETE /outages/:id/.
//
// @Summary      Delete an outage
// @Tags         outages
// @Security     TokenAuth
// @Param        id   path  string  true  "Outage ID"
// @Success      204
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /outages/{id}/ [delete]
func (h *OutageHandler) Delete(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), sess, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// timeRange parses the optional from/to query parameters.
func timeRange(c echo.Context) (from, to time.Time, err error) {
	if from, err = queryTime(c, "from"); err != nil {
		return
	}
	to, err = queryTime(c, "to")
	return
}

func queryTime(c echo.Context, name string) (time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("%s must be an RFC3339 timestamp", name))
	}
	return t.UTC(), nil
}
