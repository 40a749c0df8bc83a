package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/villagegrid/outage-alerts/internal/core/domain"
	"github.com/villagegrid/outage-alerts/internal/core/ports"
)

// HeaderIdempotencyKey lets clients retry a toggle without flipping twice.
const HeaderIdempotencyKey = "Idempotency-Key"

type UserHandler struct {
	identity ports.IdentityService
	villages ports.VillageService
}

func NewUserHandler(identity ports.IdentityService, villages ports.VillageService) *UserHandler {
	return &UserHandler{identity: identity, villages: villages}
}

// Me returns the calling user with their home village embedded.
//
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Security     TokenAuth
// @Success      200  {object}  userResponse
// @Failure      401  {object}  errorResponse
// @Router       /users/me/ [get]
func (h *UserHandler) Me(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	user, err := h.identity.CurrentUser(c.Request().Context(), sess)
	if err != nil {
		return err
	}
	resp := toUserResponse(user)
	if user.VillageID != "" {
		v, err := h.villages.Get(c.Request().Context(), user.VillageID)
		switch {
		case err == nil:
			vr := toVillageResponse(v)
			resp.Village = &vr
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// ToggleSMS flips the SMS preference, or sets it when the body carries
// "enabled". Retries carrying the same Idempotency-Key are applied once.
//
// @Summary      Toggle SMS notifications
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     TokenAuth
// @Param        id               path      string            true   "User ID"
// @Param        Idempotency-Key  header    string            false  "Retry key"
// @Param        body             body      toggleSMSRequest  false  "Explicit preference"
// @Success      200              {object}  userResponse
// @Failure      401              {object}  errorResponse
// @Failure      403              {object}  errorResponse
// @Failure      404              {object}  errorResponse
// @Router       /users/{id}/toggle_sms/ [post]
func (h *UserHandler) ToggleSMS(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req toggleSMSRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return bindError(err)
		}
	}

	ctx := c.Request().Context()
	userID := c.Param("id")
	var user *domain.User
	if req.Enabled != nil {
		user, err = h.identity.SetSMSPreference(ctx, sess, userID, *req.Enabled)
	} else {
		key := strings.TrimSpace(c.Request().Header.Get(HeaderIdempotencyKey))
		user, err = h.identity.ToggleSMS(ctx, sess, userID, key)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// ChangePassword replaces the password and returns a fresh session token.
// Every other session of the user is closed.
//
// @Summary      Change password
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     TokenAuth
// @Param        id    path      string                 true  "User ID"
// @Param        body  body      changePasswordRequest  true  "Old and new password"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /users/{id}/change_password/ [post]
func (h *UserHandler) ChangePassword(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, token, err := h.identity.ChangePassword(c.Request().Context(), sess, c.Param("id"), req.OldPassword, req.NewPassword)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authResponse{Token: token, User: toUserResponse(user)})
}
