package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/villagegrid/outage-alerts/internal/core/domain"
	"github.com/villagegrid/outage-alerts/internal/core/ports"
)

// Context keys set by Auth.
const (
	SessionKey = "session"
	TokenKey   = "token"
)

// Auth validates the session token and injects the session into context.
// Both "Token <t>" and "Bearer <t>" schemes are accepted.
func Auth(identity ports.IdentityService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			token, ok := parseAuthorization(authHeader)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			sess, err := identity.ValidateSession(c.Request().Context(), token)
			if err != nil {
				if errors.Is(err, domain.ErrUnauthorized) {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
				}
				// store outages surface as 503 through the error handler
				return err
			}

			c.Set(SessionKey, sess)
			c.Set(TokenKey, token)

			return next(c)
		}
	}
}

func parseAuthorization(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "token") && !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
