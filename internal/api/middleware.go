package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/housei/dashboard/domain/entities"
	"github.com/housei/dashboard/internal/auth"
)

const adminContextKey = "admin"

// bearerToken extracts a token from the Authorization header, falling back
// to the token query parameter when allowQuery is set. Browsers cannot set
// headers on websocket requests.
func bearerToken(c echo.Context, allowQuery bool) string {
	authHeader := c.Request().Header.Get("Authorization")
	if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok && token != "" {
		return token
	}
	if allowQuery {
		return c.QueryParam("token")
	}
	return ""
}

// requireAdmin rejects requests without a valid admin token and stores the
// admin on the context
func requireAdmin(issuer *auth.TokenIssuer, allowQuery bool, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c, allowQuery)
			if token == "" {
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "missing_token",
					Message: "Admin token is required",
				})
			}

			claims, err := issuer.ValidateToken(token)
			if err != nil {
				logger.Warn("Request rejected: invalid token",
					zap.String("path", c.Path()),
					zap.Error(err))
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "invalid_token",
					Message: "Invalid or expired admin token",
				})
			}

			c.Set(adminContextKey, claims.User())
			return next(c)
		}
	}
}

func adminFrom(c echo.Context) *entities.AdminUser {
	user, _ := c.Get(adminContextKey).(*entities.AdminUser)
	return user
}
