package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	jwthelp "github.com/kmorozov/clipstream/internal/jwt"
	"github.com/kmorozov/clipstream/internal/tokens"
)

type SimpleAuth struct {
	JWTSecret []byte
}

func NewSimpleAuth(secret []byte) *SimpleAuth {
	return &SimpleAuth{JWTSecret: secret}
}

func (m *SimpleAuth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := ""
		if accessCookie, err := c.Cookie("accessToken"); err == nil {
			raw = accessCookie.Value
		}
		if raw == "" {
			if auth := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
				raw = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		if raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		claims, err := tokens.AccessClaimsFromToken(raw, m.JWTSecret)
		if err != nil || claims == nil {
			c.SetCookie(jwthelp.DeleteCookie("accessToken", "/"))
			c.SetCookie(jwthelp.DeleteCookie("refreshToken", "/"))
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		c.Set("user_id", claims.Subject)
		c.Set("username", claims.Username)

		return next(c)
	}
}
