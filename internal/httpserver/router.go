package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kmorozov/clipstream/internal/middleware"
)

type Deps struct {
	UserHandler   *UserHTTP
	SearchHandler *SearchHTTP
	JWTSecret     []byte
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	authMw := middleware.NewSimpleAuth(d.JWTSecret)

	users := e.Group("/api/v1/users")
	users.POST("/register", d.UserHandler.Register)
	users.POST("/login", d.UserHandler.Login)
	users.POST("/refresh", d.UserHandler.Refresh)

	if d.SearchHandler != nil {
		users.GET("/search", d.SearchHandler.Search)
	}

	private := users.Group("")
	private.Use(authMw.RequireAuth)
	private.POST("/logout", d.UserHandler.Logout)
}
