package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/kmorozov/clipstream/internal/es"
	"github.com/kmorozov/clipstream/internal/util"
)

type SearchHTTP struct {
	Index *es.UserIndex
}

func (h *SearchHTTP) Search(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return respond(c, http.StatusBadRequest, nil, "query parameter q is required")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	from, size := util.Calculate(page, size)

	total, users, err := h.Index.Search(c.Request().Context(), q, from, size)
	if err != nil {
		return respond(c, http.StatusInternalServerError, nil, "search unavailable")
	}

	return respond(c, http.StatusOK, echo.Map{"total": total, "users": users}, "ok")
}
