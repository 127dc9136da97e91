package httpserver

import (
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	jwthelp "github.com/kmorozov/clipstream/internal/jwt"
	"github.com/kmorozov/clipstream/internal/logging"
	"github.com/kmorozov/clipstream/internal/service"
)

type UserHTTP struct {
	Svc *service.SessionService
}

func fileInput(fh *multipart.FileHeader) (*service.FileInput, func(), error) {
	f, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	in := &service.FileInput{
		Reader:   f,
		Filename: fh.Filename,
		Size:     fh.Size,
	}
	return in, func() { f.Close() }, nil
}

func (h *UserHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user_register")

	in := service.RegisterInput{
		FullName: c.FormValue("fullName"),
		Email:    c.FormValue("email"),
		Username: c.FormValue("username"),
		Password: c.FormValue("password"),
	}

	if fh, err := c.FormFile("avatar"); err == nil {
		avatar, done, err := fileInput(fh)
		if err != nil {
			l.Warn("register_error", "status", 400, "error", err)
			return respond(c, http.StatusBadRequest, nil, "cannot read avatar file")
		}
		defer done()
		in.Avatar = avatar
	}

	if fh, err := c.FormFile("coverImage"); err == nil {
		cover, done, err := fileInput(fh)
		if err == nil {
			defer done()
			in.CoverImage = cover
		}
	}

	user, err := h.Svc.Register(ctx, in)
	if err != nil {
		l.Warn("register_failed", "status", statusFor(err), "error", err)
		return respondError(c, err)
	}

	return respond(c, http.StatusCreated, user, "user registered successfully")
}

func (h *UserHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user_login")

	var req service.LoginInput
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return respond(c, http.StatusBadRequest, nil, "invalid body")
	}

	res, err := h.Svc.Login(ctx, req)
	if err != nil {
		l.Warn("login_failed", "status", statusFor(err), "error", err)
		return respondError(c, err)
	}

	h.setSessionCookies(c, res)
	return respond(c, http.StatusOK, res, "logged in successfully")
}

func (h *UserHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user_refresh")

	raw := ""
	if cookie, err := c.Cookie("refreshToken"); err == nil {
		raw = cookie.Value
	}
	if raw == "" {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := c.Bind(&req); err == nil {
			raw = req.RefreshToken
		}
	}

	res, err := h.Svc.Refresh(ctx, raw)
	if err != nil {
		l.Warn("refresh_failed", "status", statusFor(err), "error", err)
		h.clearSessionCookies(c)
		return respondError(c, err)
	}

	h.setSessionCookies(c, res)
	return respond(c, http.StatusOK, res, "session refreshed")
}

func (h *UserHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user_logout")

	uid, _ := c.Get("user_id").(string)
	userID, err := uuid.Parse(uid)
	if err != nil {
		h.clearSessionCookies(c)
		return respond(c, http.StatusUnauthorized, nil, "invalid session")
	}

	if err := h.Svc.Logout(ctx, userID); err != nil {
		h.clearSessionCookies(c)
		l.Error("logout_failed", "status", 500, "error", err)
		return respondError(c, err)
	}

	h.clearSessionCookies(c)
	return respond(c, http.StatusOK, nil, "logged out successfully")
}

func (h *UserHTTP) setSessionCookies(c echo.Context, res *service.LoginResult) {
	c.SetCookie(jwthelp.CreateCookie("accessToken", res.AccessToken, "/", res.AccessExp))
	c.SetCookie(jwthelp.CreateCookie("refreshToken", res.RefreshToken, "/", res.RefreshExp))
}

func (h *UserHTTP) clearSessionCookies(c echo.Context) {
	c.SetCookie(jwthelp.DeleteCookie("accessToken", "/"))
	c.SetCookie(jwthelp.DeleteCookie("refreshToken", "/"))
}
