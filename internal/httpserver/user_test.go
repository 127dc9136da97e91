package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kmorozov/clipstream/internal/models"
	"github.com/kmorozov/clipstream/internal/repo"
	"github.com/kmorozov/clipstream/internal/service"
)

type stubUploader struct {
	fail bool
}

func (s *stubUploader) Upload(_ context.Context, _ io.Reader, filename string, _ int64) (string, error) {
	if s.fail {
		return "", fmt.Errorf("upload rejected")
	}
	return "https://cdn.example.com/media/" + filename, nil
}

type testEnv struct {
	E   *echo.Echo
	Svc *service.SessionService
	DB  *gorm.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	svc := &service.SessionService{
		Repo:          &repo.GormRepo{DB: db},
		Media:         &stubUploader{},
		AccessSecret:  []byte("test-jwt-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	}

	e := echo.New()
	Register(e, &Deps{
		UserHandler: &UserHTTP{Svc: svc},
		JWTSecret:   svc.AccessSecret,
	})

	return &testEnv{E: e, Svc: svc, DB: db}
}

func multipartRegisterBody(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for field, filename := range files {
		fw, err := w.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte("png-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func adaFields() map[string]string {
	return map[string]string{
		"fullName": "Ada Lovelace",
		"email":    "ada@x.com",
		"username": "Ada",
		"password": "s3cret!",
	}
}

func (env *testEnv) register(t *testing.T) *httptest.ResponseRecorder {
	t.Helper()

	body, contentType := multipartRegisterBody(t, adaFields(), map[string]string{"avatar": "avatar.png"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) login(t *testing.T) *httptest.ResponseRecorder {
	t.Helper()

	payload, _ := json.Marshal(map[string]string{"username": "ada", "password": "s3cret!"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestRegister_Created(t *testing.T) {
	env := newTestEnv(t)

	rec := env.register(t)
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, http.StatusCreated, resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ada", data["username"])
	assert.NotEmpty(t, data["avatar_url"])
	assert.NotContains(t, strings.ToLower(rec.Body.String()), "password")
}

func TestRegister_MissingAvatar(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartRegisterBody(t, adaFields(), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	assert.NotEmpty(t, resp.Message)
}

func TestRegister_Duplicate_Conflict(t *testing.T) {
	env := newTestEnv(t)

	require.Equal(t, http.StatusCreated, env.register(t).Code)
	rec := env.register(t)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, decodeResponse(t, rec).Success)
}

func TestLogin_SetsSessionCookies(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated, env.register(t).Code)

	rec := env.login(t)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	var access, refresh *http.Cookie
	for _, ck := range cookies {
		switch ck.Name {
		case "accessToken":
			access = ck
		case "refreshToken":
			refresh = ck
		}
	}
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	assert.True(t, access.HttpOnly)
	assert.True(t, refresh.HttpOnly)
	assert.True(t, access.Secure)
	assert.NotEmpty(t, access.Value)
	assert.NotEmpty(t, refresh.Value)

	resp := decodeResponse(t, rec)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, data["access_token"])
	assert.NotEmpty(t, data["refresh_token"])

	user, ok := data["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ada", user["username"])
	assert.NotContains(t, user, "password_hash")
}

func TestLogin_UnknownUser(t *testing.T) {
	env := newTestEnv(t)

	rec := env.login(t)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, decodeResponse(t, rec).Success)
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated, env.register(t).Code)

	payload, _ := json.Marshal(map[string]string{"username": "ada", "password": "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_MissingIdentity(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated, env.register(t).Code)

	payload, _ := json.Marshal(map[string]string{"password": "s3cret!"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefresh_RotatesCookies(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated, env.register(t).Code)
	loginRec := env.login(t)
	require.Equal(t, http.StatusOK, loginRec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh", nil)
	for _, ck := range loginRec.Result().Cookies() {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var newRefresh string
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "refreshToken" {
			newRefresh = ck.Value
		}
	}
	require.NotEmpty(t, newRefresh)

	var oldRefresh string
	for _, ck := range loginRec.Result().Cookies() {
		if ck.Name == "refreshToken" {
			oldRefresh = ck.Value
		}
	}
	assert.NotEqual(t, oldRefresh, newRefresh)
}

func TestLogout_ClearsSession(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated, env.register(t).Code)
	loginRec := env.login(t)
	require.Equal(t, http.StatusOK, loginRec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil)
	for _, ck := range loginRec.Result().Cookies() {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "accessToken" || ck.Name == "refreshToken" {
			assert.Empty(t, ck.Value)
			assert.True(t, ck.MaxAge < 0)
		}
	}

	var stored models.User
	require.NoError(t, env.DB.Where("username = ?", "ada").First(&stored).Error)
	assert.Nil(t, stored.RefreshTokenHash)
}

func TestLogout_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil)
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
