package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"community-service/backend/internal/auth"
)

type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, token string) (auth.Identity, error) {
	switch token {
	case "good":
		return auth.Identity{UserID: 7, Username: "nova"}, nil
	case "down":
		return auth.Identity{}, fmt.Errorf("%w: dial tcp", auth.ErrVerifierUnavailable)
	default:
		return auth.Identity{}, auth.ErrInvalidToken
	}
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Auth(stubVerifier{}, zap.NewNop()))
	r.GET("/whoami", func(c *gin.Context) {
		id, ok := auth.CallerFrom(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"ok": ok, "userId": id.UserID, "ctxUser": c.GetUint64(UserIDKey)})
	})
	return r
}

func do(r http.Handler, target, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthResolvesCaller(t *testing.T) {
	r := newRouter()

	w := do(r, "/whoami", "Bearer good")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"userId":7,"ctxUser":7}`, w.Body.String())

	w = do(r, "/whoami", "bearer good")
	assert.JSONEq(t, `{"ok":true,"userId":7,"ctxUser":7}`, w.Body.String())

	w = do(r, "/whoami?token=good", "")
	assert.JSONEq(t, `{"ok":true,"userId":7,"ctxUser":7}`, w.Body.String())
}

func TestAuthLeavesRequestAnonymous(t *testing.T) {
	r := newRouter()
	for _, h := range []string{"", "Bearer bad", "Basic Zm9vOmJhcg=="} {
		w := do(r, "/whoami", h)
		assert.Equal(t, http.StatusOK, w.Code, h)
		assert.JSONEq(t, `{"ok":false,"userId":0,"ctxUser":0}`, w.Body.String(), h)
	}
}

func TestAuthVerifierOutage(t *testing.T) {
	w := do(newRouter(), "/whoami", "Bearer down")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"success":false,"code":"UNAVAILABLE","error":"authentication service unavailable"}`, w.Body.String())
}

func TestExtractBearer(t *testing.T) {
	assert.Equal(t, "abc", extractBearer("Bearer  abc "))
	assert.Equal(t, "", extractBearer("Bearer "))
	assert.Equal(t, "", extractBearer("Token abc"))
}

func TestLoggerLevels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(Logger(zap.New(core)), Recovery(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/panic", func(c *gin.Context) { panic(errors.New("boom")) })

	do(r, "/ok", "")
	do(r, "/missing", "")
	w := do(r, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	entries := logs.FilterMessage("request").All()
	if assert.Len(t, entries, 3) {
		assert.Equal(t, zap.InfoLevel, entries[0].Level)
		assert.Equal(t, zap.WarnLevel, entries[1].Level)
		assert.Equal(t, zap.ErrorLevel, entries[2].Level)
	}
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}
