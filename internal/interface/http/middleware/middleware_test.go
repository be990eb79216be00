package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	apperrors "github.com/xiebiao/bookstore-order/pkg/errors"
	"github.com/xiebiao/bookstore-order/pkg/jwt"
	"github.com/xiebiao/bookstore-order/pkg/response"
	"github.com/xiebiao/bookstore-order/pkg/tracing"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeBlacklist struct {
	revoked map[string]bool
	err     error
}

func (f *fakeBlacklist) IsRevoked(_ context.Context, id string) (bool, error) {
	return f.revoked[id], f.err
}

func newAuthRouter(bl RevocationChecker, m *jwt.Manager) *gin.Engine {
	auth := NewAuthMiddleware(m, bl)
	r := gin.New()
	r.GET("/me", auth.RequireAuth(), func(c *gin.Context) {
		id, ttl := GetToken(c)
		response.Success(c, gin.H{"user_id": GetUserID(c), "admin": IsAdmin(c), "jti": id, "ttl_positive": ttl > 0})
	})
	r.GET("/admin", auth.RequireAuth(), auth.RequireAdmin(), func(c *gin.Context) {
		response.Success(c, nil)
	})
	return r
}

func do(t *testing.T, r http.Handler, path, token string) response.Response {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRequireAuth(t *testing.T) {
	m := jwt.NewManager("secret", "bookstore", time.Hour)
	customer, err := m.Generate(7, jwt.RoleCustomer)
	require.NoError(t, err)
	admin, err := m.Generate(1, jwt.RoleAdmin)
	require.NoError(t, err)
	adminClaims, err := m.ParseToken(admin)
	require.NoError(t, err)

	bl := &fakeBlacklist{revoked: map[string]bool{adminClaims.ID: false}}
	r := newAuthRouter(bl, m)

	t.Run("缺少Token", func(t *testing.T) {
		assert.Equal(t, apperrors.ErrCodeUnauthorized, do(t, r, "/me", "").Code)
	})
	t.Run("格式错误", func(t *testing.T) {
		assert.Equal(t, apperrors.ErrCodeInvalidToken, do(t, r, "/me", customer).Code)
	})
	t.Run("签名错误", func(t *testing.T) {
		other, _ := jwt.NewManager("other", "bookstore", time.Hour).Generate(7, jwt.RoleCustomer)
		assert.Equal(t, apperrors.ErrCodeInvalidToken, do(t, r, "/me", "Bearer "+other).Code)
	})
	t.Run("正常", func(t *testing.T) {
		resp := do(t, r, "/me", "Bearer "+customer)
		require.Equal(t, 0, resp.Code)
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, float64(7), data["user_id"])
		assert.Equal(t, false, data["admin"])
		assert.NotEmpty(t, data["jti"])
		assert.Equal(t, true, data["ttl_positive"])
	})
	t.Run("非管理员", func(t *testing.T) {
		assert.Equal(t, apperrors.ErrCodeForbidden, do(t, r, "/admin", "Bearer "+customer).Code)
	})
	t.Run("管理员", func(t *testing.T) {
		assert.Equal(t, 0, do(t, r, "/admin", "Bearer "+admin).Code)
	})
	t.Run("已注销", func(t *testing.T) {
		bl.revoked[adminClaims.ID] = true
		defer func() { bl.revoked[adminClaims.ID] = false }()
		assert.Equal(t, apperrors.ErrCodeTokenExpired, do(t, r, "/admin", "Bearer "+admin).Code)
	})
	t.Run("黑名单不可用", func(t *testing.T) {
		failing := newAuthRouter(&fakeBlacklist{err: apperrors.Wrap(errors.New("redis down"), "检查黑名单失败")}, m)
		assert.Equal(t, apperrors.ErrCodeInternal, do(t, failing, "/me", "Bearer "+customer).Code)
	})
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(RequestLogger(zap.New(core)))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader), "生成请求ID")

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader), "沿用客户端的请求ID")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "req-1", entries[1].ContextMap()["request_id"])
	assert.Equal(t, int64(500), entries[1].ContextMap()["status"])
}

func TestTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tracing.Install(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))

	r := gin.New()
	r.Use(Tracing("bookstore-order"))
	r.GET("/orders/:id", func(c *gin.Context) {
		assert.NotEmpty(t, tracing.ExtractTraceID(c.Request.Context()))
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/orders/42", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	r.ServeHTTP(httptest.NewRecorder(), req)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /orders/:id", spans[0].Name())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spans[0].SpanContext().TraceID().String(), "继承上游trace")
}
