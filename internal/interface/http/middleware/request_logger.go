package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xiebiao/bookstore-order/pkg/logger"
)

// RequestIDHeader 请求ID，客户端没有传时生成uuid
const RequestIDHeader = "X-Request-ID"

// RequestLogger 访问日志
// 5xx用Error级别，4xx和业务错误由response.Error另行记录
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if uid := GetUserID(c); uid != 0 {
			fields = append(fields, zap.Uint("user_id", uid))
		}

		ctx := c.Request.Context()
		if c.Writer.Status() >= 500 {
			logger.Error(ctx, log, "http request", fields...)
			return
		}
		logger.Info(ctx, log, "http request", fields...)
	}
}
