package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/bookstore-order/internal/interface/http/middleware"
	"github.com/xiebiao/bookstore-order/pkg/response"
)

// TokenRevoker Token注销，*redis.TokenBlacklist实现了它
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
}

// AuthHandler 登出（签发Token由用户服务负责）
type AuthHandler struct {
	revoker TokenRevoker
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(revoker TokenRevoker) *AuthHandler {
	return &AuthHandler{revoker: revoker}
}

// Logout 注销当前Token
// @Summary      登出
// @Description  当前Token加入黑名单，直到原定过期时间
// @Tags         认证
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	tokenID, ttl := middleware.GetToken(c)
	if err := h.revoker.Revoke(c.Request.Context(), tokenID, ttl); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
