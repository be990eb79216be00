package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xiebiao/bookstore-order/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(t *testing.T, handler gin.HandlerFunc) Response {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	handler(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestError(t *testing.T) {
	t.Run("AppError返回业务码和上下文信息", func(t *testing.T) {
		err := apperrors.New(apperrors.ErrCodeInsufficientStock, "库存不足").Withf("图书%d", 3)
		resp := perform(t, func(c *gin.Context) { Error(c, err) })

		assert.Equal(t, apperrors.ErrCodeInsufficientStock, resp.Code)
		assert.Equal(t, "库存不足: 图书3", resp.Message)
		assert.Nil(t, resp.Data)
	})

	t.Run("内部错误不泄露原因", func(t *testing.T) {
		resp := perform(t, func(c *gin.Context) { Error(c, errors.New("dial tcp 10.0.0.1:3306")) })

		assert.Equal(t, apperrors.ErrCodeInternal, resp.Code)
		assert.NotContains(t, resp.Message, "10.0.0.1")
	})
}

func TestNewPageData(t *testing.T) {
	page := NewPageData([]int{1, 2}, 41, 1, 20)
	assert.Equal(t, 3, page.TotalPages)

	page = NewPageData(nil, 40, 2, 20)
	assert.Equal(t, 2, page.TotalPages)

	page = NewPageData(nil, 0, 1, 0)
	assert.Equal(t, 0, page.TotalPages)
}
