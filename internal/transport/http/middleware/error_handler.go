// Package middleware file: internal/transport/http/middleware/error_handler.go
package middleware

import (
	"VizQuery/internal/core/port"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ErrorHandling 是一个Gin中间件，用于集中处理处理器附加的错误。
// 处理器通过 c.Error(err) 上报，由这里统一映射为HTTP状态码。
func ErrorHandling() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		// 已经写过响应的不再处理，避免重复写入
		if c.Writer.Written() {
			return
		}

		// 只处理最后一个错误，它通常是根本原因
		err := c.Errors.Last().Err

		// 参数绑定或验证错误
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数验证失败", "details": ve.Error()})
			return
		}

		switch {
		case errors.Is(err, port.ErrSourceNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

		case errors.Is(err, port.ErrSourceDisabled), errors.Is(err, port.ErrPermissionDenied):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		}
	}
}
