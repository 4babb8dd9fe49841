// Package response 统一 HTTP 响应结构
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/tokenexchange/pkg/apperr"
	"github.com/wyfcoding/tokenexchange/pkg/contextx"
)

// Body 响应体
type Body struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Success 200 成功响应
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Body{
		Code:      "OK",
		Message:   "success",
		Data:      data,
		RequestID: contextx.GetRequestID(c.Request.Context()),
	})
}

// Error 按错误分类映射状态码。内部错误不透出原始信息
func Error(c *gin.Context, err error) {
	statusCode := apperr.HTTPStatus(err)
	msg := err.Error()
	if statusCode == http.StatusInternalServerError {
		msg = "internal server error"
	}
	c.JSON(statusCode, Body{
		Code:      apperr.CodeOf(err),
		Message:   msg,
		RequestID: contextx.GetRequestID(c.Request.Context()),
	})
}

// ErrorWithStatus 指定状态码的错误响应
func ErrorWithStatus(c *gin.Context, statusCode int, message, detail string) {
	c.JSON(statusCode, Body{
		Code:      http.StatusText(statusCode),
		Message:   message,
		Detail:    detail,
		RequestID: contextx.GetRequestID(c.Request.Context()),
	})
}
