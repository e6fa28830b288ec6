// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"github.com/gin-gonic/gin"

	"dee-studio/pkg/errors"
)

// WriteError 将应用错误写为响应体
// 响应体即 AppError 本身：{code, message, detail}，客户端优先展示 detail
func WriteError(c *gin.Context, err error) {
	appErr := errors.AsAppError(err)
	c.JSON(appErr.HTTPStatus, appErr)
}

// BadRequest 返回 400 错误
func BadRequest(c *gin.Context, message string) {
	WriteError(c, errors.New(errors.CodeInvalidParam, message))
}

// NotFound 返回 404 错误
func NotFound(c *gin.Context, message string) {
	WriteError(c, errors.New(errors.CodeNotFound, message))
}

// InternalError 返回 500 错误
func InternalError(c *gin.Context, message string) {
	WriteError(c, errors.New(errors.CodeInternalError, message))
}
