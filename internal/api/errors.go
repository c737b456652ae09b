package api

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"product_backend/internal/shared/apperror"
)

// internalMessage は内部エラー時に公開する固定文言です。
const internalMessage = "an internal error occurred"

// toResponse はエラーを公開用のステータスコードとボディへ変換します。
// 型付きでないエラーはInternalとして扱い、詳細は公開しません。
func toResponse(c *gin.Context, err error) (int, ErrorResponse) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) || appErr.Kind == apperror.Internal {
		slog.Error("request failed",
			"error", err,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"remote_addr", c.ClientIP(),
		)
		status := apperror.Internal.StatusCode()
		return status, ErrorResponse{Error: internalMessage, StatusCode: status}
	}

	status := appErr.Kind.StatusCode()
	msg := appErr.Message
	if msg == "" {
		msg = appErr.Kind.String()
	}
	return status, ErrorResponse{Error: msg, StatusCode: status}
}

// RespondError はエラーをJSONレスポンスとして書き込みます。
func RespondError(c *gin.Context, err error) {
	status, body := toResponse(c, err)
	c.JSON(status, body)
}

// AbortWithError はエラーをJSONレスポンスとして書き込み、以降のハンドラーを中断します。
func AbortWithError(c *gin.Context, err error) {
	status, body := toResponse(c, err)
	c.AbortWithStatusJSON(status, body)
}
