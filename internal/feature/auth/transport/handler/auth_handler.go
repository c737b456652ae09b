// Package handler はauthフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"product_backend/internal/api"
	"product_backend/internal/feature/auth/transport/http/dto"
	"product_backend/internal/feature/auth/usecase"
	"product_backend/internal/shared/apperror"
	"product_backend/internal/shared/dispatch"
)

// AuthHandler は認証操作のHTTPリクエストを処理します。
// 操作はディスパッチャー経由でユースケースへ委譲します。
type AuthHandler struct {
	dispatcher dispatch.Sender
}

// NewAuthHandler はAuthHandlerの新しいインスタンスを生成します。
func NewAuthHandler(dispatcher dispatch.Sender) *AuthHandler {
	return &AuthHandler{dispatcher: dispatcher}
}

// Register はユーザー登録APIエンドポイントを処理します。
// - リクエストJSONをRegisterReqにバインド
// - バリデーションエラー時は400を返却
// - メール重複時は409を返却
// - 成功時はトークン付きで200を返却
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("register validation failed", "error", err, "remote_addr", c.ClientIP())
		api.RespondError(c, apperror.NewValidation(err.Error(), err))
		return
	}

	res, err := dispatch.Send[usecase.AuthResult](c.Request.Context(), h.dispatcher, usecase.KindRegister,
		usecase.RegisterCommand{Email: req.Email, Password: req.Password, FullName: req.FullName})
	if err != nil {
		slog.Warn("register failed", "error", err, "email", req.Email, "remote_addr", c.ClientIP())
		api.RespondError(c, err)
		return
	}

	slog.Info("user register successful", "email", res.Email, "remote_addr", c.ClientIP())
	c.JSON(http.StatusOK, dto.AuthRes{Token: res.Token, Email: res.Email})
}

// Login はユーザーログインAPIエンドポイントを処理します。
// - リクエストJSONをLoginReqにバインド
// - バリデーションエラー時は400を返却
// - 認証失敗時は401を返却
// - 認証成功時はトークン付きで200を返却
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("login validation failed", "error", err, "remote_addr", c.ClientIP())
		api.RespondError(c, apperror.NewValidation(err.Error(), err))
		return
	}

	res, err := dispatch.Send[usecase.AuthResult](c.Request.Context(), h.dispatcher, usecase.KindLogin,
		usecase.LoginCommand{Email: req.Email, Password: req.Password})
	if err != nil {
		// ユーザー列挙攻撃を防止するため、ユースケースは同一のメッセージを返す
		slog.Warn("login failed", "error", err, "email", req.Email, "remote_addr", c.ClientIP())
		api.RespondError(c, err)
		return
	}

	slog.Info("user login successful", "email", res.Email, "remote_addr", c.ClientIP())
	c.JSON(http.StatusOK, dto.AuthRes{Token: res.Token, Email: res.Email})
}
