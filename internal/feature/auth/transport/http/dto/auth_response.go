package dto

// AuthRes は登録・ログイン成功時のレスポンスボディです。
type AuthRes struct {
	Token string `json:"token"`
	Email string `json:"email"`
}
