// Package api はHTTP境界で共有するレスポンス型とエラー変換を提供します。
package api

import "github.com/shopspring/decimal"

// Decimal はレスポンスでJSONの数値として出力される10進数です。
// decimal.MarshalJSONWithoutQuotes のようなプロセス全体の設定には依存しません。
type Decimal struct {
	decimal.Decimal
}

// NewDecimal はdをDecimalに包みます。
func NewDecimal(d decimal.Decimal) Decimal {
	return Decimal{Decimal: d}
}

// MarshalJSON は引用符なしの数値を出力します。
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(d.Decimal.String()), nil
}

// ErrorResponse はエラー時のレスポンスボディです。
type ErrorResponse struct {
	Error      string `json:"error"`
	StatusCode int    `json:"statusCode"`
}

// StatusResponse はヘルスチェックのレスポンスボディです。
type StatusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
