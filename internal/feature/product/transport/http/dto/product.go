// Package dto は商品フィーチャーのHTTPトランスポート層のデータ転送オブジェクトを定義します。
package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"product_backend/internal/api"
)

// ProductReq は商品の作成・更新で共通のリクエストボディです。
// 更新は全項目の置き換えのため、すべてのフィールドを必須とします。
type ProductReq struct {
	Name        *string          `json:"name" binding:"required"`
	Description *string          `json:"description" binding:"required"`
	Price       *decimal.Decimal `json:"price" binding:"required"`
	Stock       *int             `json:"stock" binding:"required"`
}

// ProductRes は商品のレスポンスボディです。priceはJSONの数値として出力します。
type ProductRes struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       api.Decimal `json:"price"`
	Stock       int         `json:"stock"`
}
