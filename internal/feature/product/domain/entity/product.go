// Package entity は商品フィーチャーのドメインエンティティを定義します。
package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product は在庫管理対象の商品を表します。
type Product struct {
	// ID は作成時にストア層で採番され、以後変更されません。
	ID          uuid.UUID       `gorm:"type:char(36);primaryKey"`
	Name        string          `gorm:"size:200;not null"`
	Description string          `gorm:"size:1000"`
	Price       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Stock       int             `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BeforeCreate はIDが未設定の場合に新しいIDを割り当てます。
func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
