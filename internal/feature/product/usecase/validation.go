package usecase

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateProductCommand は商品作成の入力です。
type CreateProductCommand struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
}

// UpdateProductCommand は商品更新の入力です。全フィールドで置き換えます。
type UpdateProductCommand struct {
	ID          uuid.UUID
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
}

// priceRule は0以上かつ小数点以下2桁までの価格を許可します。
var priceRule = validation.By(func(value any) error {
	d, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("must be a decimal")
	}
	if d.IsNegative() {
		return errors.New("must be no less than 0")
	}
	if !d.Equal(d.Truncate(2)) {
		return errors.New("must have at most two decimal places")
	}
	return nil
})

// Validate は作成入力を検証します。
func (c CreateProductCommand) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required, validation.RuneLength(1, 200)),
		validation.Field(&c.Description, validation.RuneLength(0, 1000)),
		validation.Field(&c.Price, priceRule),
		validation.Field(&c.Stock, validation.Min(0)),
	)
}

// Validate は更新入力を検証します。
func (c UpdateProductCommand) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ID, validation.By(func(value any) error {
			if id, _ := value.(uuid.UUID); id == uuid.Nil {
				return errors.New("cannot be blank")
			}
			return nil
		})),
		validation.Field(&c.Name, validation.Required, validation.RuneLength(1, 200)),
		validation.Field(&c.Description, validation.RuneLength(0, 1000)),
		validation.Field(&c.Price, priceRule),
		validation.Field(&c.Stock, validation.Min(0)),
	)
}
