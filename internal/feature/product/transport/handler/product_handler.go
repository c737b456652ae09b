// Package handler は商品フィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"product_backend/internal/api"
	"product_backend/internal/feature/product/transport/http/dto"
	"product_backend/internal/feature/product/usecase"
	jwtmw "product_backend/internal/platform/jwt"
	"product_backend/internal/shared/apperror"
	"product_backend/internal/shared/dispatch"
)

// ProductHandler は商品CRUDのHTTPリクエストを処理します。
type ProductHandler struct {
	dispatcher dispatch.Sender
}

// NewProductHandler はProductHandlerの新しいインスタンスを生成します。
func NewProductHandler(dispatcher dispatch.Sender) *ProductHandler {
	return &ProductHandler{dispatcher: dispatcher}
}

func toRes(p usecase.ProductResult) dto.ProductRes {
	return dto.ProductRes{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       api.NewDecimal(p.Price),
		Stock:       p.Stock,
	}
}

// logWrite は書き込み操作を認証済みユーザーとともに記録します。
func logWrite(c *gin.Context, action string, id uuid.UUID) {
	userID, _ := jwtmw.UserID(c)
	slog.Info("product "+action,
		"product_id", id,
		"user_id", userID,
		"email", jwtmw.Email(c),
		"remote_addr", c.ClientIP(),
	)
}

// bindProduct はリクエストボディをバインドします。失敗時はレスポンスを書き込みfalseを返します。
func bindProduct(c *gin.Context) (dto.ProductReq, bool) {
	var req dto.ProductReq
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondError(c, apperror.NewValidation(err.Error(), err))
		return req, false
	}
	return req, true
}

// List は全商品を返します。
//
// GET /products
func (h *ProductHandler) List(c *gin.Context) {
	products, err := dispatch.Send[[]usecase.ProductResult](c.Request.Context(), h.dispatcher, usecase.KindList, usecase.ListProductsQuery{})
	if err != nil {
		api.RespondError(c, err)
		return
	}

	out := make([]dto.ProductRes, 0, len(products))
	for _, p := range products {
		out = append(out, toRes(p))
	}
	c.JSON(http.StatusOK, out)
}

// Get はIDで商品を1件返します。存在しない場合は404です。
//
// GET /products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	id, err := api.BindID(c, "id")
	if err != nil {
		api.RespondError(c, err)
		return
	}

	p, err := dispatch.Send[*usecase.ProductResult](c.Request.Context(), h.dispatcher, usecase.KindGet, usecase.GetProductQuery{ID: id})
	if err != nil {
		api.RespondError(c, err)
		return
	}
	if p == nil {
		api.RespondError(c, apperror.NewNotFound("product not found", nil))
		return
	}
	c.JSON(http.StatusOK, toRes(*p))
}

// Create は商品を作成し201を返します。
//
// POST /products
func (h *ProductHandler) Create(c *gin.Context) {
	req, ok := bindProduct(c)
	if !ok {
		return
	}

	p, err := dispatch.Send[usecase.ProductResult](c.Request.Context(), h.dispatcher, usecase.KindCreate, usecase.CreateProductCommand{
		Name:        *req.Name,
		Description: *req.Description,
		Price:       *req.Price,
		Stock:       *req.Stock,
	})
	if err != nil {
		api.RespondError(c, err)
		return
	}
	logWrite(c, "created", p.ID)
	c.JSON(http.StatusCreated, toRes(p))
}

// Update は商品の全項目を置き換えます。
//
// PUT /products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	id, err := api.BindID(c, "id")
	if err != nil {
		api.RespondError(c, err)
		return
	}
	req, ok := bindProduct(c)
	if !ok {
		return
	}

	p, err := dispatch.Send[usecase.ProductResult](c.Request.Context(), h.dispatcher, usecase.KindUpdate, usecase.UpdateProductCommand{
		ID:          id,
		Name:        *req.Name,
		Description: *req.Description,
		Price:       *req.Price,
		Stock:       *req.Stock,
	})
	if err != nil {
		api.RespondError(c, err)
		return
	}
	logWrite(c, "updated", p.ID)
	c.JSON(http.StatusOK, toRes(p))
}

// Delete は商品を削除し204を返します。
//
// DELETE /products/:id
func (h *ProductHandler) Delete(c *gin.Context) {
	id, err := api.BindID(c, "id")
	if err != nil {
		api.RespondError(c, err)
		return
	}

	if _, err := dispatch.Send[usecase.DeleteResult](c.Request.Context(), h.dispatcher, usecase.KindDelete, usecase.DeleteProductCommand{ID: id}); err != nil {
		api.RespondError(c, err)
		return
	}
	logWrite(c, "deleted", id)
	c.Status(http.StatusNoContent)
}
