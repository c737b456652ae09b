// Package uow は各フィーチャーのリポジトリを一つの永続化セッションにまとめる作業単位を提供します。
package uow

import (
	"sync"

	"gorm.io/gorm"

	authadapters "product_backend/internal/feature/auth/adapters"
	authusecase "product_backend/internal/feature/auth/usecase"
	productentity "product_backend/internal/feature/product/domain/entity"
	productusecase "product_backend/internal/feature/product/usecase"
	"product_backend/internal/platform/persistence"
)

// UnitOfWork は一つのセッションと、そのセッションに紐づく型ごとのリポジトリを保持します。
// リポジトリは最初の呼び出しで生成され、以後は同じインスタンスを返します。
type UnitOfWork struct {
	*persistence.Session

	mu       sync.Mutex
	users    *authadapters.UserRepository
	products *persistence.Repository[productentity.Product]
}

// UnitOfWorkが各ユースケースの作業単位インターフェースを満たすことをコンパイル時に検証します。
var (
	_ authusecase.UnitOfWork    = (*UnitOfWork)(nil)
	_ productusecase.UnitOfWork = (*UnitOfWork)(nil)
)

// New は新しいセッションで作業単位を生成します。
func New(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{Session: persistence.NewSession(db)}
}

// Users はユーザーリポジトリを返します。
func (u *UnitOfWork) Users() authusecase.UserRepository {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.users == nil {
		u.users = authadapters.NewUserRepository(u.Session)
	}
	return u.users
}

// Products は商品リポジトリを返します。
func (u *UnitOfWork) Products() productusecase.ProductRepository {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.products == nil {
		u.products = persistence.NewRepository[productentity.Product](u.Session)
	}
	return u.products
}

// AuthFactory は認証ユースケース用の作業単位ファクトリを返します。
func AuthFactory(db *gorm.DB) authusecase.UnitOfWorkFactory {
	return func() authusecase.UnitOfWork { return New(db) }
}

// ProductFactory は商品ユースケース用の作業単位ファクトリを返します。
func ProductFactory(db *gorm.DB) productusecase.UnitOfWorkFactory {
	return func() productusecase.UnitOfWork { return New(db) }
}
