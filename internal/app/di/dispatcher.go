package di

import (
	"time"

	"gorm.io/gorm"

	"product_backend/internal/app/uow"
	authusecase "product_backend/internal/feature/auth/usecase"
	productusecase "product_backend/internal/feature/product/usecase"
	jwtmw "product_backend/internal/platform/jwt"
	"product_backend/internal/platform/password"
	"product_backend/internal/shared/dispatch"
)

// AuthSettings はトークン発行とパスワードハッシュの設定です。
type AuthSettings struct {
	JWTSecret     string
	JWTExpiration time.Duration
	BcryptCost    int
}

// NewDispatcher はすべてのユースケースのハンドラーを登録したディスパッチャーを返します。
func NewDispatcher(db *gorm.DB, c productusecase.Cache, auth AuthSettings) *dispatch.Dispatcher {
	d := dispatch.New()

	authusecase.NewAuthUsecase(
		uow.AuthFactory(db),
		password.NewBcryptHasher(auth.BcryptCost),
		jwtmw.NewGenerator(auth.JWTSecret, auth.JWTExpiration),
	).RegisterHandlers(d)

	productusecase.NewProductUsecase(uow.ProductFactory(db), c).RegisterHandlers(d)

	return d
}
