// Package adapters はauthフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"

	"product_backend/internal/feature/auth/domain/entity"
	"product_backend/internal/feature/auth/usecase"
	"product_backend/internal/platform/persistence"
)

// UserRepository は汎用リポジトリにメールアドレス検索を加えたユーザーリポジトリです。
type UserRepository struct {
	*persistence.Repository[entity.User]
}

// UserRepositoryがusecase.UserRepositoryを実装していることをコンパイル時に検証します。
var _ usecase.UserRepository = (*UserRepository)(nil)

// NewUserRepository はセッションに紐づくUserRepositoryを生成します。
func NewUserRepository(s *persistence.Session) *UserRepository {
	return &UserRepository{Repository: persistence.NewRepository[entity.User](s)}
}

// FindByEmail はメールアドレスに完全一致するユーザーを取得します。
// ユーザーが存在しない場合、apperror.NotFoundを返します。
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.FindFirst(ctx, "email = ?", email)
}
