package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"product_backend/internal/shared/apperror"
)

// Repository は一つのエンティティ型に対する汎用リポジトリです。
// 読み取りは即時に実行され、書き込みはセッションに積まれます。
type Repository[T any] struct {
	session *Session
}

// NewRepository はセッションに紐づくリポジトリを生成します。
func NewRepository[T any](s *Session) *Repository[T] {
	return &Repository[T]{session: s}
}

// GetByID はIDでエンティティを取得します。存在しない場合は apperror.NotFound を返します。
func (r *Repository[T]) GetByID(ctx context.Context, id uuid.UUID) (*T, error) {
	return r.FindFirst(ctx, "id = ?", id)
}

// GetAll は全件を作成日時の昇順で返します。
func (r *Repository[T]) GetAll(ctx context.Context) ([]T, error) {
	db, err := r.session.reader(ctx)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := db.Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, apperror.NewInternal("failed to load entities", fmt.Errorf("find all %T: %w", out, err))
	}
	return out, nil
}

// FindFirst は条件に一致する最初のエンティティを返します。存在しない場合は apperror.NotFound を返します。
func (r *Repository[T]) FindFirst(ctx context.Context, query any, args ...any) (*T, error) {
	db, err := r.session.reader(ctx)
	if err != nil {
		return nil, err
	}
	var e T
	if err := db.Where(query, args...).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFound("entity not found", err)
		}
		return nil, apperror.NewInternal("failed to load entity", fmt.Errorf("find %T: %w", e, err))
	}
	return &e, nil
}

// Add はエンティティの追加を積みます。IDなどストア側で決まる値はSaveChanges後にeへ反映されます。
func (r *Repository[T]) Add(_ context.Context, e *T) (*T, error) {
	if e == nil {
		return nil, apperror.NewInternal("cannot add nil entity", nil)
	}
	if err := r.session.stage(func(tx *gorm.DB) *gorm.DB { return tx.Create(e) }); err != nil {
		return nil, err
	}
	return e, nil
}

// Update はエンティティの全フィールド更新を積みます。
func (r *Repository[T]) Update(_ context.Context, e *T) error {
	if e == nil {
		return apperror.NewInternal("cannot update nil entity", nil)
	}
	return r.session.stage(func(tx *gorm.DB) *gorm.DB {
		return tx.Model(e).Select("*").Updates(e)
	})
}

// Delete はエンティティの削除を積みます。
func (r *Repository[T]) Delete(_ context.Context, e *T) error {
	if e == nil {
		return apperror.NewInternal("cannot delete nil entity", nil)
	}
	return r.session.stage(func(tx *gorm.DB) *gorm.DB { return tx.Delete(e) })
}
