// Package usecase は商品フィーチャーのビジネスロジックを実装します。
// 読み取りはキャッシュアサイド、書き込みは作業単位でコミットした後に "products" プレフィックスを無効化します。
package usecase

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"product_backend/internal/feature/product/domain/entity"
	"product_backend/internal/platform/cache"
	"product_backend/internal/shared/apperror"
	"product_backend/internal/shared/dispatch"
)

// 商品フィーチャーが登録する操作の種別です。
const (
	KindList   dispatch.Kind = "product.list"
	KindGet    dispatch.Kind = "product.get"
	KindCreate dispatch.Kind = "product.create"
	KindUpdate dispatch.Kind = "product.update"
	KindDelete dispatch.Kind = "product.delete"
)

const (
	// cachePrefix は商品関連のキャッシュキーの共通プレフィックスです。
	cachePrefix = "products"
	// cacheTTL は読み取り結果をキャッシュする期間です。
	cacheTTL = 10 * time.Minute
)

var allProductsKey = cache.Key(cachePrefix, "all")

// productKey は商品1件のキャッシュキーを返します。
func productKey(id uuid.UUID) string {
	return cache.Key(cachePrefix, id.String())
}

// ProductRepository は商品エンティティの永続化層を抽象化します。
type ProductRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Product, error)
	GetAll(ctx context.Context) ([]entity.Product, error)
	Add(ctx context.Context, p *entity.Product) (*entity.Product, error)
	Update(ctx context.Context, p *entity.Product) error
	Delete(ctx context.Context, p *entity.Product) error
}

// UnitOfWork はユースケースが必要とする作業単位の操作です。
type UnitOfWork interface {
	Products() ProductRepository
	SaveChanges(ctx context.Context) (int64, error)
	Dispose()
}

// UnitOfWorkFactory は呼び出しごとに新しい作業単位を生成します。
type UnitOfWorkFactory func() UnitOfWork

// Cache はキャッシュアサイドに必要な操作です。
// Get は失敗をミスとして扱い、エラーを返しません。
type Cache interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
	RemoveByPrefix(ctx context.Context, prefix string) error
}

// ProductResult は商品の公開用の形です。
type ProductResult struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

// GetProductQuery は商品1件取得の入力です。
type GetProductQuery struct {
	ID uuid.UUID
}

// ListProductsQuery は商品一覧取得の入力です。
type ListProductsQuery struct{}

// DeleteProductCommand は商品削除の入力です。
type DeleteProductCommand struct {
	ID uuid.UUID
}

// DeleteResult は削除の結果です。
type DeleteResult struct {
	Deleted bool
}

// productUsecase は商品のビジネスロジックを実装します。
type productUsecase struct {
	newUnitOfWork UnitOfWorkFactory
	cache         Cache
	logger        *slog.Logger

	// generation は無効化のたびに増えます。読み込み開始後に変化した場合、その結果はキャッシュしません。
	generation atomic.Uint64
}

// NewProductUsecase はproductUsecaseの新しいインスタンスを生成します。
func NewProductUsecase(newUnitOfWork UnitOfWorkFactory, c Cache) *productUsecase {
	return &productUsecase{
		newUnitOfWork: newUnitOfWork,
		cache:         c,
		logger:        slog.Default().With("feature", "product"),
	}
}

// RegisterHandlers は商品操作をディスパッチャーへ登録します。
func (u *productUsecase) RegisterHandlers(d *dispatch.Dispatcher) {
	dispatch.Handle(d, KindList, u.GetAll)
	dispatch.Handle(d, KindGet, u.GetByID)
	dispatch.Handle(d, KindCreate, u.Create)
	dispatch.Handle(d, KindUpdate, u.Update)
	dispatch.Handle(d, KindDelete, u.Delete)
}

func toResult(p *entity.Product) ProductResult {
	return ProductResult{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
	}
}

// populate は読み取り結果をキャッシュします。失敗はログに残して無視します。
// genは読み込み開始時の世代で、書き込みと重なった読み取りの結果は残しません。
func (u *productUsecase) populate(ctx context.Context, key string, value any, gen uint64) {
	if u.generation.Load() != gen {
		return
	}
	if err := u.cache.Set(ctx, key, value, cacheTTL); err != nil {
		u.logger.Warn("failed to populate cache", "key", key, "error", err)
		return
	}
	// Setの間に無効化された場合は自分で取り消す
	if u.generation.Load() != gen {
		if err := u.cache.Remove(ctx, key); err != nil {
			u.logger.Warn("failed to drop superseded cache entry", "key", key, "error", err)
		}
	}
}

// invalidate は商品関連のキャッシュをすべて削除します。失敗はログに残して無視します。
func (u *productUsecase) invalidate(ctx context.Context) {
	u.generation.Add(1)
	if err := u.cache.RemoveByPrefix(ctx, cachePrefix); err != nil {
		u.logger.Warn("failed to invalidate cache", "prefix", cachePrefix, "error", err)
	}
}

// GetAll は全商品を返します。キャッシュにない場合はストアから読み込んでキャッシュします。
func (u *productUsecase) GetAll(ctx context.Context, _ ListProductsQuery) ([]ProductResult, error) {
	var cached []ProductResult
	if u.cache.Get(ctx, allProductsKey, &cached) {
		return cached, nil
	}

	gen := u.generation.Load()
	uow := u.newUnitOfWork()
	defer uow.Dispose()

	products, err := uow.Products().GetAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]ProductResult, 0, len(products))
	for i := range products {
		out = append(out, toResult(&products[i]))
	}
	u.populate(ctx, allProductsKey, out, gen)
	return out, nil
}

// GetByID は商品を1件返します。存在しない場合は nil を返し、エラーにはしません。
func (u *productUsecase) GetByID(ctx context.Context, q GetProductQuery) (*ProductResult, error) {
	key := productKey(q.ID)
	var cached ProductResult
	if u.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	gen := u.generation.Load()
	uow := u.newUnitOfWork()
	defer uow.Dispose()

	p, err := uow.Products().GetByID(ctx, q.ID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	res := toResult(p)
	u.populate(ctx, key, res, gen)
	return &res, nil
}

// Create は商品を作成し、採番されたIDを含む公開用の形を返します。
func (u *productUsecase) Create(ctx context.Context, cmd CreateProductCommand) (ProductResult, error) {
	if err := cmd.Validate(); err != nil {
		return ProductResult{}, apperror.NewValidation(err.Error(), err)
	}

	uow := u.newUnitOfWork()
	defer uow.Dispose()

	p, err := uow.Products().Add(ctx, &entity.Product{
		Name:        cmd.Name,
		Description: cmd.Description,
		Price:       cmd.Price,
		Stock:       cmd.Stock,
	})
	if err != nil {
		return ProductResult{}, err
	}
	if _, err := uow.SaveChanges(ctx); err != nil {
		return ProductResult{}, err
	}

	u.invalidate(ctx)
	return toResult(p), nil
}

// Update は商品の全フィールドを置き換えます。存在しない場合は apperror.NotFound を返します。
func (u *productUsecase) Update(ctx context.Context, cmd UpdateProductCommand) (ProductResult, error) {
	if err := cmd.Validate(); err != nil {
		return ProductResult{}, apperror.NewValidation(err.Error(), err)
	}

	uow := u.newUnitOfWork()
	defer uow.Dispose()

	p, err := u.load(ctx, uow, cmd.ID)
	if err != nil {
		return ProductResult{}, err
	}

	p.Name = cmd.Name
	p.Description = cmd.Description
	p.Price = cmd.Price
	p.Stock = cmd.Stock
	if err := uow.Products().Update(ctx, p); err != nil {
		return ProductResult{}, err
	}
	if _, err := uow.SaveChanges(ctx); err != nil {
		return ProductResult{}, err
	}

	u.invalidate(ctx)
	return toResult(p), nil
}

// Delete は商品を削除します。存在しない場合は apperror.NotFound を返します。
func (u *productUsecase) Delete(ctx context.Context, cmd DeleteProductCommand) (DeleteResult, error) {
	uow := u.newUnitOfWork()
	defer uow.Dispose()

	p, err := u.load(ctx, uow, cmd.ID)
	if err != nil {
		return DeleteResult{}, err
	}
	if err := uow.Products().Delete(ctx, p); err != nil {
		return DeleteResult{}, err
	}
	if _, err := uow.SaveChanges(ctx); err != nil {
		return DeleteResult{}, err
	}

	u.invalidate(ctx)
	return DeleteResult{Deleted: true}, nil
}

// load は書き込み対象の商品をストアから読み込みます。キャッシュは参照しません。
func (u *productUsecase) load(ctx context.Context, uow UnitOfWork, id uuid.UUID) (*entity.Product, error) {
	p, err := uow.Products().GetByID(ctx, id)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("product not found", err)
		}
		return nil, err
	}
	return p, nil
}
