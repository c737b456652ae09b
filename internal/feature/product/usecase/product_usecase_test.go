package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"product_backend/internal/feature/product/domain/entity"
	"product_backend/internal/platform/cache"
	"product_backend/internal/platform/persistence"
	"product_backend/internal/shared/apperror"
	"product_backend/internal/shared/dispatch"
)

// storeCalls は作業単位をまたいでストアへの読み取り回数を数えます。
type storeCalls struct {
	mu      sync.Mutex
	getByID int
	getAll  int
	// afterGetByID は読み込み直後に一度だけ呼ばれます（書き込みとの競合の再現用）。
	afterGetByID func()
}

// countingRepo は読み取り回数を記録するProductRepositoryです。
type countingRepo struct {
	ProductRepository
	calls *storeCalls
}

func (r *countingRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Product, error) {
	r.calls.mu.Lock()
	r.calls.getByID++
	hook := r.calls.afterGetByID
	r.calls.afterGetByID = nil
	r.calls.mu.Unlock()

	p, err := r.ProductRepository.GetByID(ctx, id)
	if hook != nil {
		hook()
	}
	return p, err
}

func (r *countingRepo) GetAll(ctx context.Context) ([]entity.Product, error) {
	r.calls.mu.Lock()
	r.calls.getAll++
	r.calls.mu.Unlock()
	return r.ProductRepository.GetAll(ctx)
}

// testUnitOfWork はSQLite上の実セッションを使う作業単位です。
type testUnitOfWork struct {
	*persistence.Session
	products ProductRepository
}

func (u *testUnitOfWork) Products() ProductRepository { return u.products }

type testEnv struct {
	db    *gorm.DB
	cache *cache.Service
	calls *storeCalls
	uc    *productUsecase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "failed to initialize test database")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&entity.Product{}))

	backend, err := cache.NewMemoryBackend(cache.DefaultMemoryConfig())
	require.NoError(t, err)
	svc := cache.NewService(backend, 0)

	calls := &storeCalls{}
	factory := func() UnitOfWork {
		s := persistence.NewSession(db)
		return &testUnitOfWork{
			Session:  s,
			products: &countingRepo{ProductRepository: persistence.NewRepository[entity.Product](s), calls: calls},
		}
	}

	return &testEnv{db: db, cache: svc, calls: calls, uc: NewProductUsecase(factory, svc)}
}

func (e *testEnv) count(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&entity.Product{}).Count(&n).Error)
	return n
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func widget() CreateProductCommand {
	return CreateProductCommand{Name: "Widget", Description: "", Price: price("9.99"), Stock: 5}
}

// TestProductUsecase_Scenario は作成・一覧・削除・取得の一連の流れを検証します。
func TestProductUsecase_Scenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.uc.Create(ctx, widget())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "Widget", created.Name)
	assert.Equal(t, "", created.Description)
	assert.True(t, created.Price.Equal(price("9.99")))
	assert.Equal(t, 5, created.Stock)

	all, err := env.uc.GetAll(ctx, ListProductsQuery{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, created.ID, all[0].ID)

	res, err := env.uc.Delete(ctx, DeleteProductCommand{ID: created.ID})
	require.NoError(t, err)
	assert.True(t, res.Deleted)

	got, err := env.uc.GetByID(ctx, GetProductQuery{ID: created.ID})
	require.NoError(t, err)
	assert.Nil(t, got, "deleted product must read as not found")

	all, err = env.uc.GetAll(ctx, ListProductsQuery{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

// TestProductUsecase_RoundTrip は作成した商品が全フィールド一致で取得できることを検証します。
func TestProductUsecase_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cmd := CreateProductCommand{Name: "Gadget", Description: "blue", Price: price("120.50"), Stock: 0}

	created, err := env.uc.Create(ctx, cmd)
	require.NoError(t, err)

	got, err := env.uc.GetByID(ctx, GetProductQuery{ID: created.ID})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, cmd.Name, got.Name)
	assert.Equal(t, cmd.Description, got.Description)
	assert.True(t, cmd.Price.Equal(got.Price), "price %s != %s", cmd.Price, got.Price)
	assert.Equal(t, cmd.Stock, got.Stock)
}

// TestProductUsecase_GetByID_ServedFromCache は2回目の取得がストアを参照しないことを検証します。
func TestProductUsecase_GetByID_ServedFromCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	created, err := env.uc.Create(ctx, widget())
	require.NoError(t, err)

	first, err := env.uc.GetByID(ctx, GetProductQuery{ID: created.ID})
	require.NoError(t, err)
	second, err := env.uc.GetByID(ctx, GetProductQuery{ID: created.ID})
	require.NoError(t, err)

	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Name, second.Name)
	assert.True(t, first.Price.Equal(second.Price))
	assert.Equal(t, 1, env.calls.getByID, "second read must be served from cache")
}

func TestProductUsecase_GetAll_ServedFromCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.uc.Create(ctx, widget())
	require.NoError(t, err)

	_, err = env.uc.GetAll(ctx, ListProductsQuery{})
	require.NoError(t, err)
	all, err := env.uc.GetAll(ctx, ListProductsQuery{})
	require.NoError(t, err)

	assert.Len(t, all, 1)
	assert.Equal(t, 1, env.calls.getAll)
}

// TestProductUsecase_NoStaleReadAfterWrite は書き込み後の読み取りが古い値を返さないことを検証します。
func TestProductUsecase_NoStaleReadAfterWrite(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.uc.Create(ctx, widget())
	require.NoError(t, err)

	// 一覧と個別の両方をキャッシュに載せる
	_, err = env.uc.GetAll(ctx, ListProductsQuery{})
	require.NoError(t, err)
	_, err = env.uc.GetByID(ctx, GetProductQuery{ID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, env.cache.TrackedKeys())

	updated, err := env.uc.Update(ctx, UpdateProductCommand{
		ID: created.ID, Name: "Widget v2", Description: "improved", Price: price("12.00"), Stock: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "Widget v2", updated.Name)
	assert.Equal(t, 0, env.cache.TrackedKeys(), "write must invalidate the products prefix")

	got, err := env.uc.GetByID(ctx, GetProductQuery{ID: created.ID})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Widget v2", got.Name)
	assert.Equal(t, "improved", got.Description)
	assert.True(t, got.Price.Equal(price("12")))
	assert.Equal(t, 3, got.Stock)

	all, err := env.uc.GetAll(ctx, ListProductsQuery{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Widget v2", all[0].Name)

	// 作成も一覧キャッシュを無効化する
	_, err = env.uc.Create(ctx, CreateProductCommand{Name: "Other", Price: price("1"), Stock: 1})
	require.NoError(t, err)
	all, err = env.uc.GetAll(ctx, ListProductsQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

// TestProductUsecase_ReadOverlappingWriteIsNotCached は書き込みと重なった読み取りの結果がキャッシュに残らないことを検証します。
func TestProductUsecase_ReadOverlappingWriteIsNotCached(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.uc.Create(ctx, widget())
	require.NoError(t, err)

	// 読み込み完了からキャッシュ投入までの間に更新がコミットされる
	env.calls.afterGetByID = func() {
		_, err := env.uc.Update(ctx, UpdateProductCommand{
			ID: created.ID, Name: "Widget v2", Description: "", Price: price("9.99"), Stock: 5,
		})
		require.NoError(t, err)
	}

	first, err := env.uc.GetByID(ctx, GetProductQuery{ID: created.ID})
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "Widget", first.Name, "the overlapping read returns what it loaded")
	assert.Zero(t, env.cache.TrackedKeys())

	second, err := env.uc.GetByID(ctx, GetProductQuery{ID: created.ID})
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, "Widget v2", second.Name)
}

// stalePopulateCache は初回のSetの途中で無効化を割り込ませるキャッシュです。
type stalePopulateCache struct {
	*cache.Service
	duringSet func()
}

func (c *stalePopulateCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if hook := c.duringSet; hook != nil {
		c.duringSet = nil
		hook()
	}
	return c.Service.Set(ctx, key, value, ttl)
}

func TestProductUsecase_InvalidationDuringPopulateDropsEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.uc.Create(ctx, widget())
	require.NoError(t, err)

	wrapped := &stalePopulateCache{Service: env.cache}
	env.uc.cache = wrapped
	wrapped.duringSet = func() { env.uc.invalidate(ctx) }

	_, err = env.uc.GetByID(ctx, GetProductQuery{ID: created.ID})
	require.NoError(t, err)
	assert.Zero(t, env.cache.TrackedKeys(), "entry written across an invalidation must be removed")
}

func TestProductUsecase_GetByID_AbsentIsNotAnError(t *testing.T) {
	env := newTestEnv(t)

	got, err := env.uc.GetByID(context.Background(), GetProductQuery{ID: uuid.New()})

	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, env.cache.TrackedKeys(), "absence is not cached")
}

// TestProductUsecase_NotFound は存在しない商品の更新・削除がNotFoundになりストアが変化しないことを検証します。
func TestProductUsecase_NotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.uc.Create(ctx, widget())
	require.NoError(t, err)

	_, err = env.uc.Update(ctx, UpdateProductCommand{ID: uuid.New(), Name: "X", Price: price("1"), Stock: 1})
	assert.True(t, apperror.IsNotFound(err), "expected NotFound, got %v", err)

	_, err = env.uc.Delete(ctx, DeleteProductCommand{ID: uuid.New()})
	assert.True(t, apperror.IsNotFound(err), "expected NotFound, got %v", err)

	assert.Equal(t, int64(1), env.count(t))
	all, err := env.uc.GetAll(ctx, ListProductsQuery{})
	require.NoError(t, err)
	assert.Equal(t, "Widget", all[0].Name)
}

func TestProductUsecase_Validation(t *testing.T) {
	tests := []struct {
		name string
		cmd  CreateProductCommand
	}{
		{"missing name", CreateProductCommand{Price: price("1"), Stock: 1}},
		{"name too long", CreateProductCommand{Name: strings.Repeat("n", 201), Price: price("1")}},
		{"description too long", CreateProductCommand{Name: "n", Description: strings.Repeat("d", 1001), Price: price("1")}},
		{"negative price", CreateProductCommand{Name: "n", Price: price("-0.01")}},
		{"three decimal places", CreateProductCommand{Name: "n", Price: price("1.005")}},
		{"negative stock", CreateProductCommand{Name: "n", Price: price("1"), Stock: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()

			_, err := env.uc.Create(ctx, tt.cmd)
			assert.True(t, apperror.IsValidation(err), "create: expected Validation, got %v", err)

			_, err = env.uc.Update(ctx, UpdateProductCommand{
				ID: uuid.New(), Name: tt.cmd.Name, Description: tt.cmd.Description, Price: tt.cmd.Price, Stock: tt.cmd.Stock,
			})
			assert.True(t, apperror.IsValidation(err), "update: expected Validation, got %v", err)

			assert.Equal(t, int64(0), env.count(t))
		})
	}
}

func TestProductUsecase_ValidationBoundaries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.uc.Create(ctx, CreateProductCommand{
		Name: strings.Repeat("n", 200), Description: strings.Repeat("d", 1000), Price: price("0"), Stock: 0,
	})
	assert.NoError(t, err)

	_, err = env.uc.Update(ctx, UpdateProductCommand{Name: "n", Price: price("1")})
	assert.True(t, apperror.IsValidation(err), "nil id must be rejected")
}

// failingCache は常に失敗するキャッシュです。
type failingCache struct{}

func (failingCache) Get(context.Context, string, any) bool { return false }
func (failingCache) Set(context.Context, string, any, time.Duration) error {
	return errors.New("cache down")
}
func (failingCache) Remove(context.Context, string) error         { return errors.New("cache down") }
func (failingCache) RemoveByPrefix(context.Context, string) error { return errors.New("cache down") }

// TestProductUsecase_CacheFailureIsNotFatal はキャッシュ障害がリクエストを失敗させないことを検証します。
func TestProductUsecase_CacheFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	env.uc.cache = failingCache{}
	ctx := context.Background()

	created, err := env.uc.Create(ctx, widget())
	require.NoError(t, err)

	got, err := env.uc.GetByID(ctx, GetProductQuery{ID: created.ID})
	require.NoError(t, err)
	require.NotNil(t, got)

	all, err := env.uc.GetAll(ctx, ListProductsQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = env.uc.Delete(ctx, DeleteProductCommand{ID: created.ID})
	require.NoError(t, err)
}

// brokenRepo はストア障害を再現します。
type brokenRepo struct{ ProductRepository }

func (brokenRepo) GetAll(context.Context) ([]entity.Product, error) {
	return nil, apperror.NewInternal("failed to load entities", errors.New("db down"))
}

func (brokenRepo) GetByID(context.Context, uuid.UUID) (*entity.Product, error) {
	return nil, apperror.NewInternal("failed to load entity", errors.New("db down"))
}

type brokenUnitOfWork struct{ disposed bool }

func (u *brokenUnitOfWork) Products() ProductRepository                { return brokenRepo{} }
func (u *brokenUnitOfWork) SaveChanges(context.Context) (int64, error) { return 0, nil }
func (u *brokenUnitOfWork) Dispose()                                   { u.disposed = true }

func TestProductUsecase_StoreFailure(t *testing.T) {
	uow := &brokenUnitOfWork{}
	backend, err := cache.NewMemoryBackend(cache.DefaultMemoryConfig())
	require.NoError(t, err)
	svc := cache.NewService(backend, 0)
	uc := NewProductUsecase(func() UnitOfWork { return uow }, svc)
	ctx := context.Background()

	_, err = uc.GetAll(ctx, ListProductsQuery{})
	assert.Equal(t, apperror.Internal, apperror.KindOf(err))

	_, err = uc.GetByID(ctx, GetProductQuery{ID: uuid.New()})
	assert.Equal(t, apperror.Internal, apperror.KindOf(err))

	_, err = uc.Delete(ctx, DeleteProductCommand{ID: uuid.New()})
	assert.Equal(t, apperror.Internal, apperror.KindOf(err))

	assert.True(t, uow.disposed)
	assert.Equal(t, 0, svc.TrackedKeys())
}

func TestProductUsecase_RegisterHandlers(t *testing.T) {
	env := newTestEnv(t)
	d := dispatch.New()
	env.uc.RegisterHandlers(d)

	assert.ElementsMatch(t, []dispatch.Kind{KindList, KindGet, KindCreate, KindUpdate, KindDelete}, d.Kinds())

	ctx := context.Background()
	created, err := dispatch.Send[ProductResult](ctx, d, KindCreate, widget())
	require.NoError(t, err)

	got, err := dispatch.Send[*ProductResult](ctx, d, KindGet, GetProductQuery{ID: created.ID})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Widget", got.Name)

	missing, err := dispatch.Send[*ProductResult](ctx, d, KindGet, GetProductQuery{ID: uuid.New()})
	require.NoError(t, err)
	assert.Nil(t, missing)
}
