// Package usecase はauthフィーチャーのビジネスロジックを実装します。
package usecase

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"

	"product_backend/internal/feature/auth/domain/entity"
	"product_backend/internal/shared/apperror"
	"product_backend/internal/shared/dispatch"
)

// 認証フィーチャーが登録する操作の種別です。
const (
	KindRegister dispatch.Kind = "auth.register"
	KindLogin    dispatch.Kind = "auth.login"
)

const (
	// minPasswordLength はパスワードの最低文字数を定義します。
	minPasswordLength = 6
	// maxPasswordLength はbcryptが扱える最大バイト数です。
	maxPasswordLength = 72

	// dummyPasswordHash はユーザーが存在しない場合のタイミング攻撃緩和用ダミーハッシュです。
	dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

	invalidCredentials = "invalid email or password"
)

// RegisterCommand はユーザー登録の入力です。
type RegisterCommand struct {
	Email    string
	Password string
	FullName string
}

// LoginCommand はログインの入力です。
type LoginCommand struct {
	Email    string
	Password string
}

// AuthResult は登録・ログイン成功時の結果です。
type AuthResult struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

// UserRepository はユーザーエンティティの永続化層を抽象化します。
// Goの慣例に従い、インターフェースはプロバイダー（adapters）ではなくコンシューマー（usecase）が定義します。
type UserRepository interface {
	// FindByEmail はメールアドレスに完全一致するユーザーを取得します。
	// 存在しない場合は apperror.NotFound を返します。
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// Add は新しいユーザーの追加を作業単位に積みます。
	Add(ctx context.Context, user *entity.User) (*entity.User, error)
}

// UnitOfWork はユースケースが必要とする作業単位の操作です。
type UnitOfWork interface {
	Users() UserRepository
	SaveChanges(ctx context.Context) (int64, error)
	Dispose()
}

// UnitOfWorkFactory は呼び出しごとに新しい作業単位を生成します。
type UnitOfWorkFactory func() UnitOfWork

// PasswordHasher はパスワードのハッシュ化と検証を抽象化します。
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

// TokenIssuer はJWTトークン生成のインターフェースを定義します。
// Goの慣例に従い、インターフェースはプロバイダー（platform/jwt）ではなくコンシューマー（usecase）が定義します。
type TokenIssuer interface {
	GenerateToken(userID uuid.UUID, email string) (string, error)
}

// authUsecase は認証ビジネスロジックを実装します。
type authUsecase struct {
	newUnitOfWork UnitOfWorkFactory
	hasher        PasswordHasher
	tokens        TokenIssuer
}

// NewAuthUsecase はauthUsecaseの新しいインスタンスを生成します。
func NewAuthUsecase(newUnitOfWork UnitOfWorkFactory, hasher PasswordHasher, tokens TokenIssuer) *authUsecase {
	return &authUsecase{
		newUnitOfWork: newUnitOfWork,
		hasher:        hasher,
		tokens:        tokens,
	}
}

// RegisterHandlers は認証操作をディスパッチャーへ登録します。
func (u *authUsecase) RegisterHandlers(d *dispatch.Dispatcher) {
	dispatch.Handle(d, KindRegister, u.Register)
	dispatch.Handle(d, KindLogin, u.Login)
}

// Validate は登録入力を検証します。
func (c RegisterCommand) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email, validation.Required, validation.Length(1, 256), is.EmailFormat),
		validation.Field(&c.Password, validation.Required, validation.Length(minPasswordLength, maxPasswordLength)),
		validation.Field(&c.FullName, validation.Length(0, 100)),
	)
}

// Register はハッシュ化されたパスワードで新規ユーザーを登録し、トークンを発行します。
// 同じメールアドレスのユーザーが既に存在する場合は apperror.Conflict を返します。
func (u *authUsecase) Register(ctx context.Context, cmd RegisterCommand) (AuthResult, error) {
	if err := cmd.Validate(); err != nil {
		return AuthResult{}, apperror.NewValidation(err.Error(), err)
	}

	uow := u.newUnitOfWork()
	defer uow.Dispose()

	existing, err := uow.Users().FindByEmail(ctx, cmd.Email)
	switch {
	case err == nil && existing != nil:
		return AuthResult{}, apperror.NewConflict("email already registered", nil)
	case err != nil && !apperror.IsNotFound(err):
		return AuthResult{}, err
	}

	hashed, err := u.hasher.Hash(cmd.Password)
	if err != nil {
		return AuthResult{}, apperror.NewInternal("failed to register user", err)
	}

	user, err := uow.Users().Add(ctx, &entity.User{
		Email:        cmd.Email,
		PasswordHash: hashed,
		FullName:     cmd.FullName,
	})
	if err != nil {
		return AuthResult{}, err
	}
	if _, err := uow.SaveChanges(ctx); err != nil {
		// 事前確認と一意インデックスの間で競合した場合
		if apperror.IsConflict(err) {
			return AuthResult{}, apperror.NewConflict("email already registered", err)
		}
		return AuthResult{}, err
	}

	return u.issue(user)
}

// Login はユーザーを認証し、成功時にトークンを返します。
// タイミング攻撃を防止するため、ユーザーが存在しない場合でもハッシュ比較を実行します。
func (u *authUsecase) Login(ctx context.Context, cmd LoginCommand) (AuthResult, error) {
	uow := u.newUnitOfWork()
	defer uow.Dispose()

	user, err := uow.Users().FindByEmail(ctx, cmd.Email)
	if err != nil && !apperror.IsNotFound(err) {
		return AuthResult{}, err
	}

	passwordHash := dummyPasswordHash
	if user != nil {
		passwordHash = user.PasswordHash
	}

	// タイミング攻撃防止のため、常にパスワードを検証
	verified := u.hasher.Verify(cmd.Password, passwordHash)

	// ユーザー未検出またはパスワード不一致の場合、同じエラーを返す
	if user == nil || !verified {
		return AuthResult{}, apperror.NewUnauthorized(invalidCredentials, nil)
	}

	return u.issue(user)
}

func (u *authUsecase) issue(user *entity.User) (AuthResult, error) {
	token, err := u.tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		return AuthResult{}, apperror.NewInternal("failed to issue token", fmt.Errorf("generate token: %w", err))
	}
	return AuthResult{Token: token, Email: user.Email}, nil
}
