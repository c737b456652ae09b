// Package apperror はアプリケーション全体で共有する型付きエラーを定義します。
// ユースケースは種別付きのエラーを返し、HTTP境界で一度だけステータスコードへ変換されます。
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind はエラーの分類を表します。
type Kind int

const (
	// Internal はストア・キャッシュ・想定外の失敗を表します。ゼロ値です。
	Internal Kind = iota
	// Conflict は一意制約違反（メールアドレス重複など）を表します。
	Conflict
	// Unauthorized は認証失敗（資格情報不正、トークン欠如・不正）を表します。
	Unauthorized
	// NotFound は参照されたエンティティが存在しないことを表します。
	NotFound
	// Validation は入力値の不正を表します。
	Validation
)

// String はログ出力用の種別名を返します。
func (k Kind) String() string {
	switch k {
	case Conflict:
		return "conflict"
	case Unauthorized:
		return "unauthorized"
	case NotFound:
		return "not_found"
	case Validation:
		return "validation"
	default:
		return "internal"
	}
}

// StatusCode は種別に対応するHTTPステータスコードを返します。
func (k Kind) StatusCode() int {
	switch k {
	case Conflict:
		return http.StatusConflict
	case Unauthorized:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case Validation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error はアプリケーションの型付きエラーです。
// Message は呼び出し元へ公開してよい文言、Err は内部調査用の元エラーです。
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error はerrorインターフェースを実装します。
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap は元エラーを返します。
func (e *Error) Unwrap() error {
	return e.Err
}

// New は指定された種別のErrorを生成します。
func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// NewConflict はConflictエラーを生成します。
func NewConflict(message string, err error) *Error {
	return New(Conflict, message, err)
}

// NewUnauthorized はUnauthorizedエラーを生成します。
func NewUnauthorized(message string, err error) *Error {
	return New(Unauthorized, message, err)
}

// NewNotFound はNotFoundエラーを生成します。
func NewNotFound(message string, err error) *Error {
	return New(NotFound, message, err)
}

// NewValidation はValidationエラーを生成します。
func NewValidation(message string, err error) *Error {
	return New(Validation, message, err)
}

// NewInternal はInternalエラーを生成します。
func NewInternal(message string, err error) *Error {
	return New(Internal, message, err)
}

// KindOf はエラーチェーン中の最初の*Errorの種別を返します。
// *Errorを含まないエラーはInternalとして扱います。
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Internal
}

// Is はエラーチェーンに指定された種別の*Errorが含まれるかを返します。
func Is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}

func IsConflict(err error) bool     { return Is(err, Conflict) }
func IsUnauthorized(err error) bool { return Is(err, Unauthorized) }
func IsNotFound(err error) bool     { return Is(err, NotFound) }
func IsValidation(err error) bool   { return Is(err, Validation) }
