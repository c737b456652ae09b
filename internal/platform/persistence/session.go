// Package persistence は GORM の上に汎用リポジトリと作業単位（Unit of Work）のセッションを提供します。
// リポジトリの Add/Update/Delete は変更をセッションへ積むだけで、SaveChanges が一つのトランザクションで適用します。
package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"product_backend/internal/shared/apperror"
)

// ErrDisposed は破棄済みセッションへの操作で返される元エラーです。
var ErrDisposed = errors.New("persistence session disposed")

// stagedOp はトランザクション内で実行される一つの変更です。
type stagedOp func(tx *gorm.DB) *gorm.DB

// Session は一つの作業単位が所有する永続化セッションです。
// 単一リクエスト内で使う前提ですが、内部状態はミューテックスで保護されています。
type Session struct {
	db       *gorm.DB
	mu       sync.Mutex
	pending  []stagedOp
	disposed bool
}

// NewSession は指定されたgorm.DB接続で新しいセッションを生成します。
func NewSession(db *gorm.DB) *Session {
	return &Session{db: db}
}

// reader は読み取り用のDBハンドルを返します。読み取りはコミット済みの状態を参照します。
func (s *Session) reader(ctx context.Context) (*gorm.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return nil, apperror.NewInternal("unit of work already disposed", ErrDisposed)
	}
	return s.db.WithContext(ctx), nil
}

// stage は変更を積みます。実行はSaveChangesまで遅延されます。
func (s *Session) stage(op stagedOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return apperror.NewInternal("unit of work already disposed", ErrDisposed)
	}
	s.pending = append(s.pending, op)
	return nil
}

// Pending は未コミットの変更数を返します。
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// SaveChanges は積まれた変更を積まれた順に一つのトランザクションで適用し、影響行数の合計を返します。
// いずれかが失敗した場合は全体をロールバックし、積まれた変更は保持したままエラーを返します。
// 一意制約違反は apperror.Conflict になります。
func (s *Session) SaveChanges(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return 0, apperror.NewInternal("unit of work already disposed", ErrDisposed)
	}
	if len(s.pending) == 0 {
		return 0, nil
	}

	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range s.pending {
			res := op(tx)
			if res.Error != nil {
				return res.Error
			}
			affected += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		if isDuplicateKey(err) {
			return 0, apperror.NewConflict("resource already exists", err)
		}
		return 0, apperror.NewInternal("failed to save changes", fmt.Errorf("commit transaction: %w", err))
	}

	s.pending = nil
	return affected, nil
}

// Dispose は未コミットの変更を破棄します。複数回呼び出しても安全です。
func (s *Session) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	s.disposed = true
}

// isDuplicateKey は一意制約違反かどうかを判定します。
func isDuplicateKey(err error) bool {
	// TranslateError が有効な場合、各ドライバはこのエラーへ変換する
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// PostgreSQLエラー23505: unique_violation
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	// MySQLエラー1062: ユニークキーの重複エントリ
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
