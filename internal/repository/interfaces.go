// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/muauth/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	// メールアドレスは保存時の表記のまま（大文字小文字を区別して）比較する。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// email一意制約に違反した場合はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error
}

// AccountRepository はプロバイダー紐付けアカウントの永続化インターフェース。
type AccountRepository interface {
	// FindByProviderAndAccountID は(provider, provider_account_id)でアカウントを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndAccountID(ctx context.Context, provider, providerAccountID string) (*model.Account, error)

	// ListByUserID はユーザーに紐付く全アカウントを返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Account, error)

	// Create はアカウントを作成する。
	// (provider, provider_account_id)一意制約に違反した場合はErrDuplicateAccountを返す。
	Create(ctx context.Context, account *model.Account) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error

	// FindBySessionToken はセッショントークンでセッションを検索する。
	// 期限切れ判定は呼び出し側で行うため、期限切れでもそのまま返す。
	// 見つからない場合はnilを返す。
	FindBySessionToken(ctx context.Context, sessionToken string) (*model.Session, error)

	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error

	// DeleteExpiredByUserID は指定ユーザーのセッショントークン期限切れセッションを削除する。
	// 対象はそのユーザーのセッションのみで、他ユーザーには影響しない。
	DeleteExpiredByUserID(ctx context.Context, userID string, now time.Time) error
}
