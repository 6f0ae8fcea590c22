package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/muauth/internal/model"
)

// PostgresAccountRepo はPostgreSQLを使用したアカウントリポジトリ。
type PostgresAccountRepo struct {
	db *sql.DB
}

// NewPostgresAccountRepo はPostgresAccountRepoを生成する。
func NewPostgresAccountRepo(db *sql.DB) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db}
}

const accountColumns = `id, user_id, provider, type, provider_account_id,
	access_token, refresh_token, token_type, scope, expires_at, created_at, updated_at`

// FindByProviderAndAccountID は(provider, provider_account_id)でアカウントを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByProviderAndAccountID(ctx context.Context, provider, providerAccountID string) (*model.Account, error) {
	account := &model.Account{}
	var expiresAt sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE provider = $1 AND provider_account_id = $2`,
		provider, providerAccountID,
	).Scan(&account.ID, &account.UserID, &account.Provider, &account.Type, &account.ProviderAccountID,
		&account.AccessToken, &account.RefreshToken, &account.TokenType, &account.Scope,
		&expiresAt, &account.CreatedAt, &account.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	if expiresAt.Valid {
		account.ExpiresAt = expiresAt.Time
	}

	return account, nil
}

// ListByUserID はユーザーに紐付く全アカウントを作成日時順で返す。
func (r *PostgresAccountRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*model.Account
	for rows.Next() {
		account := &model.Account{}
		var expiresAt sql.NullTime
		if err := rows.Scan(&account.ID, &account.UserID, &account.Provider, &account.Type,
			&account.ProviderAccountID, &account.AccessToken, &account.RefreshToken,
			&account.TokenType, &account.Scope, &expiresAt,
			&account.CreatedAt, &account.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		if expiresAt.Valid {
			account.ExpiresAt = expiresAt.Time
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}

	return accounts, nil
}

// Create はアカウントを作成する。
// (provider, provider_account_id)一意制約に違反した場合はErrDuplicateAccountを返す。
func (r *PostgresAccountRepo) Create(ctx context.Context, account *model.Account) error {
	var expiresAt sql.NullTime
	if !account.ExpiresAt.IsZero() {
		expiresAt = sql.NullTime{Time: account.ExpiresAt, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, user_id, provider, type, provider_account_id,
		  access_token, refresh_token, token_type, scope, expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		account.ID, account.UserID, account.Provider, account.Type, account.ProviderAccountID,
		account.AccessToken, account.RefreshToken, account.TokenType, account.Scope,
		expiresAt, account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		if isPqErr(err, errUniqueViolation) {
			return ErrDuplicateAccount
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}

	return nil
}

// compile-time interface check
var _ AccountRepository = (*PostgresAccountRepo)(nil)
