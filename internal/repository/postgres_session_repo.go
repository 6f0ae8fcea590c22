package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/muauth/internal/model"
)

// PostgresSessionRepo はPostgreSQLを使用したセッションリポジトリ。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// Create はセッションを作成する。
func (r *PostgresSessionRepo) Create(ctx context.Context, session *model.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, session_token, refresh_token,
		  session_token_expires, refresh_token_expires, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		session.ID, session.UserID, session.SessionToken, session.RefreshToken,
		session.SessionTokenExpires, session.RefreshTokenExpires,
		session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindBySessionToken はセッショントークンでセッションを検索する。
// 期限切れ判定は呼び出し側で行うため、WHERE句では期限を絞り込まない。
// 見つからない場合はnilを返す。
func (r *PostgresSessionRepo) FindBySessionToken(ctx context.Context, sessionToken string) (*model.Session, error) {
	session := &model.Session{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, session_token, refresh_token,
		   session_token_expires, refresh_token_expires, created_at, updated_at
		 FROM sessions
		 WHERE session_token = $1`,
		sessionToken,
	).Scan(&session.ID, &session.UserID, &session.SessionToken, &session.RefreshToken,
		&session.SessionTokenExpires, &session.RefreshTokenExpires,
		&session.CreatedAt, &session.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	return session, nil
}

// DeleteByID は指定IDのセッションを削除する。
func (r *PostgresSessionRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredByUserID は指定ユーザーの期限切れセッションを削除する。
func (r *PostgresSessionRepo) DeleteExpiredByUserID(ctx context.Context, userID string, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE user_id = $1 AND session_token_expires < $2`,
		userID, now,
	)
	if err != nil {
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SessionRepository = (*PostgresSessionRepo)(nil)
