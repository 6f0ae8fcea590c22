package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/hitoshi/muauth/internal/model"
)

// createSession はユーザーの新しいセッションを作成し永続化する。
// 作成前にそのユーザーの期限切れセッションを削除する（遅延プルーニング）。
// バックグラウンドでの一括削除は行わず、削除対象は常にこのユーザーに限る。
func (s *Service) createSession(ctx context.Context, user *model.User) (*model.Session, error) {
	now := time.Now()

	if err := s.sessions.DeleteExpiredByUserID(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}

	sessionToken, err := generateSessionToken("stkn")
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}
	refreshToken, err := generateSessionToken("rtkn")
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	session := &model.Session{
		ID:                  model.NewSessionID(),
		UserID:              user.ID,
		SessionToken:        sessionToken,
		RefreshToken:        refreshToken,
		SessionTokenExpires: now.Add(s.config.SessionTokenTTL),
		RefreshTokenExpires: now.Add(s.config.RefreshTokenTTL),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// ValidateSession はセッショントークンを検証し、有効なセッションを返す。
// 存在しない場合はUNAUTHORIZED、期限切れの場合はセッションを削除した上で
// SESSION_EXPIREDを返す。期限の判定は検証時点で行う。
func (s *Service) ValidateSession(ctx context.Context, sessionToken string) (*model.Session, error) {
	if sessionToken == "" {
		return nil, model.NewUnauthorizedError()
	}

	session, err := s.sessions.FindBySessionToken(ctx, sessionToken)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, model.NewUnauthorizedError()
	}

	if session.Expired(time.Now()) {
		if err := s.sessions.DeleteByID(ctx, session.ID); err != nil {
			return nil, fmt.Errorf("failed to delete expired session: %w", err)
		}
		return nil, model.NewSessionExpiredError()
	}

	return session, nil
}

// generateSessionToken は暗号的に安全なトークンをプレフィックス付きで生成する。
func generateSessionToken(prefix string) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return prefix + "_" + hex.EncodeToString(b), nil
}
