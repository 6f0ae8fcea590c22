package model

import (
	"time"

	"github.com/google/uuid"
)

// Session はユーザーのログインセッションを表す。
// セッショントークン（短命）とリフレッシュトークン（長命）は独立した
// 有効期限を持つ。期限切れの判定は検証時に行い、バックグラウンドでの
// 一括削除は行わない。
type Session struct {
	ID                  string
	UserID              string
	SessionToken        string
	RefreshToken        string
	SessionTokenExpires time.Time
	RefreshTokenExpires time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewSessionID はセッションIDを生成する。
func NewSessionID() string {
	return "sess_" + uuid.New().String()
}

// Expired はセッショントークンが期限切れかどうかをnow基準で判定する。
func (s *Session) Expired(now time.Time) bool {
	return s.SessionTokenExpires.Before(now)
}
