package model

import (
	"time"

	"github.com/google/uuid"
)

// 認証プロバイダー種別。
const (
	// ProviderMagicLink はマジックリンク認証を表す。
	ProviderMagicLink = "magic-link"
	// ProviderGitHub はGitHub OAuth認証を表す。
	ProviderGitHub = "github"
)

// アカウント種別（provider type）。
const (
	// AccountTypeMagicLink はマジックリンク経由のアカウント。
	AccountTypeMagicLink = "magic-link"
	// AccountTypeOAuth はOAuth経由のアカウント。
	AccountTypeOAuth = "oauth"
)

// Account はユーザーと認証プロバイダーの紐付けを表す。
// (provider, provider_account_id) の組は全アカウントで一意であり、
// アカウントは生成から削除まで1人のユーザーにのみ属する。
// マジックリンクには外部IDが存在しないため、provider_account_idには
// ユーザー自身のIDを使用する。
type Account struct {
	ID                string
	UserID            string
	Provider          string
	Type              string
	ProviderAccountID string

	// OAuthトークン素材。マジックリンクアカウントでは空。
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	ExpiresAt    time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAccountID はアカウントIDを生成する。
func NewAccountID() string {
	return "act_" + uuid.New().String()
}
