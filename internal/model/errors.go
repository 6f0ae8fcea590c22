package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, conflict, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeEmailRequired      = "EMAIL_REQUIRED"
	ErrCodeOAuthEmailRequired = "OAUTH_EMAIL_REQUIRED"
	ErrCodeProviderConflict   = "PROVIDER_CONFLICT"
	ErrCodeAccountConflict    = "ACCOUNT_CONFLICT"
	ErrCodeTokenInvalid       = "TOKEN_INVALID"
	ErrCodeSessionExpired     = "SESSION_EXPIRED"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
)

// NewEmailRequiredError はメールアドレス未指定エラーを生成する。
func NewEmailRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailRequired,
		Message:  "メールアドレスが指定されていません。",
		Category: "validation",
		Action:   "メールアドレスを入力してください。",
	}
}

// NewOAuthEmailRequiredError はOAuthプロファイルにメールアドレスが含まれない場合のエラーを生成する。
func NewOAuthEmailRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeOAuthEmailRequired,
		Message:  "OAuthプロバイダーからメールアドレスを取得できませんでした。",
		Category: "validation",
		Action:   "プロバイダー側でメールアドレスの公開設定を確認してください。",
	}
}

// NewProviderConflictError はメールアドレスが別のプロバイダーで登録済みの場合のエラーを生成する。
// 最初に登録したプロバイダーがそのメールアドレスの正規プロバイダーとなる。
func NewProviderConflictError(provider string) *APIError {
	return &APIError{
		Code:     ErrCodeProviderConflict,
		Message:  fmt.Sprintf("このメールアドレスは別の認証方法で登録されています: %s", provider),
		Category: "conflict",
		Action:   fmt.Sprintf("%s でサインインしてください。", provider),
	}
}

// NewAccountConflictError はアカウントが別のユーザーに紐付け済みの場合のエラーを生成する。
func NewAccountConflictError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountConflict,
		Message:  "このアカウントは既に別のユーザーに紐付けられています。",
		Category: "conflict",
		Action:   "別のアカウントでサインインするか、管理者に連絡してください。",
	}
}

// NewTokenInvalidError は検証トークンが無効または期限切れの場合のエラーを生成する。
// ストア内部のnot-found詳細は漏らさない。
func NewTokenInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenInvalid,
		Message:  "検証トークンが無効か、有効期限が切れています。",
		Category: "auth",
		Action:   "サインインをやり直して新しいマジックリンクを取得してください。",
	}
}

// NewSessionExpiredError はセッションが期限切れの場合のエラーを生成する。
func NewSessionExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionExpired,
		Message:  "セッションの有効期限が切れています。",
		Category: "auth",
		Action:   "再度サインインしてください。",
	}
}

// NewUnauthorizedError は認証されていないリクエストに対するエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証情報が無効です。",
		Category: "auth",
		Action:   "再度サインインしてください。",
	}
}
