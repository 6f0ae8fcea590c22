// Package auth はマジックリンク認証、GitHub OAuth認証、セッション管理を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/muauth/internal/mailer"
	"github.com/hitoshi/muauth/internal/model"
	"github.com/hitoshi/muauth/internal/repository"
	"github.com/hitoshi/muauth/internal/token"
	"github.com/hitoshi/muauth/internal/verification"
)

// VerificationStore は検証トークンの発行・消費インターフェース。
type VerificationStore interface {
	// Issue は識別子に対する単回使用の検証トークンを発行する。
	Issue(ctx context.Context, identifier string) (string, error)
	// Consume はトークンを原子的に消費し、識別子を返す。
	// 存在しない・期限切れ・消費済みの場合はverification.ErrNotFoundを返す。
	Consume(ctx context.Context, token string) (string, error)
}

// TokenSigner はベアラートークンの署名インターフェース。
type TokenSigner interface {
	Sign(claims token.SessionClaims) (string, error)
}

// Profile はOAuthプロバイダーから取得したユーザープロファイルを表す。
type Profile struct {
	ID          string
	DisplayName string
	Emails      []string

	// OAuthトークン素材
	AccessToken string
	TokenType   string
	Scope       string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、プロファイルを取得する。
	ExchangeCode(ctx context.Context, code string) (*Profile, error)
}

// Result は認証成功時のレスポンスを表す。
// SessionTokenは署名済みベアラートークン（JWT）であり、
// セッションレコードの参照用トークンとは別物。
type Result struct {
	SessionToken        string
	SessionTokenExpires time.Time
	IsNewUser           bool
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	FrontendURL     string        // マジックリンクのベースURL
	MagicEmailFrom  string        // 送信元アドレス（表示用）
	SessionTokenTTL time.Duration // セッショントークン有効期間（デフォルト5分）
	RefreshTokenTTL time.Duration // リフレッシュトークン有効期間（デフォルト7日）
}

// Service は認証に関するビジネスロジックを提供する。
// 各コンポーネント（検証トークンストア、ユーザー解決、アカウント紐付け、
// セッション管理、トークン署名）を2つの公開フローに合成する。
type Service struct {
	verification VerificationStore
	oauth        OAuthProvider
	users        repository.UserRepository
	accounts     repository.AccountRepository
	sessions     repository.SessionRepository
	signer       TokenSigner
	mail         mailer.Sender
	config       ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	verificationStore VerificationStore,
	oauth OAuthProvider,
	users repository.UserRepository,
	accounts repository.AccountRepository,
	sessions repository.SessionRepository,
	signer TokenSigner,
	mail mailer.Sender,
	config ServiceConfig,
) *Service {
	if config.SessionTokenTTL == 0 {
		config.SessionTokenTTL = 5 * time.Minute
	}
	if config.RefreshTokenTTL == 0 {
		config.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	return &Service{
		verification: verificationStore,
		oauth:        oauth,
		users:        users,
		accounts:     accounts,
		sessions:     sessions,
		signer:       signer,
		mail:         mail,
		config:       config,
	}
}

// SignIn はマジックリンクによるサインインを開始する。
// 既に別プロバイダーで登録済みのメールアドレスの場合はConflictを返し、
// 検証トークンは発行しない（最初に使用したプロバイダーが正規プロバイダー）。
func (s *Service) SignIn(ctx context.Context, email string) error {
	if email == "" {
		return model.NewEmailRequiredError()
	}

	// 1. 既存ユーザーのプロバイダーポリシーを検査
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user != nil {
		accounts, err := s.accounts.ListByUserID(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to list accounts: %w", err)
		}
		for _, acc := range accounts {
			if acc.Provider != model.ProviderMagicLink {
				return model.NewProviderConflictError(accounts[0].Provider)
			}
		}
	}

	// 2. 検証トークンを発行
	verificationToken, err := s.verification.Issue(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to issue verification token: %w", err)
	}

	// 3. マジックリンクを送信
	magicLink := s.config.FrontendURL + "/verify/" + verificationToken
	html := fmt.Sprintf(`<p>Click <a href="%s">here</a> to sign in. This link expires in 10 minutes.</p>`, magicLink)
	if err := s.mail.Send(ctx, email, "Sign in to Your App", html); err != nil {
		return fmt.Errorf("failed to send magic link: %w", err)
	}

	slog.Info("magic link issued", slog.String("email", email))
	return nil
}

// Verify はマジックリンクの検証トークンを消費し、認証を完了する。
// トークンが無効または期限切れの場合はTOKEN_INVALIDを返す。
// ストア内部のnot-foundはここで変換し、そのまま外部に漏らさない。
func (s *Service) Verify(ctx context.Context, verificationToken string) (*Result, error) {
	email, err := s.verification.Consume(ctx, verificationToken)
	if err != nil {
		if errors.Is(err, verification.ErrNotFound) {
			return nil, model.NewTokenInvalidError()
		}
		return nil, fmt.Errorf("failed to consume verification token: %w", err)
	}

	user, isNewUser, err := s.findOrCreateUser(ctx, email, userAttributes{EmailVerified: true})
	if err != nil {
		return nil, err
	}

	// マジックリンクには外部IDがないため、ユーザー自身のIDで紐付ける
	if _, err := s.linkAccount(ctx, user, AccountLink{
		Provider:          model.ProviderMagicLink,
		Type:              model.AccountTypeMagicLink,
		ProviderAccountID: user.ID,
	}); err != nil {
		return nil, err
	}

	session, err := s.createSession(ctx, user)
	if err != nil {
		return nil, err
	}

	slog.Info("magic link verified",
		slog.String("user_id", user.ID),
		slog.Bool("is_new_user", isNewUser),
	)

	return s.signResult(user, session, isNewUser)
}

// GetLoginURL はGitHub OAuthの認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback はGitHub OAuthコールバックを処理し、認証を完了する。
// プロファイルにメールアドレスが含まれない場合はOAUTH_EMAIL_REQUIREDを返す。
func (s *Service) HandleCallback(ctx context.Context, code string) (*Result, error) {
	profile, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	return s.signInFromProfile(ctx, profile)
}

// signInFromProfile はOAuthプロファイルからユーザーを解決し、セッションを発行する。
func (s *Service) signInFromProfile(ctx context.Context, profile *Profile) (*Result, error) {
	if len(profile.Emails) == 0 {
		return nil, model.NewOAuthEmailRequiredError()
	}

	email := profile.Emails[0]
	firstName, lastName := splitDisplayName(profile.DisplayName)

	user, isNewUser, err := s.findOrCreateUser(ctx, email, userAttributes{
		EmailVerified: true,
		FirstName:     firstName,
		LastName:      lastName,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.linkAccount(ctx, user, AccountLink{
		Provider:          model.ProviderGitHub,
		Type:              model.AccountTypeOAuth,
		ProviderAccountID: profile.ID,
		AccessToken:       profile.AccessToken,
		TokenType:         profile.TokenType,
		Scope:             profile.Scope,
	}); err != nil {
		return nil, err
	}

	session, err := s.createSession(ctx, user)
	if err != nil {
		return nil, err
	}

	slog.Info("oauth sign-in completed",
		slog.String("user_id", user.ID),
		slog.String("provider", model.ProviderGitHub),
		slog.Bool("is_new_user", isNewUser),
	)

	return s.signResult(user, session, isNewUser)
}

// GetUser は指定IDのユーザーを取得する。
// セッションミドルウェアを通過したリクエスト向け。
func (s *Service) GetUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUnauthorizedError()
	}
	return user, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return model.NewUnauthorizedError()
	}

	if err := s.sessions.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// signResult はセッションからベアラートークンを署名し、Resultを構築する。
// session_tokenクレームにはセッションレコードの参照用トークンを埋め込む。
func (s *Service) signResult(user *model.User, session *model.Session, isNewUser bool) (*Result, error) {
	claims := token.SessionClaims{}
	claims.Subject = user.ID
	claims.Email = user.Email
	claims.SessionToken = session.SessionToken
	claims.SessionTokenExpires = session.SessionTokenExpires

	signed, err := s.signer.Sign(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to sign bearer token: %w", err)
	}

	return &Result{
		SessionToken:        signed,
		SessionTokenExpires: session.SessionTokenExpires,
		IsNewUser:           isNewUser,
	}, nil
}

// splitDisplayName は表示名を最初の空白で姓と名に分割する。
func splitDisplayName(displayName string) (firstName, lastName string) {
	for i, r := range displayName {
		if r == ' ' {
			return displayName[:i], displayName[i+1:]
		}
	}
	return displayName, ""
}
