// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/muauth/internal/auth"
	"github.com/hitoshi/muauth/internal/metrics"
	"github.com/hitoshi/muauth/internal/middleware"
	"github.com/hitoshi/muauth/internal/model"
)

const oauthStateCookie = "oauth_state"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// SignIn はマジックリンクによるサインインを開始する。
	SignIn(ctx context.Context, email string) error
	// Verify は検証トークンを消費し、認証を完了する。
	Verify(ctx context.Context, verificationToken string) (*auth.Result, error)
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// HandleCallback はOAuthコールバックを処理し、認証を完了する。
	HandleCallback(ctx context.Context, code string) (*auth.Result, error)
	// GetUser は指定IDのユーザーを取得する。
	GetUser(ctx context.Context, userID string) (*model.User, error)
	// Logout はセッションを破棄する。
	Logout(ctx context.Context, sessionID string) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain string
	CookieSecure bool
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service   AuthServiceInterface
	config    AuthHandlerConfig
	collector metrics.MetricsCollector
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig, collector metrics.MetricsCollector) *AuthHandler {
	return &AuthHandler{
		service:   service,
		config:    config,
		collector: collector,
	}
}

// signInRequest はサインイン開始リクエストのボディ。
type signInRequest struct {
	Email string `json:"email"`
}

// signInResponse はサインイン開始のAPIレスポンス。
type signInResponse struct {
	Message string `json:"message"`
}

// authResponse は認証成功時のAPIレスポンス。
type authResponse struct {
	SessionToken        string    `json:"session_token"`
	SessionTokenExpires time.Time `json:"session_token_expires"`
	IsNewUser           bool      `json:"isNewUser"`
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	EmailVerified bool   `json:"email_verified"`
	Role          string `json:"role"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// SignIn はマジックリンクによるサインインを開始する。
// POST /auth/sign-in
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.collector.RecordSignInRequest("invalid")
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	if err := h.service.SignIn(r.Context(), req.Email); err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeProviderConflict {
			h.collector.RecordSignInRequest("conflict")
		} else {
			h.collector.RecordSignInRequest("invalid")
		}
		handleServiceError(w, err)
		return
	}

	h.collector.RecordSignInRequest("success")
	h.collector.RecordMagicLinkSent()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(signInResponse{
		Message: "サインイン用のリンクをメールで送信しました。メールを確認してください。",
	})
}

// Validate はマジックリンクの検証トークンを消費し、ベアラートークンを発行する。
// GET /auth/validate?token=xxx
func (h *AuthHandler) Validate(w http.ResponseWriter, r *http.Request) {
	verificationToken := r.URL.Query().Get("token")
	if verificationToken == "" {
		h.collector.RecordVerification("invalid")
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewTokenInvalidError())
		return
	}

	result, err := h.service.Verify(r.Context(), verificationToken)
	if err != nil {
		h.collector.RecordVerification("failure")
		handleServiceError(w, err)
		return
	}

	h.collector.RecordVerification("success")
	h.collector.RecordSessionCreated()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toAuthResponse(result))
}

// Login はGitHub OAuthフローを開始する。
// GET /auth/sign-in/github
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	url := h.service.GetLoginURL(state)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// Callback はGitHub OAuthコールバックを処理する。
// GET /auth/callback/github?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch",
			slog.String("query_state", state),
		)
		h.collector.RecordOAuthLogin("invalid_state")
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_STATE",
			Message:  "stateパラメータが一致しません。",
			Category: "auth",
			Action:   "サインインをやり直してください。",
		})
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 2. 認可コードの取得
	code := r.URL.Query().Get("code")
	if code == "" {
		h.collector.RecordOAuthLogin("missing_code")
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "MISSING_CODE",
			Message:  "認可コードが指定されていません。",
			Category: "auth",
			Action:   "サインインをやり直してください。",
		})
		return
	}

	// 3. 認証処理
	result, err := h.service.HandleCallback(r.Context(), code)
	if err != nil {
		h.collector.RecordOAuthLogin("failure")
		handleServiceError(w, err)
		return
	}

	h.collector.RecordOAuthLogin("success")
	h.collector.RecordSessionCreated()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toAuthResponse(result))
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(userResponse{
		ID:            user.ID,
		Email:         user.Email,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		EmailVerified: user.EmailVerified,
		Role:          string(user.Role),
	})
}

// Logout はセッションを破棄する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID, err := middleware.SessionIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.service.Logout(r.Context(), sessionID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// toAuthResponse はauth.ResultからAPIレスポンスに変換する。
func toAuthResponse(result *auth.Result) authResponse {
	return authResponse{
		SessionToken:        result.SessionToken,
		SessionTokenExpires: result.SessionTokenExpires,
		IsNewUser:           result.IsNewUser,
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeEmailRequired, model.ErrCodeOAuthEmailRequired, model.ErrCodeTokenInvalid:
		return http.StatusBadRequest
	case model.ErrCodeProviderConflict, model.ErrCodeAccountConflict:
		return http.StatusConflict
	case model.ErrCodeSessionExpired, model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
