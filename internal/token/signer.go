// Package token はベアラートークン（署名付きJWT）の発行と検証を提供する。
// セッションレコードの参照用トークンと外部向けベアラートークンは独立した
// 形式であり、署名方式を変更してもストアのスキーマには影響しない。
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims はベアラートークンに埋め込むクレーム。
type SessionClaims struct {
	jwt.RegisteredClaims
	Email               string    `json:"email"`
	SessionToken        string    `json:"session_token"`
	SessionTokenExpires time.Time `json:"session_token_expires"`
}

// SignerConfig はSignerの設定。
type SignerConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// Signer はHS256で署名されたJWTを発行・検証する。
type Signer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewSigner はSignerを生成する。
func NewSigner(cfg SignerConfig) *Signer {
	return &Signer{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
	}
}

// Sign はクレームに発行者・発行時刻・有効期限を設定し、署名済みJWTを返す。
func (s *Signer) Sign(claims SessionClaims) (string, error) {
	now := time.Now()
	claims.Issuer = s.issuer
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Verify は署名と有効期限を検証し、クレームを返す。
// 署名方式がHS256でないトークンは拒否する。
func (s *Signer) Verify(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}

	return claims, nil
}
