// Package verification はマジックリンク用検証トークンの発行と消費を提供する。
// トークンはRedisにTTL付きで保存し、消費はGETDELによる原子操作で行う。
// 同一トークンに対する同時消費では必ず1回だけ成功する。
package verification

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix は検証トークンのRedisキープレフィックス。
const keyPrefix = "verification:"

// ErrNotFound はトークンが存在しない（未発行・期限切れ・消費済み）ことを表す。
var ErrNotFound = errors.New("verification token not found")

// RedisStore はRedisを使用した検証トークンストア。
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore はRedisStoreを生成する。
// redisURLは接続URL（例: "redis://localhost:6379/0"）を指定する。
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &RedisStore{
		rdb: redis.NewClient(opts),
		ttl: ttl,
	}, nil
}

// NewRedisStoreWithClient は既存のRedisクライアントからRedisStoreを生成する。
// テスト用。
func NewRedisStoreWithClient(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

// Issue は識別子（メールアドレス）に対する検証トークンを発行する。
// token -> identifier のマッピングをTTL付きで保存し、トークンを返す。
// キー衝突時はSetNXが失敗するため、新しいトークンで限定回数だけ再試行する。
func (s *RedisStore) Issue(ctx context.Context, identifier string) (string, error) {
	for i := 0; i < 3; i++ {
		token, err := generateToken()
		if err != nil {
			return "", fmt.Errorf("failed to generate verification token: %w", err)
		}

		ok, err := s.rdb.SetNX(ctx, keyPrefix+token, identifier, s.ttl).Result()
		if err != nil {
			return "", fmt.Errorf("failed to store verification token: %w", err)
		}
		if ok {
			return token, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique verification token")
}

// Consume はトークンを消費して対応する識別子を返す。
// GETDELにより読み取りと削除を1回の原子操作で行うため、
// 同時に同じトークンを消費しようとした場合でも成功するのは1回のみで、
// 他の呼び出しはErrNotFoundを受け取る。
func (s *RedisStore) Consume(ctx context.Context, token string) (string, error) {
	identifier, err := s.rdb.GetDel(ctx, keyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to consume verification token: %w", err)
	}

	return identifier, nil
}

// Close はRedis接続を閉じる。
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// generateToken は暗号的に予測不能なトークンを生成する。
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
