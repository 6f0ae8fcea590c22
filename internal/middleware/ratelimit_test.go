package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// --- SignInMiddleware (IP単位) のテスト ---

func TestSignInMiddleware_AllowsRequestsWithinBurst(t *testing.T) {
	cfg := RateLimiterConfig{
		SignInRate:      1,
		SignInBurst:     5,
		GeneralRate:     1,
		GeneralBurst:    10,
		CleanupInterval: time.Minute,
	}

	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	mw := rl.SignInMiddleware()

	handlerCallCount := 0
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCallCount++
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/sign-in", nil)
		req.RemoteAddr = "192.0.2.1:12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i, rec.Code, http.StatusOK)
		}
	}

	if handlerCallCount != 5 {
		t.Errorf("handler call count = %d, want 5", handlerCallCount)
	}
}

func TestSignInMiddleware_Returns429WhenBurstExceeded(t *testing.T) {
	cfg := RateLimiterConfig{
		SignInRate:      0.1,
		SignInBurst:     2,
		GeneralRate:     1,
		GeneralBurst:    10,
		CleanupInterval: time.Minute,
	}

	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	mw := rl.SignInMiddleware()
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// バースト分（2回）は通る
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/sign-in", nil)
		req.RemoteAddr = "192.0.2.2:12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i, rec.Code, http.StatusOK)
		}
	}

	// 3回目は429
	req := httptest.NewRequest(http.MethodPost, "/auth/sign-in", nil)
	req.RemoteAddr = "192.0.2.2:12345"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on 429 response")
	}
}

func TestSignInMiddleware_LimitsPerIP(t *testing.T) {
	cfg := RateLimiterConfig{
		SignInRate:      0.1,
		SignInBurst:     1,
		GeneralRate:     1,
		GeneralBurst:    10,
		CleanupInterval: time.Minute,
	}

	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	mw := rl.SignInMiddleware()
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// 1つ目のIPでバーストを使い切る
	req1 := httptest.NewRequest(http.MethodPost, "/auth/sign-in", nil)
	req1.RemoteAddr = "192.0.2.10:1111"
	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusOK {
		t.Fatalf("first IP first request: status = %d", rec1.Code)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/auth/sign-in", nil)
	req2.RemoteAddr = "192.0.2.10:1111"
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("first IP second request: status = %d, want 429", rec2.Code)
	}

	// 別のIPは影響を受けない
	req3 := httptest.NewRequest(http.MethodPost, "/auth/sign-in", nil)
	req3.RemoteAddr = "192.0.2.20:2222"
	rec3 := httptest.NewRecorder()
	handler.ServeHTTP(rec3, req3)
	if rec3.Code != http.StatusOK {
		t.Errorf("second IP: status = %d, want %d", rec3.Code, http.StatusOK)
	}

	if count := rl.SignInLimiterCount(); count != 2 {
		t.Errorf("limiter count = %d, want 2", count)
	}
}

// --- GeneralMiddleware (ユーザー単位) のテスト ---

func TestGeneralMiddleware_WithoutUserID_Returns401(t *testing.T) {
	rl := NewRateLimiter(NewRateLimiterConfig(10, 120))
	defer rl.Stop()

	mw := rl.GeneralMiddleware()
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called without user ID")
	}))

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestGeneralMiddleware_Returns429WhenLimitExceeded(t *testing.T) {
	cfg := RateLimiterConfig{
		SignInRate:      1,
		SignInBurst:     10,
		GeneralRate:     0.1,
		GeneralBurst:    2,
		CleanupInterval: time.Minute,
	}

	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	mw := rl.GeneralMiddleware()
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req = req.WithContext(ContextWithUserID(req.Context(), "usr_limit"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i, rec.Code, http.StatusOK)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = req.WithContext(ContextWithUserID(req.Context(), "usr_limit"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
}

// --- clientIP のテスト ---

func TestClientIP_PrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:80"
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")

	if ip := clientIP(req); ip != "203.0.113.5" {
		t.Errorf("clientIP() = %q, want %q", ip, "203.0.113.5")
	}
}

func TestClientIP_FallsBackToRemoteAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.9:4321"

	if ip := clientIP(req); ip != "192.0.2.9" {
		t.Errorf("clientIP() = %q, want %q", ip, "192.0.2.9")
	}
}

// --- cleanup のテスト ---

func TestCleanup_RemovesStaleEntries(t *testing.T) {
	cfg := RateLimiterConfig{
		SignInRate:      1,
		SignInBurst:     1,
		GeneralRate:     1,
		GeneralBurst:    1,
		CleanupInterval: 10 * time.Millisecond,
	}

	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	rl.getOrCreate(&rl.signInMu, rl.signInLimiters, "stale-ip", cfg.SignInRate, cfg.SignInBurst)

	// lastAccessを十分過去にずらす
	rl.signInMu.Lock()
	rl.signInLimiters["stale-ip"].lastAccess = time.Now().Add(-time.Hour)
	rl.signInMu.Unlock()

	rl.cleanup()

	if count := rl.SignInLimiterCount(); count != 0 {
		t.Errorf("limiter count after cleanup = %d, want 0", count)
	}
}
