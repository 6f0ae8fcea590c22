package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

type mockHTTPStatusRecorder struct {
	statuses []int
}

func (m *mockHTTPStatusRecorder) RecordHTTPStatus(statusCode int) {
	m.statuses = append(m.statuses, statusCode)
}

var _ HTTPStatusRecorder = (*mockHTTPStatusRecorder)(nil)

func TestMetricsMiddleware_RecordsResponseStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"success", http.StatusOK},
		{"unauthorized", http.StatusUnauthorized},
		{"server error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := &mockHTTPStatusRecorder{}
			mw := NewMetricsMiddleware(recorder)

			handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if len(recorder.statuses) != 1 {
				t.Fatalf("recorded statuses = %d, want 1", len(recorder.statuses))
			}
			if recorder.statuses[0] != tt.status {
				t.Errorf("status = %d, want %d", recorder.statuses[0], tt.status)
			}
		})
	}
}

// WriteHeaderを呼ばないハンドラーでは200が記録されることを検証する。
func TestMetricsMiddleware_DefaultsTo200WithoutWriteHeader(t *testing.T) {
	recorder := &mockHTTPStatusRecorder{}
	mw := NewMetricsMiddleware(recorder)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if len(recorder.statuses) != 1 || recorder.statuses[0] != http.StatusOK {
		t.Errorf("statuses = %v, want [200]", recorder.statuses)
	}
}
