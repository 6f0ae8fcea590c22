// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordSignInRequest(result string)
	RecordMagicLinkSent()
	RecordVerification(result string)
	RecordOAuthLogin(result string)
	RecordSessionCreated()
	RecordSessionValidationFailure()
	RecordHTTPStatus(statusCode int)
}

// Collector は認証フローのPrometheusメトリクスを収集する。
type Collector struct {
	signInRequests    *prometheus.CounterVec
	magicLinksSent    prometheus.Counter
	verifications     *prometheus.CounterVec
	oauthLogins       *prometheus.CounterVec
	sessionsCreated   prometheus.Counter
	sessionValidFails prometheus.Counter
	httpStatus        *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signInRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "muauth_sign_in_requests_total",
			Help: "サインイン開始リクエストの合計数（結果別）",
		}, []string{"result"}),
		magicLinksSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "muauth_magic_links_sent_total",
			Help: "発行されたマジックリンクの合計数",
		}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "muauth_verifications_total",
			Help: "マジックリンク検証の合計数（結果別）",
		}, []string{"result"}),
		oauthLogins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "muauth_oauth_logins_total",
			Help: "OAuthログインの合計数（結果別）",
		}, []string{"result"}),
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "muauth_sessions_created_total",
			Help: "作成されたセッションの合計数",
		}),
		sessionValidFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "muauth_session_validation_failures_total",
			Help: "セッション検証失敗の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "muauth_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.signInRequests,
		c.magicLinksSent,
		c.verifications,
		c.oauthLogins,
		c.sessionsCreated,
		c.sessionValidFails,
		c.httpStatus,
	)

	return c
}

// RecordSignInRequest はサインイン開始リクエストを結果別に記録する。
// resultは success / conflict / invalid のいずれか。
func (c *Collector) RecordSignInRequest(result string) {
	c.signInRequests.WithLabelValues(result).Inc()
}

// RecordMagicLinkSent はマジックリンク発行を記録する。
func (c *Collector) RecordMagicLinkSent() {
	c.magicLinksSent.Inc()
}

// RecordVerification はマジックリンク検証を結果別に記録する。
func (c *Collector) RecordVerification(result string) {
	c.verifications.WithLabelValues(result).Inc()
}

// RecordOAuthLogin はOAuthログインを結果別に記録する。
func (c *Collector) RecordOAuthLogin(result string) {
	c.oauthLogins.WithLabelValues(result).Inc()
}

// RecordSessionCreated はセッション作成を記録する。
func (c *Collector) RecordSessionCreated() {
	c.sessionsCreated.Inc()
}

// RecordSessionValidationFailure はセッション検証失敗を記録する。
func (c *Collector) RecordSessionValidationFailure() {
	c.sessionValidFails.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
