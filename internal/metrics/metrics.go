// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// サインイン方式のラベル値
const (
	MethodPassword = "password"
	MethodGoogle   = "google"
	MethodRegister = "register"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層、ミドルウェア、ワーカーから利用する。
type MetricsCollector interface {
	RecordSignIn(method, outcome string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordResumeEvent(event string)
	RecordResumesPurged(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	signIns        *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
	resumeEvents   *prometheus.CounterVec
	resumesPurged  prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "resumekit_sign_in_total",
			Help: "サインイン試行の合計数（方式・結果別）",
		}, []string{"method", "outcome"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "resumekit_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "resumekit_request_latency_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		resumeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "resumekit_resume_events_total",
			Help: "レジュメの閲覧・ダウンロード・共有イベント数",
		}, []string{"event"}),
		resumesPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "resumekit_resumes_purged_total",
			Help: "保持期間を過ぎて物理削除されたレジュメの合計数",
		}),
	}

	reg.MustRegister(
		c.signIns,
		c.httpStatus,
		c.requestLatency,
		c.resumeEvents,
		c.resumesPurged,
	)

	return c
}

// RecordSignIn はサインイン試行の結果を記録する。
// outcomeには成功時は"success"、失敗時は失敗種別を渡す。
func (c *Collector) RecordSignIn(method, outcome string) {
	c.signIns.WithLabelValues(method, outcome).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordResumeEvent はレジュメの利用イベントを記録する。
func (c *Collector) RecordResumeEvent(event string) {
	c.resumeEvents.WithLabelValues(event).Inc()
}

// RecordResumesPurged は物理削除したレジュメ数を記録する。
func (c *Collector) RecordResumesPurged(count int64) {
	c.resumesPurged.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
// 一部のコレクターが失敗しても、収集できたメトリクスは返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
