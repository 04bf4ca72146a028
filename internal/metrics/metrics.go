// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやワーカーから利用する。
type MetricsCollector interface {
	RecordRecordSaved()
	RecordVersionConflict()
	RecordProviderStatus(provider string, statusCode int)
	RecordPromptCycle()
	RecordPromptSent()
	RecordPromptFailure()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	recordsSaved     prometheus.Counter
	versionConflicts prometheus.Counter
	providerStatus   *prometheus.CounterVec
	promptCycles     prometheus.Counter
	promptsSent      prometheus.Counter
	promptFailures   prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		recordsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goodday_records_saved_total",
			Help: "保存された日次レコードの合計数",
		}),
		versionConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goodday_version_conflicts_total",
			Help: "保存時のバージョントークン競合の合計数",
		}),
		providerStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goodday_provider_status_total",
			Help: "外部プロバイダAPIのステータスコード別レスポンス数",
		}, []string{"provider", "status_code"}),
		promptCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goodday_prompt_cycles_total",
			Help: "プロンプト配信サイクルの合計数",
		}),
		promptsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goodday_prompts_sent_total",
			Help: "配信された日次プロンプトの合計数",
		}),
		promptFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goodday_prompt_failures_total",
			Help: "配信に失敗した日次プロンプトの合計数",
		}),
	}

	reg.MustRegister(
		c.recordsSaved,
		c.versionConflicts,
		c.providerStatus,
		c.promptCycles,
		c.promptsSent,
		c.promptFailures,
	)

	return c
}

// RecordRecordSaved はレコード保存の成功を記録する。
func (c *Collector) RecordRecordSaved() {
	c.recordsSaved.Inc()
}

// RecordVersionConflict はバージョントークン競合を記録する。
func (c *Collector) RecordVersionConflict() {
	c.versionConflicts.Inc()
}

// RecordProviderStatus は外部プロバイダAPIのステータスコードを記録する。
func (c *Collector) RecordProviderStatus(provider string, statusCode int) {
	c.providerStatus.WithLabelValues(provider, strconv.Itoa(statusCode)).Inc()
}

// RecordPromptCycle はプロンプト配信サイクルの実行を記録する。
func (c *Collector) RecordPromptCycle() {
	c.promptCycles.Inc()
}

// RecordPromptSent はプロンプト配信の成功を記録する。
func (c *Collector) RecordPromptSent() {
	c.promptsSent.Inc()
}

// RecordPromptFailure はプロンプト配信の失敗を記録する。
func (c *Collector) RecordPromptFailure() {
	c.promptFailures.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
