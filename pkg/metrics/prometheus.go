// Package metrics 定义了服务暴露的 Prometheus 指标。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "indialaw_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	DocumentsSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "indialaw_documents_submitted_total",
			Help: "Total number of documents accepted for processing",
		},
	)

	PipelineStepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "indialaw_pipeline_step_duration_seconds",
			Help:    "Duration of document pipeline steps in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"step"},
	)

	PipelineResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indialaw_pipeline_results_total",
			Help: "Outcome of document pipeline steps",
		},
		[]string{"step", "result"},
	)

	QARequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indialaw_qa_requests_total",
			Help: "Total number of streamed Q&A requests",
		},
		[]string{"result"},
	)

	LLMRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indialaw_llm_requests_total",
			Help: "Total number of model calls",
		},
		[]string{"call", "result"},
	)
)

// 结果标签取值
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

func init() {
	prometheus.MustRegister(
		HTTPRequestDuration,
		DocumentsSubmitted,
		PipelineStepDuration,
		PipelineResults,
		QARequests,
		LLMRequests,
	)
}

// Result 把 error 转换为结果标签。
func Result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}

// Handler 返回 /metrics 的 HTTP handler。
func Handler() http.Handler {
	return promhttp.Handler()
}
