package services

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService 指标服务
type MetricsService struct {
	questionsTotal     *prometheus.CounterVec
	questionDuration   prometheus.Histogram
	kbBuildsTotal      *prometheus.CounterVec
	kbBuildDuration    prometheus.Histogram
	kbChunksGauge      prometheus.Gauge
	cacheEventsCounter *prometheus.CounterVec
}

// NewMetricsService 创建指标服务并注册全部指标
func NewMetricsService() *MetricsService {
	return &MetricsService{
		questionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contractqa_questions_total",
				Help: "Total number of questions answered",
			},
			[]string{"outcome"}, // outcome: answered, no_context, error
		),
		questionDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "contractqa_question_duration_seconds",
				Help:    "End to end latency of answering a question",
				Buckets: prometheus.DefBuckets,
			},
		),
		kbBuildsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contractqa_kb_builds_total",
				Help: "Total number of knowledge base builds",
			},
			[]string{"status"}, // status: success, failure
		),
		kbBuildDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "contractqa_kb_build_duration_seconds",
				Help:    "Duration of knowledge base builds",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		kbChunksGauge: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "contractqa_kb_chunks",
				Help: "Number of chunks in the active knowledge base",
			},
		),
		cacheEventsCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contractqa_cache_events_total",
				Help: "Answer cache hits and misses",
			},
			[]string{"event"}, // event: hit, miss
		),
	}
}

// Handler 返回Prometheus指标的HTTP处理器
func (ms *MetricsService) Handler() http.Handler {
	return promhttp.Handler()
}

// ServeHTTP 实现http.Handler接口
func (ms *MetricsService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ms.Handler().ServeHTTP(w, r)
}

// ObserveQuestion 记录一次问答
func (ms *MetricsService) ObserveQuestion(outcome string, seconds float64) {
	ms.questionsTotal.WithLabelValues(outcome).Inc()
	ms.questionDuration.Observe(seconds)
}

// ObserveBuild 记录一次知识库构建
func (ms *MetricsService) ObserveBuild(status string, seconds float64, chunks int) {
	ms.kbBuildsTotal.WithLabelValues(status).Inc()
	ms.kbBuildDuration.Observe(seconds)
	if status == "success" {
		ms.kbChunksGauge.Set(float64(chunks))
	}
}

// ObserveCache 记录缓存命中情况
func (ms *MetricsService) ObserveCache(event string) {
	ms.cacheEventsCounter.WithLabelValues(event).Inc()
}
