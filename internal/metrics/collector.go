// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
// 所有方法对 nil 接收者安全：未接线指标的组件直接传 nil。
type Collector struct {
	// 生成调用指标
	generatorCallsTotal  *prometheus.CounterVec
	generatorCallErrors  *prometheus.CounterVec
	turnDuration         *prometheus.HistogramVec
	extractFailuresTotal prometheus.Counter

	// 审计指标
	auditOutcomesTotal *prometheus.CounterVec
	attackTurnsTotal   prometheus.Counter

	logger *zap.Logger
}

// NewCollector 创建指标收集器
// namespace 用于隔离（测试中传入唯一值避免重复注册）。
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.generatorCallsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generator_calls_total",
			Help:      "Total external generator calls by mode.",
		},
		[]string{"mode"},
	)
	c.generatorCallErrors = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generator_call_errors_total",
			Help:      "Total failed external generator calls by mode.",
		},
		[]string{"mode"},
	)
	c.turnDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Duration of one conversation turn including external calls.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"role"},
	)
	c.extractFailuresTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extract_failures_total",
			Help:      "Structured-mode responses from which no payload could be extracted.",
		},
	)
	c.auditOutcomesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_outcomes_total",
			Help:      "Audit outcomes by result (achieved, resisted, error).",
		},
		[]string{"result"},
	)
	c.attackTurnsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attack_turns_total",
			Help:      "Total adversarial attack exchanges executed.",
		},
	)

	return c
}

// RecordGeneratorCall 记录一次外部生成调用。
func (c *Collector) RecordGeneratorCall(mode string, err error) {
	if c == nil {
		return
	}
	c.generatorCallsTotal.WithLabelValues(mode).Inc()
	if err != nil {
		c.generatorCallErrors.WithLabelValues(mode).Inc()
	}
}

// RecordTurn 记录一次会话轮次耗时。
func (c *Collector) RecordTurn(role string, d time.Duration) {
	if c == nil {
		return
	}
	c.turnDuration.WithLabelValues(role).Observe(d.Seconds())
}

// RecordExtractFailure 记录一次结构化提取失败。
func (c *Collector) RecordExtractFailure() {
	if c == nil {
		return
	}
	c.extractFailuresTotal.Inc()
}

// RecordAuditOutcome 记录一个 persona 的审计结果。
func (c *Collector) RecordAuditOutcome(result string) {
	if c == nil {
		return
	}
	c.auditOutcomesTotal.WithLabelValues(result).Inc()
}

// RecordAttackTurn 记录一次攻击交换。
func (c *Collector) RecordAttackTurn() {
	if c == nil {
		return
	}
	c.attackTurnsTotal.Inc()
}
