package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 API 注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		RunDuration, RunTotal,
		ToolDuration, ToolFailTotal,
		LLMTokensTotal, SchemaFallbackTotal,
		EscalationTotal, MemoryWriteFailTotal,
		RateLimitWaitSeconds,
	)
}

// RunDuration 单次管线运行耗时（秒）
var RunDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "support_run_duration_seconds",
		Help:    "管线运行耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"decision"}, // auto | human
)

// RunTotal 管线运行总数（按最终路由）
var RunTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "support_run_total",
		Help: "管线运行总数（按最终路由）",
	},
	[]string{"decision"},
)

// ToolDuration 证据工具调用耗时（秒）
var ToolDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "support_tool_duration_seconds",
		Help:    "证据工具调用耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"tool"},
)

// ToolFailTotal 证据工具失败总数（按关键级别）
var ToolFailTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "support_tool_fail_total",
		Help: "证据工具失败总数（按关键级别）",
	},
	[]string{"tool", "criticality"},
)

// LLMTokensTotal LLM 调用 token 数
var LLMTokensTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "support_llm_tokens_total",
		Help: "LLM 调用 token 总数",
	},
	[]string{"direction"}, // input | output
)

// SchemaFallbackTotal 结构化输出解析失败、回退默认值的次数（按阶段）
var SchemaFallbackTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "support_schema_fallback_total",
		Help: "结构化输出解析失败回退次数",
	},
	[]string{"stage"},
)

// EscalationTotal 人工升级提交总数（按结果）
var EscalationTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "support_escalation_total",
		Help: "人工升级提交总数",
	},
	[]string{"result"}, // submitted | failed
)

// MemoryWriteFailTotal 异步记忆写入失败总数（仅记录，不影响响应路径）
var MemoryWriteFailTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "support_memory_write_fail_total",
		Help: "异步记忆写入失败总数",
	},
)

// RateLimitWaitSeconds 限流等待时长（秒）
var RateLimitWaitSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "support_rate_limit_wait_seconds",
		Help:    "限流等待时长（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"component", "provider"},
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 Hertz 等复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
