package llm

import (
	"errors"
	"strings"
)

// 统一的 LLM 错误码，用于对齐 HTTP 状态、可重试性与中止策略。
type ErrorCode string

const (
	ErrInvalidRequest      ErrorCode = "LLM_INVALID_REQUEST"      // 参数/格式错误
	ErrUnauthorized        ErrorCode = "LLM_UNAUTHORIZED"         // 未授权或密钥失效
	ErrRateLimited         ErrorCode = "LLM_RATE_LIMITED"         // 上游或本地限流
	ErrQuotaExceeded       ErrorCode = "LLM_QUOTA_EXCEEDED"       // 额度/配额用尽
	ErrUpstreamTimeout     ErrorCode = "LLM_UPSTREAM_TIMEOUT"     // 上游超时
	ErrUpstreamError       ErrorCode = "LLM_UPSTREAM_ERROR"       // 上游 5xx/网络错误
	ErrProviderUnavailable ErrorCode = "LLM_PROVIDER_UNAVAILABLE" // Provider 不可用
)

type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// quotaMarkers 是上游错误消息中标识限流/配额问题的片段。
// Gemini 在 429 响应体里返回 "RESOURCE_EXHAUSTED"。
var quotaMarkers = []string{"429", "resource_exhausted", "rate limit", "quota"}

// IsQuotaExhausted 判断错误是否属于限流/配额类。
// 命中该类错误时，审计编排器停止处理剩余 persona（见 agent/audit）。
// 同时检查类型化错误码与上游消息片段：部分上游错误只能从消息文本识别。
func IsQuotaExhausted(err error) bool {
	if err == nil {
		return false
	}
	var le *Error
	if errors.As(err, &le) {
		if le.Code == ErrRateLimited || le.Code == ErrQuotaExceeded {
			return true
		}
		if le.HTTPStatus == 429 {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range quotaMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
