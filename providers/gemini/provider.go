// Package gemini implements the llm.Provider interface for Google Gemini.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/auditflow/llm"
)

// Config Gemini Provider 配置。
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// RequestsPerMinute 客户端侧限速，0 表示不限速。
	// 审计循环串行消耗配额，前置限速能显著降低上游 429 的概率。
	RequestsPerMinute int
}

// Provider 实现 Google Gemini 的 LLM Provider。
// Gemini API 特点：
// 1. 使用 x-goog-api-key 请求头认证
// 2. systemInstruction 独立于 contents 传递
// 3. assistant 角色在 contents 中名为 "model"
type Provider struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New 创建 Gemini Provider。
func New(cfg Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}

	return &Provider{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		logger:  logger.With(zap.String("component", "gemini")),
	}
}

func (p *Provider) Name() string { return "gemini" }

// Close 释放底层空闲连接。实现 io.Closer 供编排器统一释放。
func (p *Provider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	start := time.Now()
	endpoint := fmt.Sprintf("%s/v1beta/models", strings.TrimRight(p.cfg.BaseURL, "/"))
	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	p.buildHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		return &llm.HealthStatus{Healthy: false, Latency: latency}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := readErrMsg(resp.Body)
		return &llm.HealthStatus{Healthy: false, Latency: latency}, fmt.Errorf("gemini health check failed: status=%d msg=%s", resp.StatusCode, msg)
	}
	return &llm.HealthStatus{Healthy: true, Latency: latency}, nil
}

// Gemini 消息结构
type geminiContent struct {
	Role  string       `json:"role,omitempty"` // user, model
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature     float32  `json:"temperature,omitempty"`
	TopP            float32  `json:"topP,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
	Index        int           `json:"index"`
}

type geminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type geminiResponse struct {
	Candidates    []geminiCandidate    `json:"candidates"`
	UsageMetadata *geminiUsageMetadata `json:"usageMetadata,omitempty"`
	ResponseID    string               `json:"responseId,omitempty"`
}

type geminiErrorResp struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (p *Provider) buildHeaders(req *http.Request) {
	// Gemini 使用 x-goog-api-key 认证
	req.Header.Set("x-goog-api-key", p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
}

// convertContents 将统一格式转换为 Gemini 格式。
// req.System 与消息列表中的 system 消息都映射到 systemInstruction。
func convertContents(req *llm.ChatRequest) (*geminiContent, []geminiContent) {
	var systemInstruction *geminiContent
	if req.System != "" {
		systemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}

	var contents []geminiContent
	for _, m := range req.Messages {
		if m.Role == llm.RoleSystem {
			systemInstruction = &geminiContent{Parts: []geminiPart{{Text: m.Content}}}
			continue
		}

		role := string(m.Role)
		if role == "assistant" {
			role = "model" // Gemini 使用 "model" 而不是 "assistant"
		}
		if m.Content == "" {
			continue
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: m.Content}},
		})
	}

	return systemInstruction, contents
}

func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, &llm.Error{
				Code:     llm.ErrUpstreamTimeout,
				Message:  err.Error(),
				Provider: p.Name(),
			}
		}
	}

	systemInstruction, contents := convertContents(req)

	body := geminiRequest{
		Contents:          contents,
		SystemInstruction: systemInstruction,
	}
	if req.Temperature > 0 || req.TopP > 0 || req.MaxTokens > 0 || len(req.Stop) > 0 {
		body.GenerationConfig = &geminiGenerationConfig{
			Temperature:     req.Temperature,
			TopP:            req.TopP,
			MaxOutputTokens: req.MaxTokens,
			StopSequences:   req.Stop,
		}
	}

	payload, _ := json.Marshal(body)
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", strings.TrimRight(p.cfg.BaseURL, "/"), model)

	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	p.buildHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &llm.Error{
			Code:       llm.ErrUpstreamError,
			Message:    err.Error(),
			HTTPStatus: http.StatusBadGateway,
			Retryable:  true,
			Provider:   p.Name(),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := readErrMsg(resp.Body)
		return nil, mapError(resp.StatusCode, msg, p.Name())
	}

	var geminiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return nil, &llm.Error{
			Code:       llm.ErrUpstreamError,
			Message:    err.Error(),
			HTTPStatus: http.StatusBadGateway,
			Retryable:  true,
			Provider:   p.Name(),
		}
	}

	return toChatResponse(geminiResp, p.Name(), model), nil
}

func toChatResponse(in geminiResponse, provider, model string) *llm.ChatResponse {
	out := &llm.ChatResponse{
		ID:        in.ResponseID,
		Provider:  provider,
		Model:     model,
		CreatedAt: time.Now(),
	}
	for _, c := range in.Candidates {
		var sb strings.Builder
		for _, part := range c.Content.Parts {
			sb.WriteString(part.Text)
		}
		out.Choices = append(out.Choices, llm.ChatChoice{
			Index:        c.Index,
			FinishReason: c.FinishReason,
			Message: llm.Message{
				Role:    llm.RoleAssistant,
				Content: sb.String(),
			},
		})
	}
	if in.UsageMetadata != nil {
		out.Usage = llm.ChatUsage{
			PromptTokens:     in.UsageMetadata.PromptTokenCount,
			CompletionTokens: in.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      in.UsageMetadata.TotalTokenCount,
		}
	}
	return out
}

func readErrMsg(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var errResp geminiErrorResp
	if json.Unmarshal(data, &errResp) == nil && errResp.Error.Message != "" {
		if errResp.Error.Status != "" {
			return errResp.Error.Status + ": " + errResp.Error.Message
		}
		return errResp.Error.Message
	}
	return strings.TrimSpace(string(data))
}

// mapError 将 HTTP 状态映射为统一错误码。
// 429 与 RESOURCE_EXHAUSTED 必须映射到限流类错误码：审计编排器据此
// 决定是否中止剩余 persona。
func mapError(status int, msg, provider string) *llm.Error {
	e := &llm.Error{
		Message:    msg,
		HTTPStatus: status,
		Provider:   provider,
	}
	switch {
	case status == http.StatusTooManyRequests:
		e.Code = llm.ErrRateLimited
		e.Retryable = true
	case strings.Contains(strings.ToUpper(msg), "RESOURCE_EXHAUSTED"):
		e.Code = llm.ErrQuotaExceeded
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Code = llm.ErrUnauthorized
	case status == http.StatusBadRequest:
		e.Code = llm.ErrInvalidRequest
	case status == http.StatusGatewayTimeout:
		e.Code = llm.ErrUpstreamTimeout
		e.Retryable = true
	case status >= 500:
		e.Code = llm.ErrUpstreamError
		e.Retryable = true
	default:
		e.Code = llm.ErrProviderUnavailable
	}
	return e
}
