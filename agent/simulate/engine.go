package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/auditflow/agent/extract"
	"github.com/BaSui01/auditflow/config"
	"github.com/BaSui01/auditflow/internal/metrics"
	"github.com/BaSui01/auditflow/llm"
	"github.com/BaSui01/auditflow/types"
)

// Options 会话引擎配置。
type Options struct {
	Model       string
	MaxMessages int
	// CustomerTemperature 客户角色默认采样温度（persona 未指定时生效）。
	CustomerTemperature float32
	// ChatbotTemperature 机器人角色采样温度，偏低以保证稳定。
	ChatbotTemperature float32
	Metrics            *metrics.Collector
}

// DefaultOptions 返回默认引擎配置。
// 客户侧温度偏高（多样化提问），机器人侧偏低（稳定应答）。
func DefaultOptions() Options {
	return Options{
		MaxMessages:         DefaultMaxMessages,
		CustomerTemperature: 0.8,
		ChatbotTemperature:  0.1,
	}
}

// Engine 驱动一次客户/机器人双角色会话。
// 单线程协作式执行：每个轮次（含全部外部调用）完整结束后才调度下一轮。
type Engine struct {
	provider  llm.Provider
	persona   *config.Persona
	prompts   config.SystemPrompts
	catalogue string
	opts      Options
	metrics   *metrics.Collector
	logger    *zap.Logger
}

// NewEngine 创建会话引擎。
// personaID 无匹配配置时立即返回致命配置错误，不执行任何轮次。
func NewEngine(provider llm.Provider, cfg *config.Config, personaID string, opts Options, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	persona, ok := cfg.Persona(personaID)
	if !ok {
		return nil, types.NewError(types.ErrConfiguration, "unknown persona").WithPersona(personaID)
	}

	if opts.MaxMessages <= 0 {
		opts.MaxMessages = DefaultMaxMessages
	}
	if opts.CustomerTemperature == 0 {
		opts.CustomerTemperature = DefaultOptions().CustomerTemperature
	}
	if opts.ChatbotTemperature == 0 {
		opts.ChatbotTemperature = DefaultOptions().ChatbotTemperature
	}

	prompts := cfg.Prompts
	if prompts.GeneralQA == "" {
		prompts.GeneralQA = config.DefaultGeneralQAPrompt
	}
	if prompts.Recommendations == "" {
		prompts.Recommendations = config.DefaultRecommendationsPrompt
	}
	if prompts.IntentProbe == "" {
		prompts.IntentProbe = config.DefaultIntentProbePrompt
	}

	catalogue := ""
	if len(cfg.Catalogue) > 0 {
		data, err := json.MarshalIndent(cfg.Catalogue, "", "  ")
		if err != nil {
			return nil, types.NewError(types.ErrConfiguration, "marshal catalogue").WithCause(err)
		}
		catalogue = string(data)
	}

	return &Engine{
		provider:  provider,
		persona:   persona,
		prompts:   prompts,
		catalogue: catalogue,
		opts:      opts,
		metrics:   opts.Metrics,
		logger:    logger.With(zap.String("component", "simulate"), zap.String("persona", personaID)),
	}, nil
}

// PersonaID 返回本引擎绑定的 persona。
func (e *Engine) PersonaID() string { return e.persona.ID }

// Run 驱动会话直至终止，返回终态快照。
// 轮次严格交替 customer→chatbot→customer…，出错时返回已累积的状态。
func (e *Engine) Run(ctx context.Context) (State, error) {
	s := NewState(e.persona.ID)
	e.logger.Info("conversation started", zap.Int("max_messages", e.opts.MaxMessages))

	for !s.Finished {
		r, err := e.step(ctx, s)
		if err != nil {
			return s, err
		}
		s = Apply(s, r, e.opts.MaxMessages)
	}

	e.logger.Info("conversation finished",
		zap.Int("messages", len(s.History)),
		zap.Int("payloads", len(s.Payloads)))
	return s, nil
}

// step 执行一个轮次。每轮恰好向历史贡献一条消息。
func (e *Engine) step(ctx context.Context, s State) (TurnResult, error) {
	start := time.Now()
	defer func() {
		e.metrics.RecordTurn(string(s.Next), time.Since(start))
	}()

	switch s.Next {
	case types.RoleCustomer:
		return e.customerTurn(ctx, s.History)
	case types.RoleChatbot:
		return e.chatbotTurn(ctx, s.History)
	default:
		return TurnResult{}, types.NewError(types.ErrGeneration, fmt.Sprintf("invalid next role %q", s.Next))
	}
}

// openingInstruction 首轮客户消息的生成指令（历史为空时上游拒绝空消息列表）。
const openingInstruction = "Begin the conversation with your first message, in character."

// customerTurn 以 persona 行为生成下一条客户消息。
func (e *Engine) customerTurn(ctx context.Context, history []types.Message) (TurnResult, error) {
	temperature := e.opts.CustomerTemperature
	if e.persona.Temperature != nil {
		temperature = *e.persona.Temperature
	}

	messages := project(history, types.RoleCustomer)
	if len(messages) == 0 {
		messages = []llm.Message{{Role: llm.RoleUser, Content: openingInstruction}}
	}

	content, err := e.complete(ctx, "customer", &llm.ChatRequest{
		Model:       e.opts.Model,
		System:      e.persona.SystemPrompt,
		Messages:    messages,
		Temperature: temperature,
	})
	if err != nil {
		return TurnResult{}, err
	}

	return TurnResult{Message: types.NewCustomerMessage(content)}, nil
}

// chatbotTurn 先探测意图决定应答模式，再生成机器人消息并提取负载。
func (e *Engine) chatbotTurn(ctx context.Context, history []types.Message) (TurnResult, error) {
	latest := latestCustomerMessage(history)
	if latest == "" {
		return TurnResult{}, types.NewError(types.ErrGeneration, "chatbot turn without a customer message")
	}

	structured, err := e.wantsRecommendation(ctx, latest)
	if err != nil {
		// 意图探测失败按生成错误上抛，而非静默回退自由模式：
		// 否则 p7（意图消歧）评分无法区分模型选择与探测失败。
		return TurnResult{}, err
	}

	mode := "freeform"
	system := e.prompts.GeneralQA
	if structured {
		mode = "structured"
		system = e.prompts.Recommendations
		if e.catalogue != "" {
			system += "\n\nProduct catalogue:\n" + e.catalogue
		}
	}

	content, err := e.complete(ctx, mode, &llm.ChatRequest{
		Model:       e.opts.Model,
		System:      system,
		Messages:    project(history, types.RoleChatbot),
		Temperature: e.opts.ChatbotTemperature,
	})
	if err != nil {
		return TurnResult{}, err
	}

	payloads := extract.Extract(content)
	if structured && len(payloads) == 0 {
		// 结构化模式下解析失败不致命：原文照常入史，本轮记零负载。
		e.metrics.RecordExtractFailure()
		e.logger.Warn("structured response yielded no payload")
	}

	return TurnResult{
		Message:  types.NewChatbotMessage(content),
		Payloads: payloads,
	}, nil
}

// Respond 以机器人身份应答一条外部探测消息，供审计目标适配器使用。
// history 为既往交换（只读），probe 作为新的客户消息参与本次应答。
func (e *Engine) Respond(ctx context.Context, history []types.Message, probe string) (string, error) {
	h := make([]types.Message, len(history), len(history)+1)
	copy(h, history)
	h = append(h, types.NewCustomerMessage(probe))

	r, err := e.chatbotTurn(ctx, h)
	if err != nil {
		return "", err
	}
	return r.Message.Content, nil
}

// wantsRecommendation 执行意图探测：最新客户消息是否指明具体地点。
// 非 yes/no 的回答按否定处理；调用失败上抛。
func (e *Engine) wantsRecommendation(ctx context.Context, latest string) (bool, error) {
	content, err := e.complete(ctx, "intent", &llm.ChatRequest{
		Model:  e.opts.Model,
		System: e.prompts.IntentProbe,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: latest},
		},
	})
	if err != nil {
		return false, err
	}

	answer := strings.ToLower(strings.TrimSpace(content))
	answer = strings.Trim(answer, ".!\"' ")
	return strings.HasPrefix(answer, "yes"), nil
}

// complete 发起一次外部生成调用并校验非空应答。
func (e *Engine) complete(ctx context.Context, mode string, req *llm.ChatRequest) (string, error) {
	resp, err := e.provider.Completion(ctx, req)
	e.metrics.RecordGeneratorCall(mode, err)
	if err != nil {
		return "", types.NewError(types.ErrGeneration, fmt.Sprintf("%s call failed", mode)).
			WithPersona(e.persona.ID).WithCause(err)
	}

	content := llm.FirstContent(resp)
	if strings.TrimSpace(content) == "" {
		// 空应答是缺陷，不是合法终态。
		return "", types.NewError(types.ErrGeneration, fmt.Sprintf("empty %s response", mode)).
			WithPersona(e.persona.ID)
	}
	return content, nil
}

// project 将会话历史投影为某一角色视角下的聊天消息：
// 自身消息映射为 assistant，对方消息映射为 user。
func project(history []types.Message, self types.Role) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, m := range history {
		role := llm.RoleUser
		if m.Role == self {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: m.Content})
	}
	return out
}

func latestCustomerMessage(history []types.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == types.RoleCustomer {
			return history[i].Content
		}
	}
	return ""
}
