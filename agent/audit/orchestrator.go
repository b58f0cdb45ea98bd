package audit

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/auditflow/config"
	"github.com/BaSui01/auditflow/internal/metrics"
	"github.com/BaSui01/auditflow/internal/store"
	"github.com/BaSui01/auditflow/llm"
	"github.com/BaSui01/auditflow/types"
)

// DefaultMaxTurns 每个 persona 的攻击轮数上限默认值。
const DefaultMaxTurns = 3

// Outcome 一个 persona 的审计结果，攻击循环结束时创建，此后不可变。
type Outcome struct {
	PersonaID         string `json:"persona_id"`
	TestType          string `json:"test_type,omitempty"`
	AchievedObjective bool   `json:"achieved_objective"`
	Rationale         string `json:"rationale,omitempty"`
	TurnsExecuted     int    `json:"turns_executed"`
	Err               string `json:"error,omitempty"`
}

// Report 一次审计调用的唯一返回值：按 persona 顺序的结果序列与计数。
type Report struct {
	RunID      string    `json:"run_id"`
	Outcomes   []Outcome `json:"outcomes"`
	Completed  int       `json:"completed"`
	Failed     int       `json:"failed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Options 编排器配置。
type Options struct {
	MaxTurns      int
	AttackerModel string
	JudgeModel    string
	// AttackerTemperature 攻击者采样温度，零值回退为 0.8。
	AttackerTemperature float32
	// Store 可选的审计持久化后端，由编排器在退出时关闭。
	Store store.Store
	// Closers 随编排器生命周期持有的外部资源句柄，退出时统一释放。
	Closers []io.Closer
	Metrics *metrics.Collector
}

// Orchestrator 审计编排器。persona 处理严格串行，顺序等于配置枚举顺序。
type Orchestrator struct {
	cfg      *config.Config
	attacker *Attacker
	judge    llm.Provider
	opts     Options
	metrics  *metrics.Collector
	logger   *zap.Logger

	releaseOnce sync.Once
}

// NewOrchestrator 创建审计编排器。
// attackerProvider 驱动对抗探测生成，judgeProvider 驱动目标评分。
func NewOrchestrator(cfg *config.Config, attackerProvider, judgeProvider llm.Provider, opts Options, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = DefaultMaxTurns
	}
	return &Orchestrator{
		cfg:      cfg,
		attacker: NewAttacker(attackerProvider, opts.AttackerModel, opts.AttackerTemperature, logger),
		judge:    judgeProvider,
		opts:     opts,
		metrics:  opts.Metrics,
		logger:   logger.With(zap.String("component", "audit")),
	}
}

// RunAudit 对目标执行完整审计并返回报告。
// 报告总是产出：单个 persona 的缺陷不会丢弃其他 persona 的结果；
// 限流/配额类错误停止处理剩余 persona，但已收集的结果完整返回。
func (o *Orchestrator) RunAudit(ctx context.Context, target Target) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	// 资源释放在所有退出路径上执行，且恰好一次。
	defer o.release()

	total := len(o.cfg.Personas)
	for idx := range o.cfg.Personas {
		persona := &o.cfg.Personas[idx]
		o.logger.Info("persona audit started",
			zap.String("persona", persona.ID),
			zap.String("test_type", persona.TestType),
			zap.Int("index", idx+1),
			zap.Int("total", total))

		outcome, err := o.runPersona(ctx, persona, target, report.RunID)
		report.Outcomes = append(report.Outcomes, outcome)

		if outcome.Err == "" {
			report.Completed++
			if outcome.AchievedObjective {
				o.metrics.RecordAuditOutcome("achieved")
			} else {
				o.metrics.RecordAuditOutcome("resisted")
			}
			o.logger.Info("persona audit complete",
				zap.String("persona", persona.ID),
				zap.Bool("achieved", outcome.AchievedObjective),
				zap.Int("turns", outcome.TurnsExecuted))
		} else {
			report.Failed++
			o.metrics.RecordAuditOutcome("error")
			o.logger.Warn("persona audit failed",
				zap.String("persona", persona.ID),
				zap.String("error", outcome.Err))
		}

		o.saveOutcome(ctx, report.RunID, persona, &outcome)

		if err != nil && llm.IsQuotaExhausted(err) {
			// 配额已尽：后续 persona 注定同样失败，停止以保住剩余配额。
			o.logger.Warn("quota exhausted, aborting remaining personas",
				zap.Int("processed", idx+1),
				zap.Int("remaining", total-idx-1))
			break
		}
	}

	report.FinishedAt = time.Now()
	o.logger.Info("audit summary",
		zap.String("run_id", report.RunID),
		zap.Int("completed", report.Completed),
		zap.Int("failed", report.Failed),
		zap.Int("total", total))
	return report, nil
}

// runPersona 对单个 persona 执行有界攻击循环。
// 返回的 error 仅用于限流分类；结果本身已编码进 Outcome。
func (o *Orchestrator) runPersona(ctx context.Context, persona *config.Persona, target Target, runID string) (Outcome, error) {
	outcome := Outcome{PersonaID: persona.ID, TestType: persona.TestType}
	scorer := NewTrueFalseScorer(o.judge, persona.Scorer, o.opts.JudgeModel, o.logger)

	var transcript []types.Message
	for outcome.TurnsExecuted < o.opts.MaxTurns {
		probe, err := o.attacker.NextProbe(ctx, persona.Objective, transcript)
		if err != nil {
			outcome.Err = err.Error()
			return outcome, err
		}

		response, err := target.Respond(ctx, transcript, probe)
		if err != nil {
			outcome.Err = err.Error()
			return outcome, err
		}

		transcript = append(transcript,
			types.NewCustomerMessage(probe),
			types.NewChatbotMessage(response))
		outcome.TurnsExecuted++
		o.metrics.RecordAttackTurn()
		o.saveExchange(ctx, runID, persona.ID, outcome.TurnsExecuted, probe, response)

		verdict, err := scorer.Score(ctx, types.FlattenHistory(transcript))
		if err != nil {
			outcome.Err = err.Error()
			return outcome, err
		}
		outcome.Rationale = verdict.Rationale
		if verdict.Achieved {
			// 攻破信号：提前终止该 persona 的循环。
			outcome.AchievedObjective = true
			break
		}
	}

	return outcome, nil
}

// saveExchange 持久化一次攻击交换。持久化失败只记日志，不影响审计。
func (o *Orchestrator) saveExchange(ctx context.Context, runID, personaID string, turn int, probe, response string) {
	if o.opts.Store == nil {
		return
	}
	err := o.opts.Store.SaveExchange(ctx, &store.AttackExchange{
		RunID:     runID,
		PersonaID: personaID,
		Turn:      turn,
		Probe:     probe,
		Response:  response,
	})
	if err != nil {
		o.logger.Warn("save exchange failed", zap.Error(err))
	}
}

// saveOutcome 持久化一个 persona 的最终结果。失败只记日志。
func (o *Orchestrator) saveOutcome(ctx context.Context, runID string, persona *config.Persona, outcome *Outcome) {
	if o.opts.Store == nil {
		return
	}
	err := o.opts.Store.SaveOutcome(ctx, &store.AuditRecord{
		RunID:         runID,
		PersonaID:     persona.ID,
		TestType:      persona.TestType,
		Achieved:      outcome.AchievedObjective,
		Rationale:     outcome.Rationale,
		TurnsExecuted: outcome.TurnsExecuted,
		Error:         outcome.Err,
	})
	if err != nil {
		o.logger.Warn("save outcome failed", zap.Error(err))
	}
}

// release 统一释放持有的外部资源句柄；重复调用安全。
func (o *Orchestrator) release() {
	o.releaseOnce.Do(func() {
		if o.opts.Store != nil {
			if err := o.opts.Store.Close(); err != nil {
				o.logger.Warn("close store failed", zap.Error(err))
			}
		}
		for _, c := range o.opts.Closers {
			if err := c.Close(); err != nil {
				o.logger.Warn("close resource failed", zap.Error(err))
			}
		}
	})
}
