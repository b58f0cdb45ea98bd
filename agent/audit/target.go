package audit

import (
	"context"

	"github.com/BaSui01/auditflow/agent/simulate"
	"github.com/BaSui01/auditflow/types"
)

// Target 审计目标：面对一条对抗探测给出单次应答。
// 会话引擎在审计视角下被包装成这个单发应答接口。
type Target interface {
	Respond(ctx context.Context, transcript []types.Message, probe string) (string, error)
}

// EngineTarget 将 simulate.Engine 适配为审计目标。
type EngineTarget struct {
	engine *simulate.Engine
}

// NewEngineTarget 包装一个会话引擎。
func NewEngineTarget(engine *simulate.Engine) *EngineTarget {
	return &EngineTarget{engine: engine}
}

// Respond 把探测作为最新客户消息交给引擎的机器人侧应答。
func (t *EngineTarget) Respond(ctx context.Context, transcript []types.Message, probe string) (string, error) {
	return t.engine.Respond(ctx, transcript, probe)
}
