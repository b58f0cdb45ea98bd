package simulate

import (
	"github.com/BaSui01/auditflow/agent/extract"
	"github.com/BaSui01/auditflow/types"
)

// CompletionSentinel 出现在任一消息中（大小写不敏感）即终止会话。
const CompletionSentinel = "test_complete"

// DefaultMaxMessages 会话历史长度上限的默认值。
const DefaultMaxMessages = 15

// TurnResult 一个轮次的产出：一条消息与该轮恢复的结构化负载。
type TurnResult struct {
	Message  types.Message
	Payloads []extract.Payload
}

// State 是一次会话运行的不可变快照。
// History 每执行一个轮次恰好增长一条消息；Finished 一旦置真不再复位。
type State struct {
	PersonaID string
	History   []types.Message
	Payloads  []extract.Payload
	Next      types.Role
	Finished  bool
}

// NewState 创建初始快照。入口状态恒为客户轮。
func NewState(personaID string) State {
	return State{
		PersonaID: personaID,
		Next:      types.RoleCustomer,
	}
}

// Apply 纯转移函数：基于上一快照与轮次产出计算新快照。
// 不修改入参；History/Payloads 以写时复制方式追加。
func Apply(s State, r TurnResult, maxMessages int) State {
	if s.Finished {
		// done 为终态：已完成的状态不再演进。
		return s
	}
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}

	history := make([]types.Message, len(s.History), len(s.History)+1)
	copy(history, s.History)
	history = append(history, r.Message)

	payloads := s.Payloads
	if len(r.Payloads) > 0 {
		payloads = make([]extract.Payload, len(s.Payloads), len(s.Payloads)+len(r.Payloads))
		copy(payloads, s.Payloads)
		payloads = append(payloads, r.Payloads...)
	}

	return State{
		PersonaID: s.PersonaID,
		History:   history,
		Payloads:  payloads,
		Next:      r.Message.Role.Other(),
		Finished:  Terminated(history, maxMessages),
	}
}

// Terminated 评估终止条件：完成哨兵词或历史长度上限，二者或运算。
// 对同一历史重复评估结果恒定（幂等）。
func Terminated(history []types.Message, maxMessages int) bool {
	if len(history) >= maxMessages {
		return true
	}
	if len(history) == 0 {
		return false
	}
	return history[len(history)-1].ContainsFold(CompletionSentinel)
}
