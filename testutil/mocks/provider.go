// Package mocks provides test doubles for auditflow interfaces.
package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/auditflow/llm"
)

// Reply is one scripted provider response: either Content or Err.
type Reply struct {
	Content string
	Err     error
}

// ScriptedProvider implements llm.Provider and plays back a fixed script.
// When the script is exhausted it repeats the last reply, which keeps
// long conversation-loop tests short. A nil/empty script yields "".
type ScriptedProvider struct {
	ProviderName string
	Script       []Reply

	// ReplyFn, when set, overrides Script and computes the reply per request.
	ReplyFn func(callIndex int, req *llm.ChatRequest) Reply

	mu       sync.Mutex
	calls    int
	requests []*llm.ChatRequest
}

func (p *ScriptedProvider) Completion(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	p.mu.Lock()
	idx := p.calls
	p.calls++
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	var reply Reply
	switch {
	case p.ReplyFn != nil:
		reply = p.ReplyFn(idx, req)
	case len(p.Script) == 0:
		reply = Reply{}
	case idx < len(p.Script):
		reply = p.Script[idx]
	default:
		reply = p.Script[len(p.Script)-1]
	}

	if reply.Err != nil {
		return nil, reply.Err
	}
	return &llm.ChatResponse{
		Provider: p.Name(),
		Choices: []llm.ChatChoice{
			{Message: llm.Message{Role: llm.RoleAssistant, Content: reply.Content}},
		},
	}, nil
}

func (p *ScriptedProvider) HealthCheck(context.Context) (*llm.HealthStatus, error) {
	return &llm.HealthStatus{Healthy: true}, nil
}

func (p *ScriptedProvider) Name() string {
	if p.ProviderName != "" {
		return p.ProviderName
	}
	return "mock"
}

// Calls returns how many Completion calls were made.
func (p *ScriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Requests returns the recorded requests in call order.
func (p *ScriptedProvider) Requests() []*llm.ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*llm.ChatRequest, len(p.requests))
	copy(out, p.requests)
	return out
}
