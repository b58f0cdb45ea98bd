// Package types provides core types used across the auditflow framework.
// This package has ZERO dependencies on other auditflow packages to avoid circular imports.
// All other packages should import types from here.
package types

import (
	"strings"
	"time"
)

// Role identifies which side of the simulated conversation produced a message.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleChatbot  Role = "chatbot"
)

// Other returns the opposite conversational role.
func (r Role) Other() Role {
	if r == RoleCustomer {
		return RoleChatbot
	}
	return RoleCustomer
}

// Valid reports whether the role is one of the two conversational roles.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleChatbot
}

// Message represents a single contribution to a conversation run.
// Messages are immutable once appended to a history.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// NewMessage creates a new message with the given role and content.
func NewMessage(role Role, content string) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewCustomerMessage creates a new customer message.
func NewCustomerMessage(content string) Message {
	return NewMessage(RoleCustomer, content)
}

// NewChatbotMessage creates a new chatbot message.
func NewChatbotMessage(content string) Message {
	return NewMessage(RoleChatbot, content)
}

// ContainsFold reports whether the message content contains the given token,
// case-insensitively. Used for completion-sentinel detection.
func (m Message) ContainsFold(token string) bool {
	return strings.Contains(strings.ToLower(m.Content), strings.ToLower(token))
}

// FlattenHistory renders a history as role-prefixed lines, the form consumed
// by judge prompts and transcript persistence.
func FlattenHistory(history []Message) string {
	var sb strings.Builder
	for i, m := range history {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(string(m.Role))
		sb.WriteString(": ")
		sb.WriteString(m.Content)
	}
	return sb.String()
}
