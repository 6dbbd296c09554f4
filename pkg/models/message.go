// Package models defines the shared data types for the Aetheria
// orchestration core: messages, users, chart locks, memory layers, and the
// turn events streamed to clients.
package models

import (
	"encoding/json"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message is a single entry in a session transcript. Messages are immutable
// once appended; ordering within a session follows creation order.
type Message struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`

	// Widget carries an optional structured payload rendered by the
	// frontend (chart wheels, tarot spreads, etc.).
	Widget *Widget `json:"widget,omitempty"`

	// Citations reference the divination systems a reply drew from.
	Citations []Citation `json:"citations,omitempty"`

	// ToolCalls records the calls made while producing an assistant
	// message. ToolResults records the outputs on a tool message.
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ToolCall is a request from the model (or the fuse) to execute a tool.
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`

	// Signature is the provider's opaque thought signature. It must be
	// replayed byte-for-byte on the next request; the core never parses it.
	Signature []byte `json:"signature,omitempty"`

	// FuseTriggered marks calls synthesised server-side when the model
	// failed to act despite sufficient birth data.
	FuseTriggered bool `json:"fuse_triggered,omitempty"`
}

// ToolResult is the outcome of executing a ToolCall. Errors are carried as
// results with IsError set so the model can adjust and retry.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name,omitempty"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// Widget is a structured payload attached to a message or streamed as an
// event. Type names the renderer (e.g. "ziwei", "tarot").
type Widget struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Compact bool            `json:"compact,omitempty"`
}

// Citation names a divination system and the excerpt a reply relied on.
type Citation struct {
	System  string `json:"system"`
	Excerpt string `json:"excerpt"`
}

// Session groups the messages of one conversation. A session is owned by
// exactly one user.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionSummary is the listing view of a session.
type SessionSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title,omitempty"`
	LastActivity time.Time `json:"last_activity"`
	MessageCount int       `json:"message_count"`
}
