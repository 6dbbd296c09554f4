package models

import "encoding/json"

// EventType discriminates the values streamed to the client during a turn.
type EventType string

const (
	EventSession  EventType = "session"
	EventText     EventType = "text"
	EventWidget   EventType = "widget"
	EventTool     EventType = "tool"
	EventProgress EventType = "progress"
	EventDone     EventType = "done"
)

// ToolPhase is the lifecycle stage of a tool invocation as seen by the
// client.
type ToolPhase string

const (
	ToolExecuting ToolPhase = "executing"
	ToolCompleted ToolPhase = "completed"
	ToolFailed    ToolPhase = "failed"
)

// ToolStatus reports a tool invocation's phase to the client.
type ToolStatus struct {
	Name          string          `json:"name"`
	Status        ToolPhase       `json:"status"`
	Args          json.RawMessage `json:"args,omitempty"`
	FuseTriggered bool            `json:"fuse_triggered,omitempty"`
}

// Progress reports long-running task progress (0..1).
type Progress struct {
	TaskName string  `json:"task_name"`
	Progress float64 `json:"progress"`
	Status   string  `json:"status"`
	Message  string  `json:"message,omitempty"`
}

// TurnEvent is one discriminated value emitted during a turn. Exactly one
// payload field is set according to Type. Events are delivered to the
// client in emission order.
type TurnEvent struct {
	Type EventType `json:"type"`

	SessionID string      `json:"session_id,omitempty"`
	Text      string      `json:"text,omitempty"`
	Widget    *Widget     `json:"widget,omitempty"`
	Tool      *ToolStatus `json:"tool,omitempty"`
	Progress  *Progress   `json:"progress,omitempty"`
}

// TextEvent builds a text chunk event.
func TextEvent(chunk string) TurnEvent {
	return TurnEvent{Type: EventText, Text: chunk}
}

// DoneEvent builds the terminal event for a turn.
func DoneEvent(sessionID string) TurnEvent {
	return TurnEvent{Type: EventDone, SessionID: sessionID}
}
