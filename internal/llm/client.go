// Package llm adapts remote language-model providers to a single streaming
// contract used by the orchestration loop.
package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/stevechen1112/aetheria/pkg/models"
)

// Tier selects the model strength for a call.
type Tier int

const (
	// TierFast is the interactive dialogue tier.
	TierFast Tier = iota
	// TierStrong is the long-synthesis tier (summaries).
	TierStrong
)

// PlaceholderSignature is the provider-specified signature attached to
// server-synthesised tool calls. Gemini rejects follow-up requests whose
// function calls carry no signature unless this sentinel is used.
var PlaceholderSignature = []byte("skip_thought_signature_validator")

// Message is one chronological content item of a request: a prior turn, the
// current user message, or a tool-result item appended during this turn.
type Message struct {
	Role        models.Role
	Content     string
	ToolCalls   []models.ToolCall
	ToolResults []models.ToolResult
}

// ToolSchema describes one callable tool to the provider.
type ToolSchema struct {
	Name        string
	Description string
	// Parameters is a JSON-schema document for the arguments object.
	Parameters json.RawMessage
}

// Request is a single generate call.
type Request struct {
	Tier      Tier
	System    string
	Messages  []Message
	Tools     []ToolSchema
	MaxTokens int
}

// Chunk is one item of a streaming response. Exactly one of Text, ToolCall,
// Done, or Error is meaningful per chunk.
type Chunk struct {
	Text     string
	ToolCall *models.ToolCall
	Done     bool
	Error    error
}

// Provider is a language-model backend. Implementations must be safe for
// concurrent use; each Stream call is independent.
type Provider interface {
	// Stream sends the request and returns a channel of chunks. The
	// channel is closed when the stream completes or fails; transient
	// provider failures are retried internally before surfacing.
	Stream(ctx context.Context, req *Request) (<-chan *Chunk, error)

	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// Response is a fully collected generation.
type Response struct {
	Text      string
	ToolCalls []models.ToolCall
}

// Collect drains a streaming call into a single response. Used by the
// auto-summariser and the non-streaming turn variant.
func Collect(ctx context.Context, p Provider, req *Request) (*Response, error) {
	chunks, err := p.Stream(ctx, req)
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	var calls []models.ToolCall
	for chunk := range chunks {
		if chunk.Error != nil {
			return nil, chunk.Error
		}
		if chunk.Text != "" {
			text.WriteString(chunk.Text)
		}
		if chunk.ToolCall != nil {
			calls = append(calls, *chunk.ToolCall)
		}
	}
	return &Response{Text: text.String(), ToolCalls: calls}, nil
}
