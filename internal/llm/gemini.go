package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/stevechen1112/aetheria/internal/backoff"
	"github.com/stevechen1112/aetheria/internal/observability"
	"github.com/stevechen1112/aetheria/pkg/models"
)

// Gemini implements Provider on the Google Gen AI SDK.
//
// The adapter handles the provider quirks the core depends on:
//   - Thought signatures. Function-call parts arrive with an opaque
//     ThoughtSignature that must be replayed byte-for-byte on the
//     follow-up request; losing it makes Gemini reject the call chain.
//     The signature is stored on models.ToolCall.Signature and never
//     parsed.
//   - Transient failures retry with exponential backoff (5s, 10s, 20s),
//     at most maxRetries extra attempts, each bounded by attemptTimeout.
//     A stream that already emitted output is not retried to avoid
//     duplicated text.
type Gemini struct {
	client         *genai.Client
	modelFast      string
	modelStrong    string
	maxRetries     int
	attemptTimeout time.Duration
	logger         *observability.Logger
	metrics        *observability.Metrics
}

// GeminiConfig configures the adapter.
type GeminiConfig struct {
	APIKey         string
	ModelFast      string
	ModelStrong    string
	MaxRetries     int           // default 3
	AttemptTimeout time.Duration // default 60s
	Logger         *observability.Logger
	Metrics        *observability.Metrics
}

// NewGemini creates the adapter and its SDK client.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	if cfg.ModelFast == "" {
		cfg.ModelFast = "gemini-2.0-flash"
	}
	if cfg.ModelStrong == "" {
		cfg.ModelStrong = "gemini-1.5-pro"
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 60 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NewNopLogger()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, WrapError("gemini", "", err)
	}

	return &Gemini{
		client:         client,
		modelFast:      cfg.ModelFast,
		modelStrong:    cfg.ModelStrong,
		maxRetries:     cfg.MaxRetries,
		attemptTimeout: cfg.AttemptTimeout,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
	}, nil
}

// Name returns the provider identifier.
func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) model(tier Tier) string {
	if tier == TierStrong {
		return g.modelStrong
	}
	return g.modelFast
}

// Stream implements Provider.
func (g *Gemini) Stream(ctx context.Context, req *Request) (<-chan *Chunk, error) {
	model := g.model(req.Tier)
	contents := g.convertMessages(req.Messages)
	config := g.buildConfig(req)

	chunks := make(chan *Chunk, 16)

	go func() {
		defer close(chunks)

		emitted := false
		err := backoff.Retry(ctx, backoff.LMPolicy(), g.maxRetries+1, func(err error) bool {
			// A partially delivered stream must not restart.
			return !emitted && IsRetryable(err)
		}, func(attempt int) error {
			if g.metrics != nil {
				g.metrics.LMAttempts.Inc()
				if attempt > 1 {
					g.metrics.LMRetries.Inc()
				}
			}
			attemptCtx, cancel := context.WithTimeout(ctx, g.attemptTimeout)
			defer cancel()

			streamIter := g.client.Models.GenerateContentStream(attemptCtx, model, contents, config)
			for resp, err := range streamIter {
				if err != nil {
					return WrapError("gemini", model, err)
				}
				if resp == nil {
					continue
				}
				for _, candidate := range resp.Candidates {
					if candidate == nil || candidate.Content == nil {
						continue
					}
					for _, part := range candidate.Content.Parts {
						if part == nil {
							continue
						}
						if part.Text != "" && !part.Thought {
							emitted = true
							select {
							case chunks <- &Chunk{Text: part.Text}:
							case <-ctx.Done():
								return ctx.Err()
							}
						}
						if part.FunctionCall != nil {
							tc, err := toolCallFromPart(part)
							if err != nil {
								g.logger.Warn(ctx, "dropping malformed function call", "tool", part.FunctionCall.Name, "error", err)
								continue
							}
							emitted = true
							select {
							case chunks <- &Chunk{ToolCall: tc}:
							case <-ctx.Done():
								return ctx.Err()
							}
						}
					}
				}
			}
			return nil
		})

		if err != nil {
			chunks <- &Chunk{Error: WrapError("gemini", model, err)}
			return
		}
		chunks <- &Chunk{Done: true}
	}()

	return chunks, nil
}

func toolCallFromPart(part *genai.Part) (*models.ToolCall, error) {
	argsJSON, err := json.Marshal(part.FunctionCall.Args)
	if err != nil {
		return nil, err
	}
	id := part.FunctionCall.ID
	if id == "" {
		id = generateToolCallID(part.FunctionCall.Name)
	}
	tc := &models.ToolCall{
		ID:    id,
		Name:  part.FunctionCall.Name,
		Input: argsJSON,
	}
	if len(part.ThoughtSignature) > 0 {
		tc.Signature = append([]byte(nil), part.ThoughtSignature...)
	}
	return tc, nil
}

// convertMessages maps the chronological content list to Gemini contents.
// System text is carried separately via SystemInstruction.
func (g *Gemini) convertMessages(messages []Message) []*genai.Content {
	var result []*genai.Content

	for _, msg := range messages {
		if msg.Role == models.RoleSystem {
			continue
		}

		content := &genai.Content{}
		switch msg.Role {
		case models.RoleAssistant:
			content.Role = genai.RoleModel
		default:
			// Tool results come from the user side of the conversation.
			content.Role = genai.RoleUser
		}

		if msg.Content != "" {
			content.Parts = append(content.Parts, &genai.Part{Text: msg.Content})
		}

		for _, tc := range msg.ToolCalls {
			var args map[string]any
			if err := json.Unmarshal(tc.Input, &args); err != nil {
				args = map[string]any{}
			}
			part := &genai.Part{
				FunctionCall: &genai.FunctionCall{
					Name: tc.Name,
					Args: args,
				},
			}
			// Replay the opaque signature verbatim; fuse-synthesised calls
			// carry the provider placeholder instead.
			if len(tc.Signature) > 0 {
				part.ThoughtSignature = tc.Signature
			} else {
				part.ThoughtSignature = PlaceholderSignature
			}
			content.Parts = append(content.Parts, part)
		}

		for _, tr := range msg.ToolResults {
			var response map[string]any
			if err := json.Unmarshal([]byte(tr.Content), &response); err != nil {
				response = map[string]any{
					"result": tr.Content,
					"error":  tr.IsError,
				}
			}
			content.Parts = append(content.Parts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					Name:     tr.Name,
					Response: response,
				},
			})
		}

		if len(content.Parts) > 0 {
			result = append(result, content)
		}
	}

	return result
}

func (g *Gemini) buildConfig(req *Request) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}

	if req.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(min(req.MaxTokens, 1<<31-1)) // #nosec G115 -- bounded by min
	}
	if len(req.Tools) > 0 {
		config.Tools = convertTools(req.Tools)
	}
	return config
}

// convertTools maps tool schemas to Gemini function declarations.
func convertTools(tools []ToolSchema) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		var schemaMap map[string]any
		if err := json.Unmarshal(tool.Parameters, &schemaMap); err != nil {
			continue
		}
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  toGeminiSchema(schemaMap),
		})
	}
	if len(declarations) == 0 {
		return nil
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

// toGeminiSchema converts a JSON-schema map to Gemini's Schema type.
func toGeminiSchema(schemaMap map[string]any) *genai.Schema {
	if schemaMap == nil {
		return nil
	}
	schema := &genai.Schema{}

	if t, ok := schemaMap["type"].(string); ok {
		schema.Type = genai.Type(strings.ToUpper(t))
	}
	if desc, ok := schemaMap["description"].(string); ok {
		schema.Description = desc
	}
	if enum, ok := schemaMap["enum"].([]any); ok {
		for _, e := range enum {
			if s, ok := e.(string); ok {
				schema.Enum = append(schema.Enum, s)
			}
		}
	}
	if props, ok := schemaMap["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema)
		for name, prop := range props {
			if propMap, ok := prop.(map[string]any); ok {
				schema.Properties[name] = toGeminiSchema(propMap)
			}
		}
	}
	if required, ok := schemaMap["required"].([]any); ok {
		for _, r := range required {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}
	if items, ok := schemaMap["items"].(map[string]any); ok {
		schema.Items = toGeminiSchema(items)
	}
	return schema
}

// generateToolCallID builds an id for providers that do not assign one.
func generateToolCallID(name string) string {
	return "call_" + name + "_" + time.Now().Format("20060102150405.000000000")
}
