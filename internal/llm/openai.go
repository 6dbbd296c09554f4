package llm

import (
	"context"
	"errors"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/stevechen1112/aetheria/internal/backoff"
	"github.com/stevechen1112/aetheria/internal/observability"
	"github.com/stevechen1112/aetheria/pkg/models"
)

// OpenAI implements Provider against any OpenAI-compatible chat API. It is
// the secondary adapter selected by `lm.provider: openai`; it has no
// thought-signature mechanism, so tool calls carry no opaque signature.
type OpenAI struct {
	client         *openai.Client
	modelFast      string
	modelStrong    string
	maxRetries     int
	attemptTimeout time.Duration
	metrics        *observability.Metrics
}

// OpenAIConfig configures the adapter.
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string // optional, for compatible gateways
	ModelFast      string
	ModelStrong    string
	MaxRetries     int
	AttemptTimeout time.Duration
	Metrics        *observability.Metrics
}

// NewOpenAI creates the adapter.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	if cfg.ModelFast == "" {
		cfg.ModelFast = "gpt-4o-mini"
	}
	if cfg.ModelStrong == "" {
		cfg.ModelStrong = "gpt-4o"
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 60 * time.Second
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAI{
		client:         openai.NewClientWithConfig(clientCfg),
		modelFast:      cfg.ModelFast,
		modelStrong:    cfg.ModelStrong,
		maxRetries:     cfg.MaxRetries,
		attemptTimeout: cfg.AttemptTimeout,
		metrics:        cfg.Metrics,
	}, nil
}

// Name returns the provider identifier.
func (p *OpenAI) Name() string { return "openai" }

func (p *OpenAI) model(tier Tier) string {
	if tier == TierStrong {
		return p.modelStrong
	}
	return p.modelFast
}

// Stream implements Provider.
func (p *OpenAI) Stream(ctx context.Context, req *Request) (<-chan *Chunk, error) {
	model := p.model(req.Tier)
	chatReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: p.convertMessages(req),
		Stream:   true,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = convertOpenAITools(req.Tools)
	}

	// Retry only the stream open; once receiving, errors are fatal.
	var stream *openai.ChatCompletionStream
	err := backoff.Retry(ctx, backoff.LMPolicy(), p.maxRetries+1, IsRetryable, func(attempt int) error {
		if p.metrics != nil {
			p.metrics.LMAttempts.Inc()
			if attempt > 1 {
				p.metrics.LMRetries.Inc()
			}
		}
		var attemptErr error
		stream, attemptErr = p.client.CreateChatCompletionStream(ctx, chatReq)
		return WrapError("openai", model, attemptErr)
	})
	if err != nil {
		return nil, err
	}

	chunks := make(chan *Chunk, 16)
	go p.processStream(ctx, model, stream, chunks)
	return chunks, nil
}

// processStream accumulates tool-call fragments across deltas; the API
// streams id/name first and argument JSON piecewise.
func (p *OpenAI) processStream(ctx context.Context, model string, stream *openai.ChatCompletionStream, chunks chan<- *Chunk) {
	defer close(chunks)
	defer stream.Close()

	type pending struct {
		id   string
		name string
		args []byte
	}
	calls := map[int]*pending{}
	order := []int{}

	flush := func() {
		for _, idx := range order {
			tc := calls[idx]
			if tc == nil || tc.name == "" {
				continue
			}
			input := tc.args
			if len(input) == 0 {
				input = []byte("{}")
			}
			chunks <- &Chunk{ToolCall: &models.ToolCall{
				ID:    tc.id,
				Name:  tc.name,
				Input: input,
			}}
		}
	}

	for {
		select {
		case <-ctx.Done():
			chunks <- &Chunk{Error: ctx.Err()}
			return
		default:
		}

		response, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				flush()
				chunks <- &Chunk{Done: true}
				return
			}
			chunks <- &Chunk{Error: WrapError("openai", model, err)}
			return
		}
		if len(response.Choices) == 0 {
			continue
		}
		delta := response.Choices[0].Delta

		if delta.Content != "" {
			chunks <- &Chunk{Text: delta.Content}
		}
		for _, tc := range delta.ToolCalls {
			index := 0
			if tc.Index != nil {
				index = *tc.Index
			}
			if calls[index] == nil {
				calls[index] = &pending{}
				order = append(order, index)
			}
			if tc.ID != "" {
				calls[index].id = tc.ID
			}
			if tc.Function.Name != "" {
				calls[index].name = tc.Function.Name
			}
			if tc.Function.Arguments != "" {
				calls[index].args = append(calls[index].args, tc.Function.Arguments...)
			}
		}
	}
}

func (p *OpenAI) convertMessages(req *Request) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		result = append(result, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case models.RoleTool:
			for _, tr := range msg.ToolResults {
				result = append(result, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    tr.Content,
					ToolCallID: tr.ToolCallID,
				})
			}
		case models.RoleAssistant:
			oaiMsg := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: msg.Content,
			}
			for _, tc := range msg.ToolCalls {
				oaiMsg.ToolCalls = append(oaiMsg.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Input),
					},
				})
			}
			result = append(result, oaiMsg)
		default:
			result = append(result, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: msg.Content,
			})
		}
	}
	return result
}

func convertOpenAITools(tools []ToolSchema) []openai.Tool {
	result := make([]openai.Tool, len(tools))
	for i, tool := range tools {
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		}
	}
	return result
}
