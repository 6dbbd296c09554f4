package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"google.golang.org/genai"

	"github.com/stevechen1112/aetheria/pkg/models"
)

func TestConvertMessagesReplaysSignatures(t *testing.T) {
	g := &Gemini{}
	sig := []byte("opaque-signature-bytes")

	contents := g.convertMessages([]Message{
		{Role: models.RoleUser, Content: "請幫我排盤"},
		{Role: models.RoleAssistant, ToolCalls: []models.ToolCall{{
			ID:        "call_1",
			Name:      "calculate_astrolabe",
			Input:     json.RawMessage(`{"birth_date":"1990-07-22"}`),
			Signature: sig,
		}}},
		{Role: models.RoleTool, ToolResults: []models.ToolResult{{
			ToolCallID: "call_1",
			Name:       "calculate_astrolabe",
			Content:    `{"summary":"命宮在子"}`,
		}}},
	})

	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}

	callPart := contents[1].Parts[0]
	if callPart.FunctionCall == nil {
		t.Fatal("expected function call part")
	}
	if !bytes.Equal(callPart.ThoughtSignature, sig) {
		t.Errorf("signature not replayed verbatim: %q", callPart.ThoughtSignature)
	}

	respPart := contents[2].Parts[0]
	if respPart.FunctionResponse == nil {
		t.Fatal("expected function response part")
	}
	if respPart.FunctionResponse.Name != "calculate_astrolabe" {
		t.Errorf("response name: got %q", respPart.FunctionResponse.Name)
	}
}

func TestConvertMessagesPlaceholderForFuseCalls(t *testing.T) {
	g := &Gemini{}
	contents := g.convertMessages([]Message{
		{Role: models.RoleAssistant, ToolCalls: []models.ToolCall{{
			ID:            "fuse_1",
			Name:          "calculate_astrolabe",
			Input:         json.RawMessage(`{}`),
			FuseTriggered: true,
		}}},
	})
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}
	if !bytes.Equal(contents[0].Parts[0].ThoughtSignature, PlaceholderSignature) {
		t.Errorf("expected placeholder signature, got %q", contents[0].Parts[0].ThoughtSignature)
	}
}

func TestConvertMessagesSkipsSystem(t *testing.T) {
	g := &Gemini{}
	contents := g.convertMessages([]Message{
		{Role: models.RoleSystem, Content: "persona"},
		{Role: models.RoleUser, Content: "hi"},
	})
	if len(contents) != 1 || contents[0].Role != genai.RoleUser {
		t.Fatalf("system message should be dropped from contents")
	}
}

func TestConvertTools(t *testing.T) {
	tools := convertTools([]ToolSchema{{
		Name:        "draw_tarot",
		Description: "抽塔羅牌",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"spread": {"type": "string", "enum": ["single", "three_card"]},
				"question": {"type": "string", "description": "問題"}
			},
			"required": ["question"]
		}`),
	}})

	if len(tools) != 1 || len(tools[0].FunctionDeclarations) != 1 {
		t.Fatal("expected one declaration")
	}
	decl := tools[0].FunctionDeclarations[0]
	if decl.Name != "draw_tarot" {
		t.Errorf("name: %q", decl.Name)
	}
	if decl.Parameters.Type != genai.TypeObject {
		t.Errorf("type: %q", decl.Parameters.Type)
	}
	spread := decl.Parameters.Properties["spread"]
	if spread == nil || len(spread.Enum) != 2 {
		t.Errorf("enum not converted: %+v", spread)
	}
	if len(decl.Parameters.Required) != 1 || decl.Parameters.Required[0] != "question" {
		t.Errorf("required not converted: %v", decl.Parameters.Required)
	}
}

type scriptedProvider struct {
	chunks []Chunk
}

func (s *scriptedProvider) Name() string { return "scripted" }

func (s *scriptedProvider) Stream(ctx context.Context, req *Request) (<-chan *Chunk, error) {
	ch := make(chan *Chunk, len(s.chunks))
	for i := range s.chunks {
		ch <- &s.chunks[i]
	}
	close(ch)
	return ch, nil
}

func TestCollect(t *testing.T) {
	p := &scriptedProvider{chunks: []Chunk{
		{Text: "您好"},
		{Text: "，歡迎"},
		{ToolCall: &models.ToolCall{ID: "c1", Name: "getUserProfile", Input: json.RawMessage(`{}`)}},
		{Done: true},
	}}
	resp, err := Collect(context.Background(), p, &Request{})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if resp.Text != "您好，歡迎" {
		t.Errorf("text: %q", resp.Text)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "getUserProfile" {
		t.Errorf("tool calls: %+v", resp.ToolCalls)
	}
}
