// Package profiletools exposes the user's own record to the model: profile
// lookup, insight capture, and history search. The user id is always
// injected by the registry from the turn context.
package profiletools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stevechen1112/aetheria/internal/store"
	"github.com/stevechen1112/aetheria/internal/tools"
)

// Register adds the three profile tools backed by st.
func Register(r *tools.Registry, st store.Store) error {
	descriptors := []tools.Descriptor{
		{
			Name:         "getUserProfile",
			Description:  "查詢使用者已知的個人資料（出生資料、稱呼等）。",
			InjectUserID: true,
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"userId": {"type": "string"}
				},
				"required": ["userId"]
			}`),
			Handler: func(ctx context.Context, args map[string]any, tc tools.TurnContext) (any, error) {
				user, err := st.GetOrCreateUser(ctx, tc.UserID)
				if err != nil {
					return nil, err
				}
				return map[string]any{
					"name":           user.Name,
					"birth_date":     user.BirthDate,
					"birth_time":     user.BirthTime,
					"birth_location": user.BirthLocation,
					"gender":         user.Gender,
					"has_birth_data": user.HasBirthData(),
				}, nil
			},
		},
		{
			Name:         "saveUserInsight",
			Description:  "記下使用者分享的重要個人資訊（偏好、近況、重大事件），供日後諮詢使用。",
			InjectUserID: true,
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"userId": {"type": "string"},
					"key": {"type": "string", "description": "資訊的主題，例如「工作近況」"},
					"value": {"type": "string", "description": "資訊內容"}
				},
				"required": ["userId", "key", "value"]
			}`),
			Handler: func(ctx context.Context, args map[string]any, tc tools.TurnContext) (any, error) {
				key, _ := args["key"].(string)
				value, _ := args["value"].(string)
				if err := st.WriteProfileFact(ctx, tc.UserID, key, value); err != nil {
					return nil, err
				}
				return map[string]any{"saved": true, "key": key}, nil
			},
		},
		{
			Name:         "searchConversationHistory",
			Description:  "搜尋與這位使用者過去對話中的片段。",
			InjectUserID: true,
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"userId": {"type": "string"},
					"keyword": {"type": "string"}
				},
				"required": ["userId", "keyword"]
			}`),
			Handler: func(ctx context.Context, args map[string]any, tc tools.TurnContext) (any, error) {
				keyword, _ := args["keyword"].(string)
				msgs, err := st.SearchMessages(ctx, tc.UserID, keyword, 10)
				if err != nil {
					return nil, err
				}
				snippets := make([]map[string]any, 0, len(msgs))
				for _, msg := range msgs {
					snippets = append(snippets, map[string]any{
						"role":    string(msg.Role),
						"content": truncate(msg.Content, 200),
						"at":      msg.CreatedAt.Format("2006-01-02"),
					})
				}
				return map[string]any{"matches": snippets}, nil
			},
		},
	}

	for _, d := range descriptors {
		if err := r.Register(d); err != nil {
			return fmt.Errorf("failed to register %s: %w", d.Name, err)
		}
	}
	return nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
