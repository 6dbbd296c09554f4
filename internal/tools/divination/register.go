package divination

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stevechen1112/aetheria/internal/tools"
)

// Register adds the six calculators to the catalogue.
func Register(r *tools.Registry) error {
	descriptors := []tools.Descriptor{
		{
			Name:        "calculate_astrolabe",
			Description: "排紫微斗數命盤。需要出生日期、出生時間與性別。",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"birth_date": {"type": "string", "description": "出生日期，YYYY-MM-DD"},
					"birth_time": {"type": "string", "description": "出生時間，HH:MM（24小時制）"},
					"gender": {"type": "string", "enum": ["male", "female"]}
				},
				"required": ["birth_date", "birth_time", "gender"]
			}`),
			Handler: func(ctx context.Context, args map[string]any, tc tools.TurnContext) (any, error) {
				return CalculateZiwei(str(args, "birth_date"), str(args, "birth_time"), str(args, "gender"))
			},
		},
		{
			Name:        "calculate_bazi",
			Description: "排八字四柱。需要出生日期與出生時間。",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"birth_date": {"type": "string", "description": "出生日期，YYYY-MM-DD"},
					"birth_time": {"type": "string", "description": "出生時間，HH:MM（24小時制）"},
					"gender": {"type": "string", "enum": ["male", "female"]}
				},
				"required": ["birth_date", "birth_time", "gender"]
			}`),
			Handler: func(ctx context.Context, args map[string]any, tc tools.TurnContext) (any, error) {
				return CalculateBazi(str(args, "birth_date"), str(args, "birth_time"))
			},
		},
		{
			Name:        "calculate_western_chart",
			Description: "計算西洋占星本命盤（太陽、月亮、上升與宮位）。需要出生日期、時間，出生地經度可提高上升精度。",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"birth_date": {"type": "string", "description": "出生日期，YYYY-MM-DD"},
					"birth_time": {"type": "string", "description": "出生時間，HH:MM（24小時制）"},
					"longitude": {"type": "number", "description": "出生地經度（東經為正）"}
				},
				"required": ["birth_date", "birth_time"]
			}`),
			Handler: func(ctx context.Context, args map[string]any, tc tools.TurnContext) (any, error) {
				var longitude *float64
				if v, ok := args["longitude"].(float64); ok {
					longitude = &v
				}
				return CalculateWestern(str(args, "birth_date"), str(args, "birth_time"), longitude)
			},
		},
		{
			Name:        "draw_tarot",
			Description: "抽塔羅牌陣。spread 可選 single、three_card、celtic_cross。",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"question": {"type": "string", "description": "想問的問題"},
					"spread": {"type": "string", "enum": ["single", "three_card", "celtic_cross"]},
					"seed": {"type": "integer", "description": "可選，固定洗牌結果"}
				},
				"required": ["question", "spread"]
			}`),
			Handler: func(ctx context.Context, args map[string]any, tc tools.TurnContext) (any, error) {
				var seed *int64
				if v, ok := args["seed"].(float64); ok {
					n := int64(v)
					seed = &n
				}
				return DrawTarot(str(args, "question"), str(args, "spread"), seed)
			},
		},
		{
			Name:        "calculate_numerology",
			Description: "計算生命靈數。需要出生日期。",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"birth_date": {"type": "string", "description": "出生日期，YYYY-MM-DD"}
				},
				"required": ["birth_date"]
			}`),
			Handler: func(ctx context.Context, args map[string]any, tc tools.TurnContext) (any, error) {
				return CalculateNumerology(str(args, "birth_date"))
			},
		},
		{
			Name:        "analyze_name",
			Description: "姓名學五格剖象分析。需要 2 到 4 個漢字的全名。",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"name": {"type": "string", "description": "漢字全名，姓在前"}
				},
				"required": ["name"]
			}`),
			Handler: func(ctx context.Context, args map[string]any, tc tools.TurnContext) (any, error) {
				return AnalyzeName(str(args, "name"))
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

func str(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}
