// Package location resolves free-text place names to coordinates and a
// timezone from a built-in gazetteer of common Chinese-speaking cities.
package location

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stevechen1112/aetheria/internal/tools"
)

// Place is one gazetteer entry.
type Place struct {
	Name      string  `json:"name"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Timezone  string  `json:"timezone"`
}

var gazetteer = []Place{
	{"台北", 121.56, 25.03, "Asia/Taipei"},
	{"臺北", 121.56, 25.03, "Asia/Taipei"},
	{"新北", 121.46, 25.01, "Asia/Taipei"},
	{"桃園", 121.30, 24.99, "Asia/Taipei"},
	{"台中", 120.68, 24.14, "Asia/Taipei"},
	{"臺中", 120.68, 24.14, "Asia/Taipei"},
	{"台南", 120.21, 22.99, "Asia/Taipei"},
	{"臺南", 120.21, 22.99, "Asia/Taipei"},
	{"高雄", 120.30, 22.62, "Asia/Taipei"},
	{"基隆", 121.74, 25.13, "Asia/Taipei"},
	{"新竹", 120.97, 24.80, "Asia/Taipei"},
	{"嘉義", 120.45, 23.48, "Asia/Taipei"},
	{"彰化", 120.54, 24.08, "Asia/Taipei"},
	{"屏東", 120.49, 22.67, "Asia/Taipei"},
	{"宜蘭", 121.75, 24.75, "Asia/Taipei"},
	{"花蓮", 121.60, 23.98, "Asia/Taipei"},
	{"台東", 121.15, 22.76, "Asia/Taipei"},
	{"香港", 114.17, 22.32, "Asia/Hong_Kong"},
	{"澳門", 113.55, 22.19, "Asia/Macau"},
	{"新加坡", 103.85, 1.29, "Asia/Singapore"},
	{"上海", 121.47, 31.23, "Asia/Shanghai"},
	{"北京", 116.40, 39.90, "Asia/Shanghai"},
	{"廣州", 113.26, 23.13, "Asia/Shanghai"},
	{"深圳", 114.06, 22.55, "Asia/Shanghai"},
	{"東京", 139.69, 35.69, "Asia/Tokyo"},
	{"大阪", 135.50, 34.69, "Asia/Tokyo"},
	{"首爾", 126.98, 37.57, "Asia/Seoul"},
	{"曼谷", 100.50, 13.76, "Asia/Bangkok"},
	{"吉隆坡", 101.69, 3.14, "Asia/Kuala_Lumpur"},
	{"溫哥華", -123.12, 49.28, "America/Vancouver"},
	{"洛杉磯", -118.24, 34.05, "America/Los_Angeles"},
	{"紐約", -74.01, 40.71, "America/New_York"},
	{"倫敦", -0.13, 51.51, "Europe/London"},
	{"雪梨", 151.21, -33.87, "Australia/Sydney"},
}

// Lookup resolves a place name. Suffixes like 市/縣 are ignored.
func Lookup(query string) (*Place, bool) {
	q := strings.TrimSpace(query)
	q = strings.TrimSuffix(q, "市")
	q = strings.TrimSuffix(q, "縣")
	if q == "" {
		return nil, false
	}
	for i := range gazetteer {
		if gazetteer[i].Name == q || strings.Contains(q, gazetteer[i].Name) {
			place := gazetteer[i]
			return &place, true
		}
	}
	return nil, false
}

// Register adds the getLocation tool.
func Register(r *tools.Registry) error {
	return r.Register(tools.Descriptor{
		Name:        "getLocation",
		Description: "查詢地名的經緯度與時區，用於出生地相關的計算。",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"place": {"type": "string", "description": "地名，例如「台北」"}
			},
			"required": ["place"]
		}`),
		Handler: func(ctx context.Context, args map[string]any, tc tools.TurnContext) (any, error) {
			query, _ := args["place"].(string)
			place, ok := Lookup(query)
			if !ok {
				return nil, fmt.Errorf("place %q not found", query)
			}
			return place, nil
		},
	})
}
