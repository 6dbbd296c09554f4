package models

import (
	"encoding/json"
	"time"
)

// ChartKind enumerates the domain calculators.
type ChartKind string

const (
	ChartZiwei      ChartKind = "ziwei"
	ChartBazi       ChartKind = "bazi"
	ChartWestern    ChartKind = "western"
	ChartTarot      ChartKind = "tarot"
	ChartNumerology ChartKind = "numerology"
	ChartNameology  ChartKind = "nameology"
)

// ChartKinds lists all kinds in a stable order.
var ChartKinds = []ChartKind{
	ChartZiwei, ChartBazi, ChartWestern, ChartTarot, ChartNumerology, ChartNameology,
}

// ValidChartKind reports whether k names a known calculator.
func ValidChartKind(k ChartKind) bool {
	for _, kind := range ChartKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// ChartLock is a cached calculator result for (user, kind). At most one
// lock exists per pair; a new write supersedes the previous one.
type ChartLock struct {
	UserID    string          `json:"user_id"`
	Kind      ChartKind       `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// Summary extracts the "summary" field of the payload, if present. Every
// calculator embeds a short Traditional Chinese summary for prompt
// assembly and the post-turn quality guard.
func (c *ChartLock) Summary() string {
	if c == nil || len(c.Payload) == 0 {
		return ""
	}
	var envelope struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal(c.Payload, &envelope); err != nil {
		return ""
	}
	return envelope.Summary
}
