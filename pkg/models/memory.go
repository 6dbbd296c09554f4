package models

import "time"

// Summary is one condensed block of long-term memory covering a time range
// of consumed episodic messages.
type Summary struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	Consumed  int       `json:"consumed"`
	CreatedAt time.Time `json:"created_at"`
}

// MemorySnapshot is the per-user view loaded at the start of a turn: the
// episodic window, the summaries in order, and the stable profile facts.
type MemorySnapshot struct {
	Episodic  []*Message        `json:"episodic"`
	Summaries []Summary         `json:"summaries"`
	Profile   map[string]string `json:"profile"`
}

// LatestSummary returns the most recent summary text, or "".
func (m *MemorySnapshot) LatestSummary() string {
	if m == nil || len(m.Summaries) == 0 {
		return ""
	}
	return m.Summaries[len(m.Summaries)-1].Text
}
