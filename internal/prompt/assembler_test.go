package prompt

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stevechen1112/aetheria/pkg/models"
)

func TestChooseStage(t *testing.T) {
	tests := []struct {
		name                         string
		turnCount                    int
		hasBirthData, hasChart, bye  bool
		want                         Stage
	}{
		{"first turn", 0, false, false, false, StageFirstMeet},
		{"no data yet", 3, false, false, false, StageDataCollection},
		{"data but no chart", 3, true, false, false, StageDataCollection},
		{"chart built", 5, true, true, false, StageDeepConsult},
		{"closing wins over everything", 5, true, true, true, StageClosing},
		{"closing on first turn", 0, false, false, true, StageClosing},
	}
	for _, tt := range tests {
		if got := ChooseStage(tt.turnCount, tt.hasBirthData, tt.hasChart, tt.bye); got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestBuildSectionOrder(t *testing.T) {
	birthDate := "1990-07-22"
	out := Build(Input{
		User: &models.User{ID: "u1", Name: "小美", BirthDate: birthDate, BirthTime: "08:30", Gender: "female"},
		Locks: []*models.ChartLock{{
			Kind:    models.ChartZiwei,
			Payload: json.RawMessage(`{"summary":"命宮在子，紫微坐命"}`),
		}},
		Memory:    &models.MemorySnapshot{Profile: map[string]string{"偏好": "直接的建議"}},
		TurnCount: 4,
		ToneHints: []string{"溫和", "安撫"},
	})

	markers := []string{
		"星語",        // persona
		"【階段：",      // stage directive
		"【工具使用規則】",  // tool rules
		"【語言規範】",    // language discipline
		"【已知資料】",    // facts
		"【命盤摘要】",    // chart block
		"【長期記憶】",    // memory
		"【本輪語氣】",    // tone hints
	}
	last := -1
	for _, m := range markers {
		i := strings.Index(out, m)
		if i < 0 {
			t.Fatalf("section %q missing from prompt", m)
		}
		if i < last {
			t.Errorf("section %q out of order", m)
		}
		last = i
	}
	if !strings.Contains(out, birthDate) || !strings.Contains(out, "命宮在子") {
		t.Error("facts or chart summary not rendered")
	}
}

func TestBuildComputeNowDirective(t *testing.T) {
	out := Build(Input{
		User:      &models.User{ID: "u1", BirthDate: "1990-07-22", BirthTime: "08:30", Gender: "male"},
		TurnCount: 2,
	})
	if !strings.Contains(out, "立刻呼叫") {
		t.Error("expected explicit compute-now directive when data present and no chart")
	}
	if !strings.Contains(out, "calculate_astrolabe") || !strings.Contains(out, "calculate_bazi") {
		t.Error("missing-kind tool names should be listed in the guidelines")
	}
}

func TestBuildWithoutBirthData(t *testing.T) {
	out := Build(Input{User: &models.User{ID: "u1"}, TurnCount: 1})
	if !strings.Contains(out, "先收集資料") {
		t.Error("expected collection guidance when data missing")
	}
	if strings.Contains(out, "【已知資料】") {
		t.Error("facts block should be omitted when no facts exist")
	}
	if !strings.Contains(out, "尚未建立任何命盤") {
		t.Error("chart block should hint that no chart exists")
	}
}

func TestBuildOffTopicNote(t *testing.T) {
	out := Build(Input{User: &models.User{ID: "u1"}, TurnCount: 1, OffTopic: true})
	if !strings.Contains(out, "【離題提醒】") {
		t.Error("off-topic note missing")
	}
}

func TestMemoryBlockBudget(t *testing.T) {
	long := strings.Repeat("很長的對話內容。", 600)
	got := memoryBlock(&models.MemorySnapshot{
		Episodic: []*models.Message{{Role: models.RoleUser, Content: long}},
	})
	if n := len([]rune(got)); n > memoryRuneBudget {
		t.Errorf("memory block exceeds budget: %d runes", n)
	}
}
