package sanitize

import (
	"encoding/json"
	"strings"
	"testing"
)

func collect(chunks ...string) (string, *Sanitizer) {
	var b strings.Builder
	s := New(func(out string) { b.WriteString(out) })
	for _, c := range chunks {
		s.Write(c)
	}
	s.Close()
	return b.String(), s
}

func TestPassThroughPlainText(t *testing.T) {
	out, _ := collect("您好，我是您的命理顧問。", "今天想聊聊什麼呢？")
	if out != "您好，我是您的命理顧問。今天想聊聊什麼呢？" {
		t.Errorf("plain text altered: %q", out)
	}
}

func TestStripsToolCodeFence(t *testing.T) {
	out, s := collect("讓我為您排盤。\n```tool_code\nprint(default_api.calculate_astrolabe(birth_date=\"1990-07-22\", birth_time=\"08:30\", gender=\"female\"))\n```\n請稍候。")
	if strings.Contains(out, "tool_code") || strings.Contains(out, "default_api") {
		t.Fatalf("leakage reached output: %q", out)
	}
	if !strings.Contains(out, "讓我為您排盤。") || !strings.Contains(out, "請稍候。") {
		t.Errorf("surrounding text lost: %q", out)
	}

	calls := s.Calls()
	if len(calls) != 1 || calls[0].Name != "calculate_astrolabe" {
		t.Fatalf("expected recovered call, got %+v", calls)
	}
	var args map[string]any
	if err := json.Unmarshal(calls[0].Input, &args); err != nil {
		t.Fatal(err)
	}
	if args["birth_date"] != "1990-07-22" || args["gender"] != "female" {
		t.Errorf("args not recovered: %v", args)
	}
	if s.Stats().FencesSuppressed != 1 {
		t.Errorf("fence not counted: %+v", s.Stats())
	}
}

func TestStripsFenceSplitAcrossChunks(t *testing.T) {
	out, s := collect(
		"好的，馬上來。`",
		"``tool_co",
		"de\ndefault_api.draw_tarot(question=\"感情\", spread=\"three_card\")\n`",
		"``後續說明。",
	)
	if strings.Contains(out, "`") || strings.Contains(out, "default_api") {
		t.Fatalf("split fence leaked: %q", out)
	}
	if !strings.Contains(out, "好的，馬上來。") || !strings.Contains(out, "後續說明。") {
		t.Errorf("text around fence lost: %q", out)
	}
	if len(s.Calls()) != 1 || s.Calls()[0].Name != "draw_tarot" {
		t.Errorf("call not recovered from split fence: %+v", s.Calls())
	}
}

func TestStripsBarePseudoCall(t *testing.T) {
	out, s := collect("我先查一下。default_api.getUserProfile(userId=\"ignored\")好了。")
	if strings.Contains(out, "default_api") {
		t.Fatalf("pseudo-call leaked: %q", out)
	}
	if out != "我先查一下。好了。" {
		t.Errorf("unexpected output: %q", out)
	}
	if s.Stats().CallsSuppressed != 1 {
		t.Errorf("call not counted: %+v", s.Stats())
	}
}

func TestPseudoCallSplitAcrossChunks(t *testing.T) {
	out, _ := collect("稍等。defa", "ult_api.calculate_numerology(birth_date=\"1991-03-0", "1\")結果如下。")
	if strings.Contains(out, "default_api") || strings.Contains(out, "defa") {
		t.Fatalf("split pseudo-call leaked: %q", out)
	}
	if out != "稍等。結果如下。" {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestOrdinaryCodeFencePassesThrough(t *testing.T) {
	text := "範例：\n```\nx = 1\n```\n以上。"
	out, s := collect(text)
	if out != text {
		t.Errorf("ordinary fence altered: %q", out)
	}
	if s.Stats().FencesSuppressed != 0 {
		t.Errorf("ordinary fence wrongly suppressed")
	}
}

func TestUnterminatedFenceSuppressedAtClose(t *testing.T) {
	out, s := collect("好的。```tool_code\ndefault_api.analyze_name(name=\"王小明\")")
	if strings.Contains(out, "tool_code") || strings.Contains(out, "default_api") {
		t.Fatalf("unterminated fence leaked: %q", out)
	}
	if out != "好的。" {
		t.Errorf("unexpected output: %q", out)
	}
	if len(s.Calls()) != 1 || s.Calls()[0].Name != "analyze_name" {
		t.Errorf("call not recovered at close: %+v", s.Calls())
	}
}

func TestDropsForeignGlyphs(t *testing.T) {
	out, s := collect("您的руна命盤很особый穩定。")
	if out != "您的命盤很穩定。" {
		t.Errorf("foreign glyphs survived: %q", out)
	}
	if s.Stats().GlyphsDropped == 0 {
		t.Error("dropped glyphs not counted")
	}
}

func TestKeepsAllowedGlyphs(t *testing.T) {
	text := "命宮在「子」，英文ABC 123，全形ＡＢ，標點：、；—。"
	out, _ := collect(text)
	if out != text {
		t.Errorf("allowed glyphs dropped: %q", out)
	}
}

func TestFlushOnSentenceBoundary(t *testing.T) {
	var emits []string
	s := New(func(out string) { emits = append(emits, out) })
	s.Write("第一句。第二句還沒")
	if len(emits) != 1 || emits[0] != "第一句。" {
		t.Fatalf("expected flush at sentence end, got %v", emits)
	}
	s.Write("完。")
	if len(emits) != 2 || emits[1] != "第二句還沒完。" {
		t.Fatalf("second sentence: %v", emits)
	}
	s.Close()
}

func TestFlushOnWindowFill(t *testing.T) {
	var emits []string
	s := New(func(out string) { emits = append(emits, out) })
	s.Write(strings.Repeat("字", windowSize))
	if len(emits) != 1 || len([]rune(emits[0])) != windowSize {
		t.Fatalf("window did not flush when full: %v", emits)
	}
	s.Close()
}

func TestCleanHelper(t *testing.T) {
	got := Clean("命盤顯示```tool_code\nx\n```一切安好。")
	if got != "命盤顯示一切安好。" {
		t.Errorf("Clean: %q", got)
	}
}

func TestParseCallValueTypes(t *testing.T) {
	call, ok := parseCall(`default_api.draw_tarot(question="未來", count=3, reversed=True, seed=None)`)
	if !ok {
		t.Fatal("expected parse")
	}
	var args map[string]any
	if err := json.Unmarshal(call.Input, &args); err != nil {
		t.Fatal(err)
	}
	if args["question"] != "未來" || args["count"] != float64(3) || args["reversed"] != true {
		t.Errorf("args: %v", args)
	}
	if v, present := args["seed"]; !present || v != nil {
		t.Errorf("None should map to null: %v", args)
	}
}

func TestParseCallRejectsGarbage(t *testing.T) {
	if _, ok := parseCall("default_api.broken(unclosed"); ok {
		t.Error("unclosed call should not parse")
	}
	if _, ok := parseCall("no marker here"); ok {
		t.Error("text without marker should not parse")
	}
}
