package agent

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stevechen1112/aetheria/pkg/models"
)

func userWithBirth() *models.User {
	return &models.User{
		ID:        "u",
		BirthDate: "1990-01-01",
		BirthTime: "12:00",
		Gender:    "male",
	}
}

func TestDetectSignals(t *testing.T) {
	user := userWithBirth()
	locks := []*models.ChartLock{{Kind: models.ChartTarot}}

	s := DetectSignals("我最近好焦慮，睡不著", user, locks)
	if !s.HasBirthData {
		t.Error("birth data present but not detected")
	}
	if s.HasChart {
		t.Error("a tarot draw must not count as a core chart")
	}
	if len(s.ToneHints) == 0 || s.ToneHints[0] != "穩定安心" {
		t.Errorf("tone hints = %v", s.ToneHints)
	}

	s = DetectSignals("謝謝你今天陪我聊，晚安", user, nil)
	if !s.Closing {
		t.Error("closing not detected")
	}

	s = DetectSignals("可以幫我寫程式嗎", user, nil)
	if !s.OffTopic {
		t.Error("off-topic not detected")
	}

	s = DetectSignals("命盤呢？", user, []*models.ChartLock{{Kind: models.ChartZiwei}})
	if !s.HasChart {
		t.Error("ziwei lock must count as a core chart")
	}
}

func TestShouldFuse(t *testing.T) {
	base := Signals{HasBirthData: true, HasChart: false}
	msg := "幫我看看我的命盤"

	if !shouldFuse(0, false, 0, base, msg) {
		t.Error("all conditions met, fuse must fire")
	}
	if shouldFuse(1, false, 0, base, msg) {
		t.Error("fuse only fires on the first iteration")
	}
	if shouldFuse(0, true, 0, base, msg) {
		t.Error("fuse fires at most once per turn")
	}
	if shouldFuse(0, false, 1, base, msg) {
		t.Error("model made a call, fuse must stay out")
	}
	if shouldFuse(0, false, 0, Signals{HasBirthData: false}, msg) {
		t.Error("no birth data, nothing to compute")
	}
	if shouldFuse(0, false, 0, Signals{HasBirthData: true, HasChart: true}, msg) {
		t.Error("chart exists already")
	}
	if shouldFuse(0, false, 0, base, "今天天氣如何") {
		t.Error("not a divination request")
	}
}

func TestBuildFuseCallPreference(t *testing.T) {
	call, ok := buildFuseCall(userWithBirth())
	if !ok || call.Name != "calculate_astrolabe" {
		t.Fatalf("full facts should prefer the astrolabe, got %q", call.Name)
	}
	if !call.FuseTriggered || !strings.HasPrefix(call.ID, "fuse_") {
		t.Fatalf("fuse call not marked: %+v", call)
	}
	var args map[string]any
	if err := json.Unmarshal(call.Input, &args); err != nil {
		t.Fatal(err)
	}
	if args["birth_date"] != "1990-01-01" || args["gender"] != "male" {
		t.Fatalf("args = %v", args)
	}

	// Without gender only the western chart is satisfiable.
	user := userWithBirth()
	user.Gender = ""
	call, ok = buildFuseCall(user)
	if !ok || call.Name != "calculate_western_chart" {
		t.Fatalf("missing gender should fall back to western, got %q", call.Name)
	}

	user.BirthTime = ""
	if _, ok := buildFuseCall(user); ok {
		t.Fatal("no calculator is satisfiable without a birth time")
	}
}

func TestQualityAppendix(t *testing.T) {
	payload, _ := json.Marshal(map[string]string{"summary": "紫微斗數：命宮在午，主星紫微。"})
	lock := &models.ChartLock{Kind: models.ChartZiwei, Payload: payload}

	appendix := qualityAppendix("您今天的狀態不錯，慢慢來就好。", []*models.ChartLock{lock})
	if appendix == "" {
		t.Fatal("generic reply after a ziwei chart must gain an appendix")
	}
	if !strings.Contains(appendix, "命宮") {
		t.Fatalf("appendix must carry the chart summary: %q", appendix)
	}

	if got := qualityAppendix("您的命宮主星是紫微，格局穩健。", []*models.ChartLock{lock}); got != "" {
		t.Fatalf("reply already uses the vocabulary, got appendix %q", got)
	}

	tarot, _ := json.Marshal(map[string]string{"summary": "塔羅：正位的戀人。"})
	unguarded := &models.ChartLock{Kind: models.ChartTarot, Payload: tarot}
	if got := qualityAppendix("隨便聊聊。", []*models.ChartLock{unguarded}); got != "" {
		t.Fatalf("tarot is not guarded, got %q", got)
	}
}

func TestExtractFacts(t *testing.T) {
	facts := ExtractFacts("我是1992年9月8日早上8點30分在高雄出生的女生")
	if facts.BirthDate != "1992-09-08" {
		t.Errorf("BirthDate = %q", facts.BirthDate)
	}
	if facts.BirthTime != "08:30" {
		t.Errorf("BirthTime = %q", facts.BirthTime)
	}
	if facts.Gender != "female" {
		t.Errorf("Gender = %q", facts.Gender)
	}
	if facts.BirthLocation != "高雄" {
		t.Errorf("BirthLocation = %q", facts.BirthLocation)
	}
	if facts.Longitude == nil || facts.Latitude == nil {
		t.Error("coordinates not resolved for a known city")
	}

	if facts := ExtractFacts("今天心情不錯"); !facts.IsZero() {
		t.Errorf("no facts expected, got %+v", facts)
	}

	// Gender statements alone never overwrite with the opposite value.
	if f := ExtractFacts("我是男生"); f.Gender != "male" {
		t.Errorf("Gender = %q", f.Gender)
	}
}

func TestExtractFactsLoosePlace(t *testing.T) {
	// The place is named without 出生 attached to it.
	facts := ExtractFacts("我是1990年7月22日下午2點15分出生的，男生，在高雄，請幫我看看。")
	if facts.BirthDate != "1990-07-22" || facts.BirthTime != "14:15" || facts.Gender != "male" {
		t.Errorf("facts = %+v", facts)
	}
	if facts.BirthLocation != "高雄" {
		t.Errorf("BirthLocation = %q", facts.BirthLocation)
	}
	if facts.Longitude == nil {
		t.Error("coordinates not resolved")
	}

	// Without birth context a bare place mention is not a birth location.
	if f := ExtractFacts("我下週要去在高雄的分公司"); f.BirthLocation != "" {
		t.Errorf("BirthLocation = %q, want empty", f.BirthLocation)
	}

	// Unknown places are ignored in the loose form.
	if f := ExtractFacts("我是1990年7月22日出生的，在小鎮上"); f.BirthLocation != "" {
		t.Errorf("BirthLocation = %q, want empty", f.BirthLocation)
	}
}
