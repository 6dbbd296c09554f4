// Package prompt builds the per-turn system prompt: persona, stage
// directive, tool rules, language discipline, user facts, chart summaries,
// memory, and tone hints, in a fixed order.
package prompt

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/stevechen1112/aetheria/pkg/models"
)

//go:embed persona.txt
var personaText string

// memoryRuneBudget caps the rendered memory block.
const memoryRuneBudget = 2000

// chartKindLabels maps calculator kinds to their display names.
var chartKindLabels = map[models.ChartKind]string{
	models.ChartZiwei:      "紫微斗數命盤",
	models.ChartBazi:       "八字命盤",
	models.ChartWestern:    "西洋星盤",
	models.ChartTarot:      "塔羅牌陣",
	models.ChartNumerology: "生命靈數",
	models.ChartNameology:  "姓名學分析",
}

// Input is everything the assembler needs for one turn.
type Input struct {
	User      *models.User
	Locks     []*models.ChartLock
	Memory    *models.MemorySnapshot
	TurnCount int

	ToneHints []string
	OffTopic  bool
	Closing   bool

	TargetLanguage string // e.g. "繁體中文"
}

// Build composes the system prompt for one turn.
func Build(in Input) string {
	hasChart := false
	for _, lock := range in.Locks {
		if lock.Kind == models.ChartZiwei || lock.Kind == models.ChartBazi || lock.Kind == models.ChartWestern {
			hasChart = true
			break
		}
	}
	stage := ChooseStage(in.TurnCount, in.User.HasBirthData(), hasChart, in.Closing)

	var b strings.Builder
	b.WriteString(strings.TrimSpace(personaText))
	b.WriteString("\n\n")
	b.WriteString(stageDirective(stage, in.User.HasBirthData()))
	b.WriteString("\n\n")
	b.WriteString(toolGuidelines(in))
	b.WriteString("\n\n")
	b.WriteString(languageDiscipline(in.TargetLanguage))

	if facts := factsBlock(in.User); facts != "" {
		b.WriteString("\n\n")
		b.WriteString(facts)
	}
	b.WriteString("\n\n")
	b.WriteString(chartBlock(in.Locks))
	if memory := memoryBlock(in.Memory); memory != "" {
		b.WriteString("\n\n")
		b.WriteString(memory)
	}
	if len(in.ToneHints) > 0 {
		b.WriteString("\n\n【本輪語氣】")
		b.WriteString(strings.Join(in.ToneHints, "、"))
		b.WriteString("。")
	}
	if in.OffTopic {
		b.WriteString("\n\n【離題提醒】對方目前聊的內容與命理無關。友善回應一兩句即可，" +
			"然後自然地把話題帶回諮詢本身。")
	}
	return b.String()
}

func toolGuidelines(in Input) string {
	var b strings.Builder
	b.WriteString("【工具使用規則】\n")
	b.WriteString("1. 需要排盤或查資料時，一律使用工具呼叫，絕對不要在回覆文字中輸出程式碼或 API 字樣。\n")
	b.WriteString("2. 解讀必須建立在工具回傳的盤面資料上，缺什麼就先算什麼。\n")
	b.WriteString("3. 已建立的命盤直接引用【命盤摘要】解讀，不要對同一種命盤重複呼叫計算工具。\n")

	n := 4
	if in.User.HasBirthData() {
		have := map[models.ChartKind]bool{}
		for _, lock := range in.Locks {
			have[lock.Kind] = true
		}
		var missing []string
		if !have[models.ChartZiwei] {
			missing = append(missing, "calculate_astrolabe（紫微）")
		}
		if !have[models.ChartBazi] {
			missing = append(missing, "calculate_bazi（八字）")
		}
		if len(missing) > 0 {
			fmt.Fprintf(&b, "%d. 出生資料已齊全，但尚未建立：%s。對方提到相關話題時，立即呼叫對應工具計算，不要先詢問或拖延。\n",
				n, strings.Join(missing, "、"))
			n++
		}
	} else {
		fmt.Fprintf(&b, "%d. 出生資料尚不完整，先收集資料，不要呼叫排盤工具。\n", n)
		n++
	}
	fmt.Fprintf(&b, "%d. 工具回傳錯誤時，根據錯誤訊息修正參數重試，或改以詢問的方式向對方確認。\n", n)
	fmt.Fprintf(&b, "%d. 對方分享個人重要資訊（偏好、近況、重大事件）時，用 saveUserInsight 記下。", n+1)
	return b.String()
}

func languageDiscipline(target string) string {
	if target == "" {
		target = "繁體中文"
	}
	return "【語言規範】全程使用" + target + "回覆。不得出現簡體字、俄文、阿拉伯文或其他非目標語言的字符；" +
		"專有名詞（如 Gemini、API）以外不要夾雜英文。"
}

func factsBlock(user *models.User) string {
	if user == nil {
		return ""
	}
	var lines []string
	add := func(label, value string) {
		if value != "" {
			lines = append(lines, "- "+label+"："+value)
		}
	}
	add("稱呼", user.Name)
	add("出生日期", user.BirthDate)
	add("出生時間", user.BirthTime)
	add("出生地點", user.BirthLocation)
	switch user.Gender {
	case "male":
		add("性別", "男")
	case "female":
		add("性別", "女")
	}
	if len(lines) == 0 {
		return ""
	}
	return "【已知資料】\n" + strings.Join(lines, "\n")
}

func chartBlock(locks []*models.ChartLock) string {
	var b strings.Builder
	b.WriteString("【命盤摘要】")
	if len(locks) == 0 {
		b.WriteString("\n尚未建立任何命盤。取得出生資料後應立即排盤。")
		return b.String()
	}
	have := map[models.ChartKind]bool{}
	for _, lock := range locks {
		have[lock.Kind] = true
		label := chartKindLabels[lock.Kind]
		if label == "" {
			label = string(lock.Kind)
		}
		summary := lock.Summary()
		if summary == "" {
			summary = "（已建立，無摘要）"
		}
		b.WriteString("\n- " + label + "：" + summary)
	}
	var hints []string
	for _, kind := range []models.ChartKind{models.ChartZiwei, models.ChartBazi, models.ChartWestern} {
		if !have[kind] {
			hints = append(hints, chartKindLabels[kind])
		}
	}
	if len(hints) > 0 {
		b.WriteString("\n- 尚未建立：" + strings.Join(hints, "、") + "（話題相關時應呼叫工具計算）")
	}
	return b.String()
}

func memoryBlock(snapshot *models.MemorySnapshot) string {
	if snapshot == nil {
		return ""
	}
	var b strings.Builder
	if len(snapshot.Profile) > 0 {
		b.WriteString("【長期記憶】\n")
		for _, key := range sortedKeys(snapshot.Profile) {
			b.WriteString("- " + key + "：" + snapshot.Profile[key] + "\n")
		}
	}
	if latest := snapshot.LatestSummary(); latest != "" {
		b.WriteString("【先前對話摘要】\n" + latest + "\n")
	}
	if len(snapshot.Episodic) > 0 {
		b.WriteString("【近期對話】\n")
		for _, msg := range snapshot.Episodic {
			tag := "對方"
			if msg.Role == models.RoleAssistant {
				tag = "你"
			}
			b.WriteString(tag + "：" + msg.Content + "\n")
		}
	}
	text := strings.TrimRight(b.String(), "\n")
	if text == "" {
		return ""
	}
	runes := []rune(text)
	if len(runes) > memoryRuneBudget {
		runes = runes[len(runes)-memoryRuneBudget:]
	}
	return string(runes)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
