package agent

import (
	"strings"

	"github.com/stevechen1112/aetheria/pkg/models"
)

// Signals are the per-turn observations that steer the prompt and the fuse.
type Signals struct {
	HasBirthData bool
	HasChart     bool
	ToneHints    []string
	OffTopic     bool
	Closing      bool
}

var toneKeywords = []struct {
	words []string
	hint  string
}{
	{[]string{"難過", "傷心", "哭", "失落", "低潮", "沮喪"}, "溫柔安撫"},
	{[]string{"焦慮", "緊張", "害怕", "不安", "擔心", "壓力", "失眠"}, "穩定安心"},
	{[]string{"生氣", "憤怒", "不公平", "氣死"}, "冷靜同理"},
	{[]string{"開心", "興奮", "期待", "太好了"}, "一起高興"},
	{[]string{"迷惘", "不知道怎麼辦", "沒有方向", "好亂"}, "給出方向"},
}

var closingKeywords = []string{
	"再見", "掰掰", "拜拜", "先這樣", "下次再聊", "晚安", "謝謝你今天", "今天就到這",
}

// offTopicKeywords flag clearly unrelated requests; consultation-adjacent
// small talk is not off-topic.
var offTopicKeywords = []string{
	"寫程式", "寫作業", "翻譯", "食譜", "怎麼煮", "打遊戲", "電影推薦", "新聞",
}

// chartKindsCore are the kinds that count as "having a chart" for staging
// and the fuse.
var chartKindsCore = []models.ChartKind{models.ChartZiwei, models.ChartBazi, models.ChartWestern}

// DetectSignals computes the turn signals from the message and loaded state.
func DetectSignals(message string, user *models.User, locks []*models.ChartLock) Signals {
	s := Signals{HasBirthData: user.HasBirthData()}

	for _, lock := range locks {
		for _, kind := range chartKindsCore {
			if lock.Kind == kind {
				s.HasChart = true
			}
		}
	}

	for _, group := range toneKeywords {
		for _, word := range group.words {
			if strings.Contains(message, word) {
				s.ToneHints = append(s.ToneHints, group.hint)
				break
			}
		}
	}

	for _, word := range closingKeywords {
		if strings.Contains(message, word) {
			s.Closing = true
			break
		}
	}

	for _, word := range offTopicKeywords {
		if strings.Contains(message, word) {
			s.OffTopic = true
			break
		}
	}
	return s
}
