// Package safety screens incoming user messages before any model or tool
// work. Matching is rule based: a hit short-circuits the turn and the
// pre-composed reply for the category is streamed instead.
package safety

import "strings"

// Category names a class of messages the advisory persona must not engage
// with beyond a safe redirect.
type Category string

const (
	CategorySelfHarm  Category = "self_harm"
	CategoryViolence  Category = "violence_threat"
	CategoryMedical   Category = "medical"
	CategoryLegal     Category = "legal"
	CategoryFinancial Category = "financial_high_risk"
)

// Result is a filter hit: the category and the full reply to stream in
// place of a model response.
type Result struct {
	Category Category
	Reply    string
}

type rule struct {
	category Category
	// all terms in one group must appear; any group matching is a hit.
	groups [][]string
	reply  string
}

// Filter holds the compiled rule set.
type Filter struct {
	rules []rule
}

// New returns the default filter.
func New() *Filter {
	return &Filter{rules: defaultRules}
}

// Check scans a user message. It returns nil when the message is safe to
// hand to the model.
func (f *Filter) Check(message string) *Result {
	lowered := strings.ToLower(message)
	for _, r := range f.rules {
		for _, group := range r.groups {
			matched := true
			for _, term := range group {
				if !strings.Contains(lowered, term) {
					matched = false
					break
				}
			}
			if matched {
				return &Result{Category: r.category, Reply: r.reply}
			}
		}
	}
	return nil
}

var defaultRules = []rule{
	{
		category: CategorySelfHarm,
		groups: [][]string{
			{"自殺"}, {"輕生"}, {"自我了斷"}, {"不想活"}, {"活不下去"},
			{"結束生命"}, {"自殘"}, {"傷害自己"},
			{"kill myself"}, {"end my life"}, {"suicide"}, {"self-harm"},
		},
		reply: "聽到你這麼說，我很擔心你。我是一位命理顧問，沒辦法在這件事上給你足夠的幫助，" +
			"但你的感受很重要，值得被好好接住。請立刻聯絡安心專線 1925（24 小時免費），" +
			"或生命線 1995、張老師 1980。如果你現在有立即的危險，請撥打 119。" +
			"你不是一個人，願意說出來已經是很勇敢的一步。",
	},
	{
		category: CategoryViolence,
		groups: [][]string{
			{"殺", "他"}, {"殺", "她"}, {"報復", "傷害"}, {"教訓", "打"},
			{"傷害別人"}, {"hurt someone"}, {"kill him"}, {"kill her"},
		},
		reply: "我理解你現在可能非常憤怒或受傷，但我不能協助任何傷害他人的想法或計畫。" +
			"這樣強烈的情緒值得被認真對待——找信任的人談談，或撥打安心專線 1925，" +
			"都會比獨自硬撐更好。如果有人正處於危險中，請撥打 110。",
	},
	{
		category: CategoryMedical,
		groups: [][]string{
			{"癌症", "會不會好"}, {"病", "能不能治"}, {"吃什麼藥"}, {"停藥"},
			{"診斷"}, {"腫瘤", "命"}, {"should i stop taking"},
		},
		reply: "健康的事情我必須誠實說：命理可以陪你看心境與時機，但不能取代醫療判斷。" +
			"任何關於病情、用藥或治療的決定，請務必與你的主治醫師討論。" +
			"如果你願意，我們可以聊聊這段時間怎麼安頓心情、怎麼安排步調。",
	},
	{
		category: CategoryLegal,
		groups: [][]string{
			{"官司", "會不會贏"}, {"訴訟", "勝算"}, {"法律責任"}, {"會不會被告"},
			{"會不會判"}, {"lawsuit", "win"},
		},
		reply: "訴訟與法律責任的判斷需要專業律師依事實與證據評估，命理無法替代，" +
			"我也不應該讓你依賴命盤做法律決定。建議先諮詢律師（各地法律扶助基金會有免費諮詢）。" +
			"我可以陪你看的，是這段時間的壓力怎麼調適、心態怎麼安放。",
	},
	{
		category: CategoryFinancial,
		groups: [][]string{
			{"全部", "投入"}, {"梭哈"}, {"all in", "買"}, {"借錢", "投資"},
			{"貸款", "買股"}, {"槓桿", "開多"}, {"應該買哪支"},
		},
		reply: "投資決策我必須劃清界線：命理可以談財運的起伏與心態，但不能告訴你該買什麼、" +
			"或該不該押上大部分資金。任何把全部身家或借貸投入單一標的的做法風險都極高，" +
			"請先與合格的理財顧問討論。我們可以聊的是你對金錢的焦慮從哪裡來，以及近期適合保守還是穩健。",
	},
}
