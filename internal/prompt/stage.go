package prompt

// Stage is the conversational phase a turn is in. It is recomputed from
// observable state every turn and never persisted.
type Stage string

const (
	StageFirstMeet      Stage = "first_meet"
	StageDataCollection Stage = "data_collection"
	StageDeepConsult    Stage = "deep_consult"
	StageClosing        Stage = "closing"
)

// ChooseStage maps turn state to a stage. A closing signal overrides every
// other state.
func ChooseStage(turnCount int, hasBirthData, hasChart, closing bool) Stage {
	if closing {
		return StageClosing
	}
	if turnCount == 0 {
		return StageFirstMeet
	}
	if !hasBirthData {
		return StageDataCollection
	}
	if !hasChart {
		// Data present, chart missing: still collection, but the
		// directive tells the model to compute now.
		return StageDataCollection
	}
	return StageDeepConsult
}

func stageDirective(stage Stage, hasBirthData bool) string {
	switch stage {
	case StageFirstMeet:
		return "【階段：初次見面】這是第一次對話。先溫暖地自我介紹，了解對方今天想聊什麼，" +
			"自然地引導對方分享出生年月日、出生時間與性別，不要像填表格一樣逐項逼問。"
	case StageDataCollection:
		if hasBirthData {
			return "【階段：排盤】出生資料已經齊全。立刻呼叫對應的排盤工具完成計算，" +
				"不要再重複詢問已知的資料，也不要在沒有盤面的情況下憑空解讀。"
		}
		return "【階段：收集資料】出生資料還不完整。在回應對方話題的同時，" +
			"自然地補問缺少的項目（出生日期、時間、性別、出生地點）。一次只問一兩項。"
	case StageDeepConsult:
		return "【階段：深度諮詢】命盤已經建立。根據盤面具體作答，引用宮位、星曜或格局等實際內容，" +
			"結合對方的處境給出可執行的建議。需要其他系統佐證時，呼叫對應工具。"
	case StageClosing:
		return "【階段：收尾】對方準備結束對話。簡短總結今天聊到的重點與建議，" +
			"給一句溫暖的祝福，不要開啟新話題。"
	}
	return ""
}
