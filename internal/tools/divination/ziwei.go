package divination

import "fmt"

// palaceNames in traversal order starting from the life palace.
var palaceNames = []string{
	"命宮", "兄弟", "夫妻", "子女", "財帛", "疾厄",
	"遷移", "交友", "事業", "田宅", "福德", "父母",
}

// Palace is one of the twelve chart palaces.
type Palace struct {
	Name   string   `json:"name"`
	Branch string   `json:"branch"`
	Stars  []string `json:"stars,omitempty"`
}

// ZiweiChart is the purple-star chart result.
type ZiweiChart struct {
	Palaces    []Palace `json:"palaces"`
	LifePalace string   `json:"life_palace"` // branch of 命宮
	BodyPalace string   `json:"body_palace"` // branch of 身宮
	MainStars  []string `json:"main_stars"`  // stars sitting in the life palace
	Gender     string   `json:"gender"`
	Summary    string   `json:"summary"`
}

// ziweiOffsets places the 紫微 series relative to the 紫微 star, and the
// 天府 series relative to 天府.
var (
	ziweiSeries = map[string]int{
		"紫微": 0, "天機": -1, "太陽": -3, "武曲": -4, "天同": -5, "廉貞": -8,
	}
	tianfuSeries = map[string]int{
		"天府": 0, "太陰": 1, "貪狼": 2, "巨門": 3, "天相": 4, "天梁": 5, "七殺": 6, "破軍": 10,
	}
)

// CalculateZiwei builds a simplified purple-star chart. Palace placement
// follows the classical rules (count forward to the birth month from 寅,
// back by the birth hour for the life palace); star placement uses the
// day-group rule for 紫微 and fixed offsets for both series.
func CalculateZiwei(birthDate, birthTime, gender string) (*ZiweiChart, error) {
	_, month, day, err := parseDate(birthDate)
	if err != nil {
		return nil, err
	}
	hour, _, err := parseTime(birthTime)
	if err != nil {
		return nil, err
	}
	if gender != "male" && gender != "female" {
		return nil, fmt.Errorf("invalid gender %q, want male or female", gender)
	}

	hourBr := hourBranch(hour)
	// Life palace: from 寅 count forward (month-1), then back by the hour
	// branch. Body palace: forward by both.
	lifeBr := mod(2+(month-1)-hourBr, 12)
	bodyBr := mod(2+(month-1)+hourBr, 12)

	// 紫微 position from the day-group (every five days advances one
	// palace), anchored at the life palace's quarter.
	ziweiBr := mod(2+(day-1)/5+(day-1)%5, 12)
	tianfuBr := mod(4+12-ziweiBr+2, 12) // mirrored across the 寅-申 axis

	starsAt := make(map[int][]string)
	place := func(series map[string]int, base int) {
		for _, star := range starOrder(series) {
			starsAt[mod(base+series[star], 12)] = append(starsAt[mod(base+series[star], 12)], star)
		}
	}
	place(ziweiSeries, ziweiBr)
	place(tianfuSeries, tianfuBr)

	chart := &ZiweiChart{
		LifePalace: branches[lifeBr],
		BodyPalace: branches[bodyBr],
		Gender:     gender,
	}
	for i := 0; i < 12; i++ {
		br := mod(lifeBr+i, 12)
		chart.Palaces = append(chart.Palaces, Palace{
			Name:   palaceNames[i],
			Branch: branches[br],
			Stars:  starsAt[br],
		})
	}
	chart.MainStars = starsAt[lifeBr]

	stars := "無主星"
	if len(chart.MainStars) > 0 {
		stars = joinCJK(chart.MainStars)
	}
	chart.Summary = fmt.Sprintf("紫微斗數：命宮在%s，主星%s；身宮在%s。命宮所在的結構是整張盤解讀的核心。",
		chart.LifePalace, stars, chart.BodyPalace)
	return chart, nil
}

// starOrder returns the series' stars in a fixed order so placement is
// deterministic.
func starOrder(series map[string]int) []string {
	ziwei := []string{"紫微", "天機", "太陽", "武曲", "天同", "廉貞"}
	tianfu := []string{"天府", "太陰", "貪狼", "巨門", "天相", "天梁", "七殺", "破軍"}
	if _, ok := series["紫微"]; ok {
		return ziwei
	}
	return tianfu
}

func joinCJK(items []string) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += "、"
		}
		out += item
	}
	return out
}
