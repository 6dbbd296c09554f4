package divination

import (
	"fmt"
)

// baziAnchor is the Julian day of 1984-02-02, a 甲子 day, used as the
// sexagenary day-cycle epoch.
var baziAnchor = julianDay(1984, 2, 2)

// Pillar is one of the four sexagenary pillars.
type Pillar struct {
	Stem    string `json:"stem"`
	Branch  string `json:"branch"`
	Element string `json:"element"`
}

func (p Pillar) String() string { return p.Stem + p.Branch }

// BaziChart is the four-pillars result.
type BaziChart struct {
	Year  Pillar `json:"year"`
	Month Pillar `json:"month"`
	Day   Pillar `json:"day"`
	Hour  Pillar `json:"hour"`

	DayMaster string         `json:"day_master"` // the day stem, the self
	Elements  map[string]int `json:"elements"`   // five-element tally over all eight characters
	Strongest string         `json:"strongest"`
	Weakest   string         `json:"weakest"`
	Summary   string         `json:"summary"`
}

// CalculateBazi derives the four pillars from a Gregorian birth date and
// time. The month pillar follows the civil-month approximation of the
// solar terms.
func CalculateBazi(birthDate, birthTime string) (*BaziChart, error) {
	year, month, day, err := parseDate(birthDate)
	if err != nil {
		return nil, err
	}
	hour, _, err := parseTime(birthTime)
	if err != nil {
		return nil, err
	}

	yearStem := mod(year-4, 10)
	yearBr := mod(year-4, 12)

	// 寅 opens the year; February approximates the first solar month.
	monthBr := mod(month+1, 12) // Feb → 寅(2)
	monthStem := mod(yearStem*2+month, 10)

	dayIndex := mod(julianDay(year, month, day)-baziAnchor, 60)
	dayStem := dayIndex % 10
	dayBr := dayIndex % 12

	hourBr := hourBranch(hour)
	hourStem := mod(dayStem%5*2+hourBr, 10)

	chart := &BaziChart{
		Year:      pillar(yearStem, yearBr),
		Month:     pillar(monthStem, monthBr),
		Day:       pillar(dayStem, dayBr),
		Hour:      pillar(hourStem, hourBr),
		DayMaster: stems[dayStem],
		Elements:  map[string]int{"木": 0, "火": 0, "土": 0, "金": 0, "水": 0},
	}

	for _, p := range []Pillar{chart.Year, chart.Month, chart.Day, chart.Hour} {
		chart.Elements[stemElement(p.Stem)]++
		chart.Elements[branchElement(p.Branch)]++
	}
	chart.Strongest, chart.Weakest = elementExtremes(chart.Elements)

	chart.Summary = fmt.Sprintf("八字：%s年 %s月 %s日 %s時。日主%s（%s），五行以%s最旺、%s最弱。",
		chart.Year, chart.Month, chart.Day, chart.Hour,
		chart.DayMaster, stemElement(chart.DayMaster), chart.Strongest, chart.Weakest)
	return chart, nil
}

func pillar(stem, branch int) Pillar {
	return Pillar{Stem: stems[stem], Branch: branches[branch], Element: stemElements[stem]}
}

func stemElement(stem string) string {
	for i, s := range stems {
		if s == stem {
			return stemElements[i]
		}
	}
	return ""
}

func branchElement(branch string) string {
	for i, b := range branches {
		if b == branch {
			return branchElements[i]
		}
	}
	return ""
}

// elementExtremes returns the most and least represented elements, ties
// broken by the canonical 木火土金水 order.
func elementExtremes(tally map[string]int) (strongest, weakest string) {
	order := []string{"木", "火", "土", "金", "水"}
	strongest, weakest = order[0], order[0]
	for _, e := range order {
		if tally[e] > tally[strongest] {
			strongest = e
		}
		if tally[e] < tally[weakest] {
			weakest = e
		}
	}
	return strongest, weakest
}

func mod(n, m int) int {
	return ((n % m) + m) % m
}
