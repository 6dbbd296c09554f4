package divination

import "fmt"

var lifePathMeanings = map[int]string{
	1: "獨立與開創，適合主導與起頭",
	2: "合作與協調，擅長傾聽與陪伴",
	3: "表達與創意，靠溝通與才華發光",
	4: "務實與秩序，靠累積與紀律成事",
	5: "自由與變化，在流動中找到機會",
	6: "責任與關懷，是天生的照顧者",
	7: "思考與探究，適合深度鑽研",
	8: "實踐與成就，對資源與目標敏銳",
	9: "包容與理想，格局大、重意義",

	11: "直覺與啟發（大師數），感受力遠超常人",
	22: "築夢踏實（大師數），能把理想落成制度",
	33: "無私奉獻（大師數），以愛與服務為軸",
}

// NumerologyResult is the life-path reading.
type NumerologyResult struct {
	LifePath int    `json:"life_path"`
	BirthDay int    `json:"birth_day"` // the day-of-month number, unreduced meaning
	IsMaster bool   `json:"is_master"`
	Meaning  string `json:"meaning"`
	Summary  string `json:"summary"`
}

// CalculateNumerology reduces the birth date digits to a life-path number,
// preserving the master numbers 11, 22, and 33.
func CalculateNumerology(birthDate string) (*NumerologyResult, error) {
	year, month, day, err := parseDate(birthDate)
	if err != nil {
		return nil, err
	}

	total := digitSum(year) + digitSum(month) + digitSum(day)
	for total > 9 && total != 11 && total != 22 && total != 33 {
		total = digitSum(total)
	}

	result := &NumerologyResult{
		LifePath: total,
		BirthDay: day,
		IsMaster: total == 11 || total == 22 || total == 33,
		Meaning:  lifePathMeanings[total],
	}
	master := ""
	if result.IsMaster {
		master = "（大師數）"
	}
	result.Summary = fmt.Sprintf("生命靈數：主命數 %d%s，核心特質是%s。", total, master, result.Meaning)
	return result, nil
}

func digitSum(n int) int {
	sum := 0
	for n > 0 {
		sum += n % 10
		n /= 10
	}
	return sum
}
