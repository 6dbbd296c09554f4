package divination

import "fmt"

// strokeCounts covers common name characters; anything else falls back to
// a deterministic estimate so the five grids stay stable per name.
var strokeCounts = map[rune]int{
	'王': 4, '李': 7, '張': 11, '劉': 15, '陳': 16, '楊': 13, '黃': 12, '趙': 14,
	'吳': 7, '周': 8, '徐': 10, '孫': 10, '馬': 10, '朱': 6, '胡': 9, '郭': 15,
	'何': 7, '林': 8, '高': 10, '羅': 20, '鄭': 19, '謝': 17, '許': 11, '宋': 7,
	'蔡': 17, '葉': 15, '曾': 12, '蘇': 22, '呂': 7, '蕭': 18, '潘': 16, '洪': 10,
	'明': 8, '美': 9, '華': 14, '文': 4, '志': 7, '偉': 11, '婷': 12, '雅': 12,
	'俊': 9, '怡': 9, '君': 7, '宏': 7, '秀': 7, '惠': 12, '佳': 8, '淑': 12,
	'玲': 10, '芳': 10, '娟': 10, '嘉': 14,
}

// auspicious numbers in the 81-number table (simplified subset).
var auspicious = map[int]bool{
	1: true, 3: true, 5: true, 6: true, 7: true, 8: true, 11: true, 13: true,
	15: true, 16: true, 17: true, 18: true, 21: true, 23: true, 24: true,
	25: true, 29: true, 31: true, 32: true, 33: true, 35: true, 37: true,
	39: true, 41: true, 45: true, 47: true, 48: true, 52: true, 57: true,
	61: true, 63: true, 65: true, 67: true, 68: true, 81: true,
}

// Grid is one of the five grids with its luck reading.
type Grid struct {
	Name       string `json:"name"`
	Strokes    int    `json:"strokes"`
	Auspicious bool   `json:"auspicious"`
}

// NameologyResult is the five-grid analysis.
type NameologyResult struct {
	FullName string `json:"full_name"`
	Grids    []Grid `json:"grids"` // 天格, 人格, 地格, 外格, 總格
	Summary  string `json:"summary"`
}

// AnalyzeName performs the five-grid stroke analysis of a Han name. The
// first rune is taken as the surname.
func AnalyzeName(name string) (*NameologyResult, error) {
	runes := []rune(name)
	if len(runes) < 2 || len(runes) > 4 {
		return nil, fmt.Errorf("invalid name %q, want 2 to 4 Han characters", name)
	}
	for _, r := range runes {
		if r < 0x4E00 || r > 0x9FFF {
			return nil, fmt.Errorf("invalid name %q, want Han characters only", name)
		}
	}

	surname := strokes(runes[0])
	given := make([]int, 0, len(runes)-1)
	total := surname
	for _, r := range runes[1:] {
		n := strokes(r)
		given = append(given, n)
		total += n
	}

	heaven := surname + 1
	person := surname + given[0]
	earth := given[0] + 1
	if len(given) > 1 {
		earth = given[0] + given[1]
	}
	outer := total - person + 1

	result := &NameologyResult{FullName: name}
	for _, grid := range []struct {
		name    string
		strokes int
	}{
		{"天格", heaven}, {"人格", person}, {"地格", earth}, {"外格", outer}, {"總格", total},
	} {
		result.Grids = append(result.Grids, Grid{
			Name:       grid.name,
			Strokes:    grid.strokes,
			Auspicious: auspicious[reduce81(grid.strokes)],
		})
	}

	good := 0
	for _, g := range result.Grids {
		if g.Auspicious {
			good++
		}
	}
	result.Summary = fmt.Sprintf("姓名學：「%s」五格中人格 %d 劃、總格 %d 劃，五格有 %d 格屬吉。人格主性情與際遇，總格看一生的總運。",
		name, person, total, good)
	return result, nil
}

func strokes(r rune) int {
	if n, ok := strokeCounts[r]; ok && n > 0 {
		return n
	}
	// Stable estimate in the plausible 3..26 range.
	return int(r%24) + 3
}

func reduce81(n int) int {
	for n > 81 {
		n -= 80
	}
	return n
}
