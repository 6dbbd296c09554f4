package divination

import (
	"fmt"
	"math/rand"
)

// majorArcana is the 22-card deck the draws use.
var majorArcana = []string{
	"愚者", "魔術師", "女祭司", "皇后", "皇帝", "教皇", "戀人", "戰車",
	"力量", "隱者", "命運之輪", "正義", "吊人", "死神", "節制", "惡魔",
	"高塔", "星星", "月亮", "太陽", "審判", "世界",
}

// spreadPositions maps a spread name to its position labels.
var spreadPositions = map[string][]string{
	"single":       {"指引"},
	"three_card":   {"過去", "現在", "未來"},
	"celtic_cross": {"現況", "挑戰", "根基", "過去", "目標", "未來"},
}

// TarotCard is one drawn card.
type TarotCard struct {
	Name     string `json:"name"`
	Position string `json:"position"`
	Reversed bool   `json:"reversed"`
}

// TarotDraw is a completed spread.
type TarotDraw struct {
	Question string      `json:"question"`
	Spread   string      `json:"spread"`
	Cards    []TarotCard `json:"cards"`
	Seed     *int64      `json:"seed,omitempty"`
	Summary  string      `json:"summary"`
}

// DrawTarot draws a spread. With a seed the draw is fully deterministic;
// without one, the question text seeds the generator so repeated identical
// questions in one consultation do not silently reshuffle.
func DrawTarot(question, spread string, seed *int64) (*TarotDraw, error) {
	positions, ok := spreadPositions[spread]
	if !ok {
		return nil, fmt.Errorf("unknown spread %q", spread)
	}

	s := hashSeed(question)
	if seed != nil {
		s = *seed
	}
	rng := rand.New(rand.NewSource(s))

	deck := make([]int, len(majorArcana))
	for i := range deck {
		deck[i] = i
	}
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })

	draw := &TarotDraw{Question: question, Spread: spread, Seed: seed}
	for i, pos := range positions {
		draw.Cards = append(draw.Cards, TarotCard{
			Name:     majorArcana[deck[i]],
			Position: pos,
			Reversed: rng.Intn(2) == 1,
		})
	}

	summary := "塔羅牌陣（" + spread + "）："
	for i, card := range draw.Cards {
		if i > 0 {
			summary += "；"
		}
		orientation := "正位"
		if card.Reversed {
			orientation = "逆位"
		}
		summary += card.Position + "是" + orientation + card.Name
	}
	draw.Summary = summary + "。"
	return draw, nil
}

// hashSeed derives a stable seed from text (FNV-1a).
func hashSeed(text string) int64 {
	var h uint64 = 14695981039346656037
	for _, b := range []byte(text) {
		h ^= uint64(b)
		h *= 1099511628211
	}
	return int64(h & 0x7fffffffffffffff)
}
