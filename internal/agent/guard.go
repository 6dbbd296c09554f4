package agent

import (
	"strings"

	"github.com/stevechen1112/aetheria/internal/sanitize"
	"github.com/stevechen1112/aetheria/pkg/models"
)

// guardVocabulary lists, per guarded kind, the terms a reading that used
// that chart is expected to mention. Any one hit satisfies the guard.
var guardVocabulary = map[models.ChartKind][]string{
	models.ChartZiwei:   {"命宮", "身宮", "主星", "紫微", "天府", "宮位"},
	models.ChartWestern: {"太陽", "月亮", "上升", "星座", "宮位"},
}

var guardLeadIn = map[models.ChartKind]string{
	models.ChartZiwei:   "補充您的紫微命盤重點：",
	models.ChartWestern: "補充您的星盤重點：",
}

// qualityAppendix returns a pre-sanitised template paragraph when the final
// text ignores a chart computed this turn. Empty when the text already
// names the chart's vocabulary.
func qualityAppendix(text string, produced []*models.ChartLock) string {
	for _, lock := range produced {
		terms, guarded := guardVocabulary[lock.Kind]
		if !guarded {
			continue
		}
		mentioned := false
		for _, term := range terms {
			if strings.Contains(text, term) {
				mentioned = true
				break
			}
		}
		if mentioned {
			continue
		}
		summary := lock.Summary()
		if summary == "" {
			continue
		}
		// The appendix is built from chart fields and sanitised again, so
		// the language invariant holds on this path too.
		return sanitize.Clean("\n\n" + guardLeadIn[lock.Kind] + summary)
	}
	return ""
}
