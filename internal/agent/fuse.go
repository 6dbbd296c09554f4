package agent

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/stevechen1112/aetheria/pkg/models"
)

// domainKeywords mark a message as a divination request for the fuse.
var domainKeywords = []string{
	"命盤", "紫微", "八字", "星座", "星盤", "占星", "塔羅", "運勢",
	"算命", "占卜", "生命靈數", "姓名", "排盤", "看看我", "幫我看",
}

// domainRequest reports whether the message asks for divination work.
func domainRequest(message string) bool {
	for _, word := range domainKeywords {
		if strings.Contains(message, word) {
			return true
		}
	}
	return false
}

// shouldFuse decides whether to synthesise a calculator call: the model
// produced no calls on the first iteration even though birth data is
// complete, no chart exists, and the user asked for one.
func shouldFuse(iteration int, fired bool, calls int, signals Signals, message string) bool {
	return iteration == 0 && !fired && calls == 0 &&
		signals.HasBirthData && !signals.HasChart && domainRequest(message)
}

// buildFuseCall constructs the server-side call for the lowest-requirement
// calculator whose parameters are satisfiable from known facts. Preference:
// ziwei, then bazi (both date+time+gender), then western (date+time,
// longitude optional).
func buildFuseCall(user *models.User) (models.ToolCall, bool) {
	type candidate struct {
		tool string
		args map[string]any
		ok   bool
	}

	candidates := []candidate{
		{
			tool: "calculate_astrolabe",
			args: map[string]any{"birth_date": user.BirthDate, "birth_time": user.BirthTime, "gender": user.Gender},
			ok:   user.BirthDate != "" && user.BirthTime != "" && user.Gender != "",
		},
		{
			tool: "calculate_bazi",
			args: map[string]any{"birth_date": user.BirthDate, "birth_time": user.BirthTime, "gender": user.Gender},
			ok:   user.BirthDate != "" && user.BirthTime != "" && user.Gender != "",
		},
		{
			tool: "calculate_western_chart",
			args: map[string]any{"birth_date": user.BirthDate, "birth_time": user.BirthTime},
			ok:   user.BirthDate != "" && user.BirthTime != "",
		},
	}
	if user.Longitude != nil {
		candidates[2].args["longitude"] = *user.Longitude
	}

	for _, c := range candidates {
		if !c.ok {
			continue
		}
		input, err := json.Marshal(c.args)
		if err != nil {
			continue
		}
		return models.ToolCall{
			ID:            "fuse_" + uuid.NewString(),
			Name:          c.tool,
			Input:         input,
			FuseTriggered: true,
		}, true
	}
	return models.ToolCall{}, false
}
