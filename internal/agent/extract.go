package agent

import (
	"regexp"
	"strings"

	"github.com/stevechen1112/aetheria/internal/tools"
	"github.com/stevechen1112/aetheria/internal/tools/location"
	"github.com/stevechen1112/aetheria/pkg/models"
)

var (
	genderMale   = regexp.MustCompile(`男生|男性|是男的|我是男|\bmale\b`)
	genderFemale = regexp.MustCompile(`女生|女性|是女的|我是女|\bfemale\b`)

	// 在台北出生 / 出生在台北 / 台北市出生
	birthPlace = regexp.MustCompile(`在([\p{Han}]{2,6})出生|出生[在於]([\p{Han}]{2,6})|([\p{Han}]{2,4})[市縣]出生`)
	// Birth statements often name the place on its own: 在高雄，. The loose
	// form is only trusted when the gazetteer knows the place.
	birthPlaceLoose = regexp.MustCompile(`在([\p{Han}]{2,4})`)
)

// ExtractFacts pulls birth data from a user-authored message. Extraction is
// deterministic and best-effort: anything ambiguous is left unset. Only
// facts found here (or written via the profile tool) ever persist.
func ExtractFacts(message string) models.UserFacts {
	var facts models.UserFacts

	if date, ok := tools.NormalizeDate(message); ok {
		facts.BirthDate = date
	}
	if t, ok := tools.NormalizeTime(message); ok {
		facts.BirthTime = t
	}

	if genderFemale.MatchString(message) {
		facts.Gender = "female"
	} else if genderMale.MatchString(message) {
		facts.Gender = "male"
	}

	if m := birthPlace.FindStringSubmatch(message); m != nil {
		place := m[1]
		if place == "" {
			place = m[2]
		}
		if place == "" {
			place = m[3]
		}
		place = strings.TrimSuffix(strings.TrimSuffix(place, "市"), "縣")
		if place != "" {
			facts.BirthLocation = place
			if resolved, ok := location.Lookup(place); ok {
				facts.Longitude = &resolved.Longitude
				facts.Latitude = &resolved.Latitude
			}
		}
	}

	if facts.BirthLocation == "" && (facts.BirthDate != "" || strings.Contains(message, "出生")) {
		for _, m := range birthPlaceLoose.FindAllStringSubmatch(message, -1) {
			if resolved, ok := location.Lookup(m[1]); ok {
				facts.BirthLocation = resolved.Name
				facts.Longitude = &resolved.Longitude
				facts.Latitude = &resolved.Latitude
				break
			}
		}
	}
	return facts
}
