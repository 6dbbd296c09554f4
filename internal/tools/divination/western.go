package divination

import (
	"fmt"
	"math"
)

var zodiacSigns = []string{
	"牡羊座", "金牛座", "雙子座", "巨蟹座", "獅子座", "處女座",
	"天秤座", "天蠍座", "射手座", "摩羯座", "水瓶座", "雙魚座",
}

// House is one whole-sign house.
type House struct {
	Number int    `json:"number"`
	Sign   string `json:"sign"`
}

// WesternChart is the natal chart result. Positions are low-precision
// approximations; signs and houses are stable for a given input.
type WesternChart struct {
	Sun       string  `json:"sun"`
	Moon      string  `json:"moon"`
	Ascendant string  `json:"ascendant"`
	SunDegree float64 `json:"sun_degree"` // ecliptic longitude
	Houses    []House `json:"houses"`
	Summary   string  `json:"summary"`
}

// CalculateWestern computes sun, moon, and ascendant signs plus whole-sign
// houses. Longitude (degrees east) refines the ascendant; when nil, local
// time is taken at face value.
func CalculateWestern(birthDate, birthTime string, longitude *float64) (*WesternChart, error) {
	year, month, day, err := parseDate(birthDate)
	if err != nil {
		return nil, err
	}
	hour, minute, err := parseTime(birthTime)
	if err != nil {
		return nil, err
	}

	jd := julianDay(year, month, day)
	dayFrac := (float64(hour) + float64(minute)/60) / 24

	// Mean solar longitude from the J2000 epoch (JD 2451545), ~0.9856°/day.
	days := float64(jd-2451545) + dayFrac - 0.5
	sunLong := norm360(280.46 + 0.9856474*days)

	// Mean lunar longitude, ~13.1764°/day.
	moonLong := norm360(218.316 + 13.176396*days)

	// Ascendant: the sign rising at birth, approximated from the sun's
	// position and the local hour angle (one sign per two hours).
	localHour := float64(hour) + float64(minute)/60
	if longitude != nil {
		localHour += (*longitude - 120) / 15 // offset from the UTC+8 reference meridian
	}
	ascLong := norm360(sunLong + (localHour-6)*15)

	chart := &WesternChart{
		Sun:       zodiacSigns[int(sunLong/30)],
		Moon:      zodiacSigns[int(moonLong/30)],
		Ascendant: zodiacSigns[int(ascLong/30)],
		SunDegree: math.Round(sunLong*100) / 100,
	}
	ascIdx := int(ascLong / 30)
	for i := 0; i < 12; i++ {
		chart.Houses = append(chart.Houses, House{Number: i + 1, Sign: zodiacSigns[(ascIdx+i)%12]})
	}

	chart.Summary = fmt.Sprintf("西洋星盤：太陽%s、月亮%s、上升%s。太陽代表核心自我，月亮是情緒需求，上升是對外的樣貌。",
		chart.Sun, chart.Moon, chart.Ascendant)
	return chart, nil
}

func norm360(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}
