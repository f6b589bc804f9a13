package forecast

import "github.com/swimcast/swimcast/internal/models"

// Fixed classification thresholds.
const (
	swimTempC    = 25.0
	rainPrecipMM = 1.0
	rainProbPct  = 50.0
)

// lookaheadDays is the per-subscriber early-warning horizon.
const lookaheadDays = 2

// Classify maps a daily summary to its verdict. Rain is checked first and
// wins when both conditions hold.
func Classify(d models.DailySummary) models.Verdict {
	if d.TotalPrecipitation >= rainPrecipMM || d.MaxPrecipProbability > rainProbPct {
		return models.VerdictRain
	}
	if d.TempMax >= swimTempC && d.TotalPrecipitation < rainPrecipMM {
		return models.VerdictSwim
	}
	return models.VerdictNone
}

// ClassifySegment maps a day-part segment to its verdict. Segments carry no
// probability or temperature maximum, so rain keys on accumulated
// precipitation and swim on hours that met the swim criteria.
func ClassifySegment(s models.DaySegment) models.Verdict {
	if s.TotalPrecipitation >= rainPrecipMM {
		return models.VerdictRain
	}
	if s.SwimHourCount > 0 {
		return models.VerdictSwim
	}
	return models.VerdictNone
}

// Lookahead folds the first two daily summaries into a subscriber-level
// verdict: any rain day wins, then any swim day, else none.
func Lookahead(daily []models.DailySummary) models.Verdict {
	if len(daily) > lookaheadDays {
		daily = daily[:lookaheadDays]
	}
	swim := false
	for _, d := range daily {
		switch Classify(d) {
		case models.VerdictRain:
			return models.VerdictRain
		case models.VerdictSwim:
			swim = true
		}
	}
	if swim {
		return models.VerdictSwim
	}
	return models.VerdictNone
}

// IconForCode maps a WMO weather code to a display icon. Total over the
// code domain: anything outside the documented buckets gets the default.
func IconForCode(code int) string {
	switch code {
	case 0:
		return "☀️"
	case 1, 2, 3:
		return "🌤️"
	case 45, 48:
		return "🌫️"
	case 51, 53, 55:
		return "🌦️"
	case 56, 57, 61, 63, 65, 66, 67, 80, 81, 82:
		return "🌧️"
	case 71, 73, 75, 77, 85, 86:
		return "❄️"
	case 95, 96, 99:
		return "⛈️"
	default:
		return "☁️"
	}
}
