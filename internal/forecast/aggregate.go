package forecast

import (
	"sort"
	"time"

	"github.com/swimcast/swimcast/internal/models"
)

const (
	// maxDailyDays bounds the daily outlook.
	maxDailyDays = 5
	// maxSegmentDays bounds the day-part outlook.
	maxSegmentDays = 2
	// segmentWindowHours restricts day parts to the first covered hours,
	// by position in the merged series.
	segmentWindowHours = 48
	// rawWindowHours is the display slice taken from the high-res series.
	rawWindowHours = 48
)

const dateLayout = "2006-01-02"

// dayAccumulator collects one calendar date of hourly values.
type dayAccumulator struct {
	tempMax float64
	tempMin float64
	precip  float64
	probMax float64
	codes   map[int]int
	seen    bool
}

func (a *dayAccumulator) add(p models.HourlyPoint) {
	if !a.seen {
		a.tempMax = p.Temperature
		a.tempMin = p.Temperature
		a.codes = make(map[int]int)
		a.seen = true
	} else {
		if p.Temperature > a.tempMax {
			a.tempMax = p.Temperature
		}
		if p.Temperature < a.tempMin {
			a.tempMin = p.Temperature
		}
	}
	a.precip += p.Precipitation
	if p.PrecipProbability > a.probMax {
		a.probMax = p.PrecipProbability
	}
	a.codes[p.WeatherCode]++
}

// dominantCode returns the most frequent weather code. Ties resolve to the
// smallest numeric code so the result does not depend on map iteration order.
func (a *dayAccumulator) dominantCode() int {
	best := -1
	bestCount := -1
	for code, count := range a.codes {
		if count > bestCount || (count == bestCount && code < best) {
			best = code
			bestCount = count
		}
	}
	return best
}

// Aggregate merges the two model series into daily and day-part summaries.
//
// The high-res series is concatenated before the coarse one and overlapping
// hours are kept: a duplicated hour counts twice in the aggregate. That
// double weighting reproduces the established merge behavior and must not
// be "fixed" by deduplication.
//
// Empty input yields an all-empty forecast; Aggregate never fails.
func Aggregate(highRes, coarse models.HourlySeries, fetchedAt time.Time) models.Forecast {
	merged := concat(highRes, coarse)

	out := models.Forecast{FetchedAt: fetchedAt}
	out.Daily = dailySummaries(merged)
	out.Segments = daySegments(merged)
	out.RawHourly = rawWindow(highRes)
	return out
}

func concat(a, b models.HourlySeries) []models.HourlyPoint {
	points := make([]models.HourlyPoint, 0, a.Len()+b.Len())
	for i := 0; i < a.Len(); i++ {
		points = append(points, a.At(i))
	}
	for i := 0; i < b.Len(); i++ {
		points = append(points, b.At(i))
	}
	return points
}

func dailySummaries(points []models.HourlyPoint) []models.DailySummary {
	byDate := make(map[string]*dayAccumulator)
	for _, p := range points {
		date := p.Time.Format(dateLayout)
		acc, ok := byDate[date]
		if !ok {
			acc = &dayAccumulator{}
			byDate[date] = acc
		}
		acc.add(p)
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	if len(dates) > maxDailyDays {
		dates = dates[:maxDailyDays]
	}

	out := make([]models.DailySummary, 0, len(dates))
	for _, date := range dates {
		acc := byDate[date]
		out = append(out, models.DailySummary{
			Date:                 date,
			TempMax:              acc.tempMax,
			TempMin:              acc.tempMin,
			TotalPrecipitation:   acc.precip,
			MaxPrecipProbability: acc.probMax,
			DominantWeatherCode:  acc.dominantCode(),
		})
	}
	return out
}

// partForHour maps a local hour to its day part:
// night [22:00,06:00), morning [06:00,12:00), day [12:00,22:00).
func partForHour(h int) models.DayPart {
	switch {
	case h >= 22 || h < 6:
		return models.PartNight
	case h < 12:
		return models.PartMorning
	default:
		return models.PartDay
	}
}

type segmentKey struct {
	date string
	part models.DayPart
}

func daySegments(points []models.HourlyPoint) []models.DaySegment {
	if len(points) > segmentWindowHours {
		points = points[:segmentWindowHours]
	}

	acc := make(map[segmentKey]*models.DaySegment)
	for _, p := range points {
		key := segmentKey{date: p.Time.Format(dateLayout), part: partForHour(p.Time.Hour())}
		seg, ok := acc[key]
		if !ok {
			seg = &models.DaySegment{Date: key.date, Part: key.part}
			acc[key] = seg
		}
		seg.TotalPrecipitation += p.Precipitation
		if p.Temperature >= swimTempC && p.Precipitation < rainPrecipMM {
			seg.SwimHourCount++
		}
	}

	dates := make([]string, 0, len(acc))
	seen := make(map[string]bool)
	for key := range acc {
		if !seen[key.date] {
			seen[key.date] = true
			dates = append(dates, key.date)
		}
	}
	sort.Strings(dates)
	if len(dates) > maxSegmentDays {
		dates = dates[:maxSegmentDays]
	}

	var out []models.DaySegment
	for _, date := range dates {
		for _, part := range []models.DayPart{models.PartNight, models.PartMorning, models.PartDay} {
			if seg, ok := acc[segmentKey{date: date, part: part}]; ok {
				out = append(out, *seg)
			}
		}
	}
	return out
}

func rawWindow(highRes models.HourlySeries) []models.HourlyPoint {
	n := highRes.Len()
	if n > rawWindowHours {
		n = rawWindowHours
	}
	if n == 0 {
		return nil
	}
	out := make([]models.HourlyPoint, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, highRes.At(i))
	}
	return out
}
