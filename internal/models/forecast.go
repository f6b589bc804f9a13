package models

import (
	"strings"
	"time"
)

// Location is a named place with resolved coordinates. Coordinates must be
// present before any forecast fetch; unresolved locations are skipped.
type Location struct {
	Name      string  `json:"name" validate:"required"`
	Admin1    string  `json:"admin1,omitempty"`
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// DedupeLocations drops entries whose name repeats case-insensitively,
// keeping the first occurrence. Names are unique within a subscriber's
// location set; unnamed entries pass through untouched.
func DedupeLocations(locs []Location) []Location {
	if len(locs) < 2 {
		return locs
	}
	seen := make(map[string]bool, len(locs))
	out := make([]Location, 0, len(locs))
	for _, loc := range locs {
		if loc.Name != "" {
			key := strings.ToLower(loc.Name)
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		out = append(out, loc)
	}
	return out
}

// HourlySeries holds one forecast model's hourly values as parallel arrays,
// as delivered by the provider. Arrays may be ragged on malformed payloads;
// consumers index defensively via At.
type HourlySeries struct {
	Times             []time.Time
	Temperature       []float64
	Precipitation     []float64
	PrecipProbability []float64
	WeatherCode       []int
	Radiation         []float64
}

// Len returns the number of usable points, bounded by the time axis.
func (s HourlySeries) Len() int {
	return len(s.Times)
}

// Empty reports whether the series carries no points.
func (s HourlySeries) Empty() bool {
	return len(s.Times) == 0
}

// At returns the i-th point. Missing values in short parallel arrays read as zero.
func (s HourlySeries) At(i int) HourlyPoint {
	p := HourlyPoint{Time: s.Times[i]}
	if i < len(s.Temperature) {
		p.Temperature = s.Temperature[i]
	}
	if i < len(s.Precipitation) {
		p.Precipitation = s.Precipitation[i]
	}
	if i < len(s.PrecipProbability) {
		p.PrecipProbability = s.PrecipProbability[i]
	}
	if i < len(s.WeatherCode) {
		p.WeatherCode = s.WeatherCode[i]
	}
	if i < len(s.Radiation) {
		p.Radiation = s.Radiation[i]
	}
	return p
}

// HourlyPoint is a single hour of forecast data.
type HourlyPoint struct {
	Time              time.Time `json:"time"`
	Temperature       float64   `json:"temperature"`
	Precipitation     float64   `json:"precipitation"`
	PrecipProbability float64   `json:"precipitationProbability"`
	WeatherCode       int       `json:"weatherCode"`
	Radiation         float64   `json:"radiation,omitempty"`
}

// DailySummary aggregates one calendar date of hourly points.
type DailySummary struct {
	Date                 string  `json:"date"`
	TempMax              float64 `json:"tempMax"`
	TempMin              float64 `json:"tempMin"`
	TotalPrecipitation   float64 `json:"totalPrecipitation"`
	MaxPrecipProbability float64 `json:"maxPrecipitationProbability"`
	DominantWeatherCode  int     `json:"dominantWeatherCode"`
}

// DayPart partitions a day. Night wraps midnight: [22:00,06:00).
type DayPart string

const (
	PartNight   DayPart = "night"
	PartMorning DayPart = "morning"
	PartDay     DayPart = "day"
)

// DaySegment aggregates one day part of a calendar date, derived from the
// first 48 covered hours only.
type DaySegment struct {
	Date               string  `json:"date"`
	Part               DayPart `json:"part"`
	TotalPrecipitation float64 `json:"totalPrecipitation"`
	SwimHourCount      int     `json:"swimHourCount"`
}

// Verdict is the classified outcome for a summary or segment.
type Verdict string

const (
	VerdictRain Verdict = "rain"
	VerdictSwim Verdict = "swim"
	VerdictNone Verdict = "none"
)

// Forecast is the aggregated output for one location. Daily covers at most
// 5 dates, Segments at most the first 2 dates, RawHourly the first 48
// points of the high-res series (display data).
type Forecast struct {
	Location  Location       `json:"location"`
	Daily     []DailySummary `json:"daily"`
	Segments  []DaySegment   `json:"segments"`
	RawHourly []HourlyPoint  `json:"rawHourly"`
	FetchedAt time.Time      `json:"fetchedAt"`
}

// Empty reports whether the forecast carries no data at all.
func (f Forecast) Empty() bool {
	return len(f.Daily) == 0 && len(f.Segments) == 0 && len(f.RawHourly) == 0
}
