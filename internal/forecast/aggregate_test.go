package forecast

import (
	"testing"
	"time"

	"github.com/swimcast/swimcast/internal/models"
)

var prague = mustLoadLocation("Europe/Prague")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// makeSeries builds an hourly series starting at start with the given
// per-hour values repeated cyclically.
func makeSeries(start time.Time, hours int, temp, precip, prob float64, code int) models.HourlySeries {
	s := models.HourlySeries{
		Times:             make([]time.Time, hours),
		Temperature:       make([]float64, hours),
		Precipitation:     make([]float64, hours),
		PrecipProbability: make([]float64, hours),
		WeatherCode:       make([]int, hours),
	}
	for i := 0; i < hours; i++ {
		s.Times[i] = start.Add(time.Duration(i) * time.Hour)
		s.Temperature[i] = temp
		s.Precipitation[i] = precip
		s.PrecipProbability[i] = prob
		s.WeatherCode[i] = code
	}
	return s
}

func TestAggregate_EmptyInput(t *testing.T) {
	fc := Aggregate(models.HourlySeries{}, models.HourlySeries{}, time.Now())
	if !fc.Empty() {
		t.Errorf("Aggregate(empty) = %+v, want empty forecast", fc)
	}
	if len(fc.Daily) != 0 || len(fc.Segments) != 0 || len(fc.RawHourly) != 0 {
		t.Errorf("Aggregate(empty) produced output: daily=%d segments=%d raw=%d",
			len(fc.Daily), len(fc.Segments), len(fc.RawHourly))
	}
}

func TestAggregate_DailyLimit(t *testing.T) {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, prague)
	highRes := makeSeries(start, 48, 20, 0, 0, 0)
	coarse := makeSeries(start, 7*24, 18, 0, 0, 0)

	fc := Aggregate(highRes, coarse, time.Now())
	if len(fc.Daily) != 5 {
		t.Fatalf("len(Daily) = %d, want 5", len(fc.Daily))
	}
	for i, d := range fc.Daily {
		want := start.AddDate(0, 0, i).Format("2006-01-02")
		if d.Date != want {
			t.Errorf("Daily[%d].Date = %s, want %s", i, d.Date, want)
		}
	}
}

func TestAggregate_DailyMinMax(t *testing.T) {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, prague)
	s := models.HourlySeries{
		Times:         []time.Time{start, start.Add(time.Hour), start.Add(2 * time.Hour)},
		Temperature:   []float64{15, 28, 21},
		Precipitation: []float64{0.2, 0.3, 0},
	}

	fc := Aggregate(s, models.HourlySeries{}, time.Now())
	if len(fc.Daily) != 1 {
		t.Fatalf("len(Daily) = %d, want 1", len(fc.Daily))
	}
	d := fc.Daily[0]
	if d.TempMax != 28 || d.TempMin != 15 {
		t.Errorf("TempMax/TempMin = %v/%v, want 28/15", d.TempMax, d.TempMin)
	}
	if d.TotalPrecipitation != 0.5 {
		t.Errorf("TotalPrecipitation = %v, want 0.5", d.TotalPrecipitation)
	}
	if d.TempMax < d.TempMin {
		t.Errorf("TempMax %v < TempMin %v", d.TempMax, d.TempMin)
	}
}

// Overlapping hours from the two models are both counted. The duplicated
// hour's precipitation therefore lands twice in the day total.
func TestAggregate_OverlapCountsTwice(t *testing.T) {
	start := time.Date(2026, 7, 1, 12, 0, 0, 0, prague)
	highRes := models.HourlySeries{
		Times:         []time.Time{start},
		Temperature:   []float64{20},
		Precipitation: []float64{2.0},
	}
	coarse := models.HourlySeries{
		Times:         []time.Time{start},
		Temperature:   []float64{19},
		Precipitation: []float64{2.0},
	}

	fc := Aggregate(highRes, coarse, time.Now())
	if len(fc.Daily) != 1 {
		t.Fatalf("len(Daily) = %d, want 1", len(fc.Daily))
	}
	if got := fc.Daily[0].TotalPrecipitation; got != 4.0 {
		t.Errorf("TotalPrecipitation = %v, want 4.0 (duplicated hour counts twice)", got)
	}
}

func TestAggregate_DominantCodeTieBreak(t *testing.T) {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, prague)
	s := models.HourlySeries{
		Times:       []time.Time{start, start.Add(time.Hour), start.Add(2 * time.Hour), start.Add(3 * time.Hour)},
		Temperature: []float64{20, 20, 20, 20},
		WeatherCode: []int{61, 61, 3, 3},
	}

	fc := Aggregate(s, models.HourlySeries{}, time.Now())
	if got := fc.Daily[0].DominantWeatherCode; got != 3 {
		t.Errorf("DominantWeatherCode = %d, want 3 (tie resolves to smallest code)", got)
	}
}

func TestAggregate_SegmentsLimitedToTwoDates(t *testing.T) {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, prague)
	highRes := makeSeries(start, 48, 20, 0, 0, 0)
	coarse := makeSeries(start, 72, 18, 0, 0, 0)

	fc := Aggregate(highRes, coarse, time.Now())
	dates := map[string]bool{}
	for _, seg := range fc.Segments {
		dates[seg.Date] = true
	}
	if len(dates) > 2 {
		t.Errorf("segments cover %d dates, want at most 2", len(dates))
	}
}

func TestAggregate_SegmentParts(t *testing.T) {
	tests := []struct {
		hour int
		want models.DayPart
	}{
		{0, models.PartNight},
		{5, models.PartNight},
		{6, models.PartMorning},
		{11, models.PartMorning},
		{12, models.PartDay},
		{21, models.PartDay},
		{22, models.PartNight},
		{23, models.PartNight},
	}
	for _, tt := range tests {
		if got := partForHour(tt.hour); got != tt.want {
			t.Errorf("partForHour(%d) = %s, want %s", tt.hour, got, tt.want)
		}
	}
}

func TestAggregate_SegmentSwimHours(t *testing.T) {
	// Afternoon hours at 26°C and dry: all count as swim hours.
	start := time.Date(2026, 7, 1, 13, 0, 0, 0, prague)
	s := makeSeries(start, 3, 26, 0, 0, 0)

	fc := Aggregate(s, models.HourlySeries{}, time.Now())
	if len(fc.Segments) != 1 {
		t.Fatalf("len(Segments) = %d, want 1", len(fc.Segments))
	}
	seg := fc.Segments[0]
	if seg.Part != models.PartDay {
		t.Errorf("Part = %s, want day", seg.Part)
	}
	if seg.SwimHourCount != 3 {
		t.Errorf("SwimHourCount = %d, want 3", seg.SwimHourCount)
	}
}

func TestAggregate_SegmentWindowIsPositional(t *testing.T) {
	// 72 coarse hours only: segments must stop after the first 48 points.
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, prague)
	coarse := makeSeries(start, 72, 18, 0.1, 0, 0)

	fc := Aggregate(models.HourlySeries{}, coarse, time.Now())
	last := fc.Segments[len(fc.Segments)-1]
	cutoff := start.Add(48 * time.Hour).Format("2006-01-02")
	if last.Date >= cutoff {
		t.Errorf("segment date %s at or past the 48-point cutoff %s", last.Date, cutoff)
	}
}

func TestAggregate_RawWindowHighResOnly(t *testing.T) {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, prague)
	highRes := makeSeries(start, 60, 20, 0, 0, 0)
	coarse := makeSeries(start, 72, 18, 5, 90, 61)

	fc := Aggregate(highRes, coarse, time.Now())
	if len(fc.RawHourly) != 48 {
		t.Fatalf("len(RawHourly) = %d, want 48", len(fc.RawHourly))
	}
	for i, p := range fc.RawHourly {
		if p.Temperature != 20 {
			t.Fatalf("RawHourly[%d].Temperature = %v, want 20 (high-res only)", i, p.Temperature)
		}
	}
}

func TestAggregate_RawWindowShortSeries(t *testing.T) {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, prague)
	highRes := makeSeries(start, 10, 20, 0, 0, 0)

	fc := Aggregate(highRes, models.HourlySeries{}, time.Now())
	if len(fc.RawHourly) != 10 {
		t.Errorf("len(RawHourly) = %d, want 10", len(fc.RawHourly))
	}
}

func TestAggregate_OneModelMissing(t *testing.T) {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, prague)
	coarse := makeSeries(start, 72, 18, 0, 0, 0)

	fc := Aggregate(models.HourlySeries{}, coarse, time.Now())
	if fc.Empty() {
		t.Fatal("Aggregate with only coarse series is empty, want daily output")
	}
	if len(fc.RawHourly) != 0 {
		t.Errorf("len(RawHourly) = %d, want 0 when high-res is missing", len(fc.RawHourly))
	}
	if len(fc.Daily) != 3 {
		t.Errorf("len(Daily) = %d, want 3 (72h from midnight)", len(fc.Daily))
	}
}

func TestAggregate_RaggedSeries(t *testing.T) {
	// Temperature array shorter than the time axis: missing values read as zero.
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, prague)
	s := models.HourlySeries{
		Times:       []time.Time{start, start.Add(time.Hour)},
		Temperature: []float64{21},
	}

	fc := Aggregate(s, models.HourlySeries{}, time.Now())
	if len(fc.Daily) != 1 {
		t.Fatalf("len(Daily) = %d, want 1", len(fc.Daily))
	}
	if fc.Daily[0].TempMin != 0 || fc.Daily[0].TempMax != 21 {
		t.Errorf("TempMin/TempMax = %v/%v, want 0/21", fc.Daily[0].TempMin, fc.Daily[0].TempMax)
	}
}
