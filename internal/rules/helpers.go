package rules

import (
	"math"
	"sort"
	"time"

	"golang-stock-advisor/pkg/utils"
)

// Record is a raw provider row. Field names vary by vendor, so the engines go
// through the ordered-precedence extractors in pkg/utils instead of assuming
// a schema.
type Record = map[string]any

func sortByDate(records []Record, dateKeys ...string) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		di, _ := utils.ExtractDate(out[i], dateKeys...)
		dj, _ := utils.ExtractDate(out[j], dateKeys...)
		return di.Before(dj)
	})
	return out
}

func latestRecord(records []Record) Record {
	if len(records) == 0 {
		return nil
	}
	return records[len(records)-1]
}

func recordFloat(record Record, keys ...string) *float64 {
	if record == nil {
		return nil
	}
	if v, ok := utils.ExtractFloat(record, keys...); ok {
		return &v
	}
	return nil
}

func closes(quotes []Record) []float64 {
	out := make([]float64, 0, len(quotes))
	for _, q := range quotes {
		if c, ok := utils.ExtractFloat(q, "Close"); ok {
			out = append(out, c)
		}
	}
	return out
}

func movingAverage(values []float64, window int) (float64, bool) {
	if len(values) < window || window <= 0 {
		return 0, false
	}
	sum := 0.0
	for _, v := range values[len(values)-window:] {
		sum += v
	}
	return sum / float64(window), true
}

// weightedScore is the shared scoring algorithm: the weight fraction of
// passing rules, rounded to 4 decimal places.
func weightedScore(results []RuleResult) float64 {
	total := 0.0
	passed := 0.0
	for _, r := range results {
		total += r.Weight
		if r.Passed {
			passed += r.Weight
		}
	}
	if total == 0 {
		return 0
	}
	return math.Round(passed/total*10000) / 10000
}

func asOfDate(quotes []Record) (string, *time.Time) {
	latest := latestRecord(quotes)
	if latest != nil {
		if s, ok := utils.ExtractString(latest, "Date"); ok {
			if d, ok := utils.ParseDate(s); ok {
				return utils.NormalizeDate(s), &d
			}
			// A date string that will not parse leaves the as-of unknown.
			if s != "" {
				return utils.NormalizeDate(s), nil
			}
		}
	}
	now := utils.TimeNowJST()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, utils.JST())
	return today.Format(utils.DateLayout), &today
}

func floatPtr(v float64) *float64 {
	return &v
}
