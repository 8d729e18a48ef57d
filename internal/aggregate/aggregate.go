// Package aggregate computes the monthly/yearly revenue and non-revenue
// breakdowns and the trailing-twelve-month revenue window that make up the
// structured report: fetch everything, group into a map, then subtract to
// find what's missing — the reconciliation-delta computation between a raw
// total and the sum of its year buckets.
package aggregate

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"CimplrCorpSaas/internal/model"
	"CimplrCorpSaas/internal/normalize"
)

// windowStart is the earliest value-date allowed into the monthly/yearly
// tables.
var windowStart = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Result is the complete structured aggregation for one class of
// transactions (revenue or non-revenue) plus the reconciliation delta
// surfaced when dated totals fall short of the raw sum.
type Result struct {
	Total              decimal.Decimal
	Years              []model.YearBucket
	ReconciliationDelta decimal.Decimal
}

// Aggregate groups txns by year and month, restricted to the date window
// [2000-01-01, now+3days]; transactions with an absent or
// out-of-range value-date still contribute to Total but are excluded from
// Years. currency is the trailing tag FormatAmount appends.
func Aggregate(txns []model.Transaction, currency string, now time.Time) Result {
	windowEnd := now.AddDate(0, 0, 3)

	total := decimal.Zero
	yearMonth := map[int]map[int]decimal.Decimal{}

	for _, t := range txns {
		total = total.Add(t.ParsedAmount)
		if t.ValueDate == nil {
			continue
		}
		d := t.ValueDate.UTC()
		if d.Before(windowStart) || d.After(windowEnd) {
			continue
		}
		y, m := d.Year(), int(d.Month())-1
		if yearMonth[y] == nil {
			yearMonth[y] = map[int]decimal.Decimal{}
		}
		yearMonth[y][m] = yearMonth[y][m].Add(t.ParsedAmount)
	}

	years := make([]model.YearBucket, 0, len(yearMonth))
	bucketedTotal := decimal.Zero
	for y, months := range yearMonth {
		yearTotal := decimal.Zero
		monthBuckets := make([]model.MonthBucket, 0, len(months))
		for m, v := range months {
			yearTotal = yearTotal.Add(v)
			monthBuckets = append(monthBuckets, model.MonthBucket{
				Month:     m,
				Label:     monthLabel(m),
				Value:     v,
				Formatted: normalize.FormatAmount(v, currency),
			})
		}
		sort.Slice(monthBuckets, func(i, j int) bool { return monthBuckets[i].Month < monthBuckets[j].Month })
		bucketedTotal = bucketedTotal.Add(yearTotal)
		years = append(years, model.YearBucket{
			Year:      y,
			Value:     yearTotal,
			Formatted: normalize.FormatAmount(yearTotal, currency),
			Months:    monthBuckets,
		})
	}
	sort.Slice(years, func(i, j int) bool { return years[i].Year < years[j].Year })

	return Result{
		Total:               total,
		Years:               years,
		ReconciliationDelta: total.Sub(bucketedTotal),
	}
}

// monthLabel renders a 0-indexed month as its English name — English is
// the service's one supported label set; the keyword classifier is
// multilingual, the report renderer is not.
func monthLabel(monthIndex int) string {
	return time.Month(monthIndex + 1).String()
}

// Trailing12MonthsRevenue computes the trailing-twelve-month revenue
// window: the sum of revenue transactions whose value-date falls in
// [first-of-month(reference-11 months), reference], where reference is
// the latest observed revenue-transaction date. Transactions without a
// value-date are excluded. Returns a zero-value window (ReferencePeriodEnd
// nil) when no revenue transaction has a date.
func Trailing12MonthsRevenue(revenue []model.Transaction, currency string) model.TrailingWindow {
	var reference *time.Time
	for i := range revenue {
		d := revenue[i].ValueDate
		if d == nil {
			continue
		}
		if reference == nil || d.After(*reference) {
			reference = d
		}
	}
	if reference == nil {
		return model.TrailingWindow{Value: decimal.Zero, Formatted: normalize.FormatAmount(decimal.Zero, currency)}
	}

	ref := reference.UTC()
	windowFrom := firstOfMonth(ref).AddDate(0, -11, 0)

	sum := decimal.Zero
	for _, t := range revenue {
		if t.ValueDate == nil {
			continue
		}
		d := t.ValueDate.UTC()
		if !d.Before(windowFrom) && !d.After(ref) {
			sum = sum.Add(t.ParsedAmount)
		}
	}

	return model.TrailingWindow{
		Value:              sum,
		Formatted:          normalize.FormatAmount(sum, currency),
		ReferencePeriodEnd: &ref,
	}
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// SortByDateNullsLast produces a stable, date-ascending order over txns
// with transactions lacking a value-date sorted after every dated one.
func SortByDateNullsLast(txns []model.Transaction) []model.Transaction {
	out := make([]model.Transaction, len(txns))
	copy(out, txns)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].ValueDate, out[j].ValueDate
		if a == nil && b == nil {
			return false
		}
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.Before(*b)
	})
	return out
}
