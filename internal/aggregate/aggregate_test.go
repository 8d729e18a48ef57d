package aggregate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"CimplrCorpSaas/internal/model"
)

func txn(amount string, date string) model.Transaction {
	d := decimal.RequireFromString(amount)
	var vd *time.Time
	if date != "" {
		t, err := time.Parse("2006-01-02", date)
		if err != nil {
			panic(err)
		}
		vd = &t
	}
	return model.Transaction{ParsedAmount: d, ValueDate: vd}
}

func TestAggregateScenarioOne(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	revenue := []model.Transaction{
		txn("500000", "2024-03-04"),
		txn("1200000", "2024-03-15"),
		txn("750000", "2024-04-18"),
	}
	nonRevenue := []model.Transaction{
		txn("50000", "2024-04-02"),
	}

	revResult := Aggregate(revenue, "KZT", now)
	nonRevResult := Aggregate(nonRevenue, "KZT", now)

	require.True(t, revResult.Total.Equal(decimal.RequireFromString("2450000")))
	require.True(t, nonRevResult.Total.Equal(decimal.RequireFromString("50000")))

	march := findYear(revResult.Years, 2024).Months
	require.True(t, findMonth(march, 2).Value.Equal(decimal.RequireFromString("1700000")))
	april := findYear(revResult.Years, 2024).Months
	require.True(t, findMonth(april, 3).Value.Equal(decimal.RequireFromString("750000")))
}

func TestAggregateFutureDatedExcludedFromMonthlyButNotTotal(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	revenue := []model.Transaction{
		txn("1000000", "2099-01-01"),
	}
	result := Aggregate(revenue, "KZT", now)
	require.True(t, result.Total.Equal(decimal.RequireFromString("1000000")))
	require.Empty(t, result.Years)
	require.True(t, result.ReconciliationDelta.Equal(decimal.RequireFromString("1000000")))
}

func TestTrailing12MonthsRevenue(t *testing.T) {
	revenue := []model.Transaction{
		txn("100", "2024-01-15"),
		txn("200", "2024-06-15"),
		txn("300", "2025-01-10"), // reference date: latest revenue transaction
	}
	window := Trailing12MonthsRevenue(revenue, "KZT")
	require.NotNil(t, window.ReferencePeriodEnd)
	require.Equal(t, "2025-01-10", window.ReferencePeriodEnd.Format("2006-01-02"))
	// window: [2024-02-01, 2025-01-10] -> includes 2024-06-15 and 2025-01-10, excludes 2024-01-15
	require.True(t, window.Value.Equal(decimal.RequireFromString("500")))
}

func TestSortByDateNullsLast(t *testing.T) {
	a := txn("1", "2024-03-01")
	b := txn("2", "")
	c := txn("3", "2024-01-01")
	out := SortByDateNullsLast([]model.Transaction{a, b, c})
	require.True(t, out[0].ParsedAmount.Equal(decimal.RequireFromString("3")))
	require.True(t, out[1].ParsedAmount.Equal(decimal.RequireFromString("1")))
	require.True(t, out[2].ParsedAmount.Equal(decimal.RequireFromString("2")))
}

func findYear(years []model.YearBucket, y int) model.YearBucket {
	for _, yy := range years {
		if yy.Year == y {
			return yy
		}
	}
	return model.YearBucket{}
}

func findMonth(months []model.MonthBucket, m int) model.MonthBucket {
	for _, mm := range months {
		if mm.Month == m {
			return mm
		}
	}
	return model.MonthBucket{}
}
