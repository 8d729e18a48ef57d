package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDateISO(t *testing.T) {
	got, ok := ParseDate("2024-03-04")
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), got)
}

func TestParseDateDDMM(t *testing.T) {
	got, ok := ParseDate("04.03.2024")
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), got)
}

func TestParseDateAutoDetectMMDD(t *testing.T) {
	// day slot (second) > 12 forces the first slot to be the month.
	got, ok := ParseDate("03.25.2024")
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC), got)
}

func TestParseDateTwoDigitYearPivot(t *testing.T) {
	got, ok := ParseDate("13.12.71")
	require.True(t, ok)
	require.Equal(t, 1971, got.Year())

	got, ok = ParseDate("13.12.25")
	require.True(t, ok)
	require.Equal(t, 2025, got.Year())
}

func TestParseDateIncompleteMonthYear(t *testing.T) {
	got, ok := ParseDate(".03.2024")
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestParseDateRussianMonth(t *testing.T) {
	got, ok := ParseDate("4 марта 2024")
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), got)
}

func TestParseDateExcelSerial(t *testing.T) {
	// 45000 -> 2023-03-15 (Excel serial, post leap-bug adjustment).
	got, ok := ParseDate("45000")
	require.True(t, ok)
	require.Equal(t, 2023, got.Year())
}

func TestExtractDatePriorityKey(t *testing.T) {
	rec := Record{
		"description":   "Оплата по СФ №12",
		"дата операции": "2024-03-04",
	}
	got, ok := ExtractDate(rec)
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), got)
}

func TestExtractDateValueScanFallback(t *testing.T) {
	rec := Record{
		"id":      "s_1",
		"purpose": "2024-04-18 оплата за услуги",
	}
	_, ok := ExtractDate(rec)
	require.False(t, ok, "value scan only tests whole-field values, not embedded fragments")
}
