package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	isoLayouts = []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	}

	// dd.mm.yyyy / mm.dd.yyyy with '.', '/' or '-' as separator, optional time.
	numericDateRe = regexp.MustCompile(`^(\d{1,2})[./\-](\d{1,2})[./\-](\d{2,4})(?:[ T](\d{1,2}):(\d{2})(?::(\d{2}))?)?$`)

	// incomplete .mm.yyyy (day omitted, resolved to first of month).
	monthYearRe = regexp.MustCompile(`^\.?(\d{1,2})[./\-](\d{4}|\d{2})$`)

	// dd <russian-month> yyyy
	russianDateRe = regexp.MustCompile(`^(\d{1,2})\s+([А-Яа-яЁё]+)\s+(\d{4})$`)

	epochMillisRe = regexp.MustCompile(`^\d{12,13}$`)
	pureNumberRe  = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
)

var russianMonths = map[string]time.Month{
	"январь": time.January, "января": time.January,
	"февраль": time.February, "февраля": time.February,
	"март": time.March, "марта": time.March,
	"апрель": time.April, "апреля": time.April,
	"май": time.May, "мая": time.May,
	"июнь": time.June, "июня": time.June,
	"июль": time.July, "июля": time.July,
	"август": time.August, "августа": time.August,
	"сентябрь": time.September, "сентября": time.September,
	"октябрь": time.October, "октября": time.October,
	"ноябрь": time.November, "ноября": time.November,
	"декабрь": time.December, "декабря": time.December,
}

// pivotYear applies the two-digit year convention: > 70 -> 1900s, <= 70 -> 2000s.
func pivotYear(y int) int {
	if y >= 100 {
		return y
	}
	if y > 70 {
		return 1900 + y
	}
	return 2000 + y
}

// ParseDate accepts the enumerated formats below and returns a UTC instant.
// The bool is false when nothing recognized the input.
func ParseDate(raw interface{}) (time.Time, bool) {
	switch v := raw.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return v.UTC(), true
	case float64:
		return parseExcelOrEpoch(v)
	case int64:
		return parseExcelOrEpoch(float64(v))
	case int:
		return parseExcelOrEpoch(float64(v))
	case string:
		return parseDateString(v)
	default:
		return time.Time{}, false
	}
}

func parseDateString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}

	if epochMillisRe.MatchString(s) {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			if t, ok := parseEpochMillis(n); ok {
				return t, true
			}
		}
	}

	if m := monthYearRe.FindStringSubmatch(s); m != nil {
		month, err1 := strconv.Atoi(m[1])
		year, err2 := strconv.Atoi(m[2])
		if err1 == nil && err2 == nil && month >= 1 && month <= 12 {
			year = pivotYear(year)
			return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), true
		}
	}

	if m := russianDateRe.FindStringSubmatch(s); m != nil {
		day, err1 := strconv.Atoi(m[1])
		month, ok := russianMonths[strings.ToLower(m[2])]
		year, err2 := strconv.Atoi(m[3])
		if err1 == nil && err2 == nil && ok && day >= 1 && day <= 31 {
			return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
		}
	}

	if m := numericDateRe.FindStringSubmatch(s); m != nil {
		if t, ok := numericDateFromMatch(m); ok {
			return t, true
		}
	}

	if pureNumberRe.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			if t, ok := parseExcelOrEpoch(f); ok {
				return t, true
			}
		}
	}

	return time.Time{}, false
}

func numericDateFromMatch(m []string) (time.Time, bool) {
	a, err1 := strconv.Atoi(m[1])
	b, err2 := strconv.Atoi(m[2])
	year, err3 := strconv.Atoi(m[3])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	year = pivotYear(year)

	var day, month int
	switch {
	case a > 12 && b <= 12:
		day, month = a, b
	case b > 12 && a <= 12:
		day, month = b, a
	case a <= 12 && b <= 12:
		// Ambiguous — default to dd.mm.yyyy.
		day, month = a, b
	default:
		return time.Time{}, false
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}

	hour, minute, second := 0, 0, 0
	if m[4] != "" {
		hour, _ = strconv.Atoi(m[4])
		minute, _ = strconv.Atoi(m[5])
		if m[6] != "" {
			second, _ = strconv.Atoi(m[6])
		}
	}
	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC), true
}

// parseExcelOrEpoch disambiguates a bare numeric value between an Excel
// serial date and an epoch-millisecond timestamp.
func parseExcelOrEpoch(f float64) (time.Time, bool) {
	if f >= 1e11 {
		if t, ok := parseEpochMillis(int64(f)); ok {
			return t, true
		}
	}
	return parseExcelSerial(f)
}

func parseEpochMillis(n int64) (time.Time, bool) {
	t := time.UnixMilli(n).UTC()
	if t.Year() >= 2000 {
		return t, true
	}
	return time.Time{}, false
}

// parseExcelSerial converts an Excel serial date (days since 1899-12-30;
// that base already absorbs Excel's fake 1900-02-29 leap day for every
// serial after 60) into a UTC instant, accepting only results whose year
// lies in [1990, current+1].
func parseExcelSerial(f float64) (time.Time, bool) {
	days := int(f)
	frac := f - float64(days)
	base := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	t := base.AddDate(0, 0, days)
	t = t.Add(time.Duration(frac * float64(24*time.Hour)))

	currentYear := time.Now().UTC().Year()
	if t.Year() < 1990 || t.Year() > currentYear+1 {
		return time.Time{}, false
	}
	return t, true
}

// internalMarkerKeys are record keys that never carry a date/value payload
// and must be skipped by the value-scan fallback.
var internalMarkerKeys = map[string]bool{
	"id": true, "internal_id": true, "tran_id": true, "index": true,
	"row_index": true, "category_id": true, "category_name": true,
	"classification_source": true, "classification_reason": true,
}

// datePriorityKeys lists Russian and English spellings of "date",
// "operation date", and "payment date", in the order they are tried;
// ExtractDate tries the "та" fragment as a key substring only after these.
var datePriorityKeys = []string{
	"date", "transaction_date", "value_date", "operation_date", "payment_date",
	"дата", "дата операции", "дата платежа", "дата_операции", "дата_платежа",
}

// ExtractDate implements the priority-key + value-scan record date
// extraction protocol.
func ExtractDate(rec map[string]interface{}) (time.Time, bool) {
	for _, key := range datePriorityKeys {
		if v, ok := lookupCaseInsensitive(rec, key); ok {
			if t, ok := ParseDate(v); ok {
				return t, true
			}
		}
	}
	for k, v := range rec {
		if strings.Contains(strings.ToLower(k), "та") {
			if t, ok := ParseDate(v); ok {
				return t, true
			}
		}
	}

	currentYear := time.Now().UTC().Year()
	for k, v := range rec {
		if internalMarkerKeys[strings.ToLower(k)] {
			continue
		}
		switch v.(type) {
		case string, float64, int, int64:
		default:
			continue
		}
		if t, ok := ParseDate(v); ok && t.Year() >= 2000 && t.Year() <= currentYear+2 {
			return t, true
		}
	}
	return time.Time{}, false
}

func lookupCaseInsensitive(rec map[string]interface{}, key string) (interface{}, bool) {
	if v, ok := rec[key]; ok {
		return v, true
	}
	lower := strings.ToLower(key)
	for k, v := range rec {
		if strings.ToLower(k) == lower {
			return v, true
		}
	}
	return nil, false
}
