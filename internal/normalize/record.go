package normalize

import (
	"strconv"
	"strings"
)

// Record is a heterogeneous, multilingual-keyed transaction record as
// returned by the PDF extractor — untyped maps with multilingual keys.
type Record map[string]interface{}

// ExtractString sweeps rec for the first of keys (tried in order,
// case-insensitively) that carries a non-empty string or number, returning
// its normalized text form: an extract(record, role) -> string|number|absent
// protocol, specialized to the string case; a plain function rather than a
// dynamic field-dispatch mechanism.
func ExtractString(rec Record, keys ...string) (string, bool) {
	for _, key := range keys {
		v, ok := lookupCaseInsensitive(rec, key)
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
			s := NormalizeText(t)
			if s != "" {
				return s, true
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64), true
		case int:
			return strconv.Itoa(t), true
		case int64:
			return strconv.FormatInt(t, 10), true
		}
	}
	return "", false
}

// NormalizeText collapses interior whitespace and trims, preserving Unicode
// content untouched otherwise.
func NormalizeText(s string) string {
	s = strings.TrimSpace(s)
	return strings.Join(strings.Fields(s), " ")
}
