package database

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeName normalizes a name for search (lowercase, no diacritics, spaces for dashes).
func NormalizeName(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", " ")
	return strings.Join(strings.Fields(name), " ")
}

// FilterProfiles keeps profiles whose name, employee ID or department contains
// query after normalization. An empty query keeps everything.
func FilterProfiles(profiles []StoredProfile, query string) []StoredProfile {
	q := NormalizeName(query)
	if q == "" {
		return profiles
	}
	return slices.DeleteFunc(slices.Clone(profiles), func(p StoredProfile) bool {
		return !strings.Contains(NormalizeName(p.Name), q) &&
			!strings.Contains(NormalizeName(p.EmployeeID), q) &&
			!strings.Contains(NormalizeName(p.Department), q)
	})
}
