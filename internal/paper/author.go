package paper

import "strings"

// Common name suffixes to keep with the last name.
var nameSuffixes = map[string]bool{
	"jr":   true,
	"jr.":  true,
	"sr":   true,
	"sr.":  true,
	"ii":   true,
	"iii":  true,
	"iv":   true,
	"v":    true,
	"phd":  true,
	"ph.d": true,
	"md":   true,
	"m.d":  true,
}

// ParseAuthor splits a full name as reported by a database into first and
// last name. It returns false for a blank name.
//
// Known limitations:
// - Multi-part surnames (von Neumann, van der Waals) split incorrectly
// - Non-Western name formats may not be handled correctly
// - Middle names are included in the first name
func ParseAuthor(name string) (Author, bool) {
	parts := strings.Fields(name)
	switch {
	case len(parts) == 0:
		return Author{}, false
	case len(parts) == 1:
		// Single name (e.g., "Madonna")
		return Author{Last: parts[0]}, true
	}

	n := len(parts)
	if nameSuffixes[strings.ToLower(parts[n-1])] && n > 2 {
		return Author{
			First: strings.Join(parts[:n-2], " "),
			Last:  parts[n-2] + " " + parts[n-1],
		}, true
	}
	return Author{
		First: strings.Join(parts[:n-1], " "),
		Last:  parts[n-1],
	}, true
}
