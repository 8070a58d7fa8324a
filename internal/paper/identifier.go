package paper

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Kind names the external system an identifier belongs to.
type Kind string

// Supported identifier kinds, in priority order.
const (
	KindDOI      Kind = "doi"
	KindDBLP     Kind = "dblp"
	KindArXiv    Kind = "arxiv"
	KindCorpusID Kind = "corpusid"
)

// Kinds lists all supported kinds. When a paper carries several external
// ids, the first kind in this list that is present becomes its primary id.
var Kinds = []Kind{KindDOI, KindDBLP, KindArXiv, KindCorpusID}

// Separator splits kind and value in the text form of an identifier.
const Separator = "::"

// ErrInvalidIdentifier is returned when an identifier cannot be parsed.
var ErrInvalidIdentifier = errors.New("invalid paper identifier")

var corpusIDPattern = regexp.MustCompile(`^[0-9]+$`)

// Identifier is a typed, normalized paper id. The zero value is invalid.
// Identifiers are comparable and used directly as map keys.
type Identifier struct {
	kind  Kind
	value string
}

// NewIdentifier normalizes value for the given kind and returns the identifier.
func NewIdentifier(kind Kind, value string) (Identifier, error) {
	if !kind.Valid() {
		return Identifier{}, fmt.Errorf("%w: unknown kind %q (supported: %s)", ErrInvalidIdentifier, kind, kindList())
	}

	normalized := Normalize(kind, value)
	if normalized == "" {
		return Identifier{}, fmt.Errorf("%w: empty %s value", ErrInvalidIdentifier, kind)
	}
	if kind == KindCorpusID && !corpusIDPattern.MatchString(normalized) {
		return Identifier{}, fmt.Errorf("%w: corpusid must be numeric, got %q", ErrInvalidIdentifier, value)
	}

	return Identifier{kind: kind, value: normalized}, nil
}

// MustIdentifier is like NewIdentifier but panics on error. Intended for tests
// and constants.
func MustIdentifier(kind Kind, value string) Identifier {
	id, err := NewIdentifier(kind, value)
	if err != nil {
		panic(err)
	}
	return id
}

// ParseIdentifier parses the text form "kind::value".
func ParseIdentifier(s string) (Identifier, error) {
	s = strings.TrimSpace(s)
	kind, value, found := strings.Cut(s, Separator)
	if !found {
		return Identifier{}, fmt.Errorf("%w: %q, kind and value must be separated by %q", ErrInvalidIdentifier, s, Separator)
	}
	return NewIdentifier(Kind(strings.ToLower(strings.TrimSpace(kind))), value)
}

// Normalize applies the per-kind normalization rules used for comparison.
func Normalize(kind Kind, value string) string {
	value = strings.TrimSpace(value)

	switch kind {
	case KindDOI:
		value = trimPrefixFold(value, "https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "doi.org/", "doi:")
		return strings.ToLower(strings.TrimSpace(value))
	case KindArXiv:
		value = trimPrefixFold(value, "https://arxiv.org/abs/", "http://arxiv.org/abs/", "arxiv:")
		return strings.ToLower(strings.TrimSpace(value))
	case KindDBLP:
		// dblp keys are case sensitive
		return strings.TrimSpace(trimPrefixFold(value, "dblp:"))
	case KindCorpusID:
		return strings.TrimSpace(trimPrefixFold(value, "corpusid:"))
	default:
		return value
	}
}

// trimPrefixFold strips the first matching prefix, ignoring case.
func trimPrefixFold(s string, prefixes ...string) string {
	for _, p := range prefixes {
		if len(s) >= len(p) && strings.EqualFold(s[:len(p)], p) {
			return s[len(p):]
		}
	}
	return s
}

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

func kindList() string {
	names := make([]string, len(Kinds))
	for i, k := range Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

// Kind returns the identifier kind.
func (id Identifier) Kind() Kind { return id.kind }

// Value returns the normalized value.
func (id Identifier) Value() string { return id.value }

// IsZero reports whether id is the zero (invalid) identifier.
func (id Identifier) IsZero() bool { return id.kind == "" }

// String returns the "kind::value" form.
func (id Identifier) String() string {
	if id.IsZero() {
		return ""
	}
	return string(id.kind) + Separator + id.value
}

// MarshalText implements encoding.TextMarshaler.
func (id Identifier) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty text decodes to
// the zero identifier.
func (id *Identifier) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*id = Identifier{}
		return nil
	}
	parsed, err := ParseIdentifier(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
