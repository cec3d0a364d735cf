package compiler

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-openapi/inflect"
)

const (
	digitPrefix     = "field"
	keywordSuffix   = "Field"
	reservedSuffix  = "Model"
	unnamedClass    = "UnnamedClass"
	defaultAttrName = "defaultField"
)

var javaKeywords = map[string]struct{}{}

// reservedTypeNames would shadow java.lang types or the annotations the
// generated sources import with a wildcard.
var reservedTypeNames = map[string]struct{}{}

func init() {
	for _, kw := range strings.Fields(`abstract assert boolean break byte case catch char class const
		continue default do double else enum extends final finally float for goto if implements
		import instanceof int interface long native new package private protected public return
		short static strictfp super switch synchronized this throw throws transient try void
		volatile while true false null var record yield sealed permits`) {
		javaKeywords[kw] = struct{}{}
	}
	for _, name := range strings.Fields(`Object String Integer Long Double Float Boolean Class
		Override Entity Id Table Column List Optional LocalDateTime BigDecimal UUID Service
		Repository Transactional`) {
		reservedTypeNames[name] = struct{}{}
	}
}

// IsJavaKeyword reports whether s is a reserved Java word, ignoring case.
func IsJavaKeyword(s string) bool {
	_, ok := javaKeywords[strings.ToLower(s)]
	return ok
}

// SanitizeIdentifier makes s a legal Java identifier. Non-alphanumeric runes
// are dropped, a leading digit gets a word prefix and keywords get a suffix.
// Applying it twice returns the same result as applying it once.
func SanitizeIdentifier(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		return ""
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = digitPrefix + out
	}
	if IsJavaKeyword(out) {
		out += keywordSuffix
	}
	return out
}

// SanitizeClassName returns a capitalized Java type name for s. Every word
// is capitalized before separators are dropped, so "order item" and
// "order-item" both become OrderItem.
func SanitizeClassName(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r >= utf8.RuneSelf || !(unicode.IsLetter(r) || unicode.IsDigit(r))
	})
	for i, w := range words {
		words[i] = Capitalize(w)
	}
	out := Capitalize(SanitizeIdentifier(strings.Join(words, "")))
	if out == "" {
		return unnamedClass
	}
	if _, ok := reservedTypeNames[out]; ok {
		out += reservedSuffix
	}
	return out
}

// Capitalize upper-cases the first letter. Sanitized identifiers are ASCII.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	return inflect.Capitalize(s)
}

// LowerFirst lower-cases the first letter.
func LowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
