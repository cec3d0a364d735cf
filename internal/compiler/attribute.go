package compiler

import (
	"regexp"
	"strings"

	"umlexport/internal/diagram"
)

// Attribute is the canonical attribute descriptor shared by every later stage.
type Attribute struct {
	Name         string       `json:"name"`
	Type         SemanticType `json:"type"`
	Visibility   Visibility   `json:"visibility"`
	IsPrimaryKey bool         `json:"isPrimaryKey"`
	IsForeignKey bool         `json:"isForeignKey"`
	IsStatic     bool         `json:"isStatic"`
}

// JavaType is the Java type of the attribute.
func (a Attribute) JavaType() string {
	return a.Type.JavaType()
}

// shorthand patterns, tried in order. Patterns with a visibility symbol
// require it; without one the attribute is private.
var shorthandPatterns = []struct {
	re                       *regexp.Regexp
	visIdx, nameIdx, typeIdx int
}{
	{regexp.MustCompile(`^([+\-#~])\s*(\w+)\s*:\s*(\w+)$`), 1, 2, 3},
	{regexp.MustCompile(`^([+\-#~])\s*(\w+)\s+(\w+)$`), 1, 3, 2},
	{regexp.MustCompile(`^(\w+)\s*:\s*(\w+)$`), 0, 1, 2},
	{regexp.MustCompile(`^(\w+)\s+(\w+)$`), 0, 2, 1},
	{regexp.MustCompile(`^([+\-#~])?\s*(\w+)$`), 1, 2, 0},
}

// DefaultAttribute is the fallback for empty or unparseable declarations.
func DefaultAttribute() Attribute {
	return Attribute{Name: defaultAttrName, Type: TypeString, Visibility: VisibilityPrivate}
}

// NormalizeAttribute canonicalizes one raw declaration. Unparseable input is
// not an error; the only error comes from the unknown-type policy.
func NormalizeAttribute(raw diagram.RawAttribute, policy UnknownTypePolicy) (Attribute, error) {
	if raw.Structured != nil {
		return normalizeRecord(*raw.Structured, policy)
	}
	return normalizeShorthand(raw.Shorthand, policy)
}

func normalizeShorthand(s string, policy UnknownTypePolicy) (Attribute, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultAttribute(), nil
	}

	for _, p := range shorthandPatterns {
		m := p.re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		var vis, name, typ string
		if p.visIdx > 0 {
			vis = m[p.visIdx]
		}
		name = m[p.nameIdx]
		if p.typeIdx > 0 {
			typ = m[p.typeIdx]
		}
		return buildAttribute(name, typ, vis, nil, false, policy)
	}
	return DefaultAttribute(), nil
}

func normalizeRecord(rec diagram.AttributeRecord, policy UnknownTypePolicy) (Attribute, error) {
	return buildAttribute(rec.Name, rec.Type, rec.Visibility, rec.IsPrimaryKey, rec.IsStatic, policy)
}

func buildAttribute(name, typ, vis string, pk *bool, static bool, policy UnknownTypePolicy) (Attribute, error) {
	clean := SanitizeIdentifier(name)
	if clean == "" {
		clean = defaultAttrName
	}
	semantic, err := MapType(typ, policy)
	if err != nil {
		return Attribute{}, err
	}

	attr := Attribute{
		Name:       clean,
		Type:       semantic,
		Visibility: ParseVisibility(vis),
		IsStatic:   static,
	}
	if pk != nil {
		attr.IsPrimaryKey = *pk
	} else {
		attr.IsPrimaryKey = strings.EqualFold(clean, "id")
	}
	return attr, nil
}
