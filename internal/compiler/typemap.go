package compiler

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var typeAliases = map[string]SemanticType{
	"string":        TypeString,
	"str":           TypeString,
	"text":          TypeString,
	"char":          TypeString,
	"character":     TypeString,
	"varchar":       TypeString,
	"int":           TypeInteger,
	"integer":       TypeInteger,
	"short":         TypeInteger,
	"long":          TypeLong,
	"bigint":        TypeLong,
	"double":        TypeDouble,
	"float":         TypeFloat,
	"bool":          TypeBoolean,
	"boolean":       TypeBoolean,
	"date":          TypeDateTime,
	"datetime":      TypeDateTime,
	"localdate":     TypeDateTime,
	"localdatetime": TypeDateTime,
	"timestamp":     TypeDateTime,
	"instant":       TypeDateTime,
	"decimal":       TypeDecimal,
	"bigdecimal":    TypeDecimal,
	"numeric":       TypeDecimal,
	"money":         TypeDecimal,
	"uuid":          TypeUUID,
	"guid":          TypeUUID,
}

// UnknownTypePolicy decides the semantic type of a token missing from the
// alias table.
type UnknownTypePolicy func(token string) (SemanticType, error)

// ImplicitReferencePolicy treats an unknown capitalized token as a reference
// to another class and gives it the foreign-key type Long. Lower-case
// unknowns fall back to String.
func ImplicitReferencePolicy(token string) (SemanticType, error) {
	if r, _ := utf8.DecodeRuneInString(token); unicode.IsUpper(r) {
		return TypeLong, nil
	}
	return TypeString, nil
}

// StrictTypePolicy rejects every token missing from the alias table.
func StrictTypePolicy(token string) (SemanticType, error) {
	return "", &UnknownTypeError{Token: token}
}

// MapType resolves a free-form type token. An empty token is String.
func MapType(token string, policy UnknownTypePolicy) (SemanticType, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return TypeString, nil
	}
	if t, ok := typeAliases[strings.ToLower(token)]; ok {
		return t, nil
	}
	if policy == nil {
		policy = ImplicitReferencePolicy
	}
	return policy(token)
}
