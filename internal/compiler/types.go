package compiler

import "strings"

// SemanticType is the closed attribute type vocabulary every declared type
// token is mapped onto.
type SemanticType string

const (
	TypeString   SemanticType = "String"
	TypeInteger  SemanticType = "Integer"
	TypeLong     SemanticType = "Long"
	TypeDouble   SemanticType = "Double"
	TypeFloat    SemanticType = "Float"
	TypeBoolean  SemanticType = "Boolean"
	TypeDateTime SemanticType = "DateTime"
	TypeDecimal  SemanticType = "Decimal"
	TypeUUID     SemanticType = "UUID"
)

// JavaType is the Java class name used for the type in generated sources.
func (t SemanticType) JavaType() string {
	switch t {
	case TypeDateTime:
		return "LocalDateTime"
	case TypeDecimal:
		return "BigDecimal"
	case "":
		return string(TypeString)
	default:
		return string(t)
	}
}

// IsNumeric reports whether values of the type are numbers.
func (t SemanticType) IsNumeric() bool {
	switch t {
	case TypeInteger, TypeLong, TypeDouble, TypeFloat, TypeDecimal:
		return true
	}
	return false
}

// Visibility is the UML visibility of an attribute.
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityPrivate   Visibility = "private"
	VisibilityProtected Visibility = "protected"
	VisibilityPackage   Visibility = "package"
)

// ParseVisibility accepts UML symbols (+ - # ~) and words. Anything else is private.
func ParseVisibility(s string) Visibility {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "+", "public":
		return VisibilityPublic
	case "#", "protected":
		return VisibilityProtected
	case "~", "package", "internal":
		return VisibilityPackage
	default:
		return VisibilityPrivate
	}
}

// RelationshipKind is the UML relationship type of an edge.
type RelationshipKind string

const (
	KindAssociation    RelationshipKind = "association"
	KindAggregation    RelationshipKind = "aggregation"
	KindComposition    RelationshipKind = "composition"
	KindInheritance    RelationshipKind = "inheritance"
	KindDependency     RelationshipKind = "dependency"
	KindImplementation RelationshipKind = "implementation"
)

// ParseRelationshipKind maps an edge type string onto the closed kind set.
func ParseRelationshipKind(s string) (RelationshipKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "association", "assoc":
		return KindAssociation, true
	case "aggregation":
		return KindAggregation, true
	case "composition":
		return KindComposition, true
	case "inheritance", "generalization", "extends":
		return KindInheritance, true
	case "dependency":
		return KindDependency, true
	case "implementation", "realization", "implements":
		return KindImplementation, true
	}
	return "", false
}

// Multiplicity is the collapsed cardinality of one edge end.
type Multiplicity int

const (
	MultiplicityUnknown Multiplicity = iota
	MultiplicityOne
	MultiplicityMany
)

func (m Multiplicity) String() string {
	switch m {
	case MultiplicityOne:
		return "1"
	case MultiplicityMany:
		return "*"
	default:
		return "?"
	}
}

// ParseMultiplicity collapses UML range notation to one or many.
func ParseMultiplicity(s string) Multiplicity {
	switch strings.ToLower(strings.ReplaceAll(s, " ", "")) {
	case "1", "0..1", "1..1":
		return MultiplicityOne
	case "*", "n", "many", "0..*", "1..*", "0..n", "1..n":
		return MultiplicityMany
	}
	return MultiplicityUnknown
}

// Annotation is the JPA association annotation placed on the owning side.
type Annotation string

const (
	AnnotationManyToOne Annotation = "ManyToOne"
	AnnotationOneToOne  Annotation = "OneToOne"
)
