package compiler

import (
	"strings"
	"unicode"

	"umlexport/internal/diagram"
)

// DefaultProjectName is used when a request carries no title.
const DefaultProjectName = "spring-boot-project"

// ProjectName derives the archive and artifact name from a diagram title.
// Whitespace runs become dashes and anything unsafe in a file name is dropped.
func ProjectName(title string) string {
	title = strings.ToLower(strings.TrimSpace(title))
	if title == "" {
		return DefaultProjectName
	}
	var b strings.Builder
	dash := false
	for _, r := range title {
		switch {
		case unicode.IsSpace(r):
			if !dash {
				b.WriteByte('-')
				dash = true
			}
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '-', r == '_', r == '.':
			b.WriteRune(r)
			dash = false
		}
	}
	slug := strings.Trim(b.String(), "-.")
	if slug == "" {
		return DefaultProjectName
	}
	return "spring-boot-" + slug
}

// CompositeKey describes the generated <Class>Id identifier class.
type CompositeKey struct {
	ClassName string      `json:"className"`
	Fields    []Attribute `json:"fields"`
}

// Identity is the resolved primary identity of a class.
//
// PrimaryKey is always set: declared, synthetic, or inherited from the root
// of the class's hierarchy. Inherited identities are not declared on the
// class itself.
type Identity struct {
	PrimaryKey Attribute     `json:"primaryKey"`
	Synthetic  bool          `json:"synthetic"`
	Inherited  bool          `json:"inherited"`
	Composite  *CompositeKey `json:"composite,omitempty"`
}

// IsComposite reports whether the identity spans more than one field.
func (id Identity) IsComposite() bool {
	return id.Composite != nil
}

// JavaType is the repository ID type for the class.
func (id Identity) JavaType() string {
	if id.Composite != nil {
		return id.Composite.ClassName
	}
	return id.PrimaryKey.JavaType()
}

// Fields lists the identity fields in key order.
func (id Identity) Fields() []Attribute {
	if id.Composite != nil {
		return id.Composite.Fields
	}
	return []Attribute{id.PrimaryKey}
}

// HasField reports whether name is part of the identity.
func (id Identity) HasField(name string) bool {
	for _, f := range id.Fields() {
		if f.Name == name {
			return true
		}
	}
	return false
}

// ResolvedRelationship is one foreign key placed on its owning class.
type ResolvedRelationship struct {
	EdgeID               string           `json:"edgeId"`
	Kind                 RelationshipKind `json:"kind"`
	OwningClassID        string           `json:"owningClassId"`
	OwningClassName      string           `json:"owningClassName"`
	ReferencedClassID    string           `json:"referencedClassId"`
	ReferencedClassName  string           `json:"referencedClassName"`
	ReferencedKeyName    string           `json:"referencedKeyName"`
	Annotation           Annotation       `json:"annotation"`
	ForeignKeyName       string           `json:"foreignKeyName"`
	ForeignKeyType       SemanticType     `json:"foreignKeyType"`
	FieldName            string           `json:"fieldName"`
	IsComposition        bool             `json:"isComposition"`
	IsCompositeKeyMember bool             `json:"isCompositeKeyMember"`
	Label                string           `json:"label,omitempty"`
}

// InheritanceRecord places one class in its hierarchy. A record can carry a
// parent, children, or both for intermediate classes.
type InheritanceRecord struct {
	ClassID    string   `json:"classId"`
	ParentID   string   `json:"parentId,omitempty"`
	ParentName string   `json:"parentName,omitempty"`
	Children   []string `json:"children,omitempty"`
}

// IsChild reports whether the class extends another class.
func (r InheritanceRecord) IsChild() bool {
	return r.ParentID != ""
}

// IsParent reports whether other classes extend this one.
func (r InheritanceRecord) IsParent() bool {
	return len(r.Children) > 0
}

// ResolvedClass is one class after assembly. Declared is the normalizer
// output; Attributes is declared plus injected foreign keys.
type ResolvedClass struct {
	ID            string                 `json:"id"`
	SourceName    string                 `json:"sourceName"`
	Name          string                 `json:"name"`
	Declared      []Attribute            `json:"declared"`
	Attributes    []Attribute            `json:"attributes"`
	Relationships []ResolvedRelationship `json:"relationships"`
	Identity      Identity               `json:"identity"`
	Inheritance   InheritanceRecord      `json:"inheritance"`
}

// IsHierarchyRoot reports whether the class has children and no parent.
func (c *ResolvedClass) IsHierarchyRoot() bool {
	return c.Inheritance.IsParent() && !c.Inheritance.IsChild()
}

// ForeignKeys returns the attributes that hold a foreign key.
func (c *ResolvedClass) ForeignKeys() []Attribute {
	var out []Attribute
	for _, a := range c.Attributes {
		if a.IsForeignKey {
			out = append(out, a)
		}
	}
	return out
}

// Attribute looks up a resolved attribute by name.
func (c *ResolvedClass) Attribute(name string) (Attribute, bool) {
	for _, a := range c.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// ResolvedModel is the only input of the emitter.
type ResolvedModel struct {
	ProjectName   string                            `json:"projectName"`
	Classes       []*ResolvedClass                  `json:"classes"`
	Relationships map[string][]ResolvedRelationship `json:"relationships"`
	Inheritance   map[string]InheritanceRecord      `json:"inheritance"`
	Edges         []diagram.Edge                    `json:"edges"`
	Warnings      []Warning                         `json:"warnings"`
}

// Class looks up a class by element id.
func (m *ResolvedModel) Class(id string) (*ResolvedClass, bool) {
	for _, c := range m.Classes {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// ClassName returns the generated name for an element id, or the id itself
// when the element is not a compiled class.
func (m *ResolvedModel) ClassName(id string) string {
	if c, ok := m.Class(id); ok {
		return c.Name
	}
	return id
}

// RelationshipCount is the number of foreign keys across all classes.
func (m *ResolvedModel) RelationshipCount() int {
	n := 0
	for _, rels := range m.Relationships {
		n += len(rels)
	}
	return n
}
