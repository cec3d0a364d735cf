package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"umlexport/internal/diagram"
)

// Options controls policy decisions that are fixed per deployment, never
// inferred per request.
type Options struct {
	// ProjectName names the generated project; DefaultProjectName when empty.
	ProjectName string
	// UnknownTypes resolves type tokens missing from the alias table.
	// ImplicitReferencePolicy when nil.
	UnknownTypes UnknownTypePolicy
	// FailOnAmbiguity turns ambiguous warnings into a ResolutionAmbiguity error.
	FailOnAmbiguity bool
}

type assembly struct {
	opts     Options
	elements map[string]diagram.Element
	byID     map[string]*ResolvedClass
	classes  []*ResolvedClass
	warnings []Warning
	failure  *ResolutionAmbiguity
}

func (a *assembly) warn(w Warning) {
	a.warnings = append(a.warnings, w)
	if w.Ambiguous && a.opts.FailOnAmbiguity && a.failure == nil {
		a.failure = &ResolutionAmbiguity{Warning: w}
	}
}

// Assemble compiles a decoded diagram into a ResolvedModel. It has no side
// effects and never modifies doc.
func Assemble(doc *diagram.Document, opts Options) (*ResolvedModel, error) {
	if doc == nil || len(doc.Elements) == 0 {
		return nil, NewInputValidationError("diagram has no elements", nil)
	}
	classElements := doc.ClassElements()
	if len(classElements) == 0 {
		return nil, NewInputValidationError("diagram has no class elements", nil)
	}
	if opts.UnknownTypes == nil {
		opts.UnknownTypes = ImplicitReferencePolicy
	}

	a := &assembly{
		opts:     opts,
		elements: make(map[string]diagram.Element, len(doc.Elements)),
		byID:     make(map[string]*ResolvedClass, len(classElements)),
	}
	for _, el := range doc.Elements {
		if _, seen := a.elements[el.ID]; !seen {
			a.elements[el.ID] = el
		}
	}

	if err := a.normalizeClasses(classElements); err != nil {
		return nil, err
	}
	inheritance := a.resolveInheritance(doc.Edges)
	a.resolveIdentities(inheritance)
	relationships := a.resolveRelationships(doc.Edges)
	a.composeAttributes(relationships)
	a.checkCompositeReferences(relationships)

	if a.failure != nil {
		return nil, a.failure
	}

	name := strings.TrimSpace(opts.ProjectName)
	if name == "" {
		name = DefaultProjectName
	}
	return &ResolvedModel{
		ProjectName:   name,
		Classes:       a.classes,
		Relationships: relationships,
		Inheritance:   inheritance,
		Edges:         append([]diagram.Edge(nil), doc.Edges...),
		Warnings:      a.warnings,
	}, nil
}

func (a *assembly) normalizeClasses(elements []diagram.Element) error {
	used := make(map[string]bool, len(elements))

	for _, el := range elements {
		if _, dup := a.byID[el.ID]; dup {
			a.warn(Warning{
				Code:      WarnDuplicateElement,
				ClassID:   el.ID,
				Message:   fmt.Sprintf("class %q reuses element id %q; only the first class with that id is generated", el.Name, el.ID),
				Ambiguous: true,
			})
			continue
		}

		base := SanitizeClassName(el.Name)
		name := base
		for n := 2; used[strings.ToLower(name)]; n++ {
			name = base + strconv.Itoa(n)
		}
		used[strings.ToLower(name)] = true
		if name != base {
			a.warn(Warning{
				Code:    WarnDuplicateClassName,
				ClassID: el.ID,
				Message: fmt.Sprintf("class name %q is already taken; generated as %s", el.Name, name),
			})
		}

		declared := make([]Attribute, 0, len(el.Attributes))
		seen := make(map[string]bool, len(el.Attributes))
		hasKey := false
		for i, raw := range el.Attributes {
			attr, err := NormalizeAttribute(raw, a.opts.UnknownTypes)
			if err != nil {
				return NewInputValidationError(fmt.Sprintf("class %s, attribute %d", name, i+1), err)
			}
			if seen[attr.Name] {
				a.warn(Warning{
					Code:    WarnDuplicateAttribute,
					ClassID: el.ID,
					Message: fmt.Sprintf("%s declares %s more than once; later declarations were dropped", name, attr.Name),
				})
				continue
			}
			seen[attr.Name] = true

			if attr.IsPrimaryKey {
				if hasKey {
					attr.IsPrimaryKey = false
					a.warn(Warning{
						Code:    WarnMultiplePrimaryKeys,
						ClassID: el.ID,
						Message: fmt.Sprintf("%s marks more than one primary key; %s was demoted to a regular field", name, attr.Name),
					})
				}
				hasKey = true
			}
			declared = append(declared, attr)
		}

		c := &ResolvedClass{ID: el.ID, SourceName: el.Name, Name: name, Declared: declared}
		a.byID[el.ID] = c
		a.classes = append(a.classes, c)
	}
	return nil
}

// resolveIdentities sets every class's primary key. Children take the key
// of their hierarchy root instead of declaring their own.
func (a *assembly) resolveIdentities(records map[string]InheritanceRecord) {
	own := make(map[string]Identity, len(a.classes))
	for _, c := range a.classes {
		if pk, ok := declaredPrimaryKey(c.Declared); ok {
			own[c.ID] = Identity{PrimaryKey: pk}
		} else {
			own[c.ID] = Identity{PrimaryKey: syntheticKey(c.Declared), Synthetic: true}
		}
	}

	for _, c := range a.classes {
		rec := records[c.ID]
		rec.ClassID = c.ID
		c.Inheritance = rec

		if !rec.IsChild() {
			c.Identity = own[c.ID]
			continue
		}
		root := own[rootOf(records, c.ID)]
		c.Identity = Identity{PrimaryKey: root.PrimaryKey, Synthetic: root.Synthetic, Inherited: true}
		if pk, declared := declaredPrimaryKey(c.Declared); declared {
			a.warn(Warning{
				Code:    WarnChildPrimaryKey,
				ClassID: c.ID,
				Message: fmt.Sprintf("%s extends %s; its own primary key %s is replaced by the inherited %s",
					c.Name, rec.ParentName, pk.Name, root.PrimaryKey.Name),
			})
		}
	}
}

// composeAttributes builds resolved = declared + injected for every class
// and derives composite identities. Declared slices are left untouched.
func (a *assembly) composeAttributes(relationships map[string][]ResolvedRelationship) {
	for _, c := range a.classes {
		rels := relationships[c.ID]
		c.Relationships = rels

		attrs := make([]Attribute, 0, len(c.Declared)+len(rels)+1)
		if c.Identity.Synthetic && !c.Identity.Inherited {
			attrs = append(attrs, c.Identity.PrimaryKey)
		}
		for _, d := range c.Declared {
			if c.Identity.Inherited && d.IsPrimaryKey {
				continue
			}
			attrs = append(attrs, d)
		}

		var keyMembers []Attribute
		for _, rel := range rels {
			fk := Attribute{
				Name:         rel.ForeignKeyName,
				Type:         rel.ForeignKeyType,
				Visibility:   VisibilityPrivate,
				IsForeignKey: true,
			}
			if i := indexOfAttribute(attrs, rel.ForeignKeyName); i >= 0 {
				if attrs[i].Type != rel.ForeignKeyType {
					a.warn(Warning{
						Code:    WarnForeignKeyType,
						EdgeID:  rel.EdgeID,
						ClassID: c.ID,
						Message: fmt.Sprintf("%s.%s is declared %s; it takes the type of %s.%s (%s)",
							c.Name, attrs[i].Name, attrs[i].Type, rel.ReferencedClassName, rel.ReferencedKeyName, rel.ForeignKeyType),
					})
					attrs[i].Type = rel.ForeignKeyType
					if attrs[i].IsPrimaryKey {
						c.Identity.PrimaryKey.Type = rel.ForeignKeyType
					}
				}
				// A primary key that is also the join column stays a key.
				if !attrs[i].IsPrimaryKey {
					attrs[i].IsForeignKey = true
				}
				fk = attrs[i]
			} else {
				attrs = append(attrs, fk)
			}
			if rel.IsCompositeKeyMember && fk.Name != c.Identity.PrimaryKey.Name {
				keyMembers = append(keyMembers, fk)
			}
		}
		c.Attributes = attrs

		if len(keyMembers) == 0 {
			continue
		}
		fields := make([]Attribute, 0, len(keyMembers)+1)
		fields = append(fields, c.Identity.PrimaryKey)
		fields = append(fields, keyMembers...)
		c.Identity.Composite = &CompositeKey{ClassName: c.Name + "Id", Fields: fields}

		if c.Identity.Inherited {
			a.warn(Warning{
				Code:    WarnCompositeChild,
				ClassID: c.ID,
				Message: fmt.Sprintf("%s inherits its key from %s and is also a composition part. %s lists the inherited %s, "+
					"but %s declares no @Id %s field, so the generated application will not start until the "+
					"inheritance or the composition edge is removed",
					c.Name, c.Inheritance.ParentName, c.Identity.Composite.ClassName, c.Identity.PrimaryKey.Name,
					c.Name, c.Identity.PrimaryKey.Name),
			})
		}
	}
}

// checkCompositeReferences flags foreign keys that point at a class whose
// identity became composite; only the first key column is joined.
func (a *assembly) checkCompositeReferences(relationships map[string][]ResolvedRelationship) {
	for _, c := range a.classes {
		for _, rel := range relationships[c.ID] {
			ref := a.byID[rel.ReferencedClassID]
			if ref == nil || !ref.Identity.IsComposite() {
				continue
			}
			a.warn(Warning{
				Code:    WarnCompositeReference,
				EdgeID:  rel.EdgeID,
				ClassID: c.ID,
				Message: fmt.Sprintf("%s.%s references %s, whose key is composite; only %s is joined",
					c.Name, rel.ForeignKeyName, ref.Name, rel.ReferencedKeyName),
			})
		}
	}
}

func declaredPrimaryKey(attrs []Attribute) (Attribute, bool) {
	for _, attr := range attrs {
		if attr.IsPrimaryKey && !attr.IsForeignKey {
			return attr, true
		}
	}
	return Attribute{}, false
}

// syntheticKey is the implicit id: Long key. It is renamed when a declared,
// non-key attribute already uses the name id.
func syntheticKey(declared []Attribute) Attribute {
	name := "id"
	if indexOfAttribute(declared, name) >= 0 {
		name = "generatedId"
	}
	return Attribute{Name: name, Type: TypeLong, Visibility: VisibilityPrivate, IsPrimaryKey: true}
}

func indexOfAttribute(attrs []Attribute, name string) int {
	for i, attr := range attrs {
		if attr.Name == name {
			return i
		}
	}
	return -1
}
