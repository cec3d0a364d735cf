package compiler

import (
	"fmt"

	"umlexport/internal/diagram"
)

// Resolution is the outcome of classifying one edge by kind and
// multiplicities. Every (kind, source, target) triple maps to exactly one
// value; combinations without a rule are ResolutionUnsupported.
type Resolution int

const (
	ResolutionUnsupported Resolution = iota
	ResolutionLogicalOnly
	ResolutionSourceOwnsManyToOne
	ResolutionTargetOwnsManyToOne
	ResolutionTargetOwnsOneToOne
	ResolutionInheritSourceChild
	ResolutionInheritTargetChild
)

func (r Resolution) String() string {
	switch r {
	case ResolutionLogicalOnly:
		return "logical-only"
	case ResolutionSourceOwnsManyToOne:
		return "source-owns-many-to-one"
	case ResolutionTargetOwnsManyToOne:
		return "target-owns-many-to-one"
	case ResolutionTargetOwnsOneToOne:
		return "target-owns-one-to-one"
	case ResolutionInheritSourceChild:
		return "inherit-source-child"
	case ResolutionInheritTargetChild:
		return "inherit-target-child"
	default:
		return "unsupported"
	}
}

// ClassifyEdge applies the ownership table.
//
//	association  (*,1) source owns ManyToOne   (1,*) target owns ManyToOne   (1,1) target owns OneToOne
//	aggregation  (*,1) source owns ManyToOne   (1,*) target owns ManyToOne
//	composition  (*,1) source owns ManyToOne   (1,*) target owns ManyToOne   (composite key)
//	inheritance  (*,1) source is the child     (1,*) target is the child
//	dependency, implementation: logical only, no foreign key
func ClassifyEdge(kind RelationshipKind, src, tgt Multiplicity) Resolution {
	manyToOne := src == MultiplicityMany && tgt == MultiplicityOne
	oneToMany := src == MultiplicityOne && tgt == MultiplicityMany
	oneToOne := src == MultiplicityOne && tgt == MultiplicityOne

	switch kind {
	case KindDependency, KindImplementation:
		return ResolutionLogicalOnly
	case KindInheritance:
		switch {
		case manyToOne:
			return ResolutionInheritSourceChild
		case oneToMany:
			return ResolutionInheritTargetChild
		}
	case KindAssociation:
		switch {
		case manyToOne:
			return ResolutionSourceOwnsManyToOne
		case oneToMany:
			return ResolutionTargetOwnsManyToOne
		case oneToOne:
			return ResolutionTargetOwnsOneToOne
		}
	case KindAggregation, KindComposition:
		switch {
		case manyToOne:
			return ResolutionSourceOwnsManyToOne
		case oneToMany:
			return ResolutionTargetOwnsManyToOne
		}
	}
	return ResolutionUnsupported
}

// ForeignKeyName is lowerFirst(referenced class) + Capitalize(referenced key).
func ForeignKeyName(referencedClass, referencedKey string) string {
	return LowerFirst(referencedClass) + Capitalize(referencedKey)
}

// resolveRelationships turns every non-inheritance edge into at most one
// foreign key on its owning class, in edge order. Primary keys must already
// be resolved because the foreign key copies the referenced key's type.
func (a *assembly) resolveRelationships(edges []diagram.Edge) map[string][]ResolvedRelationship {
	out := make(map[string][]ResolvedRelationship)
	taken := make(map[string]map[string]string)

	for _, edge := range edges {
		kind, ok := ParseRelationshipKind(edge.Kind)
		if !ok {
			a.warn(Warning{
				Code:    WarnUnknownKind,
				EdgeID:  edge.ID,
				Message: fmt.Sprintf("edge %s has unknown relationship type %q and was skipped", edge.ID, edge.Kind),
			})
			continue
		}
		if kind == KindInheritance {
			continue
		}

		src, tgt, ok := a.endpoints(edge)
		if !ok {
			continue
		}

		var owner, ref *ResolvedClass
		var annotation Annotation
		switch res := ClassifyEdge(kind, ParseMultiplicity(edge.SourceMultiplicity), ParseMultiplicity(edge.TargetMultiplicity)); res {
		case ResolutionLogicalOnly:
			continue
		case ResolutionUnsupported, ResolutionInheritSourceChild, ResolutionInheritTargetChild:
			a.warn(Warning{
				Code:   WarnUnsupportedCombo,
				EdgeID: edge.ID,
				Message: fmt.Sprintf("%s %s(%s) -> %s(%s) has no ownership rule; no foreign key was generated",
					kind, src.Name, displayMultiplicity(edge.SourceMultiplicity), tgt.Name, displayMultiplicity(edge.TargetMultiplicity)),
			})
			continue
		case ResolutionSourceOwnsManyToOne:
			owner, ref, annotation = src, tgt, AnnotationManyToOne
		case ResolutionTargetOwnsManyToOne:
			owner, ref, annotation = tgt, src, AnnotationManyToOne
		case ResolutionTargetOwnsOneToOne:
			owner, ref, annotation = tgt, src, AnnotationOneToOne
		}

		key := ref.Identity.PrimaryKey
		fkName := ForeignKeyName(ref.Name, key.Name)
		if taken[owner.ID] == nil {
			taken[owner.ID] = make(map[string]string)
		}
		if prev, dup := taken[owner.ID][fkName]; dup {
			a.warn(Warning{
				Code:    WarnDuplicateForeignKey,
				EdgeID:  edge.ID,
				ClassID: owner.ID,
				Message: fmt.Sprintf("%s already has foreign key %s from edge %s; edge %s was skipped", owner.Name, fkName, prev, edge.ID),
			})
			continue
		}
		taken[owner.ID][fkName] = edge.ID

		composition := kind == KindComposition
		out[owner.ID] = append(out[owner.ID], ResolvedRelationship{
			EdgeID:               edge.ID,
			Kind:                 kind,
			OwningClassID:        owner.ID,
			OwningClassName:      owner.Name,
			ReferencedClassID:    ref.ID,
			ReferencedClassName:  ref.Name,
			ReferencedKeyName:    key.Name,
			Annotation:           annotation,
			ForeignKeyName:       fkName,
			ForeignKeyType:       key.Type,
			FieldName:            relationFieldName(owner, ref.Name, fkName),
			IsComposition:        composition,
			IsCompositeKeyMember: composition,
			Label:                edge.Label,
		})
	}
	return out
}

// relationFieldName names the object reference that sits next to the
// foreign-key column. It must not clash with a declared attribute.
func relationFieldName(owner *ResolvedClass, refName, fkName string) string {
	name := LowerFirst(refName)
	for _, attr := range owner.Declared {
		if attr.Name == name && name != fkName {
			return name + "Ref"
		}
	}
	return name
}

// endpoints resolves both ends of an edge to compiled classes, warning when
// an end is missing or is not a class.
func (a *assembly) endpoints(edge diagram.Edge) (*ResolvedClass, *ResolvedClass, bool) {
	src, okSrc := a.endpoint(edge, edge.SourceID)
	tgt, okTgt := a.endpoint(edge, edge.TargetID)
	return src, tgt, okSrc && okTgt
}

func (a *assembly) endpoint(edge diagram.Edge, id string) (*ResolvedClass, bool) {
	if c, ok := a.byID[id]; ok {
		return c, true
	}
	if el, ok := a.elements[id]; ok {
		a.warn(Warning{
			Code:    WarnNonClassEndpoint,
			EdgeID:  edge.ID,
			Message: fmt.Sprintf("edge %s connects %q of type %q, which is not a class; edge skipped", edge.ID, el.Name, el.Kind),
		})
		return nil, false
	}
	a.warn(Warning{
		Code:      WarnUnknownElement,
		EdgeID:    edge.ID,
		Message:   fmt.Sprintf("edge %s references unknown element %q; edge skipped", edge.ID, id),
		Ambiguous: true,
	})
	return nil, false
}

func displayMultiplicity(s string) string {
	if s == "" {
		return "?"
	}
	return s
}
