package compiler

import (
	"fmt"

	"umlexport/internal/diagram"
)

// resolveInheritance builds the hierarchy map from inheritance edges only.
// The first parent claimed for a child wins; later claims, self edges and
// cycles are reported as ambiguities and dropped.
func (a *assembly) resolveInheritance(edges []diagram.Edge) map[string]InheritanceRecord {
	records := make(map[string]InheritanceRecord)

	for _, edge := range edges {
		kind, ok := ParseRelationshipKind(edge.Kind)
		if !ok || kind != KindInheritance {
			continue
		}
		src, tgt, ok := a.endpoints(edge)
		if !ok {
			continue
		}

		var child, parent *ResolvedClass
		switch ClassifyEdge(kind, ParseMultiplicity(edge.SourceMultiplicity), ParseMultiplicity(edge.TargetMultiplicity)) {
		case ResolutionInheritSourceChild:
			child, parent = src, tgt
		case ResolutionInheritTargetChild:
			child, parent = tgt, src
		default:
			a.warn(Warning{
				Code:   WarnUnsupportedCombo,
				EdgeID: edge.ID,
				Message: fmt.Sprintf("inheritance %s(%s) -> %s(%s) does not say which class is the child; edge skipped",
					src.Name, displayMultiplicity(edge.SourceMultiplicity), tgt.Name, displayMultiplicity(edge.TargetMultiplicity)),
			})
			continue
		}

		if child.ID == parent.ID {
			a.warn(Warning{
				Code:      WarnInheritanceCycle,
				EdgeID:    edge.ID,
				ClassID:   child.ID,
				Message:   fmt.Sprintf("%s cannot inherit from itself; edge %s skipped", child.Name, edge.ID),
				Ambiguous: true,
			})
			continue
		}
		if existing := records[child.ID]; existing.IsChild() {
			a.warn(Warning{
				Code:    WarnMultipleParents,
				EdgeID:  edge.ID,
				ClassID: child.ID,
				Message: fmt.Sprintf("%s already extends %s; edge %s making it extend %s was skipped",
					child.Name, existing.ParentName, edge.ID, parent.Name),
				Ambiguous: true,
			})
			continue
		}
		if isAncestor(records, child.ID, parent.ID) {
			a.warn(Warning{
				Code:      WarnInheritanceCycle,
				EdgeID:    edge.ID,
				ClassID:   child.ID,
				Message:   fmt.Sprintf("%s extending %s would create an inheritance cycle; edge %s skipped", child.Name, parent.Name, edge.ID),
				Ambiguous: true,
			})
			continue
		}

		rec := records[child.ID]
		rec.ClassID = child.ID
		rec.ParentID = parent.ID
		rec.ParentName = parent.Name
		records[child.ID] = rec

		prec := records[parent.ID]
		prec.ClassID = parent.ID
		prec.Children = append(prec.Children, child.Name)
		records[parent.ID] = prec
	}
	return records
}

// isAncestor reports whether candidate appears on the parent chain of id
// (including id itself).
func isAncestor(records map[string]InheritanceRecord, candidate, id string) bool {
	for cur := id; cur != ""; cur = records[cur].ParentID {
		if cur == candidate {
			return true
		}
	}
	return false
}

// rootOf follows parent links to the top of the hierarchy.
func rootOf(records map[string]InheritanceRecord, id string) string {
	cur := id
	for records[cur].ParentID != "" {
		cur = records[cur].ParentID
	}
	return cur
}
