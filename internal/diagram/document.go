package diagram

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel errors returned by Decode. Callers map them to validation failures.
var (
	ErrEmptyDocument   = errors.New("diagram document is empty")
	ErrNotAnObject     = errors.New("diagram document must be a JSON object")
	ErrMissingElements = errors.New("diagram document has no elements")
)

// Document is a decoded diagram: class elements plus the edges between them.
type Document struct {
	Elements []Element
	Edges    []Edge
}

// Element is one node of the diagram as stored by the editor.
type Element struct {
	ID         string
	Name       string
	Kind       string
	Attributes []RawAttribute
}

// IsClass reports whether the element takes part in code generation.
func (e Element) IsClass() bool {
	return strings.EqualFold(strings.TrimSpace(e.Kind), "class")
}

// RawAttribute holds either a shorthand declaration ("+ name: String") or a
// structured record. Exactly one of the two is meaningful.
type RawAttribute struct {
	Shorthand  string
	Structured *AttributeRecord
}

// AttributeRecord is the structured attribute form. IsPrimaryKey is a pointer
// so an explicit false can be told apart from an absent flag.
type AttributeRecord struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Visibility   string `json:"visibility"`
	IsPrimaryKey *bool  `json:"isPrimaryKey"`
	IsStatic     bool   `json:"isStatic"`
}

// Edge is a typed connection between two elements.
type Edge struct {
	ID                 string
	Kind               string
	SourceID           string
	TargetID           string
	SourceMultiplicity string
	TargetMultiplicity string
	Label              string
}

// ClassElements returns the elements whose kind is "class", in document order.
func (d *Document) ClassElements() []Element {
	out := make([]Element, 0, len(d.Elements))
	for _, el := range d.Elements {
		if el.IsClass() {
			out = append(out, el)
		}
	}
	return out
}

// Decode parses a stored or inline diagram payload. Elements and edges may be
// JSON arrays or keyed objects; keyed objects keep their document key order.
func Decode(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrEmptyDocument
	}
	if trimmed[0] != '{' {
		return nil, ErrNotAnObject
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &top); err != nil {
		return nil, fmt.Errorf("malformed diagram document: %w", err)
	}

	rawElements, ok := top["elements"]
	if !ok || isNull(rawElements) {
		return nil, ErrMissingElements
	}
	elementItems, err := coerceSequence(rawElements)
	if err != nil {
		return nil, fmt.Errorf("elements: %w", err)
	}

	doc := &Document{Elements: make([]Element, 0, len(elementItems))}
	for i, item := range elementItems {
		el, err := decodeElement(item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		if el.ID == "" {
			el.ID = "element-" + strconv.Itoa(i)
		}
		doc.Elements = append(doc.Elements, el)
	}

	rawEdges, ok := top["connections"]
	if !ok || isNull(rawEdges) {
		rawEdges = top["relationships"]
	}
	if len(rawEdges) > 0 && !isNull(rawEdges) {
		edgeItems, err := coerceSequence(rawEdges)
		if err != nil {
			return nil, fmt.Errorf("connections: %w", err)
		}
		doc.Edges = make([]Edge, 0, len(edgeItems))
		for i, item := range edgeItems {
			edge, err := decodeEdge(item)
			if err != nil {
				return nil, fmt.Errorf("connection %d: %w", i, err)
			}
			if edge.ID == "" {
				edge.ID = "edge-" + strconv.Itoa(i)
			}
			doc.Edges = append(doc.Edges, edge)
		}
	}

	return doc, nil
}

type elementWire struct {
	ID         flexString      `json:"id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Kind       string          `json:"kind"`
	Attributes json.RawMessage `json:"attributes"`
}

func decodeElement(raw json.RawMessage) (Element, error) {
	var w elementWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return Element{}, err
	}
	el := Element{
		ID:   strings.TrimSpace(string(w.ID)),
		Name: w.Name,
		Kind: firstNonEmpty(w.Type, w.Kind),
	}
	if len(w.Attributes) == 0 || isNull(w.Attributes) {
		return el, nil
	}

	items, err := coerceSequence(w.Attributes)
	if err != nil {
		return Element{}, fmt.Errorf("attributes: %w", err)
	}
	el.Attributes = make([]RawAttribute, 0, len(items))
	for _, item := range items {
		el.Attributes = append(el.Attributes, decodeAttribute(item))
	}
	return el, nil
}

// decodeAttribute never fails: anything that is neither a string nor an
// object becomes an empty shorthand, which normalizes to the default field.
func decodeAttribute(raw json.RawMessage) RawAttribute {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return RawAttribute{}
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return RawAttribute{Shorthand: s}
		}
	case '{':
		var rec AttributeRecord
		if err := json.Unmarshal(trimmed, &rec); err == nil {
			return RawAttribute{Structured: &rec}
		}
	}
	return RawAttribute{}
}

type edgeWire struct {
	ID                 flexString `json:"id"`
	Type               string     `json:"type"`
	Kind               string     `json:"kind"`
	Source             flexString `json:"source"`
	SourceID           flexString `json:"sourceId"`
	Target             flexString `json:"target"`
	TargetID           flexString `json:"targetId"`
	SourceMultiplicity flexString `json:"sourceMultiplicity"`
	TargetMultiplicity flexString `json:"targetMultiplicity"`
	Label              string     `json:"label"`
}

func decodeEdge(raw json.RawMessage) (Edge, error) {
	var w edgeWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return Edge{}, err
	}
	return Edge{
		ID:                 strings.TrimSpace(string(w.ID)),
		Kind:               firstNonEmpty(w.Type, w.Kind),
		SourceID:           firstNonEmpty(string(w.Source), string(w.SourceID)),
		TargetID:           firstNonEmpty(string(w.Target), string(w.TargetID)),
		SourceMultiplicity: strings.TrimSpace(string(w.SourceMultiplicity)),
		TargetMultiplicity: strings.TrimSpace(string(w.TargetMultiplicity)),
		Label:              w.Label,
	}, nil
}

// coerceSequence turns an array, or an object whose values are the items,
// into an ordered slice of raw items.
func coerceSequence(raw json.RawMessage) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || isNull(trimmed) {
		return nil, nil
	}
	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	case '{':
		return orderedValues(trimmed)
	default:
		return nil, fmt.Errorf("expected array or object, got %q", string(trimmed[:1]))
	}
}

// orderedValues walks an object with a token decoder so the values come back
// in key order as written, not Go map order.
func orderedValues(obj []byte) ([]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(obj))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var items []json.RawMessage
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		items = append(items, value)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return items, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// flexString accepts JSON strings and numbers; editors emit ids and
// multiplicities as either.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || isNull(trimmed) {
		*f = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*f = flexString(n.String())
	return nil
}
