package diagram

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_ArrayPayload(t *testing.T) {
	payload := []byte(`{
		"elements": [
			{"id": "a", "name": "Author", "type": "class", "attributes": ["+ id: Long", {"name": "name", "type": "String"}]},
			{"id": "b", "name": "Book", "type": "class", "attributes": []},
			{"id": "n", "name": "Note", "type": "note"}
		],
		"connections": [
			{"id": "e1", "type": "association", "source": "a", "target": "b", "sourceMultiplicity": "1", "targetMultiplicity": "*"}
		]
	}`)

	doc, err := Decode(payload)
	require.NoError(t, err)
	require.Len(t, doc.Elements, 3)
	require.Len(t, doc.Edges, 1)

	author := doc.Elements[0]
	assert.Equal(t, "Author", author.Name)
	require.Len(t, author.Attributes, 2)
	assert.Equal(t, "+ id: Long", author.Attributes[0].Shorthand)
	require.NotNil(t, author.Attributes[1].Structured)
	assert.Equal(t, "name", author.Attributes[1].Structured.Name)

	assert.Len(t, doc.ClassElements(), 2)

	edge := doc.Edges[0]
	assert.Equal(t, "association", edge.Kind)
	assert.Equal(t, "a", edge.SourceID)
	assert.Equal(t, "b", edge.TargetID)
	assert.Equal(t, "1", edge.SourceMultiplicity)
	assert.Equal(t, "*", edge.TargetMultiplicity)
}

func TestDecode_KeyedObjectsKeepDocumentOrder(t *testing.T) {
	payload := []byte(`{
		"elements": {
			"z": {"id": "z", "name": "Zebra", "type": "class"},
			"a": {"id": "a", "name": "Apple", "type": "class"},
			"m": {"id": "m", "name": "Mango", "type": "class"}
		},
		"relationships": {
			"r2": {"kind": "dependency", "sourceId": "z", "targetId": "a"},
			"r1": {"kind": "association", "sourceId": "a", "targetId": "m", "sourceMultiplicity": 1, "targetMultiplicity": "*"}
		}
	}`)

	doc, err := Decode(payload)
	require.NoError(t, err)

	names := make([]string, 0, len(doc.Elements))
	for _, el := range doc.Elements {
		names = append(names, el.Name)
	}
	assert.Equal(t, []string{"Zebra", "Apple", "Mango"}, names)

	require.Len(t, doc.Edges, 2)
	assert.Equal(t, "dependency", doc.Edges[0].Kind)
	assert.Equal(t, "association", doc.Edges[1].Kind)
	assert.Equal(t, "1", doc.Edges[1].SourceMultiplicity)
	assert.Equal(t, "edge-0", doc.Edges[0].ID)
}

func TestDecode_Failures(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		target  error
	}{
		{name: "empty", payload: "", target: ErrEmptyDocument},
		{name: "null", payload: "null", target: ErrEmptyDocument},
		{name: "array", payload: `[1,2]`, target: ErrNotAnObject},
		{name: "string", payload: `"x"`, target: ErrNotAnObject},
		{name: "missing elements", payload: `{"connections": []}`, target: ErrMissingElements},
		{name: "null elements", payload: `{"elements": null}`, target: ErrMissingElements},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.payload))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}
}

func TestDecode_MalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{"elements": [`))
	assert.Error(t, err)
}

func TestDecode_ElementsMustBeSequence(t *testing.T) {
	_, err := Decode([]byte(`{"elements": 3}`))
	assert.Error(t, err)
}

func TestDecode_MissingIDsAreFilled(t *testing.T) {
	doc, err := Decode([]byte(`{"elements": [{"name": "A", "kind": "class", "attributes": [42, "name"]}]}`))
	require.NoError(t, err)
	require.Len(t, doc.Elements, 1)
	assert.Equal(t, "element-0", doc.Elements[0].ID)
	assert.True(t, doc.Elements[0].IsClass())
	require.Len(t, doc.Elements[0].Attributes, 2)
	assert.Equal(t, RawAttribute{}, doc.Elements[0].Attributes[0])
	assert.Equal(t, "name", doc.Elements[0].Attributes[1].Shorthand)
	assert.Empty(t, doc.Edges)
}
