package compiler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umlexport/internal/diagram"
)

func shorthand(s string) diagram.RawAttribute {
	return diagram.RawAttribute{Shorthand: s}
}

func TestNormalizeAttribute_Shorthand(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Attribute
	}{
		{
			name:  "visibility name colon type",
			input: "+ title: String",
			want:  Attribute{Name: "title", Type: TypeString, Visibility: VisibilityPublic},
		},
		{
			name:  "visibility type name",
			input: "# Integer pages",
			want:  Attribute{Name: "pages", Type: TypeInteger, Visibility: VisibilityProtected},
		},
		{
			name:  "name colon type",
			input: "price : decimal",
			want:  Attribute{Name: "price", Type: TypeDecimal, Visibility: VisibilityPrivate},
		},
		{
			name:  "type name",
			input: "bool active",
			want:  Attribute{Name: "active", Type: TypeBoolean, Visibility: VisibilityPrivate},
		},
		{
			name:  "name only defaults to String",
			input: "nickname",
			want:  Attribute{Name: "nickname", Type: TypeString, Visibility: VisibilityPrivate},
		},
		{
			name:  "name only with visibility",
			input: "~ code",
			want:  Attribute{Name: "code", Type: TypeString, Visibility: VisibilityPackage},
		},
		{
			name:  "id is a primary key",
			input: "- id: Long",
			want:  Attribute{Name: "id", Type: TypeLong, Visibility: VisibilityPrivate, IsPrimaryKey: true},
		},
		{
			name:  "upper-case ID is a primary key",
			input: "ID: uuid",
			want:  Attribute{Name: "ID", Type: TypeUUID, Visibility: VisibilityPrivate, IsPrimaryKey: true},
		},
		{
			name:  "date maps to DateTime",
			input: "+ createdAt: date",
			want:  Attribute{Name: "createdAt", Type: TypeDateTime, Visibility: VisibilityPublic},
		},
		{
			name:  "capitalized unknown type is an implicit reference",
			input: "+ owner: Person",
			want:  Attribute{Name: "owner", Type: TypeLong, Visibility: VisibilityPublic},
		},
		{
			name:  "keyword name is suffixed",
			input: "+ class: String",
			want:  Attribute{Name: "classField", Type: TypeString, Visibility: VisibilityPublic},
		},
		{
			name:  "empty input",
			input: "   ",
			want:  DefaultAttribute(),
		},
		{
			name:  "unparseable input",
			input: "+ a b c : d",
			want:  DefaultAttribute(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeAttribute(shorthand(tt.input), ImplicitReferencePolicy)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeAttribute_Structured(t *testing.T) {
	no := false
	yes := true

	t.Run("missing type defaults to String", func(t *testing.T) {
		got, err := NormalizeAttribute(diagram.RawAttribute{Structured: &diagram.AttributeRecord{Name: "label"}}, nil)
		require.NoError(t, err)
		assert.Equal(t, TypeString, got.Type)
		assert.Equal(t, VisibilityPrivate, got.Visibility)
	})

	t.Run("explicit false overrides the id rule", func(t *testing.T) {
		got, err := NormalizeAttribute(diagram.RawAttribute{Structured: &diagram.AttributeRecord{Name: "id", Type: "int", IsPrimaryKey: &no}}, nil)
		require.NoError(t, err)
		assert.False(t, got.IsPrimaryKey)
		assert.Equal(t, TypeInteger, got.Type)
	})

	t.Run("explicit key with word visibility and static", func(t *testing.T) {
		got, err := NormalizeAttribute(diagram.RawAttribute{Structured: &diagram.AttributeRecord{
			Name: "code", Type: "String", Visibility: "public", IsPrimaryKey: &yes, IsStatic: true,
		}}, nil)
		require.NoError(t, err)
		assert.Equal(t, Attribute{Name: "code", Type: TypeString, Visibility: VisibilityPublic, IsPrimaryKey: true, IsStatic: true}, got)
	})

	t.Run("missing name falls back", func(t *testing.T) {
		got, err := NormalizeAttribute(diagram.RawAttribute{Structured: &diagram.AttributeRecord{Name: "$$", Type: "double"}}, nil)
		require.NoError(t, err)
		assert.Equal(t, "defaultField", got.Name)
		assert.Equal(t, TypeDouble, got.Type)
	})
}

func TestNormalizeAttribute_StrictPolicy(t *testing.T) {
	_, err := NormalizeAttribute(shorthand("+ owner: Person"), StrictTypePolicy)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownType))

	got, err := NormalizeAttribute(shorthand("+ owner: string"), StrictTypePolicy)
	require.NoError(t, err)
	assert.Equal(t, TypeString, got.Type)
}
