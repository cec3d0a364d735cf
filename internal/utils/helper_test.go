package utils

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUUID(t *testing.T) {
	want := uuid.New()
	got, err := ParseUUID("  " + want.String() + "\n")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = ParseUUID("diagram-1")
	assert.Error(t, err)
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", FirstNonEmpty("", "  ", "b", "c"))
	assert.Equal(t, "", FirstNonEmpty())
}
