package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeIDs(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, DedupeIDs([]string{"a", "b", "a", "", "c", "b"}))
	assert.Empty(t, DedupeIDs(nil))
}

func TestDiffIDs(t *testing.T) {
	added, removed := DiffIDs([]string{"A", "B"}, []string{"B", "C"})

	assert.Equal(t, []string{"C"}, added)
	assert.Equal(t, []string{"A"}, removed)
}

func TestDiffIDs_NoChange(t *testing.T) {
	added, removed := DiffIDs([]string{"A", "B"}, []string{"B", "A"})

	assert.Empty(t, added)
	assert.Empty(t, removed)
}

func TestDiffIDs_ClearAll(t *testing.T) {
	added, removed := DiffIDs([]string{"A", "B"}, nil)

	assert.Empty(t, added)
	assert.Equal(t, []string{"A", "B"}, removed)
}
