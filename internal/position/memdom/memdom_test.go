package memdom

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/anchorpoint/api/schemas"
)

const fixtureYAML = `
url: https://example.test/form
window:
  page_x_offset: 0
  page_y_offset: 120
  computed_style: true
document_element:
  scroll_top: 120
elements:
  - id: body
    rect: {top: -120, left: 0, width: 1024, height: 2000}
  - id: panel
    offset_parent: body
    rect: {top: 80, left: 100, width: 300, height: 200}
    client_top: 1
    client_left: 1
    style:
      computed: {position: relative}
  - id: field
    offset_parent: panel
    rect: {top: 120, left: 130, width: 200, height: 24}
  - id: suggestions
    offset_parent: body
    offset_width: 200
    offset_height: 90
placements:
  - host: field
    target: suggestions
    placement: bottom-left
  - host: field
    target: suggestions
    placement: bottom-left
    append_to_body: true
`

func TestFromSnapshot(t *testing.T) {
	snap, err := DecodeYAML([]byte(fixtureYAML))
	require.NoError(t, err)

	doc, err := FromSnapshot(snap)
	require.NoError(t, err)

	field, ok := doc.Node("field")
	require.True(t, ok)
	panel, _ := doc.Node("panel")
	assert.Same(t, panel, field.OffsetParent())

	body, _ := doc.Node("body")
	assert.Nil(t, body.OffsetParent(), "missing parent must be an untyped nil")

	r, ok := field.BoundingClientRect()
	assert.True(t, ok)
	assert.Equal(t, schemas.Rect{Top: 120, Left: 130, Width: 200, Height: 24}, r)

	suggestions, _ := doc.Node("suggestions")
	_, ok = suggestions.BoundingClientRect()
	assert.False(t, ok)
	assert.Equal(t, 200.0, suggestions.OffsetWidth())

	assert.Equal(t, 120.0, doc.Window().PageYOffset())
	assert.Equal(t, 120.0, doc.DocumentElement().ScrollTop())

	root, ok := doc.Lookup(RootID)
	require.True(t, ok)
	assert.Equal(t, doc.Root(), root)
	_, ok = doc.Lookup("html")
	assert.True(t, ok)
	_, ok = doc.Lookup("nope")
	assert.False(t, ok)
}

func TestFromSnapshot_Errors(t *testing.T) {
	testCases := []struct {
		name     string
		elements []schemas.ElementSnapshot
		want     error
	}{
		{"missing id", []schemas.ElementSnapshot{{}}, ErrMissingID},
		{"duplicate id", []schemas.ElementSnapshot{{ID: "a"}, {ID: "a"}}, ErrDuplicateID},
		{"reserved id", []schemas.ElementSnapshot{{ID: RootID}}, ErrDuplicateID},
		{"unknown parent", []schemas.ElementSnapshot{{ID: "a", OffsetParent: "ghost"}}, ErrUnknownParent},
	}

	for _, tc := range testCases {
		tt := tc
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromSnapshot(&schemas.LayoutSnapshot{Elements: tt.elements})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestFromSnapshot_SelfReference(t *testing.T) {
	doc, err := FromSnapshot(&schemas.LayoutSnapshot{
		Elements: []schemas.ElementSnapshot{{ID: "loop", OffsetParent: "loop"}},
	})
	require.NoError(t, err)
	loop, _ := doc.Node("loop")
	assert.Same(t, loop, loop.OffsetParent())
}

func TestWindowComputedStyle(t *testing.T) {
	doc, err := FromSnapshot(&schemas.LayoutSnapshot{
		Window: schemas.WindowSnapshot{ComputedStyle: true},
		Elements: []schemas.ElementSnapshot{{
			ID:    "a",
			Style: schemas.StyleSources{Computed: map[string]string{"position": "sticky"}},
		}},
	})
	require.NoError(t, err)
	a, _ := doc.Node("a")

	v, ok := doc.Window().ComputedStyle(a, "position")
	assert.True(t, ok)
	assert.Equal(t, "sticky", v)

	_, ok = doc.Window().ComputedStyle(nil, "position")
	assert.False(t, ok)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "layout.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(fixtureYAML), 0o644))
	fromYAML, err := LoadFile(yamlPath)
	require.NoError(t, err)
	assert.Len(t, fromYAML.Elements, 4)
	assert.Len(t, fromYAML.Placements, 2)
	assert.True(t, fromYAML.Placements[1].AppendToBody)

	encoded, err := json.Marshal(fromYAML)
	require.NoError(t, err)
	jsonPath := filepath.Join(dir, "layout.JSON")
	require.NoError(t, os.WriteFile(jsonPath, encoded, 0o644))
	fromJSON, err := LoadFile(jsonPath)
	require.NoError(t, err)

	if diff := cmp.Diff(fromYAML, fromJSON); diff != "" {
		t.Errorf("JSON and YAML fixtures differ (-yaml +json):\n%s", diff)
	}

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	badPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte("{"), 0o644))
	_, err = LoadFile(badPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode JSON snapshot")
}
