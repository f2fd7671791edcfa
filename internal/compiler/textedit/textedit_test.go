package textedit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/choreo-dev/mediate/internal/compiler/errors"
)

func TestRange_Overlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Range
		want bool
	}{
		{"disjoint", Range{0, 2}, Range{3, 5}, false},
		{"adjacent", Range{0, 3}, Range{3, 5}, false},
		{"shared byte", Range{0, 4}, Range{3, 5}, true},
		{"contained", Range{0, 10}, Range{3, 5}, true},
		{"two inserts same offset", Range{3, 3}, Range{3, 3}, false},
		{"insert at replace start", Range{3, 3}, Range{3, 6}, false},
		{"insert at replace end", Range{6, 6}, Range{3, 6}, false},
		{"insert inside replace", Range{4, 4}, Range{3, 6}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a))
		})
	}
}

func TestChange_ApplySimultaneous(t *testing.T) {
	source := "get pets() returns Pet {\n}"

	change, err := NewChange("svc.bal", len(source), []Edit{
		Replace(25, 25, "\n\tbody;\n"),
		Insert(9, "http:Caller caller"),
		Replace(19, 22, "error?"),
	})
	require.NoError(t, err)

	out, err := change.Apply(source)
	require.NoError(t, err)
	assert.Equal(t, "get pets(http:Caller caller) returns error? {\n\n\tbody;\n}", out)
}

func TestChange_SortsInsertBeforeReplaceAtSameOffset(t *testing.T) {
	source := "{}"

	change, err := NewChange("", len(source), []Edit{
		Replace(0, 1, "{ctx;"),
		Insert(0, "import a/b;\n"),
	})
	require.NoError(t, err)

	out, err := change.Apply(source)
	require.NoError(t, err)
	assert.Equal(t, "import a/b;\n{ctx;}", out)
}

func TestChange_RejectsOverlap(t *testing.T) {
	_, err := NewChange("svc.bal", 20, []Edit{
		Replace(2, 8, "x"),
		Replace(5, 10, "y"),
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrOverlappingEdits))
	assert.Contains(t, err.Error(), "[5,10)")
}

func TestChange_RejectsOutOfBounds(t *testing.T) {
	_, err := NewChange("", 4, []Edit{Replace(2, 8, "x")})
	require.Error(t, err)
}

func TestChange_EmptyIsIdentity(t *testing.T) {
	change, err := NewChange("", 5, nil)
	require.NoError(t, err)

	out, err := change.Apply("hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, 0, change.Len())
}

func TestLineIndex_Position(t *testing.T) {
	source := "ab\ncé\n😀x"
	li := NewLineIndex(source)

	assert.Equal(t, protocol.Position{Line: 0, Character: 0}, li.Position(0))
	assert.Equal(t, protocol.Position{Line: 0, Character: 2}, li.Position(2))
	assert.Equal(t, protocol.Position{Line: 1, Character: 0}, li.Position(3))
	// é is two bytes but one UTF-16 unit
	assert.Equal(t, protocol.Position{Line: 1, Character: 2}, li.Position(6))
	// the emoji is four bytes and two UTF-16 units
	assert.Equal(t, protocol.Position{Line: 2, Character: 2}, li.Position(11))
}

func TestChange_WorkspaceEdit(t *testing.T) {
	source := "a\nb"
	change, err := NewChange("", len(source), []Edit{Insert(2, "x")})
	require.NoError(t, err)

	ws := change.WorkspaceEdit("/tmp/svc.bal", source)
	edits := ws.Changes[uri.File("/tmp/svc.bal")]
	require.Len(t, edits, 1)
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 1, Character: 0},
		End:   protocol.Position{Line: 1, Character: 0},
	}, edits[0].Range)
	assert.Equal(t, "x", edits[0].NewText)
}

func TestLineIndex_LineRange(t *testing.T) {
	li := NewLineIndex("ab\r\ncdé\n")

	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 0, Character: 0},
		End:   protocol.Position{Line: 0, Character: 2},
	}, li.LineRange(0))
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 1, Character: 0},
		End:   protocol.Position{Line: 1, Character: 3},
	}, li.LineRange(1))
	assert.Equal(t, protocol.Position{Line: 2, Character: 0}, li.LineRange(7).Start)
}

func TestLineIndex_Offset(t *testing.T) {
	source := "ab\ncdé😀f\n"
	li := NewLineIndex(source)

	assert.Equal(t, 0, li.Offset(protocol.Position{Line: 0, Character: 0}))
	assert.Equal(t, 2, li.Offset(protocol.Position{Line: 0, Character: 9}))
	assert.Equal(t, 5, li.Offset(protocol.Position{Line: 1, Character: 2}))
	assert.Equal(t, 11, li.Offset(protocol.Position{Line: 1, Character: 5}))
	assert.Equal(t, len(source), li.Offset(protocol.Position{Line: 5}))

	for _, offset := range []int{0, 3, 5, 7, 11, 12} {
		assert.Equal(t, offset, li.Offset(li.Position(offset)), "offset %d", offset)
	}
}
