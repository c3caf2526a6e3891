package collab

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEditor records applied markers and tracks live decorations.
type fakeEditor struct {
	mu      sync.Mutex
	visible map[string]bool
	applied int
	live    int
}

func newFakeEditor(visible ...string) *fakeEditor {
	e := &fakeEditor{visible: make(map[string]bool)}
	for _, f := range visible {
		e.visible[f] = true
	}
	return e
}

func (e *fakeEditor) IsVisible(file string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.visible[file]
}

func (e *fakeEditor) ApplyCursor(file string, pos Position, name, color string) Decoration {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.applied++
	e.live++
	return &fakeDecoration{editor: e}
}

func (e *fakeEditor) liveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.live
}

type fakeDecoration struct {
	editor *fakeEditor
	once   sync.Once
}

func (d *fakeDecoration) Dispose() {
	d.once.Do(func() {
		d.editor.mu.Lock()
		d.editor.live--
		d.editor.mu.Unlock()
	})
}

func newTestStore(editor Editor) *Store {
	return NewStore(NewApplier(editor, nil), nil, nil)
}

func TestStoreUnknownIDUpdatesAreNoOps(t *testing.T) {
	editor := newFakeEditor("src/a.ts")
	store := newTestStore(editor)
	store.Add(Collaborator{ID: "u1", Name: "Ann", Status: StatusActive, Color: "#ff0000"})

	assert.NotPanics(t, func() {
		store.UpdateCursor("ghost", "src/a.ts", Position{Line: 1, Character: 2})
	})
	assert.NotPanics(t, func() {
		store.UpdateFile("ghost", "src/a.ts")
	})
	assert.NotPanics(t, func() {
		store.Remove("ghost")
	})

	collaborators := store.Collaborators()
	require.Len(t, collaborators, 1)
	assert.Equal(t, "u1", collaborators[0].ID)
	assert.Empty(t, collaborators[0].CurrentFile)
	assert.Equal(t, 0, editor.liveCount())
}

func TestStoreFullReplaceSemantics(t *testing.T) {
	editor := newFakeEditor("a.go", "b.go", "c.go")
	store := newTestStore(editor)

	store.Add(Collaborator{ID: "a", Name: "A", Status: StatusActive, Color: "#111111",
		CurrentFile: "a.go", Cursor: &Position{Line: 1}})
	store.Add(Collaborator{ID: "b", Name: "B", Status: StatusActive, Color: "#222222",
		CurrentFile: "b.go", Cursor: &Position{Line: 2}})
	require.Equal(t, 2, editor.liveCount())

	store.SetAll([]Collaborator{
		{ID: "c", Name: "C", Status: StatusActive, Color: "#333333",
			CurrentFile: "c.go", Cursor: &Position{Line: 3}},
	})

	collaborators := store.Collaborators()
	require.Len(t, collaborators, 1)
	assert.Equal(t, "c", collaborators[0].ID)
	// A's and B's decorations are disposed, only C's remains.
	assert.Equal(t, 1, editor.liveCount())
}

func TestStoreCursorWithoutFileIsInert(t *testing.T) {
	editor := newFakeEditor("src/a.ts")
	store := newTestStore(editor)

	store.Add(Collaborator{ID: "u1", Name: "Ann", Status: StatusActive, Color: "#ff0000",
		Cursor: &Position{Line: 4, Character: 2}})

	assert.Equal(t, 0, editor.applied)
	assert.Equal(t, 0, editor.liveCount())
}

func TestStoreJoinLeaveRoundTrip(t *testing.T) {
	editor := newFakeEditor("main.go")
	store := newTestStore(editor)

	store.Add(Collaborator{ID: "x", Name: "X", Status: StatusActive, Color: "#abcdef",
		CurrentFile: "main.go", Cursor: &Position{Line: 0, Character: 0}})
	require.Equal(t, 1, editor.liveCount())

	store.Remove("x")

	assert.Empty(t, store.Collaborators())
	assert.Equal(t, 0, editor.liveCount())
}

func TestStoreAddOverwriteDisposesOldDecoration(t *testing.T) {
	editor := newFakeEditor("a.go")
	store := newTestStore(editor)

	rec := Collaborator{ID: "u1", Name: "Ann", Status: StatusActive, Color: "#ff0000",
		CurrentFile: "a.go", Cursor: &Position{Line: 1}}
	store.Add(rec)
	store.Add(rec)

	// At most one decoration per collaborator.
	assert.Equal(t, 2, editor.applied)
	assert.Equal(t, 1, editor.liveCount())
}

func TestStoreUpdateCursor(t *testing.T) {
	tests := []struct {
		name        string
		visible     []string
		file        string
		wantApplied int
	}{
		{name: "visible file renders marker", visible: []string{"src/a.ts"}, file: "src/a.ts", wantApplied: 1},
		{name: "hidden file skips marker", visible: nil, file: "src/a.ts", wantApplied: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			editor := newFakeEditor(tt.visible...)
			store := newTestStore(editor)
			store.Add(Collaborator{ID: "u1", Name: "Ann", Status: StatusActive, Color: "#ff0000"})

			store.UpdateCursor("u1", tt.file, Position{Line: 4, Character: 2})

			got, ok := store.Get("u1")
			require.True(t, ok)
			assert.Equal(t, tt.file, got.CurrentFile)
			require.NotNil(t, got.Cursor)
			assert.Equal(t, 4, got.Cursor.Line)
			assert.Equal(t, 2, got.Cursor.Character)
			assert.Equal(t, tt.wantApplied, editor.applied)
		})
	}
}

func TestStoreUpdateFileForcesActiveWithoutRedraw(t *testing.T) {
	editor := newFakeEditor("a.go", "b.go")
	store := newTestStore(editor)
	store.Add(Collaborator{ID: "u1", Name: "Ann", Status: StatusIdle, Color: "#ff0000",
		CurrentFile: "a.go", Cursor: &Position{Line: 1}})
	require.Equal(t, 1, editor.applied)

	store.UpdateFile("u1", "b.go")

	got, ok := store.Get("u1")
	require.True(t, ok)
	assert.Equal(t, "b.go", got.CurrentFile)
	assert.Equal(t, StatusActive, got.Status)
	// The decoration is not redrawn on file change, matching the
	// upstream client.
	assert.Equal(t, 1, editor.applied)
}

func TestStoreChangeNotifications(t *testing.T) {
	store := newTestStore(NopEditor{})

	var fired int
	store.OnChange(func() { fired++ })

	store.Add(Collaborator{ID: "u1", Name: "Ann", Status: StatusActive, Color: "#ff0000"})
	store.UpdateCursor("u1", "a.go", Position{Line: 1})
	store.UpdateFile("u1", "b.go")
	store.SetAll(nil)
	store.Clear()

	assert.Equal(t, 5, fired)
}

func TestStoreOnChangeListenerCanReadStore(t *testing.T) {
	store := newTestStore(NopEditor{})

	var seen int
	store.OnChange(func() {
		seen = len(store.Collaborators())
	})

	store.Add(Collaborator{ID: "u1", Name: "Ann", Status: StatusActive, Color: "#ff0000"})
	assert.Equal(t, 1, seen)
}
