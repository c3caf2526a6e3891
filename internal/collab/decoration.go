package collab

import "go.uber.org/zap"

// Decoration is a live editor marker for a remote collaborator's cursor.
// Dispose removes the marker from view. Handles are owned exclusively by
// the presence store; every removal path disposes before dropping.
type Decoration interface {
	Dispose()
}

// Editor abstracts the host editor surface markers are drawn on.
type Editor interface {
	// IsVisible reports whether any visible editor currently shows file.
	IsVisible(file string) bool
	// ApplyCursor draws a single-point marker (colored border plus a
	// trailing name label) at pos and returns its handle.
	ApplyCursor(file string, pos Position, name, color string) Decoration
}

// NopEditor is an Editor with no visible surfaces. Used by headless
// consumers such as the CLI roster view; markers are silently skipped.
type NopEditor struct{}

func (NopEditor) IsVisible(string) bool { return false }

func (NopEditor) ApplyCursor(string, Position, string, string) Decoration { return nil }

// Applier translates a collaborator's presence into an editor marker.
// Best effort: if the collaborator has no file, no cursor, or the file is
// not visible, nothing is applied and nil is returned. Not an error.
type Applier struct {
	editor Editor
	logger *zap.Logger
}

// NewApplier creates a decoration applier for the given editor surface.
func NewApplier(editor Editor, logger *zap.Logger) *Applier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Applier{
		editor: editor,
		logger: logger.Named("collab-decoration"),
	}
}

// Render applies a marker for the collaborator's current cursor.
// A cursor position without a current file is invalid and never rendered.
func (a *Applier) Render(c *Collaborator) Decoration {
	if c.CurrentFile == "" || c.Cursor == nil {
		return nil
	}
	if !a.editor.IsVisible(c.CurrentFile) {
		a.logger.Debug("file not visible, skipping marker",
			zap.String("collaborator_id", c.ID),
			zap.String("file", c.CurrentFile),
		)
		return nil
	}
	return a.editor.ApplyCursor(c.CurrentFile, *c.Cursor, c.Name, c.Color)
}
