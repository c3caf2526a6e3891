package collab

// Message types exchanged with the collaboration service. Outbound types
// describe the local participant; inbound types describe remote ones.
const (
	// Outbound
	TypePresence = "presence"
	TypeCursor   = "cursor"

	// Inbound
	TypeCollaboratorJoined = "collaborator_joined"
	TypeCollaboratorLeft   = "collaborator_left"
	TypeCursorUpdate       = "cursor_update"
	TypeCollaboratorsList  = "collaborators_list"

	// Both directions
	TypeFileChange = "file_change"
)

// Status reflects a collaborator's recent activity, not connectivity.
type Status string

const (
	StatusActive  Status = "active"
	StatusIdle    Status = "idle"
	StatusOffline Status = "offline"
)

// Position is a zero-based (line, character) location within a file.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Collaborator represents one remote participant in a shared session.
// The identity is opaque, stable and unique per participant per session;
// the display name is not guaranteed unique. The color is assigned per
// collaborator and stays stable for the session lifetime.
type Collaborator struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Status      Status    `json:"status"`
	Color       string    `json:"color"`
	CurrentFile string    `json:"currentFile,omitempty"`
	Cursor      *Position `json:"cursor,omitempty"`
}

// Message is the wire envelope: a type tag plus the union of per-type
// fields. Fields are encoded with omitempty so each concrete message
// carries only what its type defines.
type Message struct {
	Type string `json:"type"`

	// presence
	Status Status `json:"status,omitempty"`

	// cursor, cursor_update, file_change
	File     string    `json:"file,omitempty"`
	Position *Position `json:"position,omitempty"`

	// collaborator_joined
	Collaborator *Collaborator `json:"collaborator,omitempty"`

	// collaborator_left, cursor_update, file_change (inbound)
	CollaboratorID string `json:"collaboratorId,omitempty"`

	// collaborators_list
	Collaborators []Collaborator `json:"collaborators,omitempty"`
}
