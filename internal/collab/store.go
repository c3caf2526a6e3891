package collab

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/e-code/agent/internal/shared/metrics"
)

// Store is the authoritative in-memory map of collaborator identity to
// record. It exclusively owns the collaborator set and the decoration
// handles; no other component mutates either directly. All operations are
// safe for concurrent use and serialized internally, so local editor
// events and the socket reader observe last-write-wins on each record.
type Store struct {
	mu            sync.Mutex
	collaborators map[string]*Collaborator
	decorations   map[string]Decoration
	listeners     []func()

	applier *Applier
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewStore creates a presence store rendering through the given applier.
// The metrics parameter may be nil.
func NewStore(applier *Applier, m *metrics.Metrics, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		collaborators: make(map[string]*Collaborator),
		decorations:   make(map[string]Decoration),
		applier:       applier,
		metrics:       m,
		logger:        logger.Named("collab-store"),
	}
}

// OnChange subscribes to change notifications. The signal carries no diff
// payload; consumers re-read the full set via Collaborators.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Add inserts or overwrites a collaborator keyed by identity and renders
// its decoration. Overwriting disposes the previous decoration first.
func (s *Store) Add(rec Collaborator) {
	s.mu.Lock()
	c := rec
	s.collaborators[c.ID] = &c
	s.redrawLocked(&c)
	s.updateGaugeLocked()
	s.mu.Unlock()

	s.logger.Debug("collaborator joined",
		zap.String("collaborator_id", rec.ID),
		zap.String("name", rec.Name),
	)
	s.notify()
}

// Remove deletes a collaborator and disposes its decoration. Unknown
// identities are a silent no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	if _, ok := s.collaborators[id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.collaborators, id)
	s.disposeLocked(id)
	s.updateGaugeLocked()
	s.mu.Unlock()

	s.logger.Debug("collaborator left", zap.String("collaborator_id", id))
	s.notify()
}

// UpdateCursor mutates a collaborator's file and cursor in place and
// re-renders the decoration for that collaborator only. Unknown
// identities are a silent no-op.
func (s *Store) UpdateCursor(id, file string, pos Position) {
	s.mu.Lock()
	c, ok := s.collaborators[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	c.CurrentFile = file
	c.Cursor = &pos
	s.redrawLocked(c)
	s.mu.Unlock()

	s.notify()
}

// UpdateFile updates a collaborator's current file and forces its status
// to active. Unknown identities are a silent no-op.
//
// Unlike UpdateCursor this does not redraw the decoration; the upstream
// client behaves the same way and the asymmetry is kept until clarified.
func (s *Store) UpdateFile(id, file string) {
	s.mu.Lock()
	c, ok := s.collaborators[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	c.CurrentFile = file
	c.Status = StatusActive
	s.mu.Unlock()

	s.notify()
}

// SetAll replaces the whole collaborator set with the supplied snapshot.
// Every existing decoration is disposed and the map cleared before the
// new records are added; collaborators absent from the snapshot are
// implicitly dropped without a left event.
func (s *Store) SetAll(list []Collaborator) {
	s.mu.Lock()
	s.clearLocked()
	for _, rec := range list {
		c := rec
		s.collaborators[c.ID] = &c
		s.redrawLocked(&c)
	}
	s.updateGaugeLocked()
	s.mu.Unlock()

	s.logger.Debug("collaborator snapshot applied", zap.Int("count", len(list)))
	s.notify()
}

// Clear disposes every decoration and empties the map. Used on disconnect:
// presence from a disconnected session is stale by definition.
func (s *Store) Clear() {
	s.mu.Lock()
	s.clearLocked()
	s.updateGaugeLocked()
	s.mu.Unlock()

	s.notify()
}

// Collaborators returns a snapshot copy of the current set.
func (s *Store) Collaborators() []Collaborator {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Collaborator, 0, len(s.collaborators))
	for _, c := range s.collaborators {
		cp := *c
		if c.Cursor != nil {
			cur := *c.Cursor
			cp.Cursor = &cur
		}
		out = append(out, cp)
	}
	return out
}

// Get returns a snapshot copy of one collaborator.
func (s *Store) Get(id string) (Collaborator, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collaborators[id]
	if !ok {
		return Collaborator{}, false
	}
	cp := *c
	if c.Cursor != nil {
		cur := *c.Cursor
		cp.Cursor = &cur
	}
	return cp, true
}

// ========== Message handling ==========

// Handles implements Handler for the inbound presence message types.
func (s *Store) Handles() []string {
	return []string{
		TypeCollaboratorJoined,
		TypeCollaboratorLeft,
		TypeCursorUpdate,
		TypeFileChange,
		TypeCollaboratorsList,
	}
}

// Handle implements Handler.
func (s *Store) Handle(msg *Message) error {
	switch msg.Type {
	case TypeCollaboratorJoined:
		if msg.Collaborator == nil {
			return fmt.Errorf("%s message without collaborator", msg.Type)
		}
		s.Add(*msg.Collaborator)
	case TypeCollaboratorLeft:
		s.Remove(msg.CollaboratorID)
	case TypeCursorUpdate:
		if msg.Position == nil {
			return fmt.Errorf("%s message without position", msg.Type)
		}
		s.UpdateCursor(msg.CollaboratorID, msg.File, *msg.Position)
	case TypeFileChange:
		s.UpdateFile(msg.CollaboratorID, msg.File)
	case TypeCollaboratorsList:
		s.SetAll(msg.Collaborators)
	}
	return nil
}

// ========== Internal ==========

// redrawLocked disposes the collaborator's current decoration and renders
// a fresh one, keeping at most one decoration per collaborator.
func (s *Store) redrawLocked(c *Collaborator) {
	s.disposeLocked(c.ID)
	if s.applier == nil {
		return
	}
	if d := s.applier.Render(c); d != nil {
		s.decorations[c.ID] = d
	}
}

func (s *Store) disposeLocked(id string) {
	if d, ok := s.decorations[id]; ok {
		d.Dispose()
		delete(s.decorations, id)
	}
}

func (s *Store) clearLocked() {
	for id, d := range s.decorations {
		d.Dispose()
		delete(s.decorations, id)
	}
	s.collaborators = make(map[string]*Collaborator)
}

func (s *Store) updateGaugeLocked() {
	if s.metrics != nil {
		s.metrics.SetCollaborators(len(s.collaborators))
	}
}

// notify fires the change signal outside the lock so listeners can
// re-read the store without deadlocking.
func (s *Store) notify() {
	s.mu.Lock()
	listeners := make([]func(), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}
