// Package autosave debounces document edits into saves. A Session tracks one
// open document: every edit marks it dirty at once and (re)arms a single
// timer; when the timer fires, or SaveNow is called, the current title and
// content are sent through a Saver.
package autosave

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-documind-backend/internal/domain"
)

// DefaultDelay is the debounce interval between the last edit and a save.
const DefaultDelay = 2 * time.Second

// UntitledDocument replaces a blank title on save.
const UntitledDocument = "Untitled Document"

// ErrNoRecord is recorded when the server accepted the call but returned no
// document, which means it no longer exists for the current user.
var ErrNoRecord = errors.New("autosave: server returned no document")

// Saver persists a document's title and content and returns the stored
// record. A nil record with a nil error means nothing matched.
type Saver interface {
	SaveDocument(ctx context.Context, id int64, title, content string) (*domain.Document, error)
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, id int64, title, content string) (*domain.Document, error)

// SaveDocument calls f.
func (f SaverFunc) SaveDocument(ctx context.Context, id int64, title, content string) (*domain.Document, error) {
	return f(ctx, id, title, content)
}

// Status is a point-in-time view of a Session.
type Status struct {
	HasUnsavedChanges bool
	IsSaving          bool
	LastSavedAt       time.Time
	LastError         error
}

// Session is safe for concurrent use.
type Session struct {
	saver       Saver
	delay       time.Duration
	offline     bool
	saveTimeout time.Duration
	log         zerolog.Logger
	now         func() time.Time
	onSaved     func(domain.Document)

	mu          sync.Mutex
	doc         domain.Document
	title       string
	content     string
	revision    uint64
	dirty       bool
	saving      bool
	lastSavedAt time.Time
	lastErr     error
	timer       *time.Timer
	closed      bool
}

// Option customizes a Session.
type Option func(*Session)

// WithDelay sets the debounce interval. Non-positive values keep DefaultDelay.
func WithDelay(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.delay = d
		}
	}
}

// WithOffline makes failed or empty saves fall back to a locally
// synthesized record instead of leaving the session dirty.
func WithOffline(on bool) Option { return func(s *Session) { s.offline = on } }

// WithLogger sets the session logger.
func WithLogger(l zerolog.Logger) Option { return func(s *Session) { s.log = l } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSaveTimeout bounds saves started by the debounce timer.
func WithSaveTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.saveTimeout = d
		}
	}
}

// OnSaved registers a callback invoked with every record that becomes the
// session's truth. It runs outside the session lock.
func OnSaved(fn func(domain.Document)) Option { return func(s *Session) { s.onSaved = fn } }

// New opens a session for doc. The session starts clean.
func New(saver Saver, doc domain.Document, opts ...Option) *Session {
	s := &Session{
		saver:       saver,
		delay:       DefaultDelay,
		saveTimeout: 30 * time.Second,
		log:         zerolog.Nop(),
		now:         time.Now,
		doc:         doc,
		title:       doc.Title,
		content:     doc.Content,
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With().Int64("document_id", doc.ID).Logger()
	return s
}

// SetTitle records a title edit.
func (s *Session) SetTitle(title string) {
	s.mu.Lock()
	s.title = title
	s.touchLocked()
	s.mu.Unlock()
}

// SetContent records a content edit.
func (s *Session) SetContent(content string) {
	s.mu.Lock()
	s.content = content
	s.touchLocked()
	s.mu.Unlock()
}

// Edit records a title and content edit together.
func (s *Session) Edit(title, content string) {
	s.mu.Lock()
	s.title = title
	s.content = content
	s.touchLocked()
	s.mu.Unlock()
}

// touchLocked marks the session dirty and rearms the single debounce timer.
func (s *Session) touchLocked() {
	s.revision++
	s.dirty = true
	s.scheduleLocked()
}

func (s *Session) scheduleLocked() {
	if s.closed {
		return
	}
	if s.timer == nil {
		s.timer = time.AfterFunc(s.delay, s.fire)
		return
	}
	s.timer.Stop()
	s.timer.Reset(s.delay)
}

func (s *Session) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
	defer cancel()
	if err := s.save(ctx); err != nil {
		s.log.Warn().Err(err).Msg("autosave failed")
	}
}

// SaveNow cancels any pending debounce and saves immediately. It is a no-op
// when there is nothing to save or a save is already running.
func (s *Session) SaveNow(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	return s.save(ctx)
}

func (s *Session) save(ctx context.Context) error {
	s.mu.Lock()
	if !s.dirty || s.saving {
		s.mu.Unlock()
		return nil
	}
	s.saving = true
	rev := s.revision
	id := s.doc.ID
	title := s.title
	if strings.TrimSpace(title) == "" {
		title = UntitledDocument
	}
	content := s.content
	s.mu.Unlock()

	rec, err := s.saver.SaveDocument(ctx, id, title, content)
	if err == nil && rec == nil {
		err = ErrNoRecord
	}

	s.mu.Lock()
	s.saving = false
	if err != nil {
		if !s.offline {
			s.lastErr = err
			// Retry on the next edit or SaveNow; dirty stays set.
			s.mu.Unlock()
			return err
		}
		s.log.Warn().Err(err).Msg("save not confirmed by server, keeping local copy")
		local := s.doc
		local.Title = title
		local.Content = content
		local.UpdatedAt = s.now()
		rec = &local
	}

	s.doc = *rec
	s.lastSavedAt = s.now()
	s.lastErr = nil
	if s.revision == rev {
		s.dirty = false
	} else {
		s.scheduleLocked()
	}
	saved := s.doc
	cb := s.onSaved
	s.mu.Unlock()

	if cb != nil {
		cb(saved)
	}
	return nil
}

// Close stops the debounce timer. Unsaved edits are kept and can still be
// flushed with SaveNow.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
}

// Document returns the last record accepted as truth.
func (s *Session) Document() domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// Title returns the title as currently edited.
func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

// Content returns the content as currently edited.
func (s *Session) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

// HasUnsavedChanges reports whether an edit has not been saved yet.
func (s *Session) HasUnsavedChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// IsSaving reports whether a save is in flight.
func (s *Session) IsSaving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving
}

// LastSavedAt is the time of the last successful save, zero if none.
func (s *Session) LastSavedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSavedAt
}

// LastError is the error of the last failed save, cleared by a success.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Status returns all indicators under one lock.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		HasUnsavedChanges: s.dirty,
		IsSaving:          s.saving,
		LastSavedAt:       s.lastSavedAt,
		LastError:         s.lastErr,
	}
}
