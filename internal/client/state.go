package client

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-documind-backend/internal/ai"
	"github.com/tbourn/go-documind-backend/internal/domain"
)

// UntitledDocument is the title used when a document is created or saved
// with a blank one.
const UntitledDocument = "Untitled Document"

// Defaults for the demo identity that stands in for authentication.
const (
	DefaultDemoEmail = "demo@documind.local"
	DefaultDemoName  = "Demo User"
)

var (
	// ErrNoUser is returned by operations that need Bootstrap to have run.
	ErrNoUser = errors.New("no current user")
	// ErrNoSelection is returned by operations that act on the selected document.
	ErrNoSelection = errors.New("no document selected")
)

// API is the subset of Client that AppState drives.
type API interface {
	EnsureUser(ctx context.Context, email, name string) (*domain.User, error)
	CreateDocument(ctx context.Context, userID int64, title, content string) (*domain.Document, error)
	GetDocuments(ctx context.Context, userID int64, limit, offset int) ([]domain.Document, error)
	GetDocument(ctx context.Context, id, userID int64) (*domain.Document, error)
	UpdateDocument(ctx context.Context, id int64, in UpdateDocumentInput) (*domain.Document, error)
	DeleteDocument(ctx context.Context, id, userID int64) (bool, error)
	CreateSource(ctx context.Context, documentID int64, in SourceInput) (*domain.Source, error)
	GetSources(ctx context.Context, documentID int64) ([]domain.Source, error)
	DeleteSource(ctx context.Context, documentID, sourceID int64) (bool, error)
	RequestAiAssistance(ctx context.Context, documentID int64, in AssistanceInput, idempotencyKey string) (*AssistanceResult, error)
	GetAiResponses(ctx context.Context, documentID int64) ([]domain.AiAssistanceResponse, error)
}

var _ API = (*Client)(nil)

// AppState is the client-side view of one editing session. All accessors
// return copies; the lock is never held across a network call.
//
// With offline mode enabled, transport failures (never server errors) are
// absorbed by synthesizing a local result with a negative id so the editor
// can keep working; with it disabled every failure is returned.
type AppState struct {
	api       API
	log       zerolog.Logger
	offline   bool
	demoEmail string
	demoName  string
	pageSize  int
	now       func() time.Time
	newKey    func() string
	generator ai.Generator

	mu        sync.Mutex
	user      *domain.User
	documents []domain.Document
	selected  *domain.Document
	sources   []domain.Source
	responses []domain.AiAssistanceResponse
	localID   int64
}

// StateOption customizes an AppState.
type StateOption func(*AppState)

// WithOffline enables synthesized results on transport failure.
func WithOffline(on bool) StateOption { return func(s *AppState) { s.offline = on } }

// WithLogger sets the logger used for degraded-mode warnings.
func WithLogger(l zerolog.Logger) StateOption { return func(s *AppState) { s.log = l } }

// WithDemoUser overrides the demo identity used by Bootstrap.
func WithDemoUser(email, name string) StateOption {
	return func(s *AppState) {
		if strings.TrimSpace(email) != "" {
			s.demoEmail = email
		}
		if strings.TrimSpace(name) != "" {
			s.demoName = name
		}
	}
}

// WithClock replaces time.Now for synthesized timestamps.
func WithClock(now func() time.Time) StateOption {
	return func(s *AppState) {
		if now != nil {
			s.now = now
		}
	}
}

// NewAppState builds an empty state around api.
func NewAppState(api API, opts ...StateOption) *AppState {
	s := &AppState{
		api:       api,
		log:       zerolog.Nop(),
		demoEmail: DefaultDemoEmail,
		demoName:  DefaultDemoName,
		pageSize:  100,
		now:       time.Now,
		newKey:    uuid.NewString,
		generator: ai.NewTemplateGenerator(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Offline reports whether offline fallback is enabled.
func (s *AppState) Offline() bool { return s.offline }

// User returns the current user, or nil before Bootstrap.
func (s *AppState) User() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Documents returns the document list, most recently updated first.
func (s *AppState) Documents() []domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Document(nil), s.documents...)
}

// Selected returns the selected document, or nil.
func (s *AppState) Selected() *domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return nil
	}
	d := *s.selected
	return &d
}

// Sources returns the sources of the selected document.
func (s *AppState) Sources() []domain.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Source(nil), s.sources...)
}

// Responses returns the assistance history of the selected document, newest first.
func (s *AppState) Responses() []domain.AiAssistanceResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AiAssistanceResponse(nil), s.responses...)
}

// Bootstrap resolves the demo user and loads its documents.
func (s *AppState) Bootstrap(ctx context.Context) (*domain.User, error) {
	u, err := s.api.EnsureUser(ctx, s.demoEmail, s.demoName)
	if err != nil {
		if !s.fallback(err, "bootstrap") {
			return nil, fmt.Errorf("bootstrap user: %w", err)
		}
		u = &domain.User{ID: s.nextLocalID(), Email: s.demoEmail, Name: s.demoName, CreatedAt: s.now()}
	}

	s.mu.Lock()
	cp := *u
	s.user = &cp
	s.mu.Unlock()

	if err := s.LoadDocuments(ctx); err != nil {
		return nil, err
	}
	return u, nil
}

// LoadDocuments replaces the list with the server's first page.
func (s *AppState) LoadDocuments(ctx context.Context) error {
	uid, err := s.userID()
	if err != nil {
		return err
	}
	docs, err := s.api.GetDocuments(ctx, uid, s.pageSize, 0)
	if err != nil {
		if s.fallback(err, "load documents") {
			return nil
		}
		return fmt.Errorf("load documents: %w", err)
	}

	s.mu.Lock()
	s.documents = docs
	sortDocuments(s.documents)
	s.mu.Unlock()
	return nil
}

// CreateDocument creates a document, puts it at the head of the list and
// selects it. A blank title becomes UntitledDocument.
func (s *AppState) CreateDocument(ctx context.Context, title, content string) (*domain.Document, error) {
	uid, err := s.userID()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(title) == "" {
		title = UntitledDocument
	}
	d, err := s.api.CreateDocument(ctx, uid, title, content)
	if err != nil {
		if !s.fallback(err, "create document") {
			return nil, fmt.Errorf("create document: %w", err)
		}
		now := s.now()
		d = &domain.Document{ID: s.nextLocalID(), Title: title, Content: content, UserID: uid, CreatedAt: now, UpdatedAt: now}
	}

	s.mu.Lock()
	s.documents = append([]domain.Document{*d}, s.documents...)
	cp := *d
	s.selected = &cp
	s.sources = nil
	s.responses = nil
	s.mu.Unlock()
	return d, nil
}

// SelectDocument fetches id, makes it the selection and loads its sources
// and assistance history. A document that no longer exists clears the
// selection and is dropped from the list; (nil, nil) is returned.
func (s *AppState) SelectDocument(ctx context.Context, id int64) (*domain.Document, error) {
	uid, err := s.userID()
	if err != nil {
		return nil, err
	}
	d, err := s.api.GetDocument(ctx, id, uid)
	if err != nil {
		if !s.fallback(err, "select document") {
			return nil, fmt.Errorf("select document: %w", err)
		}
		d = s.cached(id)
	}

	s.mu.Lock()
	if d == nil {
		s.removeLocked(id)
		s.mu.Unlock()
		return nil, nil
	}
	cp := *d
	s.selected = &cp
	s.sources = nil
	s.responses = nil
	s.mu.Unlock()

	if err := s.LoadSources(ctx); err != nil {
		return d, err
	}
	if err := s.LoadResponses(ctx); err != nil {
		return d, err
	}
	return d, nil
}

// ApplyDocument merges a record returned by the server into the list and
// the selection, then re-sorts the list by updated_at.
func (s *AppState) ApplyDocument(d domain.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for i := range s.documents {
		if s.documents[i].ID == d.ID {
			s.documents[i] = d
			found = true
			break
		}
	}
	if !found {
		s.documents = append(s.documents, d)
	}
	if s.selected != nil && s.selected.ID == d.ID {
		cp := d
		s.selected = &cp
	}
	sortDocuments(s.documents)
}

// SaveDocument sends title and content for id and applies the result. It
// returns (nil, nil) when the server has no such document for the current
// user. It never synthesizes a record.
func (s *AppState) SaveDocument(ctx context.Context, id int64, title, content string) (*domain.Document, error) {
	uid, err := s.userID()
	if err != nil {
		return nil, err
	}
	d, err := s.api.UpdateDocument(ctx, id, UpdateDocumentInput{UserID: uid, Title: &title, Content: &content})
	if err != nil {
		return nil, err
	}
	if d != nil {
		s.ApplyDocument(*d)
	}
	return d, nil
}

// DeleteDocument deletes id and drops it from the list and the selection.
func (s *AppState) DeleteDocument(ctx context.Context, id int64) (bool, error) {
	uid, err := s.userID()
	if err != nil {
		return false, err
	}
	deleted, err := s.api.DeleteDocument(ctx, id, uid)
	if err != nil {
		if !s.fallback(err, "delete document") {
			return false, fmt.Errorf("delete document: %w", err)
		}
		deleted = true
	}

	s.mu.Lock()
	s.removeLocked(id)
	s.mu.Unlock()
	return deleted, nil
}

// AddSource attaches a source to the selected document.
func (s *AppState) AddSource(ctx context.Context, in SourceInput) (*domain.Source, error) {
	doc := s.Selected()
	if doc == nil {
		return nil, ErrNoSelection
	}
	src, err := s.api.CreateSource(ctx, doc.ID, in)
	if err != nil {
		if !s.fallback(err, "add source") {
			return nil, fmt.Errorf("add source: %w", err)
		}
		src = &domain.Source{
			ID:         s.nextLocalID(),
			DocumentID: doc.ID,
			Title:      in.Title,
			Content:    in.Content,
			SourceType: in.SourceType,
			SourceURL:  in.SourceURL,
			CreatedAt:  s.now(),
		}
	}

	s.mu.Lock()
	if s.selected != nil && s.selected.ID == doc.ID {
		s.sources = append(s.sources, *src)
	}
	s.mu.Unlock()
	return src, nil
}

// RemoveSource detaches a source from the selected document.
func (s *AppState) RemoveSource(ctx context.Context, sourceID int64) (bool, error) {
	doc := s.Selected()
	if doc == nil {
		return false, ErrNoSelection
	}
	deleted, err := s.api.DeleteSource(ctx, doc.ID, sourceID)
	if err != nil {
		if !s.fallback(err, "remove source") {
			return false, fmt.Errorf("remove source: %w", err)
		}
		deleted = true
	}

	s.mu.Lock()
	for i := range s.sources {
		if s.sources[i].ID == sourceID {
			s.sources = append(s.sources[:i], s.sources[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	return deleted, nil
}

// LoadSources refreshes the sources of the selected document.
func (s *AppState) LoadSources(ctx context.Context) error {
	doc := s.Selected()
	if doc == nil {
		return ErrNoSelection
	}
	srcs, err := s.api.GetSources(ctx, doc.ID)
	if err != nil {
		if s.fallback(err, "load sources") {
			return nil
		}
		return fmt.Errorf("load sources: %w", err)
	}

	s.mu.Lock()
	if s.selected != nil && s.selected.ID == doc.ID {
		s.sources = srcs
	}
	s.mu.Unlock()
	return nil
}

// LoadResponses refreshes the assistance history of the selected document.
func (s *AppState) LoadResponses(ctx context.Context) error {
	doc := s.Selected()
	if doc == nil {
		return ErrNoSelection
	}
	rs, err := s.api.GetAiResponses(ctx, doc.ID)
	if err != nil {
		if s.fallback(err, "load responses") {
			return nil
		}
		return fmt.Errorf("load responses: %w", err)
	}

	s.mu.Lock()
	if s.selected != nil && s.selected.ID == doc.ID {
		s.responses = rs
	}
	s.mu.Unlock()
	return nil
}

// RequestAssistance asks for assistance on the selected document. Each call
// carries a fresh idempotency key so a transport-level retry cannot create a
// second record. In offline mode the text is produced by the local template
// generator.
func (s *AppState) RequestAssistance(ctx context.Context, prompt, extraContext, assistanceType string) (*domain.AiAssistanceResponse, error) {
	doc := s.Selected()
	if doc == nil {
		return nil, ErrNoSelection
	}
	in := AssistanceInput{Prompt: prompt, Context: extraContext, AssistanceType: assistanceType}
	res, err := s.api.RequestAiAssistance(ctx, doc.ID, in, s.newKey())

	var rec domain.AiAssistanceResponse
	switch {
	case err == nil:
		rec = res.Response
	case s.fallback(err, "request assistance"):
		text, gerr := s.generator.Generate(ctx, ai.Request{
			Prompt:         prompt,
			Context:        extraContext,
			AssistanceType: assistanceType,
			Title:          doc.Title,
			PlainText:      ai.PlainText(doc.Content),
		})
		if gerr != nil {
			return nil, fmt.Errorf("request assistance: %w", gerr)
		}
		rec = domain.AiAssistanceResponse{
			ID:              s.nextLocalID(),
			DocumentID:      doc.ID,
			RequestPrompt:   prompt,
			ResponseContent: text,
			AssistanceType:  assistanceType,
			CreatedAt:       s.now(),
		}
	default:
		return nil, fmt.Errorf("request assistance: %w", err)
	}

	s.mu.Lock()
	if s.selected != nil && s.selected.ID == doc.ID {
		s.responses = append([]domain.AiAssistanceResponse{rec}, s.responses...)
	}
	s.mu.Unlock()
	return &rec, nil
}

// AppendAssistance appends the content of resp to the selected document and
// saves it. The saved record becomes the selection.
func (s *AppState) AppendAssistance(ctx context.Context, resp domain.AiAssistanceResponse) (*domain.Document, error) {
	doc := s.Selected()
	if doc == nil {
		return nil, ErrNoSelection
	}
	content := doc.Content
	if content != "" && resp.ResponseContent != "" {
		content += "\n"
	}
	content += resp.ResponseContent

	title := doc.Title
	if strings.TrimSpace(title) == "" {
		title = UntitledDocument
	}

	d, err := s.SaveDocument(ctx, doc.ID, title, content)
	switch {
	case err == nil && d != nil:
		return d, nil
	case err == nil:
		return nil, nil
	case s.fallback(err, "append assistance"):
		local := *doc
		local.Title = title
		local.Content = content
		local.UpdatedAt = s.now()
		s.ApplyDocument(local)
		return &local, nil
	default:
		return nil, fmt.Errorf("append assistance: %w", err)
	}
}

// fallback reports whether err may be absorbed in offline mode and logs it.
func (s *AppState) fallback(err error, op string) bool {
	if !s.offline || !IsTransport(err) || errors.Is(err, context.Canceled) {
		return false
	}
	s.log.Warn().Err(err).Str("op", op).Msg("server unreachable, using local result")
	return true
}

func (s *AppState) userID() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return 0, ErrNoUser
	}
	return s.user.ID, nil
}

func (s *AppState) nextLocalID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.localID--
	return s.localID
}

func (s *AppState) cached(id int64) *domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.documents {
		if s.documents[i].ID == id {
			d := s.documents[i]
			return &d
		}
	}
	return nil
}

func (s *AppState) removeLocked(id int64) {
	for i := range s.documents {
		if s.documents[i].ID == id {
			s.documents = append(s.documents[:i], s.documents[i+1:]...)
			break
		}
	}
	if s.selected != nil && s.selected.ID == id {
		s.selected = nil
		s.sources = nil
		s.responses = nil
	}
}

// sortDocuments orders by updated_at desc with id desc as the tiebreak,
// matching the server listing.
func sortDocuments(docs []domain.Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if !docs[i].UpdatedAt.Equal(docs[j].UpdatedAt) {
			return docs[i].UpdatedAt.After(docs[j].UpdatedAt)
		}
		return docs[i].ID > docs[j].ID
	})
}
