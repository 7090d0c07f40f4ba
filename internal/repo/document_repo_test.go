package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-documind-backend/internal/domain"
)

func TestCreateDocument_SetsTimestampsEqual(t *testing.T) {
	db := newTestDB(t, allModels()...)
	u := seedUser(t, db, "doc@x.io")

	d, err := CreateDocument(context.Background(), db, u.ID, "Notes", "<p>hi</p>")
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	if d.ID == 0 || d.UserID != u.ID || d.Title != "Notes" || d.Content != "<p>hi</p>" {
		t.Fatalf("unexpected document: %+v", d)
	}
	if !d.CreatedAt.Equal(d.UpdatedAt) {
		t.Fatalf("created_at %v != updated_at %v", d.CreatedAt, d.UpdatedAt)
	}
}

func TestCreateDocument_ForeignKey_MissingUser(t *testing.T) {
	db := newTestDB(t, allModels()...)
	if _, err := CreateDocument(context.Background(), db, 424242, "orphan", ""); err == nil {
		t.Fatalf("expected FK violation for unknown user")
	}
}

func TestListDocumentsPage_OrderFilterAndPaging(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()
	u1 := seedUser(t, db, "u1@x.io")
	u2 := seedUser(t, db, "u2@x.io")

	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	mk := func(userID int64, title string, updated time.Time) *domain.Document {
		d := &domain.Document{UserID: userID, Title: title, CreatedAt: base, UpdatedAt: updated}
		if err := db.Create(d).Error; err != nil {
			t.Fatalf("seed %s: %v", title, err)
		}
		return d
	}
	old := mk(u1.ID, "old", base)
	tieA := mk(u1.ID, "tieA", base.Add(time.Hour))
	tieB := mk(u1.ID, "tieB", base.Add(time.Hour))
	newest := mk(u1.ID, "newest", base.Add(2*time.Hour))
	mk(u2.ID, "other", base.Add(3*time.Hour))

	got, err := ListDocumentsPage(ctx, db, u1.ID, 0, 10)
	if err != nil {
		t.Fatalf("ListDocumentsPage: %v", err)
	}
	want := []int64{newest.ID, tieB.ID, tieA.ID, old.ID}
	if len(got) != len(want) {
		t.Fatalf("expected %d docs, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: want id %d, got %d (%s)", i, id, got[i].ID, got[i].Title)
		}
	}

	page, err := ListDocumentsPage(ctx, db, u1.ID, 1, 2)
	if err != nil || len(page) != 2 || page[0].ID != tieB.ID || page[1].ID != tieA.ID {
		t.Fatalf("unexpected page: %+v err=%v", page, err)
	}

	empty, err := ListDocumentsPage(ctx, db, 999, 0, 10)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v err=%v", empty, err)
	}
}

func TestGetDocument_OwnerScoped(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()
	owner := seedUser(t, db, "owner@x.io")
	other := seedUser(t, db, "other@x.io")
	d := seedDocument(t, db, owner.ID, "mine")

	if got, err := GetDocument(ctx, db, d.ID, owner.ID); err != nil || got.ID != d.ID {
		t.Fatalf("owner lookup: got=%+v err=%v", got, err)
	}
	if _, err := GetDocument(ctx, db, d.ID, other.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-owner, got %v", err)
	}
	if got, err := GetDocumentByID(ctx, db, d.ID); err != nil || got.UserID != owner.ID {
		t.Fatalf("GetDocumentByID: got=%+v err=%v", got, err)
	}
	ok, err := DocumentExists(ctx, db, d.ID)
	if err != nil || !ok {
		t.Fatalf("DocumentExists = %v, %v", ok, err)
	}
}

func TestUpdateDocument_PartialAndAlwaysForward(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()
	u := seedUser(t, db, "upd@x.io")
	d, err := CreateDocument(ctx, db, u.ID, "T", "C")
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	title := "T2"
	got, err := UpdateDocument(ctx, db, d.ID, nil, DocumentPatch{Title: &title})
	if err != nil {
		t.Fatalf("UpdateDocument: %v", err)
	}
	if got.Title != "T2" || got.Content != "C" {
		t.Fatalf("partial update changed the wrong fields: %+v", got)
	}
	if !got.UpdatedAt.After(d.UpdatedAt) {
		t.Fatalf("updated_at did not move forward: %v -> %v", d.UpdatedAt, got.UpdatedAt)
	}
	if !got.CreatedAt.Equal(d.CreatedAt) {
		t.Fatalf("created_at changed: %v -> %v", d.CreatedAt, got.CreatedAt)
	}

	// Empty patch still refreshes.
	again, err := UpdateDocument(ctx, db, d.ID, nil, DocumentPatch{})
	if err != nil {
		t.Fatalf("empty UpdateDocument: %v", err)
	}
	if !again.UpdatedAt.After(got.UpdatedAt) || again.Title != "T2" {
		t.Fatalf("empty patch: %+v (prev updated_at %v)", again, got.UpdatedAt)
	}
}

func TestUpdateDocument_OwnerFilterAndMissing(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()
	owner := seedUser(t, db, "o@x.io")
	other := seedUser(t, db, "p@x.io")
	d := seedDocument(t, db, owner.ID, "x")

	content := "hijack"
	if _, err := UpdateDocument(ctx, db, d.ID, &other.ID, DocumentPatch{Content: &content}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
	if _, err := UpdateDocument(ctx, db, d.ID+1000, nil, DocumentPatch{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing id, got %v", err)
	}
	if got, err := UpdateDocument(ctx, db, d.ID, &owner.ID, DocumentPatch{Content: &content}); err != nil || got.Content != "hijack" {
		t.Fatalf("owner update: got=%+v err=%v", got, err)
	}
}

func TestDeleteDocument_OwnerScopedAndCascades(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()
	owner := seedUser(t, db, "del@x.io")
	other := seedUser(t, db, "nope@x.io")
	d := seedDocument(t, db, owner.ID, "gone")

	if _, err := CreateSource(ctx, db, &domain.Source{DocumentID: d.ID, Title: "s", Content: "c", SourceType: domain.SourceTypeText}); err != nil {
		t.Fatalf("seed source: %v", err)
	}
	if _, err := CreateAiResponse(ctx, db, d.ID, "p", "r", domain.AssistanceWrite); err != nil {
		t.Fatalf("seed response: %v", err)
	}

	if ok, err := DeleteDocument(ctx, db, d.ID, other.ID); err != nil || ok {
		t.Fatalf("non-owner delete = %v, %v", ok, err)
	}
	if ok, err := DeleteDocument(ctx, db, d.ID, owner.ID); err != nil || !ok {
		t.Fatalf("owner delete = %v, %v", ok, err)
	}
	if ok, err := DeleteDocument(ctx, db, d.ID, owner.ID); err != nil || ok {
		t.Fatalf("second delete = %v, %v", ok, err)
	}

	var n int64
	db.Model(&domain.Source{}).Where("document_id = ?", d.ID).Count(&n)
	if n != 0 {
		t.Fatalf("expected sources cascaded, found %d", n)
	}
	db.Model(&domain.AiAssistanceResponse{}).Where("document_id = ?", d.ID).Count(&n)
	if n != 0 {
		t.Fatalf("expected responses cascaded, found %d", n)
	}
}
