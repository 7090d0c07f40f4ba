// Package domain defines the persistence models for users, documents, sources,
// and AI-assistance responses. These types are mapped with GORM and form the
// core data layer of the DocuMind editor backend.
package domain

import (
	"time"
)

// Source types accepted for a Source. Enforced by a CHECK constraint.
const (
	SourceTypeURL  = "url"
	SourceTypeFile = "file"
	SourceTypeText = "text"
)

// Assistance types accepted for an AiAssistanceResponse. Enforced by a CHECK constraint.
const (
	AssistanceWrite      = "write"
	AssistanceEdit       = "edit"
	AssistanceStudyGuide = "study_guide"
	AssistanceSummarize  = "summarize"
)

// SourceTypes lists the valid source types in declaration order.
var SourceTypes = []string{SourceTypeURL, SourceTypeFile, SourceTypeText}

// AssistanceTypes lists the valid assistance types in declaration order.
var AssistanceTypes = []string{AssistanceWrite, AssistanceEdit, AssistanceStudyGuide, AssistanceSummarize}

// IsSourceType reports whether s is one of SourceTypes.
func IsSourceType(s string) bool { return contains(SourceTypes, s) }

// IsAssistanceType reports whether s is one of AssistanceTypes.
func IsAssistanceType(s string) bool { return contains(AssistanceTypes, s) }

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// User is the owner of documents. There is no authentication: a single demo
// user is created through the same path a real sign-up would use.
//
// Fields:
//   - ID: auto-increment primary key.
//   - Email: unique across all users.
//   - Name: display name.
//   - CreatedAt: set on insert.
type User struct {
	ID        int64     `json:"id"         gorm:"primaryKey;autoIncrement"`
	Email     string    `json:"email"      gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	Name      string    `json:"name"       gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Document is the editable text artifact. Content is free-form, HTML-like
// text produced by the editor.
//
// Fields:
//   - ID: auto-increment primary key.
//   - Title: non-empty title.
//   - Content: editor content (may be empty).
//   - UserID: owning user (indexed together with UpdatedAt for listings).
//   - CreatedAt / UpdatedAt: UpdatedAt is the listing order key.
//   - User: FK association; documents are cascade-deleted with their user.
type Document struct {
	ID        int64     `json:"id"         gorm:"primaryKey;autoIncrement"`
	Title     string    `json:"title"      gorm:"type:varchar(255);not null"`
	Content   string    `json:"content"    gorm:"type:text;not null;default:''"`
	UserID    int64     `json:"user_id"    gorm:"not null;index:idx_user_docs,priority:1"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index:idx_user_docs,priority:2"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Document.
func (Document) TableName() string { return "documents" }

// Source is a reference item attached to a document and used as AI context.
// SourceURL is only meaningful for url sources; the store itself accepts NULL
// for any type.
type Source struct {
	ID         int64     `json:"id"          gorm:"primaryKey;autoIncrement"`
	DocumentID int64     `json:"document_id" gorm:"not null;index:idx_doc_sources"`
	Title      string    `json:"title"       gorm:"type:varchar(255);not null"`
	Content    string    `json:"content"     gorm:"type:text;not null"`
	SourceType string    `json:"source_type" gorm:"type:varchar(16);not null;check:source_type IN ('url','file','text')"`
	SourceURL  *string   `json:"source_url"  gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at"`

	Document Document `json:"-" gorm:"foreignKey:DocumentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Source.
func (Source) TableName() string { return "sources" }

// AiAssistanceResponse is the immutable record of one assistance exchange.
// It is removed only when its document is deleted.
type AiAssistanceResponse struct {
	ID              int64     `json:"id"               gorm:"primaryKey;autoIncrement"`
	DocumentID      int64     `json:"document_id"      gorm:"not null;index:idx_doc_ai,priority:1"`
	RequestPrompt   string    `json:"request_prompt"   gorm:"type:text;not null"`
	ResponseContent string    `json:"response_content" gorm:"type:text;not null"`
	AssistanceType  string    `json:"assistance_type"  gorm:"type:varchar(16);not null;check:assistance_type IN ('write','edit','study_guide','summarize')"`
	CreatedAt       time.Time `json:"created_at"       gorm:"index:idx_doc_ai,priority:2"`

	Document Document `json:"-" gorm:"foreignKey:DocumentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for AiAssistanceResponse.
func (AiAssistanceResponse) TableName() string { return "ai_assistance_responses" }
