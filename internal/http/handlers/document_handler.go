// Document HTTP handlers.
//
// This file exposes REST endpoints for document resources:
//   - POST   /documents        (create)
//   - GET    /documents        (list, paginated, ETag support)
//   - GET    /documents/{id}   (fetch, owner-scoped)
//   - PATCH  /documents/{id}   (partial update)
//   - DELETE /documents/{id}   (delete, owner-scoped)
//
// Lookups that match nothing answer 200 with a JSON null (or deleted=false);
// 404 is reserved for a missing parent such as the owning user.
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-documind-backend/internal/services"
)

//
// DTOs
//

// CreateDocumentRequest is the JSON payload for creating a document.
type CreateDocumentRequest struct {
	// Title is required (1-255 chars).
	Title string `json:"title" binding:"required,min=1,max=255" example:"Lecture notes"`
	// Content is optional editor HTML.
	Content string `json:"content" example:"<p>Photosynthesis converts light into chemical energy.</p>"`
	UserID  int64  `json:"user_id" binding:"required,gt=0" example:"1"`
}

// UpdateDocumentRequest is the JSON payload for a partial update. Omitted
// fields keep their stored value.
type UpdateDocumentRequest struct {
	Title   *string `json:"title,omitempty"   binding:"omitempty,min=1,max=255" example:"Lecture notes (revised)"`
	Content *string `json:"content,omitempty" example:"<p>Updated body</p>"`
	// UserID restricts the update to this owner when present.
	UserID *int64 `json:"user_id,omitempty" binding:"omitempty,gt=0" example:"1"`
}

// ListDocumentsQuery carries the query parameters of ListDocuments.
type ListDocumentsQuery struct {
	UserID int64 `form:"user_id" binding:"omitempty,gt=0"`
	Limit  int   `form:"limit"   binding:"omitempty,min=1,max=100"`
	Offset int   `form:"offset"  binding:"omitempty,min=0"`
}

type ownerQuery struct {
	UserID int64 `form:"user_id" binding:"omitempty,gt=0"`
}

//
// Handlers
//

// CreateDocument godoc
// @ID          createDocument
// @Summary     Create a document
// @Description Creates a document owned by user_id.
// @Tags        Documents
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreateDocumentRequest  true  "Create document payload"
//
// @Success     201  {object}  domain.Document
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /documents [post]
func (h *Handlers) CreateDocument(c *gin.Context) {
	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, bindMessage(err))
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title is required")
		return
	}

	doc, err := h.docSvc.Create(c.Request.Context(), req.UserID, req.Title, req.Content)
	if err != nil {
		failErr(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, doc)
}

// ListDocuments godoc
// @ID          getDocuments
// @Summary     List documents (paginated)
// @Description Returns the user's documents, most recently updated first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Documents
// @Produce     json
//
// @Param       user_id        query   int     true   "Owner id"                    minimum(1)
// @Param       limit          query   int     false  "Page size"                   minimum(1) maximum(100) default(20)
// @Param       offset         query   int     false  "Rows to skip"                minimum(0) default(0)
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"  example(W/\"docs:1:3:1700000000000000:20:0\")
//
// @Success     200  {array}   domain.Document
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /documents [get]
func (h *Handlers) ListDocuments(c *gin.Context) {
	var q ListDocumentsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, bindMessage(err))
		return
	}
	uid, found := resolveUserID(c, q.UserID)
	if !found {
		return
	}
	ctx := c.Request.Context()

	// ETag pre-check (best effort).
	if count, maxTS, err := h.docSvc.Stats(ctx, uid); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixMicro()
		}
		etag := fmt.Sprintf(`W/"docs:%d:%d:%d:%d:%d"`, uid, count, ts, q.Limit, q.Offset)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, err := h.docSvc.List(ctx, uid, q.Limit, q.Offset)
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, items)
}

// GetDocument godoc
// @ID          getDocument
// @Summary     Fetch a document
// @Description Returns the document when it exists and belongs to user_id, otherwise null.
// @Tags        Documents
// @Produce     json
//
// @Param       id       path   int  true  "Document id"  minimum(1)
// @Param       user_id  query  int  true  "Owner id"     minimum(1)
//
// @Success     200  {object}  domain.Document  "Document, or null when absent"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /documents/{id} [get]
func (h *Handlers) GetDocument(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	var q ownerQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, bindMessage(err))
		return
	}
	uid, found := resolveUserID(c, q.UserID)
	if !found {
		return
	}

	doc, err := h.docSvc.Get(c.Request.Context(), id, uid)
	if err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}
	if doc == nil {
		ok(c, http.StatusOK, nil)
		return
	}
	ok(c, http.StatusOK, doc)
}

// UpdateDocument godoc
// @ID          updateDocument
// @Summary     Update a document
// @Description Applies a partial update and refreshes updated_at. Returns null when no document matches.
// @Tags        Documents
// @Accept      json
// @Produce     json
//
// @Param       id    path  int                                true  "Document id"  minimum(1)
// @Param       body  body  handlers.UpdateDocumentRequest     true  "Fields to change"
//
// @Success     200  {object}  domain.Document  "Updated document, or null when absent"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /documents/{id} [patch]
func (h *Handlers) UpdateDocument(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	var req UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, bindMessage(err))
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title must not be empty")
		return
	}
	if req.UserID == nil {
		if uid := userIDFallback(c); uid > 0 {
			req.UserID = &uid
		}
	}

	doc, err := h.docSvc.Update(c.Request.Context(), id, services.DocumentUpdate{
		UserID:  req.UserID,
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		failErr(c, err, ErrCodeUpdateFailed)
		return
	}
	if doc == nil {
		ok(c, http.StatusOK, nil)
		return
	}
	ok(c, http.StatusOK, doc)
}

// DeleteDocument godoc
// @ID          deleteDocument
// @Summary     Delete a document
// @Description Deletes the document (and its sources and responses) when it belongs to user_id.
// @Tags        Documents
// @Produce     json
//
// @Param       id       path   int  true  "Document id"  minimum(1)
// @Param       user_id  query  int  true  "Owner id"     minimum(1)
//
// @Success     200  {object}  handlers.DeletedResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /documents/{id} [delete]
func (h *Handlers) DeleteDocument(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	var q ownerQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, bindMessage(err))
		return
	}
	uid, found := resolveUserID(c, q.UserID)
	if !found {
		return
	}

	deleted, err := h.docSvc.Delete(c.Request.Context(), id, uid)
	if err != nil {
		failErr(c, err, ErrCodeDeleteFailed)
		return
	}
	ok(c, http.StatusOK, DeletedResponse{Deleted: deleted})
}
