package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-documind-backend/internal/domain"
	"github.com/tbourn/go-documind-backend/internal/services"
)

// CreateSourceRequest is the JSON payload for attaching a source.
type CreateSourceRequest struct {
	Title      string  `json:"title"       binding:"required,min=1,max=255" example:"Campbell Biology, ch. 10"`
	Content    string  `json:"content"     example:"Photosynthesis takes place in the chloroplast..."`
	SourceType string  `json:"source_type" binding:"required,oneof=url file text" example:"url"`
	SourceURL  *string `json:"source_url,omitempty" binding:"omitempty,url" example:"https://example.org/photosynthesis"`
}

// normalize drops source_url unless the source is a url, so free text in
// the field of a text or file source is not checked as a URL.
func (r *CreateSourceRequest) normalize() {
	if r.SourceURL == nil {
		return
	}
	u := strings.TrimSpace(*r.SourceURL)
	if r.SourceType != domain.SourceTypeURL || u == "" {
		r.SourceURL = nil
		return
	}
	r.SourceURL = &u
}

// CreateSource godoc
// @ID          createSource
// @Summary     Attach a source
// @Description Attaches reference material to a document. source_url is required for url sources and ignored otherwise.
// @Tags        Sources
// @Accept      json
// @Produce     json
//
// @Param       id    path  int                            true  "Document id"  minimum(1)
// @Param       body  body  handlers.CreateSourceRequest   true  "Source payload"
//
// @Success     201  {object}  domain.Source
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Document not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /documents/{id}/sources [post]
func (h *Handlers) CreateSource(c *gin.Context) {
	docID, err := pathID(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	var req CreateSourceRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, bindMessage(err))
		return
	}

	src, err := h.srcSvc.Create(c.Request.Context(), docID, services.SourceInput{
		Title:      req.Title,
		Content:    req.Content,
		SourceType: req.SourceType,
		SourceURL:  req.SourceURL,
	})
	if err != nil {
		failErr(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, src)
}

// ListSources godoc
// @ID          getSources
// @Summary     List sources
// @Description Returns the document's sources in the order they were attached.
// @Tags        Sources
// @Produce     json
//
// @Param       id             path    int     true   "Document id"                 minimum(1)
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"  example(W/\"sources:7:2:1700000000000000\")
//
// @Success     200  {array}   domain.Source
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Document not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /documents/{id}/sources [get]
func (h *Handlers) ListSources(c *gin.Context) {
	docID, err := pathID(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	ctx := c.Request.Context()

	if count, maxTS, err := h.srcSvc.Stats(ctx, docID); err == nil && count > 0 && maxTS != nil {
		etag := fmt.Sprintf(`W/"sources:%d:%d:%d"`, docID, count, maxTS.UnixMicro())
		c.Header("ETag", etag)
		if c.GetHeader("If-None-Match") == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, err := h.srcSvc.List(ctx, docID)
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, items)
}

// DeleteSource godoc
// @ID          deleteSource
// @Summary     Delete a source
// @Description Removes a source when it belongs to the document.
// @Tags        Sources
// @Produce     json
//
// @Param       id        path  int  true  "Document id"  minimum(1)
// @Param       sourceId  path  int  true  "Source id"    minimum(1)
//
// @Success     200  {object}  handlers.DeletedResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /documents/{id}/sources/{sourceId} [delete]
func (h *Handlers) DeleteSource(c *gin.Context) {
	docID, err := pathID(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	srcID, err := pathID(c, "sourceId")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	deleted, err := h.srcSvc.Delete(c.Request.Context(), srcID, docID)
	if err != nil {
		failErr(c, err, ErrCodeDeleteFailed)
		return
	}
	ok(c, http.StatusOK, DeletedResponse{Deleted: deleted})
}
