package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-documind-backend/internal/http/middleware"
	"github.com/tbourn/go-documind-backend/internal/services"
)

// HeaderIdempotencyReplayed is set to "true" when a stored response is replayed.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

// AssistanceRequest is the JSON payload for requestAiAssistance.
type AssistanceRequest struct {
	Prompt         string `json:"prompt"          binding:"required,min=1" example:"Summarize the key points"`
	Context        string `json:"context"         example:"Focus on the light-dependent reactions"`
	AssistanceType string `json:"assistance_type" binding:"required,oneof=write edit study_guide summarize" example:"summarize"`
}

// RequestAssistance godoc
// @ID          requestAiAssistance
// @Summary     Request AI assistance
// @Description Generates assistance for a document using its content and sources, stores the exchange and returns it.
// @Description Supplying Idempotency-Key makes retries replay the stored response.
// @Tags        Assistance
// @Accept      json
// @Produce     json
//
// @Param       id               path    int                           true   "Document id"  minimum(1)
// @Param       Idempotency-Key  header  string                        false  "Retry key"    example(assist-7f1c)
// @Param       body             body    handlers.AssistanceRequest    true   "Assistance payload"
//
// @Success     201  {object}  domain.AiAssistanceResponse
// @Header      201  {string}  Idempotency-Replayed  "true when the response is a replay"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Document not found"
// @Failure     429  {object}  handlers.ErrorResponse "Too many requests"
// @Failure     502  {object}  handlers.ErrorResponse "Generation failed"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /documents/{id}/assistance [post]
func (h *Handlers) RequestAssistance(c *gin.Context) {
	docID, err := pathID(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	var req AssistanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, bindMessage(err))
		return
	}
	key, _ := middleware.GetIdempotencyKey(c)

	rec, replayed, err := h.assistSvc.RequestOnce(c.Request.Context(), docID, key, services.AssistanceInput{
		Prompt:         req.Prompt,
		Context:        req.Context,
		AssistanceType: req.AssistanceType,
	})
	if err != nil {
		failErr(c, err, ErrCodeAssistanceFailed)
		return
	}
	if replayed {
		c.Header(HeaderIdempotencyReplayed, "true")
	}
	ok(c, http.StatusCreated, rec)
}

// ListAssistance godoc
// @ID          getAiResponses
// @Summary     List assistance responses
// @Description Returns the document's assistance exchanges, newest first.
// @Tags        Assistance
// @Produce     json
//
// @Param       id  path  int  true  "Document id"  minimum(1)
//
// @Success     200  {array}   domain.AiAssistanceResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /documents/{id}/assistance [get]
func (h *Handlers) ListAssistance(c *gin.Context) {
	docID, err := pathID(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	items, err := h.assistSvc.List(c.Request.Context(), docID)
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, items)
}
