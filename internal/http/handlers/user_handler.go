package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CreateUserRequest is the JSON payload for registering a user.
type CreateUserRequest struct {
	Email string `json:"email" binding:"required,email" example:"demo@documind.local"`
	Name  string `json:"name"  binding:"required,min=1,max=255" example:"Demo User"`
}

func (r *CreateUserRequest) normalize() {
	r.Email = strings.TrimSpace(r.Email)
	r.Name = strings.TrimSpace(r.Name)
}

// CreateUser godoc
// @ID          createUser
// @Summary     Create a user
// @Description Registers a user. Email addresses are unique.
// @Tags        Users
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreateUserRequest  true  "User payload"
//
// @Success     201  {object}  domain.User
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Email already registered"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /users [post]
func (h *Handlers) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, bindMessage(err))
		return
	}

	u, err := h.userSvc.Create(c.Request.Context(), req.Email, req.Name)
	if err != nil {
		failErr(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, u)
}

// EnsureUser godoc
// @ID          ensureUser
// @Summary     Get or create a user
// @Description Returns the user registered under email, creating it first when absent. Clients use it to bootstrap the demo identity.
// @Tags        Users
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreateUserRequest  true  "User payload"
//
// @Success     200  {object}  domain.User
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /users/ensure [post]
func (h *Handlers) EnsureUser(c *gin.Context) {
	var req CreateUserRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, bindMessage(err))
		return
	}

	u, err := h.userSvc.EnsureDemoUser(c.Request.Context(), req.Email, req.Name)
	if err != nil {
		failErr(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusOK, u)
}
