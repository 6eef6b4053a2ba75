package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "fabtrack/internal/errors"
	"fabtrack/internal/models"
	"fabtrack/internal/services"
)

// UserHandler handles user management requests. All routes are admin-only.
type UserHandler struct {
	userService services.UserServicer
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService services.UserServicer) *UserHandler {
	return &UserHandler{userService: userService}
}

// CreateUserRequest represents the request payload for creating a user.
type CreateUserRequest struct {
	Email     string `json:"email" binding:"required,email,max=255"`
	Password  string `json:"password" binding:"required,min=8,max=128"`
	FirstName string `json:"first_name" binding:"max=100"`
	LastName  string `json:"last_name" binding:"max=100"`
	Role      string `json:"role" binding:"omitempty,user_role"`
	SendEmail bool   `json:"send_email"`
}

// UpdateUserRequest represents the request payload for updating a user.
type UpdateUserRequest struct {
	Email     *string `json:"email" binding:"omitempty,email,max=255"`
	FirstName *string `json:"first_name" binding:"omitempty,max=100"`
	LastName  *string `json:"last_name" binding:"omitempty,max=100"`
	Role      *string `json:"role" binding:"omitempty,user_role"`
	IsActive  *bool   `json:"is_active"`
}

// Create adds a new user
// @Summary     Create a user
// @Description Create a user account, optionally mailing out the credentials
// @Tags        users
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateUserRequest true "User data"
// @Success     201 {object} models.User "The created user"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Email already in use"
// @Router      /users [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	role := models.RoleUser
	if req.Role != "" {
		role = models.Role(req.Role)
	}

	user, err := h.userService.Create(req.Email, req.Password, req.FirstName, req.LastName, role, req.SendEmail)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// List returns a page of users
// @Summary     List users
// @Tags        users
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number" default(1)
// @Param       limit query int false "Page size" default(100)
// @Param       search query string false "Match against name and email"
// @Success     200 {object} pagination.PageResponse[models.User] "Page of users"
// @Router      /users [get]
func (h *UserHandler) List(c *gin.Context) {
	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	resp, err := h.userService.List(query.Search, query.PageRequest)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Get returns a single user
// @Summary     Get a user
// @Tags        users
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "User ID"
// @Success     200 {object} models.User "The user"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.GetByID(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// Update modifies a user
// @Summary     Update a user
// @Tags        users
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "User ID"
// @Param       request body UpdateUserRequest true "Fields to change"
// @Success     200 {object} models.User "The updated user"
// @Failure     404 {object} ErrorResponse "Not found"
// @Failure     409 {object} ErrorResponse "Email already in use"
// @Router      /users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	upd := services.UserUpdate{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsActive:  req.IsActive,
	}
	if req.Role != nil {
		role := models.Role(*req.Role)
		upd.Role = &role
	}

	user, err := h.userService.Update(id, upd)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// Delete removes a user
// @Summary     Delete a user
// @Description Delete a user; their audit entries survive with a null user
// @Tags        users
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "User ID"
// @Success     200 {object} map[string]string "Deleted"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	// An admin cannot delete their own account.
	if userID, err := getUserID(c); err == nil && userID == id {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Cannot delete your own account"))
		return
	}

	if err := h.userService.Delete(id); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}
