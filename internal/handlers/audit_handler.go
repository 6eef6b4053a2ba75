package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "fabtrack/internal/errors"
	"fabtrack/internal/pagination"
	"fabtrack/internal/services"
)

// AuditHandler serves the audit history. Regular users only see their
// own entries; the scoping happens in the service.
type AuditHandler struct {
	auditService services.AuditServicer
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(auditService services.AuditServicer) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// AuditListQuery represents the audit list query parameters.
type AuditListQuery struct {
	pagination.PageRequest
	Action string `form:"action" binding:"omitempty,audit_action"`
	RowID  *uint  `form:"row_id" binding:"omitempty,min=1"`
}

// List returns a page of audit entries
// @Summary     List audit entries
// @Description List audit entries newest first; non-admins only see their own
// @Tags        audit
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number" default(1)
// @Param       limit query int false "Page size" default(100)
// @Param       action query string false "Filter by action" Enums(CREATE, UPDATE, DELETE, BULK_DELETE, CLEAR_ALL)
// @Param       row_id query int false "Filter by part row id"
// @Success     200 {object} pagination.PageResponse[services.AuditEntry] "Page of entries"
// @Failure     400 {object} ErrorResponse "Invalid query"
// @Router      /audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query AuditListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	resp, err := h.auditService.List(query.PageRequest, services.AuditFilter{
		Action: query.Action,
		RowID:  query.RowID,
	}, actor)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
