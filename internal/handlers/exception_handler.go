package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fabtrack/internal/services"
)

// ExceptionHandler serves the exception views: invalid rows, manually
// edited rows, and their CSV exports.
type ExceptionHandler struct {
	exceptionService services.ExceptionServicer
}

// NewExceptionHandler creates a new ExceptionHandler.
func NewExceptionHandler(exceptionService services.ExceptionServicer) *ExceptionHandler {
	return &ExceptionHandler{exceptionService: exceptionService}
}

// InvalidRows returns the rows whose last validation failed
// @Summary     List invalid rows
// @Tags        exceptions
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} models.Part "Invalid rows"
// @Router      /exceptions/invalid [get]
func (h *ExceptionHandler) InvalidRows(c *gin.Context) {
	parts, err := h.exceptionService.InvalidRows()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": parts, "total": len(parts)})
}

// EditedRows returns the rows changed by hand after ingestion
// @Summary     List edited rows
// @Tags        exceptions
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} models.Part "Edited rows"
// @Router      /exceptions/edited [get]
func (h *ExceptionHandler) EditedRows(c *gin.Context) {
	parts, err := h.exceptionService.EditedRows()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": parts, "total": len(parts)})
}

// OriginalValues returns a row's pre-edit values
// @Summary     Get a row's original values
// @Description Reconstruct a row's pre-edit values from its audit trail
// @Tags        exceptions
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Part ID"
// @Success     200 {object} map[string]interface{} "Original values, keyed by field"
// @Router      /exceptions/{id}/original [get]
func (h *ExceptionHandler) OriginalValues(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	vals := h.exceptionService.OriginalValues(id)
	out := make(map[string]any, len(vals))
	for k, v := range vals {
		out[string(k)] = v
	}
	c.JSON(http.StatusOK, out)
}

// ExportInvalid downloads the invalid rows as CSV
// @Summary     Export invalid rows as CSV
// @Tags        exceptions
// @Produce     text/csv
// @Security    BearerAuth
// @Success     200 {string} string "CSV content"
// @Router      /exceptions/invalid/export [get]
func (h *ExceptionHandler) ExportInvalid(c *gin.Context) {
	filename, content, err := h.exceptionService.InvalidRowsCSV()
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv", content)
}

// ExportEdited downloads the edited rows as CSV
// @Summary     Export edited rows as CSV
// @Description Export edited rows with their reconstructed original values
// @Tags        exceptions
// @Produce     text/csv
// @Security    BearerAuth
// @Success     200 {string} string "CSV content"
// @Router      /exceptions/edited/export [get]
func (h *ExceptionHandler) ExportEdited(c *gin.Context) {
	filename, content, err := h.exceptionService.EditedRowsCSV()
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv", content)
}
