package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"fabtrack/internal/config"
	"fabtrack/internal/csvutil"
	apperrors "fabtrack/internal/errors"
	"fabtrack/internal/fields"
	"fabtrack/internal/pagination"
	"fabtrack/internal/services"
)

// allowedUploadTypes are the Content-Type values accepted for CSV uploads.
// Browsers are inconsistent about what they send for .csv files.
var allowedUploadTypes = map[string]bool{
	"text/csv":                 true,
	"application/csv":          true,
	"application/vnd.ms-excel": true,
	"text/plain":               true,
	"application/octet-stream": true,
}

// PartHandler handles part-record requests: upload, listing, editing,
// deletion, and the CSV exports.
type PartHandler struct {
	partService   services.PartServicer
	ingestService services.IngestServicer
	cfg           *config.Config
}

// NewPartHandler creates a new PartHandler.
func NewPartHandler(partService services.PartServicer, ingestService services.IngestServicer, cfg *config.Config) *PartHandler {
	return &PartHandler{partService: partService, ingestService: ingestService, cfg: cfg}
}

// UpdatePartRequest represents the request payload for editing a part row.
type UpdatePartRequest struct {
	PartMark     string   `json:"part_mark" binding:"required,max=100"`
	AssemblyMark string   `json:"assembly_mark" binding:"required,max=100"`
	Material     string   `json:"material" binding:"required,max=100"`
	Thickness    string   `json:"thickness" binding:"required,max=50"`
	Quantity     int      `json:"quantity" binding:"omitempty,min=1"`
	Length       *float64 `json:"length"`
	Width        *float64 `json:"width"`
	Height       *float64 `json:"height"`
	Weight       *float64 `json:"weight"`
	Notes        string   `json:"notes" binding:"max=1000"`
}

// DeletePartsRequest represents the request payload for bulk deletion.
type DeletePartsRequest struct {
	IDs []uint `json:"ids" binding:"required,min=1"`
}

// ListQuery represents the list query parameters.
type ListQuery struct {
	pagination.PageRequest
	Search string `form:"search" binding:"max=200"`
}

// Upload ingests a CSV file of part rows
// @Summary     Upload a CSV file
// @Description Parse a CSV of part rows, insert the valid ones, and report the rejects
// @Tags        parts
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       file formData file true "CSV file"
// @Success     200 {object} services.IngestResult "Ingestion outcome"
// @Failure     400 {object} ErrorResponse "Missing or invalid file"
// @Failure     500 {object} ErrorResponse "Processing failed"
// @Router      /parts/upload [post]
func (h *PartHandler) Upload(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		respondWithError(c, apperrors.ErrNoFile)
		return
	}

	if err := h.validateUpload(file.Filename, file.Size, file.Header.Get("Content-Type")); err != nil {
		respondWithError(c, err)
		return
	}

	// Stage the upload on disk; the pipeline streams it from there.
	tmpDir, err := os.MkdirTemp("", "fabtrack-upload-*")
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrProcessingFailed, err))
		return
	}
	defer os.RemoveAll(tmpDir)

	tmpPath := filepath.Join(tmpDir, "upload.csv")
	if err := c.SaveUploadedFile(file, tmpPath); err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrProcessingFailed, err))
		return
	}

	result, err := h.ingestService.ProcessFile(tmpPath, filepath.Base(file.Filename), actor)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *PartHandler) validateUpload(filename string, size int64, contentType string) error {
	if size == 0 {
		return apperrors.WithMessage(apperrors.ErrFileValidation, "File is empty")
	}
	if size > h.cfg.MaxUploadBytes {
		return apperrors.WithMessage(apperrors.ErrFileValidation,
			fmt.Sprintf("File exceeds the %d byte limit", h.cfg.MaxUploadBytes))
	}

	base := filepath.Base(filename)
	if base != filename || strings.Contains(filename, "..") {
		return apperrors.WithMessage(apperrors.ErrFileValidation, "Invalid filename")
	}
	if !strings.EqualFold(filepath.Ext(base), ".csv") {
		return apperrors.WithMessage(apperrors.ErrFileValidation, "Only .csv files are accepted")
	}

	if contentType != "" {
		mediaType := strings.TrimSpace(strings.Split(contentType, ";")[0])
		if !allowedUploadTypes[strings.ToLower(mediaType)] {
			return apperrors.WithMessage(apperrors.ErrFileValidation, "Unsupported content type "+mediaType)
		}
	}
	return nil
}

// List returns a page of part rows
// @Summary     List parts
// @Description List part rows with optional search, newest first
// @Tags        parts
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number" default(1)
// @Param       limit query int false "Page size" default(100)
// @Param       search query string false "Match against part mark, assembly mark, material"
// @Success     200 {object} pagination.PageResponse[models.Part] "Page of parts"
// @Failure     400 {object} ErrorResponse "Invalid query"
// @Router      /parts [get]
func (h *PartHandler) List(c *gin.Context) {
	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	resp, err := h.partService.List(query.Search, query.PageRequest)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Get returns a single part row
// @Summary     Get a part
// @Tags        parts
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Part ID"
// @Success     200 {object} models.Part "The part"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /parts/{id} [get]
func (h *PartHandler) Get(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	part, err := h.partService.Get(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, part)
}

// Update replaces a part row's fields
// @Summary     Update a part
// @Description Replace a part row's fields and record the change in the audit log
// @Tags        parts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Part ID"
// @Param       request body UpdatePartRequest true "Replacement values"
// @Success     200 {object} models.Part "The updated part"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /parts/{id} [put]
func (h *PartHandler) Update(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdatePartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	part, err := h.partService.Update(id, services.PartUpdate{
		PartMark:     req.PartMark,
		AssemblyMark: req.AssemblyMark,
		Material:     req.Material,
		Thickness:    req.Thickness,
		Quantity:     req.Quantity,
		Length:       req.Length,
		Width:        req.Width,
		Height:       req.Height,
		Weight:       req.Weight,
		Notes:        req.Notes,
	}, actor)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, part)
}

// Delete removes a single part row
// @Summary     Delete a part
// @Tags        parts
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Part ID"
// @Success     200 {object} map[string]interface{} "Deletion outcome"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /parts/{id} [delete]
func (h *PartHandler) Delete(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	deleted, err := h.partService.Delete([]uint{id}, actor)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// BulkDelete removes a set of part rows
// @Summary     Delete multiple parts
// @Tags        parts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body DeletePartsRequest true "IDs to delete"
// @Success     200 {object} map[string]interface{} "Deletion outcome"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /parts [delete]
func (h *PartHandler) BulkDelete(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req DeletePartsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	deleted, err := h.partService.Delete(req.IDs, actor)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// ClearAll removes every part row
// @Summary     Clear all parts
// @Description Delete every part row in a single operation (admin only)
// @Tags        parts
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]string "Cleared"
// @Failure     403 {object} ErrorResponse "Admin only"
// @Router      /parts/clear [post]
func (h *PartHandler) ClearAll(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.partService.ClearAll(actor); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "All records cleared"})
}

// Export downloads every part row as CSV
// @Summary     Export all parts as CSV
// @Tags        parts
// @Produce     text/csv
// @Security    BearerAuth
// @Success     200 {string} string "CSV content"
// @Router      /parts/export [get]
func (h *PartHandler) Export(c *gin.Context) {
	parts, err := h.partService.All()
	if err != nil {
		respondWithError(c, err)
		return
	}

	header := []string{"ID"}
	for _, k := range fields.Canonical {
		header = append(header, fields.Primary(k))
	}
	header = append(header, "Source File", "Line")

	rows := make([][]string, 0, len(parts))
	for i := range parts {
		p := &parts[i]
		vals := services.PartFieldValues(p)
		row := []string{fmt.Sprintf("%d", p.ID)}
		for _, k := range fields.Canonical {
			row = append(row, services.DisplayFieldValue(vals[k]))
		}
		row = append(row, p.SourceFilename, fmt.Sprintf("%d", p.LineNo))
		rows = append(rows, row)
	}

	var buf bytes.Buffer
	if err := csvutil.WriteRecords(&buf, header, rows); err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	filename := "parts_export_" + time.Now().Format("20060102_150405") + ".csv"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

// ErrorReport downloads the rejected-rows report of the last upload
// @Summary     Download the error report
// @Description Download the rejected-rows report written by the last upload
// @Tags        parts
// @Produce     text/csv
// @Security    BearerAuth
// @Success     200 {string} string "CSV content"
// @Failure     404 {object} ErrorResponse "No report exists"
// @Router      /parts/error-report [get]
func (h *PartHandler) ErrorReport(c *gin.Context) {
	path := h.ingestService.ErrorReportPath()
	if _, err := os.Stat(path); err != nil {
		respondWithError(c, apperrors.ErrNoErrorReport)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="error.csv"`)
	c.Header("Content-Type", "text/csv")
	c.File(path)
}

// ErrorReportExists reports whether an error report is available
// @Summary     Check for an error report
// @Tags        parts
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]bool "Existence flag"
// @Router      /parts/error-report/exists [get]
func (h *PartHandler) ErrorReportExists(c *gin.Context) {
	_, err := os.Stat(h.ingestService.ErrorReportPath())
	c.JSON(http.StatusOK, gin.H{"exists": err == nil})
}
