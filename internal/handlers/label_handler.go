package handlers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "fabtrack/internal/errors"
	"fabtrack/internal/models"
	"fabtrack/internal/services"
)

// LabelHandler renders part labels in ZPL and PDF.
type LabelHandler struct {
	partService  services.PartServicer
	labelService services.LabelServicer
}

// NewLabelHandler creates a new LabelHandler.
func NewLabelHandler(partService services.PartServicer, labelService services.LabelServicer) *LabelHandler {
	return &LabelHandler{partService: partService, labelService: labelService}
}

// BulkLabelsRequest represents the request payload for bulk label rendering.
type BulkLabelsRequest struct {
	IDs []uint `json:"ids" binding:"required,min=1"`
}

// ZPL returns one part's label as raw ZPL
// @Summary     Render a ZPL label
// @Tags        labels
// @Produce     plain
// @Security    BearerAuth
// @Param       id path int true "Part ID"
// @Success     200 {string} string "ZPL content"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /parts/{id}/label/zpl [get]
func (h *LabelHandler) ZPL(c *gin.Context) {
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

	c.Data(http.StatusOK, "text/plain", []byte(h.labelService.ZPL(part)))
}

// PDF returns one part's label as a PDF
// @Summary     Render a PDF label
// @Tags        labels
// @Produce     application/pdf
// @Security    BearerAuth
// @Param       id path int true "Part ID"
// @Success     200 {string} string "PDF content"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /parts/{id}/label/pdf [get]
func (h *LabelHandler) PDF(c *gin.Context) {
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

	var buf bytes.Buffer
	if err := h.labelService.PDF(part, &buf); err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="label.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// BulkZPL returns one print job covering the requested parts
// @Summary     Render ZPL labels for multiple parts
// @Tags        labels
// @Accept      json
// @Produce     plain
// @Security    BearerAuth
// @Param       request body BulkLabelsRequest true "Part IDs"
// @Success     200 {string} string "ZPL content"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /parts/labels/zpl [post]
func (h *LabelHandler) BulkZPL(c *gin.Context) {
	parts, err := h.bulkParts(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.Data(http.StatusOK, "text/plain", []byte(h.labelService.BulkZPL(parts)))
}

// BulkPDF returns a multi-page PDF covering the requested parts
// @Summary     Render PDF labels for multiple parts
// @Tags        labels
// @Accept      json
// @Produce     application/pdf
// @Security    BearerAuth
// @Param       request body BulkLabelsRequest true "Part IDs"
// @Success     200 {string} string "PDF content"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /parts/labels/pdf [post]
func (h *LabelHandler) BulkPDF(c *gin.Context) {
	parts, err := h.bulkParts(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.labelService.BulkPDF(parts, &buf); err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="labels.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (h *LabelHandler) bulkParts(c *gin.Context) ([]models.Part, error) {
	var req BulkLabelsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}

	parts := make([]models.Part, 0, len(req.IDs))
	for _, id := range req.IDs {
		part, err := h.partService.Get(id)
		if err != nil {
			return nil, err
		}
		parts = append(parts, *part)
	}
	return parts, nil
}
