package services

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"fabtrack/internal/config"
	"fabtrack/internal/csvutil"
	apperrors "fabtrack/internal/errors"
	"fabtrack/internal/fields"
	"fabtrack/internal/logger"
	"fabtrack/internal/models"
)

// insertBatchSize bounds the per-statement row count of the bulk insert.
const insertBatchSize = 500

// ingestService runs the CSV ingestion pipeline: parse, validate each
// row, insert all valid rows in one transaction, and write the rejects
// report for the invalid ones.
type ingestService struct {
	db    *gorm.DB
	cfg   *config.Config
	audit AuditServicer
}

// NewIngestService creates a new IngestServicer.
func NewIngestService(db *gorm.DB, cfg *config.Config, audit AuditServicer) IngestServicer {
	return &ingestService{db: db, cfg: cfg, audit: audit}
}

func (s *ingestService) ErrorReportPath() string {
	return s.cfg.ErrorReportPath()
}

// ProcessFile ingests the CSV at path, validating each row as it is
// read off the stream. All valid rows are inserted in a single
// transaction at end of stream: a storage failure leaves the table
// untouched. The rejects report at ErrorReportPath is replaced on every
// upload; a fully clean file removes any report from the previous one.
func (s *ingestService) ProcessFile(path, sourceName string, actor *Actor) (*IngestResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrProcessingFailed, err)
	}
	defer f.Close()

	var parts []models.Part
	var rejected []csvutil.RejectedRow
	err = streamRows(f, func(rowNum int, row map[string]string) {
		result := fields.ValidateRow(row, rowNum)
		if !result.Valid {
			rejected = append(rejected, csvutil.RejectedRow{
				RowNumber: rowNum,
				Values:    row,
				Errors:    result.Errors,
			})
			return
		}
		parts = append(parts, rowToPart(row, sourceName, rowNum))
	})
	if err != nil {
		// Malformed input aborts before anything is persisted.
		return nil, apperrors.Wrap(apperrors.ErrProcessingFailed, err)
	}

	if len(parts) > 0 {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			return tx.CreateInBatches(parts, insertBatchSize).Error
		})
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrProcessingFailed, err)
		}
		s.audit.Record(actorID(actor), models.ActionCreate, nil,
			"Bulk created "+strconv.Itoa(len(parts))+" records from CSV upload")
	}

	if len(rejected) > 0 {
		if err := os.MkdirAll(s.cfg.ReportDir, 0o755); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrProcessingFailed, err)
		}
		if err := csvutil.WriteRejectsReport(s.cfg.ErrorReportPath(), rejected); err != nil {
			logger.Get().Errorw("failed to write rejects report",
				"error", err,
				"path", s.cfg.ErrorReportPath(),
			)
		}
	} else if err := os.Remove(s.cfg.ErrorReportPath()); err != nil && !os.IsNotExist(err) {
		logger.Get().Errorw("failed to remove stale rejects report",
			"error", err,
			"path", s.cfg.ErrorReportPath(),
		)
	}

	return &IngestResult{
		Success:      true,
		ValidRows:    len(parts),
		InvalidRows:  len(rejected),
		HasErrorFile: len(rejected) > 0,
	}, nil
}

// streamRows parses a CSV stream one record at a time, handing each
// header-keyed row map to fn as it is read, so a large file never sits
// fully in memory. Short rows simply lack the trailing columns; extra
// cells are dropped.
func streamRows(r io.Reader, fn func(rowNum int, row map[string]string)) error {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	for rowNum := 1; ; rowNum++ {
		record, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			}
		}
		fn(rowNum, row)
	}
}

// rowToPart builds the stored record for one valid row. Numeric fields
// that are blank or unparsable become null rather than rejecting the
// row; quantity falls back to its default of 1.
func rowToPart(row map[string]string, sourceName string, rowNum int) models.Part {
	get := func(k fields.Key) string {
		v, _ := fields.Value(row, k)
		return strings.TrimSpace(v)
	}

	part := models.Part{
		PartMark:       get(fields.PartMark),
		AssemblyMark:   get(fields.AssemblyMark),
		Material:       get(fields.Material),
		Thickness:      get(fields.Thickness),
		Quantity:       1,
		Notes:          get(fields.Notes),
		IsValid:        true,
		SourceFilename: sourceName,
		LineNo:         rowNum,
	}

	if q, err := strconv.Atoi(get(fields.Quantity)); err == nil && q > 0 {
		part.Quantity = q
	}
	part.Length = parseOptionalFloat(get(fields.Length))
	part.Width = parseOptionalFloat(get(fields.Width))
	part.Height = parseOptionalFloat(get(fields.Height))
	part.Weight = parseOptionalFloat(get(fields.Weight))

	return part
}

func parseOptionalFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}
