package services

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"fabtrack/internal/models"
)

// Labels are 4x2 inch stock. ZPL coordinates assume a 203 dpi printer
// (812x406 dots); the PDF uses the same size in points (288x144).
const (
	labelWidthPt  = 288.0
	labelHeightPt = 144.0
)

// labelService renders part labels as raw ZPL for thermal printers and
// as PDF for everything else.
type labelService struct{}

// NewLabelService creates a new LabelServicer.
func NewLabelService() LabelServicer {
	return &labelService{}
}

// ZPL renders one 4x2" label.
func (s *labelService) ZPL(part *models.Part) string {
	var b strings.Builder

	b.WriteString("^XA\n")
	b.WriteString("^PW812\n")
	b.WriteString("^LL406\n")

	// Part mark, large, top left.
	fmt.Fprintf(&b, "^FO30,30^A0N,60,60^FD%s^FS\n", zplEscape(part.PartMark))
	// Assembly mark under it.
	fmt.Fprintf(&b, "^FO30,110^A0N,40,40^FDAssembly: %s^FS\n", zplEscape(part.AssemblyMark))
	// Material and thickness on one line.
	fmt.Fprintf(&b, "^FO30,170^A0N,30,30^FD%s  %s^FS\n",
		zplEscape(part.Material), zplEscape(part.Thickness))
	fmt.Fprintf(&b, "^FO30,215^A0N,30,30^FDQty: %d^FS\n", part.Quantity)

	// Code 128 barcode of the part mark, bottom left.
	fmt.Fprintf(&b, "^FO30,260^BY2^BCN,100,Y,N,N^FD%s^FS\n", zplEscape(part.PartMark))

	b.WriteString("^XZ\n")
	return b.String()
}

// BulkZPL concatenates one label per part into a single print job.
func (s *labelService) BulkZPL(parts []models.Part) string {
	var b strings.Builder
	for i := range parts {
		b.WriteString(s.ZPL(&parts[i]))
	}
	return b.String()
}

// PDF renders one label as a single-page PDF.
func (s *labelService) PDF(part *models.Part, w io.Writer) error {
	pdf := newLabelPDF()
	addLabelPage(pdf, part)
	return pdf.Output(w)
}

// BulkPDF renders one page per part.
func (s *labelService) BulkPDF(parts []models.Part, w io.Writer) error {
	pdf := newLabelPDF()
	for i := range parts {
		addLabelPage(pdf, &parts[i])
	}
	return pdf.Output(w)
}

func newLabelPDF() *gofpdf.Fpdf {
	return gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: labelWidthPt, Ht: labelHeightPt},
	})
}

func addLabelPage(pdf *gofpdf.Fpdf, part *models.Part) {
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 24)
	pdf.SetXY(12, 10)
	pdf.CellFormat(labelWidthPt-24, 28, part.PartMark, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 14)
	pdf.SetX(12)
	pdf.CellFormat(labelWidthPt-24, 18, "Assembly: "+part.AssemblyMark, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.SetX(12)
	pdf.CellFormat(labelWidthPt-24, 14, part.Material+"  "+part.Thickness, "", 1, "L", false, 0, "")

	pdf.SetX(12)
	pdf.CellFormat(labelWidthPt-24, 14, fmt.Sprintf("Qty: %d", part.Quantity), "", 1, "L", false, 0, "")

	if part.SourceFilename != "" {
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetXY(12, labelHeightPt-18)
		pdf.CellFormat(labelWidthPt-24, 10, part.SourceFilename, "", 0, "L", false, 0, "")
	}
}

// zplEscape guards the ZPL control characters inside field data.
func zplEscape(s string) string {
	r := strings.NewReplacer("^", " ", "~", " ")
	return r.Replace(s)
}
