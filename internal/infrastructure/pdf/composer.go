package pdf

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/go-pdf/fpdf"
	"github.com/go-pdf/fpdf/contrib/gofpdi"
	"go.uber.org/zap"

	"wizesign/internal/domain/entity"
	"wizesign/internal/usecase"
)

const (
	letterWidth  = 612.0
	letterHeight = 792.0

	signatureImageName = "signature"
)

// contrib/gofpdi keeps a package-level importer, so compositions must not
// overlap.
var composeMu sync.Mutex

// Composer renders the signed artifact: the original pages with field
// overlays composited on top, plus a trailing certificate page. Without
// original bytes it falls back to a certificate-only artifact.
type Composer struct {
	logger *zap.Logger
}

func NewComposer(logger *zap.Logger) *Composer {
	return &Composer{logger: logger}
}

func (c *Composer) Compose(input usecase.ComposeInput) (out []byte, err error) {
	composeMu.Lock()
	defer composeMu.Unlock()

	// The page importer panics on malformed PDF input; composition
	// failures must surface as errors, never abort the signing request.
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("pdf composition panicked: %v", r)
		}
	}()

	doc := fpdf.New("P", "pt", "Letter", "")
	doc.SetAutoPageBreak(false, 0)

	sigInfo := c.registerSignature(doc, input.SignatureImage)

	if len(input.Original) > 0 {
		if err := c.overlayOriginal(doc, input, sigInfo); err != nil {
			return nil, err
		}
	}

	c.drawCertificatePage(doc, input, sigInfo)

	if doc.Err() {
		return nil, fmt.Errorf("pdf composition failed: %w", doc.Error())
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}

	return buf.Bytes(), nil
}

func (c *Composer) registerSignature(doc *fpdf.Fpdf, image []byte) *fpdf.ImageInfoType {
	if len(image) == 0 {
		return nil
	}

	info := doc.RegisterImageOptionsReader(
		signatureImageName,
		fpdf.ImageOptions{ImageType: "PNG"},
		bytes.NewReader(image),
	)
	if doc.Err() {
		// A broken signature image degrades to text placeholders.
		c.logger.Warn("Failed to register signature image", zap.Error(doc.Error()))
		doc.ClearError()
		return nil
	}

	return info
}

// overlayOriginal re-emits every original page as a template and draws
// the page's fields on top, so the overlay composites with, rather than
// replaces, the original content.
func (c *Composer) overlayOriginal(doc *fpdf.Fpdf, input usecase.ComposeInput, sigInfo *fpdf.ImageInfoType) error {
	rs := io.ReadSeeker(bytes.NewReader(input.Original))

	firstTpl := gofpdi.ImportPageFromStream(doc, &rs, 1, "/MediaBox")
	sizes := gofpdi.GetPageSizes()
	pageCount := len(sizes)
	if pageCount == 0 {
		return fmt.Errorf("original document has no pages")
	}

	for pageNo := 1; pageNo <= pageCount; pageNo++ {
		tpl := firstTpl
		if pageNo > 1 {
			tpl = gofpdi.ImportPageFromStream(doc, &rs, pageNo, "/MediaBox")
		}

		box, ok := sizes[pageNo]["/MediaBox"]
		if !ok {
			return fmt.Errorf("original page %d has no media box", pageNo)
		}
		pageW, pageH := box["w"], box["h"]

		doc.AddPageFormat("P", fpdf.SizeType{Wd: pageW, Ht: pageH})
		gofpdi.UseImportedTemplate(doc, tpl, 0, 0, pageW, pageH)

		for _, field := range input.Fields {
			// Field pages are 1-indexed, matching the importer.
			if field.Page != pageNo {
				continue
			}
			c.drawField(doc, field, pageW, pageH, sigInfo)
		}
	}

	return nil
}

func (c *Composer) drawField(doc *fpdf.Fpdf, field entity.Field, pageW, pageH float64, sigInfo *fpdf.ImageInfoType) {
	rect := FieldRect(field.X, field.Y, field.W, field.H, pageW, pageH)
	top := rect.TopY(pageH)

	switch field.Type {
	case entity.FieldSignature:
		if sigInfo == nil {
			return
		}
		w, h := fitInside(sigInfo.Width(), sigInfo.Height(), rect.W, rect.H)
		doc.ImageOptions(signatureImageName,
			rect.X+(rect.W-w)/2, top+(rect.H-h)/2, w, h,
			false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	case entity.FieldText, entity.FieldDate, entity.FieldTitle:
		if field.Value == "" {
			return
		}

		size := field.FontSize
		if size <= 0 {
			size = 14
		}
		style := ""
		if field.FontWeight == "bold" {
			style = "B"
		}
		doc.SetFont("Helvetica", style, size)
		doc.SetTextColor(0, 0, 0)

		// Baseline sits 20% of the rectangle height above its bottom edge.
		baseline := top + rect.H - rect.H*0.2

		switch field.TextAlign {
		case "center":
			doc.Text(rect.X+(rect.W-doc.GetStringWidth(field.Value))/2, baseline, field.Value)
		case "right":
			doc.Text(rect.X+rect.W-doc.GetStringWidth(field.Value), baseline, field.Value)
		default:
			doc.Text(rect.X, baseline, field.Value)
		}
	}
}

// drawCertificatePage appends the non-repudiation certificate as the last
// page: document and signer details, the signature image, and the
// certificate hash split across two lines for legibility.
func (c *Composer) drawCertificatePage(doc *fpdf.Fpdf, input usecase.ComposeInput, sigInfo *fpdf.ImageInfoType) {
	doc.AddPageFormat("P", fpdf.SizeType{Wd: letterWidth, Ht: letterHeight})

	// Header banner
	doc.SetDrawColor(51, 76, 153)
	doc.SetLineWidth(2)
	doc.Rect(30, 20, letterWidth-60, 130, "D")

	doc.SetTextColor(51, 76, 153)
	doc.SetFont("Helvetica", "B", 20)
	title := "DIGITALLY SIGNED DOCUMENT"
	doc.Text((letterWidth-doc.GetStringWidth(title))/2, 50, title)

	doc.SetTextColor(0, 0, 0)
	c.labeled(doc, 80, "Document:", input.DocumentName)
	c.labeled(doc, 100, "Signed by:", input.PatientName)
	c.labeled(doc, 120, "Date & Time:", input.SignedAt.UTC().Format("2006-01-02 15:04:05 UTC"))

	// Signature section
	doc.SetDrawColor(204, 204, 204)
	doc.SetLineWidth(1)
	doc.Rect(30, 180, letterWidth-60, 220, "D")

	doc.SetFont("Helvetica", "B", 14)
	doc.Text(50, 180, "Digital Signature:")

	if sigInfo != nil {
		w, h := fitInside(sigInfo.Width(), sigInfo.Height(), 300, 120)
		doc.ImageOptions(signatureImageName,
			(letterWidth-w)/2, 230+(120-h)/2, w, h,
			false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	} else {
		doc.SetFont("Helvetica", "", 10)
		doc.Text(50, 250, "[Signature image could not be rendered]")
	}

	// Certificate hash, two lines
	doc.SetFont("Helvetica", "B", 10)
	doc.Text(50, 430, "Digital Certificate (SHA-256):")
	doc.SetFont("Courier", "", 7)
	hash := input.CertificateHash
	if len(hash) > 32 {
		doc.Text(50, 445, hash[:32])
		doc.Text(50, 455, hash[32:])
	} else {
		doc.Text(50, 445, hash)
	}

	doc.SetFont("Helvetica", "", 8)
	doc.SetTextColor(77, 77, 77)
	doc.Text(50, 480, "This document is cryptographically signed and tamper-evident.")
	doc.Text(50, 493, "Any modification to this document will invalidate the digital signature.")

	// Footer
	doc.SetFont("Helvetica", "", 7)
	doc.SetTextColor(128, 128, 128)
	doc.Text(50, letterHeight-50, fmt.Sprintf("Document ID: %s", input.DocumentID))
	doc.Text(50, letterHeight-40, fmt.Sprintf("Generated: %s", input.SignedAt.UTC().Format("2006-01-02 15:04:05 UTC")))
	footer := "Powered by WizeSign"
	doc.Text(letterWidth-50-doc.GetStringWidth(footer), letterHeight-50, footer)
}

func (c *Composer) labeled(doc *fpdf.Fpdf, y float64, label, value string) {
	doc.SetFont("Helvetica", "B", 12)
	doc.Text(50, y, label)
	doc.SetFont("Helvetica", "", 12)
	doc.Text(150, y, value)
}

// fitInside scales an image to fit a bounding box preserving aspect ratio.
func fitInside(imgW, imgH, boxW, boxH float64) (float64, float64) {
	if imgW <= 0 || imgH <= 0 {
		return boxW, boxH
	}
	scale := boxW / imgW
	if s := boxH / imgH; s < scale {
		scale = s
	}
	return imgW * scale, imgH * scale
}
