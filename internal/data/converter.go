package data

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/domain"
	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/repo"
)

const (
	maxSheetRows   = 1000
	maxCellRunes   = 20
	maxColumnWidth = 40.0
)

// pdfConverter lays out office documents and text files as PDF
type pdfConverter struct {
	outDir   string
	fontPath string
	logger   *zap.Logger
}

// NewPDFConverter creates a document converter writing into outDir.
// fontPath is a TrueType font with Cyrillic glyphs; without it the core
// Helvetica font is used and non-Latin text is lost.
func NewPDFConverter(outDir, fontPath string, logger *zap.Logger) repo.DocumentConverter {
	return &pdfConverter{outDir: outDir, fontPath: fontPath, logger: logger.Named("converter")}
}

func (c *pdfConverter) ToPDF(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".pdf" {
		return path, nil
	}

	var render func(*pdfDoc, string) error
	switch ext {
	case ".txt", ".md", ".csv":
		render = renderText
	case ".xlsx":
		render = renderSheets
	case ".docx":
		render = renderDocx
	case ".pptx":
		render = renderSlides
	default:
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedDocument, ext)
	}

	doc := c.newDoc()
	if err := render(doc, path); err != nil {
		return "", err
	}

	dir := c.outDir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	out := filepath.Join(dir, "converted_"+uuid.NewString()+".pdf")
	if err := doc.pdf.OutputFileAndClose(out); err != nil {
		os.Remove(out)
		return "", fmt.Errorf("write pdf: %w", err)
	}

	c.logger.Debug("Document converted", zap.String("input", path), zap.String("output", out))
	return out, nil
}

// pdfDoc wraps fpdf with the chosen font and text translation
type pdfDoc struct {
	pdf    *fpdf.Fpdf
	family string
	tr     func(string) string
}

func (c *pdfConverter) newDoc() *pdfDoc {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)

	if c.fontPath != "" {
		if _, err := os.Stat(c.fontPath); err == nil {
			pdf.AddUTF8Font("body", "", c.fontPath)
			pdf.SetFont("body", "", 12)
			return &pdfDoc{pdf: pdf, family: "body", tr: func(s string) string { return s }}
		}
		c.logger.Warn("PDF font not found, using core font", zap.String("path", c.fontPath))
	}
	pdf.SetFont("Helvetica", "", 12)
	return &pdfDoc{pdf: pdf, family: "Helvetica", tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (d *pdfDoc) heading(text string) {
	d.pdf.SetFont(d.family, "", 16)
	d.pdf.MultiCell(0, 8, d.tr(text), "", "L", false)
	d.pdf.Ln(2)
	d.pdf.SetFont(d.family, "", 12)
}

func (d *pdfDoc) paragraph(text string) {
	d.pdf.MultiCell(0, 6, d.tr(text), "", "L", false)
	d.pdf.Ln(1)
}

func (d *pdfDoc) row(cells []string, width float64) {
	for _, cell := range cells {
		d.pdf.CellFormat(width, 8, d.tr(truncateCell(cell)), "1", 0, "L", false, 0, "")
	}
	d.pdf.Ln(-1)
}

func renderText(d *pdfDoc, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read text file: %w", err)
	}
	d.pdf.AddPage()
	text := strings.ToValidUTF8(string(data), "")
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		d.pdf.MultiCell(0, 6, d.tr(strings.TrimRight(line, " \t")), "", "L", false)
	}
	return nil
}

func renderSheets(d *pdfDoc, path string) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	left, _, right, _ := d.pdf.GetMargins()
	pageWidth, _ := d.pdf.GetPageSize()
	usable := pageWidth - left - right

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		// header row plus the first maxSheetRows data rows
		if len(rows) > maxSheetRows+1 {
			rows = rows[:maxSheetRows+1]
		}

		cols := 0
		for _, r := range rows {
			cols = max(cols, len(r))
		}
		width := maxColumnWidth
		if cols > 0 {
			width = min(maxColumnWidth, usable/float64(cols))
		}

		d.pdf.AddPage()
		d.heading("Sheet: " + sheet)
		for _, r := range rows {
			cells := make([]string, cols)
			copy(cells, r)
			d.row(cells, width)
		}
	}
	return nil
}

func renderDocx(d *pdfDoc, path string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("open docx: %w", err)
	}
	defer zr.Close()

	paras, err := zipParagraphs(&zr.Reader, "word/document.xml")
	if err != nil {
		return err
	}
	d.pdf.AddPage()
	for _, p := range paras {
		d.paragraph(p)
	}
	return nil
}

func renderSlides(d *pdfDoc, path string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("open pptx: %w", err)
	}
	defer zr.Close()

	slides := slideNames(&zr.Reader)
	if len(slides) == 0 {
		return errors.New("presentation has no slides")
	}
	for _, name := range slides {
		paras, err := zipParagraphs(&zr.Reader, name)
		if err != nil {
			return err
		}
		d.pdf.AddPage()
		for i, p := range paras {
			// the title placeholder comes first in slide order
			if i == 0 {
				d.heading(p)
				continue
			}
			d.paragraph(p)
		}
	}
	return nil
}

// slideNames lists ppt/slides/slideN.xml in slide number order
func slideNames(zr *zip.Reader) []string {
	type slide struct {
		name string
		n    int
	}
	var slides []slide
	for _, f := range zr.File {
		rest, ok := strings.CutPrefix(f.Name, "ppt/slides/slide")
		if !ok || !strings.HasSuffix(rest, ".xml") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(rest, ".xml"))
		if err != nil {
			continue
		}
		slides = append(slides, slide{f.Name, n})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })

	names := make([]string, len(slides))
	for i, s := range slides {
		names[i] = s.name
	}
	return names
}

func zipParagraphs(zr *zip.Reader, name string) ([]string, error) {
	f, err := zr.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()
	return ooxmlParagraphs(f)
}

// ooxmlParagraphs extracts non-empty paragraphs from WordprocessingML or
// DrawingML; both use <p> for paragraphs and <t> for text runs
func ooxmlParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		paras  []string
		sb     strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse document xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if s := strings.TrimSpace(sb.String()); s != "" {
					paras = append(paras, s)
				}
				sb.Reset()
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return paras, nil
}

func truncateCell(s string) string {
	r := []rune(s)
	if len(r) > maxCellRunes {
		return string(r[:maxCellRunes])
	}
	return s
}
