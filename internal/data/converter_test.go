package data

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/domain"
)

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func assertPDF(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")), "not a PDF: %s", path)
}

func newTestConverter(t *testing.T) (*pdfConverter, string) {
	t.Helper()
	dir := t.TempDir()
	c := NewPDFConverter(filepath.Join(dir, "out"), filepath.Join(dir, "missing.ttf"), zap.NewNop()).(*pdfConverter)
	return c, dir
}

const docxBody = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Quarterly</w:t></w:r><w:r><w:t xml:space="preserve"> report</w:t></w:r></w:p>
    <w:p></w:p>
    <w:p><w:r><w:t>Revenue</w:t><w:tab/><w:t>grew</w:t></w:r></w:p>
  </w:body>
</w:document>`

func slideXML(texts ...string) string {
	var sb strings.Builder
	sb.WriteString(`<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"><p:cSld><p:spTree>`)
	for _, t := range texts {
		sb.WriteString(`<p:sp><p:txBody><a:p><a:r><a:t>` + t + `</a:t></a:r></a:p></p:txBody></p:sp>`)
	}
	sb.WriteString(`</p:spTree></p:cSld></p:sld>`)
	return sb.String()
}

func TestOOXMLParagraphs(t *testing.T) {
	paras, err := ooxmlParagraphs(strings.NewReader(docxBody))
	require.NoError(t, err)
	assert.Equal(t, []string{"Quarterly report", "Revenue\tgrew"}, paras)

	paras, err = ooxmlParagraphs(strings.NewReader(slideXML("Title", "Body text")))
	require.NoError(t, err)
	assert.Equal(t, []string{"Title", "Body text"}, paras)

	_, err = ooxmlParagraphs(strings.NewReader("<a><b></a>"))
	assert.Error(t, err)
}

func TestSlideNames_NumericOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.pptx")
	writeZip(t, path, map[string]string{
		"ppt/slides/slide10.xml":            slideXML("ten"),
		"ppt/slides/slide2.xml":             slideXML("two"),
		"ppt/slides/slide1.xml":             slideXML("one"),
		"ppt/slides/_rels/slide1.xml.rels":  "<Relationships/>",
		"ppt/slideLayouts/slideLayout1.xml": "<x/>",
	})

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	assert.Equal(t, []string{"ppt/slides/slide1.xml", "ppt/slides/slide2.xml", "ppt/slides/slide10.xml"}, slideNames(&zr.Reader))
}

func TestPDFConverter_Formats(t *testing.T) {
	c, dir := newTestConverter(t)
	ctx := context.Background()

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("line one\r\nline two\n"), 0644))

	docx := filepath.Join(dir, "report.docx")
	writeZip(t, docx, map[string]string{"word/document.xml": docxBody})

	pptx := filepath.Join(dir, "deck.pptx")
	writeZip(t, pptx, map[string]string{
		"ppt/slides/slide1.xml": slideXML("Intro", "Hello"),
		"ppt/slides/slide2.xml": slideXML("Next"),
	})

	xlsx := filepath.Join(dir, "table.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Name"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "A very long column header value"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "Kyiv"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 3))
	require.NoError(t, f.SaveAs(xlsx))
	require.NoError(t, f.Close())

	for _, in := range []string{txt, docx, pptx, xlsx} {
		t.Run(filepath.Ext(in), func(t *testing.T) {
			out, err := c.ToPDF(ctx, in)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, "out"), filepath.Dir(out))
			assert.True(t, strings.HasPrefix(filepath.Base(out), "converted_"))
			assertPDF(t, out)
		})
	}
}

func TestPDFConverter_PassThroughAndErrors(t *testing.T) {
	c, dir := newTestConverter(t)
	ctx := context.Background()

	pdf := filepath.Join(dir, "doc.PDF")
	out, err := c.ToPDF(ctx, pdf)
	require.NoError(t, err)
	assert.Equal(t, pdf, out)

	_, err = c.ToPDF(ctx, filepath.Join(dir, "song.mp3"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedDocument)

	broken := filepath.Join(dir, "broken.docx")
	require.NoError(t, os.WriteFile(broken, []byte("not a zip"), 0644))
	_, err = c.ToPDF(ctx, broken)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrUnsupportedDocument)

	empty := filepath.Join(dir, "empty.pptx")
	writeZip(t, empty, map[string]string{"ppt/presentation.xml": "<p/>"})
	_, err = c.ToPDF(ctx, empty)
	assert.Error(t, err)
}

func TestTruncateCell(t *testing.T) {
	assert.Equal(t, "short", truncateCell("short"))
	assert.Equal(t, "Дуже довга назва кол", truncateCell("Дуже довга назва колонки"))
}
