package pdftext

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF lays out a one-page document with a cross-reference table.
// font is the dictionary of /F1; extra objects follow the content stream
// and are numbered from 6.
func buildPDF(t *testing.T, font, content string, extra ...string) []byte {
	t.Helper()
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		font,
		stream(content),
	}
	objects = append(objects, extra...)

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func stream(data string) string {
	return fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(data), data)
}

const helvetica = "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>"

func TestExtract_SimpleFont(t *testing.T) {
	pdf := buildPDF(t, helvetica, "BT /F1 12 Tf 72 720 Td (Jane Doe) Tj 0 -14 Td (Skills: Go, Docker) Tj ET")

	text, err := Extract(pdf)
	require.NoError(t, err)
	assert.Contains(t, text, "Jane Doe")
	assert.Contains(t, text, "Skills: Go, Docker")
}

func TestExtract_CIDFontWithToUnicode(t *testing.T) {
	cmap := `/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
/CMapName /Adobe-Identity-UCS def
/CMapType 2 def
1 begincodespacerange
<0000> <FFFF>
endcodespacerange
2 beginbfchar
<0011> <0047>
<0012> <006F>
endbfchar
endcmap
CMapName currentdict /CMap defineresource pop
end
end`
	font := "<< /Type /Font /Subtype /Type0 /BaseFont /ABCDEF+Calibri /Encoding /Identity-H /ToUnicode 6 0 R >>"
	pdf := buildPDF(t, font, "BT /F1 12 Tf 72 720 Td <00110012> Tj ET", stream(cmap))

	text, err := Extract(pdf)
	require.NoError(t, err)
	assert.Contains(t, text, "Go")
	assert.NotContains(t, text, "\x11")
}

func TestExtract_NotPDF(t *testing.T) {
	_, err := Extract([]byte("hello world"))
	assert.ErrorIs(t, err, ErrNotPDF)
}

func TestExtract_Unreadable(t *testing.T) {
	_, err := Extract([]byte("%PDF-1.4\nthis is not a document\n%%EOF"))
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestExtract_NoText(t *testing.T) {
	text, err := Extract(buildPDF(t, helvetica, "0 0 m 100 100 l S"))
	require.NoError(t, err)
	assert.Empty(t, text)
}
