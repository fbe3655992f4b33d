package source

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragqa/internal/domain"
)

// buildPDF assembles a one-page PDF showing text in Helvetica.
func buildPDF(text string) []byte {
	stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestPDF_Parse(t *testing.T) {
	records, err := NewPDF().Parse("notes/week1-intro.pdf", buildPDF("Hello TDS"))
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "week1-intro", records[0].Title)
	assert.Equal(t, "week1-intro.pdf", records[0].SourceFile)
	assert.Contains(t, records[0].Content, "Hello TDS")
	assert.Empty(t, records[0].URL)
}

func TestPDF_Malformed(t *testing.T) {
	_, err := NewPDF().Parse("broken.pdf", []byte("this is not a pdf"))
	require.Error(t, err)

	var parseErr *domain.AdapterParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "broken.pdf", parseErr.Source)
}
