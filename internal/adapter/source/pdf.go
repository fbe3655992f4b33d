package source

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"ragqa/internal/domain"
)

// PDF extracts the plain text of a PDF document as one record titled after
// the file name.
type PDF struct{}

func NewPDF() *PDF { return &PDF{} }

func (p *PDF) Name() string { return "pdf" }

func (p *PDF) Parse(name string, data []byte) (records []domain.Record, err error) {
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			records = nil
			err = &domain.AdapterParseError{Source: name, Err: fmt.Errorf("malformed pdf: %v", r)}
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &domain.AdapterParseError{Source: name, Err: err}
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return nil, &domain.AdapterParseError{Source: name, Err: err}
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return nil, &domain.AdapterParseError{Source: name, Err: err}
	}

	base := filepath.Base(name)
	return []domain.Record{{
		Title:      strings.TrimSuffix(base, filepath.Ext(base)),
		Content:    strings.TrimSpace(buf.String()),
		SourceFile: base,
	}}, nil
}
