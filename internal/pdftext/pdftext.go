// Package pdftext pulls readable text out of uploaded resumes for scoring.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrNotPDF is returned when the input lacks a PDF header.
	ErrNotPDF = errors.New("not a PDF document")
	// ErrUnreadable is returned when the document cannot be parsed.
	ErrUnreadable = errors.New("unreadable PDF document")
)

// maxTextSize caps the extracted text of one document.
const maxTextSize = 4 << 20

// Extract returns the plain text of every page in data. Font encodings
// and ToUnicode maps are applied, so CID-keyed fonts decode to text.
func Extract(data []byte) (text string, err error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return "", ErrNotPDF
	}

	// The reader panics on some malformed object graphs.
	defer func() {
		if v := recover(); v != nil {
			text, err = "", fmt.Errorf("%w: %v", ErrUnreadable, v)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	out, err := io.ReadAll(io.LimitReader(plain, maxTextSize))
	if err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
