package documents

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	ErrNotPDF        = errors.New("only PDF files are supported")
	ErrUnreadablePDF = errors.New("could not read PDF")
	ErrNoText        = errors.New("could not extract text from PDF")
)

// isPDF accepts a file when either its declared type or its leading bytes
// say PDF.
func isPDF(contentType string, data []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "pdf") {
		return true
	}
	return http.DetectContentType(data) == "application/pdf"
}

// extractPDFText returns the trimmed plain text of every page. The parser
// panics on some malformed inputs, so panics are reported as ErrUnreadablePDF.
func extractPDFText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: %v", ErrUnreadablePDF, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadablePDF, err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadablePDF, err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadablePDF, err)
	}

	text = strings.TrimSpace(string(raw))
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}
