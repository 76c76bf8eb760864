package pdfextract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extractor pulls plain text out of an uploaded PDF. Implementations may
// return empty text; the ingestion pipeline treats that as a failure.
type Extractor interface {
	Extract(data []byte) (string, error)
}

type extractor struct{}

func New() Extractor {
	return extractor{}
}

func (extractor) Extract(data []byte) (text string, err error) {
	// The pdf library panics on some malformed inputs; a bad upload must
	// surface as an error, not kill the worker.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var sb strings.Builder
	if _, err := io.Copy(&sb, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return sb.String(), nil
}
