package service

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PDFInfo describes an uploaded PDF.
type PDFInfo struct {
	Pages int `json:"pages"`
}

// InspectPDF reads the page count of a PDF held in memory. Malformed input
// yields an error, never a panic.
func InspectPDF(content []byte) (info PDFInfo, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("inspect pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return PDFInfo{}, fmt.Errorf("open pdf: %w", err)
	}
	return PDFInfo{Pages: r.NumPage()}, nil
}
