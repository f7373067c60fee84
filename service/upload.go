package service

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/http"
	"path/filepath"
	"strings"
)

const (
	MIMEPDF  = "application/pdf"
	MIMEDoc  = "application/msword"
	MIMEDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")
)

var allowedUploadTypes = map[string]bool{
	MIMEPDF:  true,
	MIMEDoc:  true,
	MIMEDocx: true,
}

var extensionTypes = map[string]string{
	".pdf":  MIMEPDF,
	".doc":  MIMEDoc,
	".docx": MIMEDocx,
}

// UploadErrorKind groups upload failures by the message shown to the user.
type UploadErrorKind string

const (
	UploadErrorTooLarge    UploadErrorKind = "too_large"
	UploadErrorUnsupported UploadErrorKind = "unsupported_type"
	UploadErrorNetwork     UploadErrorKind = "network"
	UploadErrorTimeout     UploadErrorKind = "timeout"
	UploadErrorServer      UploadErrorKind = "server"
	UploadErrorGeneric     UploadErrorKind = "generic"
)

// ValidateUpload resolves the content type of a file and checks it against the
// accepted document types and the size ceiling. It returns the resolved type.
func ValidateUpload(filename, contentType string, size, maxSize int64) (string, error) {
	resolved := resolveContentType(filename, contentType)
	if !allowedUploadTypes[resolved] {
		return resolved, fmt.Errorf("%w: %q", ErrUnsupportedType, resolved)
	}
	if size > maxSize {
		return resolved, fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, size, maxSize)
	}
	return resolved, nil
}

func resolveContentType(filename, contentType string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType == "" || contentType == "application/octet-stream" {
		if inferred, ok := extensionTypes[strings.ToLower(filepath.Ext(filename))]; ok {
			return inferred
		}
	}
	return contentType
}

// ClassifyUploadError maps an upload failure to its kind, checking typed errors
// before falling back to known substrings of the message.
func ClassifyUploadError(err error) UploadErrorKind {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrFileTooLarge):
		return UploadErrorTooLarge
	case errors.Is(err, ErrUnsupportedType):
		return UploadErrorUnsupported
	case errors.Is(err, context.DeadlineExceeded):
		return UploadErrorTimeout
	}

	var webhookErr *WebhookError
	if errors.As(err, &webhookErr) {
		switch {
		case webhookErr.StatusCode == http.StatusRequestEntityTooLarge:
			return UploadErrorTooLarge
		case webhookErr.StatusCode == http.StatusUnsupportedMediaType:
			return UploadErrorUnsupported
		case webhookErr.StatusCode == http.StatusRequestTimeout || webhookErr.StatusCode == http.StatusGatewayTimeout:
			return UploadErrorTimeout
		default:
			return UploadErrorServer
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return UploadErrorTimeout
		}
		return UploadErrorNetwork
	}

	e := strings.ToLower(err.Error())
	switch {
	case strings.Contains(e, "413"), strings.Contains(e, "too large"):
		return UploadErrorTooLarge
	case strings.Contains(e, "415"), strings.Contains(e, "unsupported"):
		return UploadErrorUnsupported
	case strings.Contains(e, "timeout"):
		return UploadErrorTimeout
	case strings.Contains(e, "connection refused"), strings.Contains(e, "no such host"),
		strings.Contains(e, "network"), strings.Contains(e, "failed to send request"):
		return UploadErrorNetwork
	case strings.Contains(e, "http error"):
		return UploadErrorServer
	default:
		return UploadErrorGeneric
	}
}

// UploadErrorMessage returns the user-facing message for an upload failure.
func UploadErrorMessage(err error) string {
	switch ClassifyUploadError(err) {
	case UploadErrorTooLarge:
		return "File too large. The limit is 10MB."
	case UploadErrorUnsupported:
		return "Unsupported file type. Use only PDF, DOC or DOCX."
	case UploadErrorNetwork:
		return "Connection error. Check your internet connection and try again."
	case UploadErrorTimeout:
		return "Timeout: the upload took too long. Try a smaller file."
	case UploadErrorServer:
		return "Server error: " + err.Error()
	default:
		return "File upload failed. Please try again."
	}
}
