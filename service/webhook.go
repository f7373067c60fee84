package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MichelMeloG/JurChat/config"
	"github.com/MichelMeloG/JurChat/pkg/logger"
)

// Backend is the set of operations the analysis workflow exposes.
type Backend interface {
	Authenticate(ctx context.Context, userHash, passwordHash string) (bool, error)
	Register(ctx context.Context, userHash, emailHash, passwordHash string) (bool, error)
	GetHistory(ctx context.Context, userHash string) ([]byte, error)
	GetDocument(ctx context.Context, name string) (string, error)
	UploadDocument(ctx context.Context, req UploadRequest) ([]byte, error)
	ChatWithDocument(ctx context.Context, name, question string) (string, error)
}

// WebhookClient calls the workflow backend through its webhook endpoints.
type WebhookClient struct {
	config     *config.WebhookConfig
	httpClient *http.Client
}

// UploadRequest is a validated document ready to be sent to the backend
type UploadRequest struct {
	Filename    string
	ContentType string
	Content     []byte
	UserHash    string
}

// WebhookError is returned when the backend answers with a non-2xx status
type WebhookError struct {
	Operation  string
	StatusCode int
	Body       string
}

const maxErrorBodyRunes = 200

func (e *WebhookError) Error() string {
	return fmt.Sprintf("%s: webhook returned HTTP Error %d: %s", e.Operation, e.StatusCode, truncateRunes(e.Body, maxErrorBodyRunes))
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type historyRequest struct {
	Username string `json:"username"`
}

type documentRequest struct {
	DocumentName string `json:"nome_documento"`
}

type chatRequest struct {
	DocumentName string `json:"nome_documento"`
	ChatInput    string `json:"chat_input"`
}

// text-bearing fields probed when a response wraps its text in JSON
var textFields = []string{"text", "content", "output", "data", "response", "answer"}

func NewWebhookClient(cfg *config.WebhookConfig) *WebhookClient {
	return &WebhookClient{
		config:     cfg,
		httpClient: &http.Client{},
	}
}

// Authenticate asks the backend to confirm a hashed username/password pair
func (c *WebhookClient) Authenticate(ctx context.Context, userHash, passwordHash string) (bool, error) {
	body, err := c.postJSON(ctx, "authenticate", c.config.LoginPath, loginRequest{
		Username: userHash,
		Password: passwordHash,
	})
	if err != nil {
		return false, err
	}
	return parseConfirmation(body), nil
}

// Register creates an account from hashed credentials
func (c *WebhookClient) Register(ctx context.Context, userHash, emailHash, passwordHash string) (bool, error) {
	body, err := c.postJSON(ctx, "register", c.config.RegisterPath, registerRequest{
		Username: userHash,
		Email:    emailHash,
		Password: passwordHash,
	})
	if err != nil {
		return false, err
	}
	return parseConfirmation(body), nil
}

// GetHistory returns the raw history payload for a user
func (c *WebhookClient) GetHistory(ctx context.Context, userHash string) ([]byte, error) {
	return c.postJSON(ctx, "get history", c.config.HistoryPath, historyRequest{Username: userHash})
}

// GetDocument returns the processed text of a document
func (c *WebhookClient) GetDocument(ctx context.Context, name string) (string, error) {
	body, err := c.postJSON(ctx, "get document", c.config.DocumentPath, documentRequest{DocumentName: name})
	if err != nil {
		return "", err
	}
	return extractText(body), nil
}

// ChatWithDocument sends a question about a document and returns the answer
func (c *WebhookClient) ChatWithDocument(ctx context.Context, name, question string) (string, error) {
	body, err := c.postJSON(ctx, "chat", c.config.ChatPath, chatRequest{
		DocumentName: name,
		ChatInput:    question,
	})
	if err != nil {
		return "", err
	}
	return extractText(body), nil
}

// UploadDocument sends a document as multipart form data. Transport failures,
// timeouts, 408, 429 and 5xx answers are retried with exponential backoff up
// to the configured number of attempts; other failures return immediately.
func (c *WebhookClient) UploadDocument(ctx context.Context, req UploadRequest) ([]byte, error) {
	attempts := c.config.UploadAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := c.config.RetryBackoff

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		body, err := c.uploadOnce(ctx, req)
		if err == nil {
			logger.Info(ctx, "document uploaded", "filename", req.Filename, "attempt", attempt)
			return body, nil
		}
		lastErr = err

		if attempt == attempts || ctx.Err() != nil || !retryableUploadError(err) {
			break
		}

		logger.Warn(ctx, "upload attempt failed, retrying",
			"filename", req.Filename,
			"attempt", attempt,
			"backoff", backoff.String(),
			"error", err,
		)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("upload document: %w", ctx.Err())
		case <-timer.C:
		}
		backoff *= 2
	}

	return nil, lastErr
}

func (c *WebhookClient) uploadOnce(ctx context.Context, req UploadRequest) ([]byte, error) {
	payload, contentType, err := buildUploadForm(req)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.UploadTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(c.config.UploadPath), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "*/*")

	return c.do(httpReq, "upload document")
}

func buildUploadForm(req UploadRequest) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(req.Filename)))
	header.Set("Content-Type", req.ContentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(req.Content); err != nil {
		return nil, "", err
	}

	fields := [][2]string{
		{"username", req.UserHash},
		{"nome_documento", req.Filename},
		{"is_file", "true"},
	}
	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func retryableUploadError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var webhookErr *WebhookError
	if errors.As(err, &webhookErr) {
		return webhookErr.StatusCode == http.StatusRequestTimeout ||
			webhookErr.StatusCode == http.StatusTooManyRequests ||
			webhookErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}

func (c *WebhookClient) postJSON(ctx context.Context, operation, path string, payload any) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")

	return c.do(req, operation)
}

func (c *WebhookClient) do(req *http.Request, operation string) ([]byte, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to send request: %w", operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", operation, err)
	}

	logger.Debug(req.Context(), "webhook call finished",
		"operation", operation,
		"status", resp.StatusCode,
		"bytes", len(body),
		"latency_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &WebhookError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}
	return body, nil
}

func (c *WebhookClient) url(path string) string {
	return strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// parseConfirmation reads the backend's {"confirmation": "True"} answer, which
// may also arrive as a boolean, a bare string or inside a one-element array.
func parseConfirmation(body []byte) bool {
	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return strings.EqualFold(strings.TrimSpace(string(body)), "true")
	}
	return confirmationValue(value)
}

func confirmationValue(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true")
	case []any:
		return len(v) > 0 && confirmationValue(v[0])
	case map[string]any:
		if confirmation, ok := v["confirmation"]; ok {
			return confirmationValue(confirmation)
		}
	}
	return false
}

// extractText unwraps the text of a response that may be plain text, a JSON
// string, an object with a text field or an array of those.
func extractText(body []byte) string {
	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return string(body)
	}
	if text, ok := textValue(value); ok {
		return text
	}
	return string(body)
}

func textValue(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case []any:
		if len(v) > 0 {
			return textValue(v[0])
		}
	case map[string]any:
		for _, field := range textFields {
			if inner, ok := v[field]; ok {
				if text, ok := textValue(inner); ok {
					return text, true
				}
			}
		}
	}
	return "", false
}

// truncateRunes cuts s to at most n runes, marking the cut with "...".
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
