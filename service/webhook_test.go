package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MichelMeloG/JurChat/config"
)

func newTestWebhookConfig(baseURL string) *config.WebhookConfig {
	return &config.WebhookConfig{
		BaseURL:        baseURL,
		LoginPath:      "/login",
		RegisterPath:   "/register",
		HistoryPath:    "/history",
		DocumentPath:   "/document",
		UploadPath:     "/upload",
		ChatPath:       "/chat",
		Timeout:        5 * time.Second,
		UploadTimeout:  5 * time.Second,
		UploadAttempts: 3,
		RetryBackoff:   time.Millisecond,
	}
}

func decodeJSONBody(t *testing.T, r *http.Request) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func TestNewWebhookClient(t *testing.T) {
	cfg := newTestWebhookConfig("http://backend.test")

	client := NewWebhookClient(cfg)

	require.NotNil(t, client)
	assert.Same(t, cfg, client.config)
	assert.NotNil(t, client.httpClient)
	assert.Equal(t, "http://backend.test/login", client.url("/login"))
	assert.Equal(t, "http://backend.test/login", NewWebhookClient(newTestWebhookConfig("http://backend.test/")).url("login"))
}

func TestWebhookClientAuthenticate(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     bool
	}{
		{"string True", `{"confirmation": "True"}`, true},
		{"string lowercase", `{"confirmation": "true"}`, true},
		{"boolean", `{"confirmation": true}`, true},
		{"wrapped in array", `[{"confirmation": "True"}]`, true},
		{"bare text", `True`, true},
		{"string False", `{"confirmation": "False"}`, false},
		{"missing field", `{"ok": true}`, false},
		{"empty array", `[]`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/login", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				body := decodeJSONBody(t, r)
				assert.Equal(t, "user-hash", body["username"])
				assert.Equal(t, "pass-hash", body["password"])

				io.WriteString(w, tt.response)
			}))
			defer server.Close()

			client := NewWebhookClient(newTestWebhookConfig(server.URL))
			ok, err := client.Authenticate(context.Background(), "user-hash", "pass-hash")

			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestWebhookClientRegister(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/register", r.URL.Path)
		body := decodeJSONBody(t, r)
		assert.Equal(t, "u", body["username"])
		assert.Equal(t, "e", body["email"])
		assert.Equal(t, "p", body["password"])
		io.WriteString(w, `{"confirmation": "True"}`)
	}))
	defer server.Close()

	client := NewWebhookClient(newTestWebhookConfig(server.URL))
	ok, err := client.Register(context.Background(), "u", "e", "p")

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWebhookClientGetHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/history", r.URL.Path)
		assert.Equal(t, "user-hash", decodeJSONBody(t, r)["username"])
		io.WriteString(w, "doc1.pdf\ndoc2.pdf")
	}))
	defer server.Close()

	client := NewWebhookClient(newTestWebhookConfig(server.URL))
	raw, err := client.GetHistory(context.Background(), "user-hash")

	require.NoError(t, err)
	assert.Equal(t, "doc1.pdf\ndoc2.pdf", string(raw))
}

func TestWebhookClientGetDocument(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{"plain text", "Conteúdo do contrato", "Conteúdo do contrato"},
		{"json string", `"Conteúdo do contrato"`, "Conteúdo do contrato"},
		{"text field", `{"text": "Conteúdo"}`, "Conteúdo"},
		{"output field in array", `[{"output": "Conteúdo"}]`, "Conteúdo"},
		{"unknown object", `{"other": 1}`, `{"other": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/document", r.URL.Path)
				assert.Equal(t, "contrato.pdf", decodeJSONBody(t, r)["nome_documento"])
				io.WriteString(w, tt.response)
			}))
			defer server.Close()

			client := NewWebhookClient(newTestWebhookConfig(server.URL))
			text, err := client.GetDocument(context.Background(), "contrato.pdf")

			require.NoError(t, err)
			assert.Equal(t, tt.want, text)
		})
	}
}

func TestWebhookClientChatWithDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat", r.URL.Path)
		body := decodeJSONBody(t, r)
		assert.Equal(t, "contrato.pdf", body["nome_documento"])
		assert.Equal(t, "Qual o prazo?", body["chat_input"])
		io.WriteString(w, `{"output": "Doze meses."}`)
	}))
	defer server.Close()

	client := NewWebhookClient(newTestWebhookConfig(server.URL))
	answer, err := client.ChatWithDocument(context.Background(), "contrato.pdf", "Qual o prazo?")

	require.NoError(t, err)
	assert.Equal(t, "Doze meses.", answer)
}

func TestWebhookClientStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "workflow offline")
	}))
	defer server.Close()

	client := NewWebhookClient(newTestWebhookConfig(server.URL))
	_, err := client.GetDocument(context.Background(), "contrato.pdf")

	var webhookErr *WebhookError
	require.ErrorAs(t, err, &webhookErr)
	assert.Equal(t, http.StatusBadGateway, webhookErr.StatusCode)
	assert.Equal(t, "get document", webhookErr.Operation)
	assert.Contains(t, err.Error(), "HTTP Error 502")
	assert.Contains(t, err.Error(), "workflow offline")
}

func TestWebhookClientUploadDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "user-hash", r.FormValue("username"))
		assert.Equal(t, `contrato "final".pdf`, r.FormValue("nome_documento"))
		assert.Equal(t, "true", r.FormValue("is_file"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		content, _ := io.ReadAll(file)

		assert.Equal(t, `contrato "final".pdf`, header.Filename)
		assert.Equal(t, "application/pdf", header.Header.Get("Content-Type"))
		assert.Equal(t, "%PDF-1.4 body", string(content))

		io.WriteString(w, `{"status": "ok"}`)
	}))
	defer server.Close()

	client := NewWebhookClient(newTestWebhookConfig(server.URL))
	body, err := client.UploadDocument(context.Background(), UploadRequest{
		Filename:    `contrato "final".pdf`,
		ContentType: "application/pdf",
		Content:     []byte("%PDF-1.4 body"),
		UserHash:    "user-hash",
	})

	require.NoError(t, err)
	assert.JSONEq(t, `{"status": "ok"}`, string(body))
}

func TestWebhookClientUploadRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, "ok")
	}))
	defer server.Close()

	client := NewWebhookClient(newTestWebhookConfig(server.URL))
	body, err := client.UploadDocument(context.Background(), UploadRequest{Filename: "a.pdf", ContentType: "application/pdf"})

	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestWebhookClientUploadGivesUpAfterAttempts(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewWebhookClient(newTestWebhookConfig(server.URL))
	_, err := client.UploadDocument(context.Background(), UploadRequest{Filename: "a.pdf"})

	var webhookErr *WebhookError
	require.ErrorAs(t, err, &webhookErr)
	assert.Equal(t, http.StatusInternalServerError, webhookErr.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestWebhookClientUploadDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusRequestEntityTooLarge)
	}))
	defer server.Close()

	client := NewWebhookClient(newTestWebhookConfig(server.URL))
	_, err := client.UploadDocument(context.Background(), UploadRequest{Filename: "a.pdf"})

	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestWebhookClientUploadStopsOnCancel(t *testing.T) {
	var calls int32
	ctx, cancel := context.WithCancel(context.Background())
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		cancel()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := newTestWebhookConfig(server.URL)
	cfg.RetryBackoff = time.Minute
	client := NewWebhookClient(cfg)

	_, err := client.UploadDocument(ctx, UploadRequest{Filename: "a.pdf"})

	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestWebhookClientTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewWebhookClient(newTestWebhookConfig(url))
	_, err := client.GetHistory(context.Background(), "u")

	require.Error(t, err)
	var webhookErr *WebhookError
	assert.False(t, errors.As(err, &webhookErr))
	assert.Contains(t, err.Error(), "failed to send request")
}

func TestRetryableUploadError(t *testing.T) {
	assert.True(t, retryableUploadError(errors.New("connection reset")))
	assert.True(t, retryableUploadError(&WebhookError{StatusCode: http.StatusTooManyRequests}))
	assert.True(t, retryableUploadError(&WebhookError{StatusCode: http.StatusRequestTimeout}))
	assert.True(t, retryableUploadError(&WebhookError{StatusCode: http.StatusBadGateway}))
	assert.False(t, retryableUploadError(&WebhookError{StatusCode: http.StatusUnsupportedMediaType}))
	assert.False(t, retryableUploadError(context.Canceled))
}

func TestWebhookErrorTruncatesOnRuneBoundary(t *testing.T) {
	body := strings.Repeat("ç", 250)
	err := &WebhookError{Operation: "get document", StatusCode: http.StatusBadGateway, Body: body}

	msg := err.Error()
	assert.True(t, utf8.ValidString(msg))
	assert.Contains(t, msg, strings.Repeat("ç", 200)+"...")
	assert.NotContains(t, msg, strings.Repeat("ç", 201))

	short := &WebhookError{Operation: "chat", StatusCode: http.StatusInternalServerError, Body: "falha"}
	assert.Equal(t, "chat: webhook returned HTTP Error 500: falha", short.Error())
}
