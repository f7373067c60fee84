package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/MichelMeloG/JurChat/config"
	"github.com/MichelMeloG/JurChat/middleware"
	"github.com/MichelMeloG/JurChat/model"
	"github.com/MichelMeloG/JurChat/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeResponse struct {
	status int
	body   string
}

type recordedRequest struct {
	JSON     map[string]string
	Form     map[string]string
	Filename string
	FileType string
	Content  []byte
}

// fakeWebhook stands in for the workflow backend, answering per path.
type fakeWebhook struct {
	mu        sync.Mutex
	responses map[string]fakeResponse
	requests  map[string][]recordedRequest
}

func newFakeWebhook() *fakeWebhook {
	return &fakeWebhook{
		responses: make(map[string]fakeResponse),
		requests:  make(map[string][]recordedRequest),
	}
}

func (f *fakeWebhook) respond(path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[path] = fakeResponse{status: status, body: body}
}

func (f *fakeWebhook) calls(path string) []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests[path]...)
}

func (f *fakeWebhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err == nil {
			rec.Form = map[string]string{}
			for k, v := range r.MultipartForm.Value {
				rec.Form[k] = v[0]
			}
			if file, header, err := r.FormFile("file"); err == nil {
				rec.Filename = header.Filename
				rec.FileType = header.Header.Get("Content-Type")
				rec.Content, _ = io.ReadAll(file)
				file.Close()
			}
		}
	} else {
		_ = json.NewDecoder(r.Body).Decode(&rec.JSON)
	}

	f.mu.Lock()
	f.requests[r.URL.Path] = append(f.requests[r.URL.Path], rec)
	resp, ok := f.responses[r.URL.Path]
	f.mu.Unlock()

	if !ok {
		resp = fakeResponse{status: http.StatusNotFound, body: "no such webhook"}
	}
	w.WriteHeader(resp.status)
	io.WriteString(w, resp.body)
}

type testGateway struct {
	router  *gin.Engine
	config  *config.Config
	webhook *fakeWebhook
	deps    Dependencies
}

func newTestGateway(t *testing.T) *testGateway {
	t.Helper()

	webhook := newFakeWebhook()
	server := httptest.NewServer(webhook)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		Server: config.ServerConfig{RateLimit: 1000},
		Webhook: config.WebhookConfig{
			BaseURL:        server.URL,
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
			CallbackSeed:   "test-seed",
		},
		Auth:    config.AuthConfig{JWTSecret: "test-secret", TokenExpireHours: 24},
		Upload:  config.UploadConfig{MaxSizeMB: 10},
		Display: config.DisplayConfig{DateLayout: "02/01/2006"},
		Store:   config.StoreConfig{MaxConversations: 100, MaxTrackedDocuments: 100},
	}

	deps := Dependencies{
		Backend: service.NewWebhookClient(&cfg.Webhook),
		Store:   service.NewConversationStore(&cfg.Store),
		Tracker: service.NewAnalysisTracker(cfg.Webhook.CallbackSeed, cfg.Store.MaxTrackedDocuments),
		Revoker: middleware.NewSessionRevoker(),
	}

	return &testGateway{
		router:  NewRouter(cfg, deps),
		config:  cfg,
		webhook: webhook,
		deps:    deps,
	}
}

func (g *testGateway) token(t *testing.T, username string) string {
	t.Helper()
	token, _, err := middleware.GenerateToken(model.Session{
		Username: username,
		UserHash: service.HashCredential(username),
	}, &g.config.Auth)
	require.NoError(t, err)
	return token
}

func (g *testGateway) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, req)
	return w
}

func (g *testGateway) upload(t *testing.T, token, filename, contentType string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func jsonString(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}
