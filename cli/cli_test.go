package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/MichelMeloG/JurChat/model"
	"github.com/MichelMeloG/JurChat/service"
)

// fakeWorkflow answers webhook calls by path and records the JSON or
// multipart fields it received.
type fakeWorkflow struct {
	mu        sync.Mutex
	responses map[string]string
	status    map[string]int
	received  map[string][]map[string]string
}

func newFakeWorkflow(t *testing.T) (*fakeWorkflow, string) {
	t.Helper()
	f := &fakeWorkflow{
		responses: map[string]string{},
		status:    map[string]int{},
		received:  map[string][]map[string]string{},
	}
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)
	return f, server.URL
}

func (f *fakeWorkflow) respond(path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[path] = status
	f.responses[path] = body
}

func (f *fakeWorkflow) calls(path string) []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.received[path]
}

func (f *fakeWorkflow) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := map[string]string{}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			for k, v := range r.MultipartForm.Value {
				fields[k] = v[0]
			}
			if file, header, err := r.FormFile("file"); err == nil {
				content, _ := io.ReadAll(file)
				file.Close()
				fields["file.name"] = header.Filename
				fields["file.type"] = header.Header.Get("Content-Type")
				fields["file.content"] = string(content)
			}
		}
	} else {
		_ = json.NewDecoder(r.Body).Decode(&fields)
	}

	f.mu.Lock()
	f.received[r.URL.Path] = append(f.received[r.URL.Path], fields)
	status, ok := f.status[r.URL.Path]
	body := f.responses[r.URL.Path]
	f.mu.Unlock()

	if !ok {
		status = http.StatusNotFound
	}
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf(`webhook:
  base_url: %s
  login_path: /login
  register_path: /register
  history_path: /history
  document_path: /document
  upload_path: /upload
  chat_path: /chat
  retry_backoff: 1ms
upload:
  max_size_mb: 1
`, baseURL)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func resetFlags() {
	verbose = false
	registerUsername = ""
	registerEmail = ""
	historyJSON = false
	showSearch = ""
	showSection = sectionAll
	showJSON = false
	chatMessage = ""
	servePort = 0
}

type cliResult struct {
	out    string
	errOut string
	err    error
}

func runCLI(t *testing.T, baseURL, stdin string, args ...string) cliResult {
	t.Helper()

	resetFlags()
	out := new(bytes.Buffer)
	errOut := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{
		"--config", writeConfig(t, baseURL),
		"--env-file", filepath.Join(t.TempDir(), "missing.env"),
	}, args...))
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetFlags()
	}()

	err := rootCmd.Execute()
	return cliResult{out: out.String(), errOut: errOut.String(), err: err}
}

// loggedIn stores a session for username in the mock keyring.
func loggedIn(t *testing.T, username string) model.Session {
	t.Helper()
	session := model.Session{Username: username, UserHash: service.HashCredential(username)}
	require.NoError(t, saveSession(session))
	return session
}

func setupKeyring(t *testing.T) {
	t.Helper()
	keyring.MockInit()
}
