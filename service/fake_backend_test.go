package service

import (
	"context"
	"sync"
)

// fakeBackend records calls and returns canned answers.
type fakeBackend struct {
	mu sync.Mutex

	authOK     bool
	registerOK bool
	history    []byte
	document   string
	answer     string
	uploadBody []byte
	err        error
	uploadErr  error
	uploads    []UploadRequest
	questions  []string
	calls      int
}

func (f *fakeBackend) record() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeBackend) Authenticate(ctx context.Context, userHash, passwordHash string) (bool, error) {
	f.record()
	return f.authOK, f.err
}

func (f *fakeBackend) Register(ctx context.Context, userHash, emailHash, passwordHash string) (bool, error) {
	f.record()
	return f.registerOK, f.err
}

func (f *fakeBackend) GetHistory(ctx context.Context, userHash string) ([]byte, error) {
	f.record()
	return f.history, f.err
}

func (f *fakeBackend) GetDocument(ctx context.Context, name string) (string, error) {
	f.record()
	return f.document, f.err
}

func (f *fakeBackend) UploadDocument(ctx context.Context, req UploadRequest) ([]byte, error) {
	f.record()
	f.mu.Lock()
	f.uploads = append(f.uploads, req)
	f.mu.Unlock()
	return f.uploadBody, f.uploadErr
}

func (f *fakeBackend) ChatWithDocument(ctx context.Context, name, question string) (string, error) {
	f.record()
	f.mu.Lock()
	f.questions = append(f.questions, question)
	f.mu.Unlock()
	return f.answer, f.err
}
