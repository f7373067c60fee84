package service

import (
	"crypto/subtle"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/MichelMeloG/JurChat/model"
)

// AnalysisTracker records the latest known analysis status per document.
type AnalysisTracker struct {
	states       map[string]model.AnalysisState
	mu           sync.RWMutex
	seed         string
	maxDocuments int // 0 = unlimited
	now          func() time.Time
}

func NewAnalysisTracker(seed string, maxDocuments int) *AnalysisTracker {
	if maxDocuments < 0 {
		maxDocuments = 0
	}
	return &AnalysisTracker{
		states:       make(map[string]model.AnalysisState),
		seed:         seed,
		maxDocuments: maxDocuments,
		now:          time.Now,
	}
}

// ValidAnalysisStatus reports whether status is one the tracker accepts.
func ValidAnalysisStatus(status string) bool {
	switch status {
	case model.StatusPending, model.StatusCompleted, model.StatusMalformed, model.StatusFailed:
		return true
	}
	return false
}

func (t *AnalysisTracker) Set(document, status, errMsg string) model.AnalysisState {
	t.mu.Lock()
	defer t.mu.Unlock()

	state := model.AnalysisState{
		DocumentName: document,
		Status:       status,
		ErrorMsg:     errMsg,
		UpdatedAt:    t.now(),
	}
	t.states[document] = state
	t.cleanupIfNeeded(document)
	return state
}

// Get returns the tracked state, or StatusUnknown for documents never seen.
func (t *AnalysisTracker) Get(document string) model.AnalysisState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if state, ok := t.states[document]; ok {
		return state
	}
	return model.AnalysisState{DocumentName: document, Status: model.StatusUnknown}
}

// Len returns the number of tracked documents.
func (t *AnalysisTracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.states)
}

// CallbacksEnabled reports whether a callback seed is configured. Without one
// no callback can be verified.
func (t *AnalysisTracker) CallbacksEnabled() bool {
	return t.seed != ""
}

// VerifyCallback checks checksum = SHA256(document + seed + content). It always
// fails when no seed is configured.
func (t *AnalysisTracker) VerifyCallback(checksum, content, document string) bool {
	if !t.CallbacksEnabled() {
		return false
	}
	expected := HashCredential(document + t.seed + content)
	return subtle.ConstantTimeCompare([]byte(checksum), []byte(expected)) == 1
}

// cleanupIfNeeded evicts the least recently updated documents, never the one
// just written. Must be called with lock held.
func (t *AnalysisTracker) cleanupIfNeeded(keep string) {
	if t.maxDocuments <= 0 || len(t.states) <= t.maxDocuments {
		return
	}

	names := make([]string, 0, len(t.states))
	for name := range t.states {
		if name != keep {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		return t.states[names[i]].UpdatedAt.Before(t.states[names[j]].UpdatedAt)
	})

	removeCount := len(t.states) - t.maxDocuments
	for i := 0; i < removeCount && i < len(names); i++ {
		slog.Debug("evicting analysis status", "document", names[i])
		delete(t.states, names[i])
	}
}
