package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MichelMeloG/JurChat/config"
	"github.com/MichelMeloG/JurChat/model"
	"github.com/MichelMeloG/JurChat/pkg/logger"
)

// DocumentService combines the backend with history normalization, document
// parsing and analysis tracking.
type DocumentService struct {
	backend    Backend
	normalizer *HistoryNormalizer
	tracker    *AnalysisTracker
	config     *config.Config
	now        func() time.Time
}

func NewDocumentService(backend Backend, tracker *AnalysisTracker, cfg *config.Config) *DocumentService {
	return &DocumentService{
		backend:    backend,
		normalizer: NewHistoryNormalizer(cfg.Display.DateLayout),
		tracker:    tracker,
		config:     cfg,
		now:        time.Now,
	}
}

// UploadResult describes an accepted upload.
type UploadResult struct {
	Document    model.DocumentRecord `json:"document"`
	Path        string               `json:"path"`
	ContentType string               `json:"content_type"`
	Size        int64                `json:"size"`
	Pages       int                  `json:"pages,omitempty"`
}

// History returns the user's documents in the order the backend lists them.
func (s *DocumentService) History(ctx context.Context, userHash string) ([]model.DocumentRecord, error) {
	raw, err := s.backend.GetHistory(ctx, userHash)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	records := s.normalizer.Normalize(ctx, raw)
	logger.Debug(ctx, "history loaded", "documents", len(records))
	return records, nil
}

// Document fetches and parses a document. A non-blank query highlights its
// case-insensitive occurrences.
func (s *DocumentService) Document(ctx context.Context, name, query string) (model.ParsedDocument, error) {
	ctx = logger.WithDocument(ctx, name)

	content, err := s.backend.GetDocument(ctx, name)
	if err != nil {
		s.tracker.Set(name, model.StatusFailed, err.Error())
		return model.ParsedDocument{}, fmt.Errorf("get document: %w", err)
	}

	doc := ParseDocumentContent(content)
	switch doc.Status {
	case model.StatusMalformed:
		logger.Warn(ctx, "document analysis is missing a closing marker")
	case model.StatusFailed:
		logger.Error(ctx, "document content could not be parsed")
	}
	s.tracker.Set(name, doc.Status, "")

	if strings.TrimSpace(query) != "" {
		doc = HighlightDocument(doc, query)
	}
	return doc, nil
}

// Status returns the last known analysis status of a document.
func (s *DocumentService) Status(name string) model.AnalysisState {
	return s.tracker.Get(name)
}

// Upload validates a document and sends it to the backend. Validation errors
// wrap ErrUnsupportedType or ErrFileTooLarge and happen before any network call.
func (s *DocumentService) Upload(ctx context.Context, userHash, filename, contentType string, content []byte) (UploadResult, error) {
	ctx = logger.WithDocument(ctx, filename)

	resolved, err := ValidateUpload(filename, contentType, int64(len(content)), s.config.Upload.MaxBytes())
	if err != nil {
		logger.Warn(ctx, "upload rejected", "error", err)
		return UploadResult{}, err
	}

	result := UploadResult{
		ContentType: resolved,
		Size:        int64(len(content)),
	}
	if resolved == MIMEPDF {
		if info, err := InspectPDF(content); err != nil {
			logger.Warn(ctx, "could not inspect pdf", "error", err)
		} else {
			result.Pages = info.Pages
		}
	}

	_, err = s.backend.UploadDocument(ctx, UploadRequest{
		Filename:    filename,
		ContentType: resolved,
		Content:     content,
		UserHash:    userHash,
	})
	if err != nil {
		logger.Error(ctx, "upload failed", "error", err, "kind", string(ClassifyUploadError(err)))
		return UploadResult{}, err
	}

	result.Document = model.DocumentRecord{
		ID:         uuid.New().String(),
		Name:       filename,
		UploadDate: s.now().Format(s.config.Display.DateLayout),
	}
	result.Path = result.Document.Path()
	s.tracker.Set(filename, model.StatusPending, "")
	return result, nil
}
