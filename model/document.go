package model

import (
	"net/url"
	"time"
)

// Analysis status constants
const (
	StatusUnknown   = "unknown"
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusMalformed = "malformed"
	StatusFailed    = "failed"
)

// DocumentRecord is one entry of a user's upload history
type DocumentRecord struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	UploadDate string `json:"upload_date"`
	// UploadDateEstimated is set when the backend gave no usable date and
	// UploadDate holds the day the history was fetched.
	UploadDateEstimated bool `json:"upload_date_estimated"`
}

// Path returns the escaped route segment for the document name
func (d DocumentRecord) Path() string {
	return url.PathEscape(d.Name)
}

// ClauseSummary is a titled summary of one contract clause
type ClauseSummary struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// ParsedDocument is the structured view of a processed document
type ParsedDocument struct {
	OriginalText          string          `json:"original_text"`
	ColloquialTranslation string          `json:"colloquial_translation"`
	Clauses               []ClauseSummary `json:"clauses"`
	Status                string          `json:"status"`
}

// ChatMessage is one turn of a conversation about a document
type ChatMessage struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	IsUser    bool      `json:"is_user"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation holds the transcript of one chat session
type Conversation struct {
	ID           string        `json:"id"`
	Username     string        `json:"username"`
	DocumentName string        `json:"document_name"`
	Messages     []ChatMessage `json:"messages"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// AnalysisState is the last known analysis status of a document
type AnalysisState struct {
	DocumentName string    `json:"document_name"`
	Status       string    `json:"status"`
	ErrorMsg     string    `json:"error_msg,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Session identifies the logged-in user
type Session struct {
	Username string `json:"username" yaml:"username"`
	UserHash string `json:"user_hash" yaml:"user_hash"`
}

// Valid reports whether the session carries an identity
func (s Session) Valid() bool {
	return s.Username != "" && s.UserHash != ""
}
