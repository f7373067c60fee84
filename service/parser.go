package service

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/MichelMeloG/JurChat/model"
)

// Markers the analysis workflow wraps around its output.
const (
	TranslationStart = "<INICIO_TRADUCAO_COLQUIAL>"
	TranslationEnd   = "<FIM_TRADUCAO_COLQUIAL>"
	ClausesStart     = "<INICIO_RESUMO_CLAUSULAS>"
	ClausesEnd       = "<FIM_RESUMO_CLAUSULAS>"
	ClauseSeparator  = "---CLAU.FIM---"
	clauseTitleSep   = "::"
)

// Placeholder texts shown in place of missing content.
const (
	NotAnalyzedMessage      = "This document has not been analyzed yet. Ask a question in the chat to start the analysis."
	OriginalUnavailableText = "Original text extracted by the system - processed content"
	AnalysisUnavailableText = "The document analysis is unavailable: the response was incomplete. Try reloading the document."
	ParseErrorOriginalText  = "Error processing document"
	ParseErrorTranslation   = "Error processing analysis. Please try again."
	minOriginalTextRunes    = 50
	highlightOpen           = "<mark>"
	highlightClose          = "</mark>"
)

var (
	boilerplateLine = regexp.MustCompile(`(?i)^(aqui está|segue|documento:|análise:|texto:|conteúdo:)`)
	separatorLine   = regexp.MustCompile(`^[-=_]{3,}$`)
)

// ParseDocumentContent splits a processed document into its original text,
// colloquial translation and clause summaries. It never panics.
func ParseDocumentContent(content string) (doc model.ParsedDocument) {
	defer func() {
		if recover() != nil {
			doc = model.ParsedDocument{
				OriginalText:          ParseErrorOriginalText,
				ColloquialTranslation: ParseErrorTranslation,
				Clauses:               []model.ClauseSummary{},
				Status:                model.StatusFailed,
			}
		}
	}()

	before, rest, structured := strings.Cut(content, TranslationStart)
	if !structured {
		return model.ParsedDocument{
			OriginalText:          content,
			ColloquialTranslation: NotAnalyzedMessage,
			Clauses:               []model.ClauseSummary{},
			Status:                model.StatusPending,
		}
	}

	doc = model.ParsedDocument{
		OriginalText: cleanOriginalText(before),
		Clauses:      parseClauses(content),
		Status:       model.StatusCompleted,
	}

	translation, _, closed := strings.Cut(rest, TranslationEnd)
	if closed {
		doc.ColloquialTranslation = strings.TrimSpace(translation)
	} else {
		doc.ColloquialTranslation = AnalysisUnavailableText
		doc.Status = model.StatusMalformed
	}

	return doc
}

func cleanOriginalText(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	kept := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if boilerplateLine.MatchString(trimmed) || separatorLine.MatchString(trimmed) {
			continue
		}
		if trimmed == "" {
			// keep at most one blank line between paragraphs
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		kept = append(kept, strings.TrimRight(line, "\r"))
	}

	cleaned := strings.TrimSpace(strings.Join(kept, "\n"))
	if utf8.RuneCountInString(cleaned) < minOriginalTextRunes {
		return OriginalUnavailableText
	}
	return cleaned
}

func parseClauses(content string) []model.ClauseSummary {
	clauses := []model.ClauseSummary{}

	_, rest, ok := strings.Cut(content, ClausesStart)
	if !ok {
		return clauses
	}
	block, _, ok := strings.Cut(rest, ClausesEnd)
	if !ok {
		return clauses
	}

	for _, segment := range strings.Split(block, ClauseSeparator) {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		title, summary, found := strings.Cut(segment, clauseTitleSep)
		if !found {
			continue
		}
		clauses = append(clauses, model.ClauseSummary{
			Title:   strings.TrimSpace(title),
			Summary: strings.TrimSpace(summary),
		})
	}
	return clauses
}

// FormatText normalizes line breaks for display.
func FormatText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text)
}

// HighlightText wraps every case-insensitive occurrence of term in <mark>
// tags. A blank term returns text unchanged.
func HighlightText(text, term string) string {
	if strings.TrimSpace(term) == "" {
		return text
	}
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(term))
	return re.ReplaceAllStringFunc(text, func(match string) string {
		return highlightOpen + match + highlightClose
	})
}

// HighlightDocument applies HighlightText to every text field of doc.
func HighlightDocument(doc model.ParsedDocument, term string) model.ParsedDocument {
	if strings.TrimSpace(term) == "" {
		return doc
	}
	out := doc
	out.OriginalText = HighlightText(doc.OriginalText, term)
	out.ColloquialTranslation = HighlightText(doc.ColloquialTranslation, term)
	out.Clauses = make([]model.ClauseSummary, len(doc.Clauses))
	for i, clause := range doc.Clauses {
		out.Clauses[i] = model.ClauseSummary{
			Title:   HighlightText(clause.Title, term),
			Summary: HighlightText(clause.Summary, term),
		}
	}
	return out
}
