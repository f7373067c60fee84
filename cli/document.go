package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MichelMeloG/JurChat/model"
	"github.com/MichelMeloG/JurChat/service"
)

const (
	sectionAll         = "all"
	sectionOriginal    = "original"
	sectionTranslation = "translation"
	sectionClauses     = "clauses"
)

var (
	historyJSON bool

	showSearch  string
	showSection string
	showJSON    bool
)

var historyCmd = &cobra.Command{
	Use:     "history",
	Aliases: []string{"ls"},
	Short:   "List uploaded documents",
	Args:    cobra.NoArgs,
	RunE:    runHistory,
}

var showCmd = &cobra.Command{
	Use:   "show <document>",
	Short: "Show the analysis of a document",
	Long: `Shows the original text, the plain-language translation and the clause
summaries of a document. Use --search to mark every occurrence of a term.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a PDF, DOC or DOCX document for analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpload,
}

func init() {
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output documents as JSON")

	showCmd.Flags().StringVarP(&showSearch, "search", "s", "", "highlight occurrences of a term")
	showCmd.Flags().StringVar(&showSection, "section", sectionAll, "section to print: all, original, translation or clauses")
	showCmd.Flags().BoolVar(&showJSON, "json", false, "output the parsed document as JSON")

	rootCmd.AddCommand(historyCmd, showCmd, uploadCmd)
}

func newDocumentService() *service.DocumentService {
	return service.NewDocumentService(backend, service.NewAnalysisTracker("", cfg.Store.MaxTrackedDocuments), cfg)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	session, err := loadSession()
	if err != nil {
		return err
	}

	records, err := newDocumentService().History(cmd.Context(), session.UserHash)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	if historyJSON {
		return printJSON(cmd, records)
	}

	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No documents uploaded yet.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tUPLOADED")
	for _, r := range records {
		date := r.UploadDate
		if r.UploadDateEstimated {
			date += " (estimated)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.ID, r.Name, date)
	}
	return w.Flush()
}

func runShow(cmd *cobra.Command, args []string) error {
	switch showSection {
	case sectionAll, sectionOriginal, sectionTranslation, sectionClauses:
	default:
		return fmt.Errorf("unknown section %q", showSection)
	}

	if _, err := loadSession(); err != nil {
		return err
	}

	name := args[0]
	doc, err := newDocumentService().Document(cmd.Context(), name, showSearch)
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}

	if showJSON {
		return printJSON(cmd, doc)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s [%s]\n", name, doc.Status)

	if showSection == sectionAll || showSection == sectionOriginal {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "== Original text ==")
		fmt.Fprintln(out, service.FormatText(doc.OriginalText))
	}
	if showSection == sectionAll || showSection == sectionTranslation {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "== Plain-language translation ==")
		fmt.Fprintln(out, service.FormatText(doc.ColloquialTranslation))
	}
	if showSection == sectionAll || showSection == sectionClauses {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "== Clause summaries ==")
		printClauses(out, doc.Clauses)
	}
	return nil
}

func printClauses(out io.Writer, clauses []model.ClauseSummary) {
	if len(clauses) == 0 {
		fmt.Fprintln(out, "No clause summaries available.")
		return
	}
	for i, clause := range clauses {
		fmt.Fprintf(out, "%d. %s\n", i+1, clause.Title)
		for _, line := range strings.Split(service.FormatText(clause.Summary), "\n") {
			fmt.Fprintf(out, "   %s\n", line)
		}
	}
}

func runUpload(cmd *cobra.Command, args []string) error {
	session, err := loadSession()
	if err != nil {
		return err
	}

	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	filename := filepath.Base(path)

	// reject on size before reading the file
	if _, err := service.ValidateUpload(filename, "", info.Size(), cfg.Upload.MaxBytes()); err != nil {
		return errors.New(service.UploadErrorMessage(err))
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	result, err := newDocumentService().Upload(cmd.Context(), session.UserHash, filename, "", content)
	if err != nil {
		return errors.New(service.UploadErrorMessage(err))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "File uploaded successfully!")
	if result.Pages > 0 {
		fmt.Fprintf(out, "Pages: %d\n", result.Pages)
	}
	fmt.Fprintf(out, "View it with: jurchat show %q\n", result.Document.Name)
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
