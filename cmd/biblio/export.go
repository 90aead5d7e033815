package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/biblio/internal/enrich"
	"github.com/matsen/biblio/internal/entry"
	"github.com/matsen/biblio/internal/export"
)

var (
	exportInput        string
	exportOutput       string
	exportInputFormat  string
	exportOutputFormat string
	exportInputSchema  string
	exportRepair       bool
	exportAuthors      []string
	exportAnnotate     bool
	exportPartial      bool
	exportOverwrite    bool
	exportTemplate     string
	exportAppend       bool
)

func init() {
	exportCmd.Flags().StringVarP(&exportInput, "input", "i", "", "Input file (required)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (required)")
	exportCmd.Flags().StringVarP(&exportInputFormat, "input-format", "f", "", "Input format (default from extension)")
	exportCmd.Flags().StringVarP(&exportOutputFormat, "output-format", "O", "", "Output format: csv, tsv, json, jsonl, yaml, markdown, bibtex")
	exportCmd.Flags().StringVarP(&exportInputSchema, "input-schema", "s", "", "Input column schema: paperpile, bibm, minimal")
	exportCmd.Flags().BoolVar(&exportRepair, "repair", false, "Repair entries before exporting")
	exportCmd.Flags().StringArrayVarP(&exportAuthors, "author", "a", nil, "Author name or regex to highlight and annotate (repeatable)")
	exportCmd.Flags().BoolVar(&exportAnnotate, "annotate-position", false, "Record position, rank, significance and role of the --author")
	exportCmd.Flags().BoolVar(&exportPartial, "partial", false, "Match --author as a prefix pattern when annotating")
	exportCmd.Flags().BoolVar(&exportOverwrite, "overwrite", false, "Overwrite existing position annotations")
	exportCmd.Flags().StringVarP(&exportTemplate, "template", "T", "", "text/template file for Markdown output")
	exportCmd.Flags().BoolVar(&exportAppend, "append", false, "Append entries missing from an existing BibTeX file")
	exportCmd.MarkFlagRequired("input")
	exportCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Convert entries to another format",
	Long: `Convert entries to another format, optionally repairing them and
annotating an author's position first.

Examples:
  biblio export -i papers.csv -o papers.yaml
  biblio export -i papers.csv -o cv.md --repair -a "Smith J" --annotate-position
  biblio export -i papers.jsonl -o refs.bib --append`,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	entries := mustLoadEntries(exportInput, exportInputFormat, exportInputSchema)

	if exportRepair {
		engine, closeEngine := newEngine(mustLoadSchema())
		repaired, err := engine.RepairAll(cmd.Context(), entries, enrich.RepairOptions{}, workerCount())
		closeEngine()
		if err != nil {
			exitWithError(lookupExitCode(err), "repairing: %v", err)
		}
		entries = repaired
	}

	if exportAnnotate {
		annotated, err := annotateAuthors(entries, exportAuthors, enrich.AnnotateOptions{
			Overwrite: exportOverwrite,
			Partial:   exportPartial,
		})
		if errors.Is(err, enrich.ErrMissingInput) {
			exitWithError(ExitDataError, "--annotate-position requires --author: %v", err)
		}
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		entries = annotated
	}

	opts := outputOptions{
		Markdown: export.MarkdownOptions{Template: exportTemplate, Authors: exportAuthors},
		Append:   exportAppend,
	}
	format, err := writeEntries(exportOutput, exportOutputFormat, entries, opts)
	if err != nil {
		exitWithError(ExitError, "writing output: %v", err)
	}

	resp := WriteResponse{Status: "written", Path: exportOutput, Format: string(format), Entries: len(entries)}
	if humanOutput {
		outputHuman("Exported %d entries to %s (%s)\n", resp.Entries, resp.Path, resp.Format)
		return nil
	}
	return outputJSON(resp)
}

// annotateAuthors annotates entries for each author in turn. Without
// overwrite, the first author listed takes precedence.
func annotateAuthors(entries []entry.Entry, authors []string, opts enrich.AnnotateOptions) ([]entry.Entry, error) {
	if len(authors) == 0 {
		return nil, enrich.ErrMissingInput
	}
	for _, a := range authors {
		annotated, err := enrich.Annotate(entries, a, opts)
		if err != nil {
			return nil, fmt.Errorf("annotating %q: %w", a, err)
		}
		entries = annotated
	}
	return entries, nil
}
