package main

import (
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/matsen/biblio/internal/entry"
	"github.com/matsen/biblio/internal/importer"
	"github.com/matsen/biblio/internal/index"
	"github.com/matsen/biblio/internal/merge"
)

var (
	mergeInput        string
	mergeFrom         string
	mergeOutput       string
	mergeInputFormat  string
	mergeFromFormat   string
	mergeOutputFormat string
	mergeInputSchema  string
	mergeColumns      []string
	mergeOverwrite    bool
)

func init() {
	mergeCmd.Flags().StringVarP(&mergeInput, "input", "i", "", "Target file (required)")
	mergeCmd.Flags().StringVarP(&mergeFrom, "merge-from", "m", "", "Source file, in entry field names (required)")
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "", "Output file (required)")
	mergeCmd.Flags().StringVarP(&mergeInputFormat, "input-format", "f", "", "Target format (default from extension)")
	mergeCmd.Flags().StringVar(&mergeFromFormat, "merge-from-format", "", "Source format (default from extension)")
	mergeCmd.Flags().StringVarP(&mergeOutputFormat, "output-format", "O", "", "Output format (default from extension)")
	mergeCmd.Flags().StringVarP(&mergeInputSchema, "input-schema", "s", "", "Target column schema: paperpile, bibm, minimal")
	mergeCmd.Flags().StringSliceVarP(&mergeColumns, "columns", "c", nil, "Fields to copy (default all except the matched key)")
	mergeCmd.Flags().BoolVar(&mergeOverwrite, "overwrite", true, "Replace differing target values (--overwrite=false keeps them)")
	mergeCmd.MarkFlagRequired("input")
	mergeCmd.MarkFlagRequired("merge-from")
	mergeCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(mergeCmd)
}

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Copy fields into matching entries from another collection",
	Long: `Copy fields into matching entries from another collection.

Entries are matched on each unique key of the schema (doi, pmid, pmcid,
arxiv_id, title by default). Source entries with no match are ignored.
Either collection containing duplicate keys is an error.

Examples:
  biblio merge -i papers.csv -m curated.yaml -o merged.jsonl
  biblio merge -i papers.csv -m roles.jsonl -o merged.csv -c role,significance --overwrite=false`,
	RunE: runMerge,
}

func runMerge(cmd *cobra.Command, args []string) error {
	sch := mustLoadSchema()
	target := mustLoadEntries(mergeInput, mergeInputFormat, mergeInputSchema)
	source := mustLoadEntries(mergeFrom, mergeFromFormat, string(importer.SchemaBIBM))

	result, err := merge.Merge(target, source, sch, merge.Options{
		Fields:    splitList(mergeColumns),
		Overwrite: mergeOverwrite,
		Logger:    logrus.StandardLogger(),
	})
	var dup *index.DuplicateKeyError
	switch {
	case errors.As(err, &dup):
		exitWithError(ExitDataError, "%v", err)
	case errors.Is(err, entry.ErrUnknownField):
		exitWithError(ExitError, "%v", err)
	case err != nil:
		exitWithError(ExitError, "merging: %v", err)
	}

	format, err := writeEntries(mergeOutput, mergeOutputFormat, target, outputOptions{})
	if err != nil {
		exitWithError(ExitError, "writing output: %v", err)
	}

	resp := MergeResponse{
		WriteResponse: WriteResponse{Status: "written", Path: mergeOutput, Format: string(format), Entries: len(target)},
		Matches:       result.Matches,
		FieldsSet:     result.FieldsSet,
		Overwritten:   result.Overwritten,
	}
	for _, c := range result.Conflicts {
		resp.Conflicts = append(resp.Conflicts, c.String())
	}

	if humanOutput {
		outputHuman("Merged into %d entries: %d fields set, %d overwritten, %d conflicts kept\n",
			len(target), resp.FieldsSet, resp.Overwritten, len(resp.Conflicts))
		for key, n := range resp.Matches {
			outputHuman("  %s: %d matches\n", key, n)
		}
		return nil
	}
	return outputJSON(resp)
}
