package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/biblio/internal/validate"
)

var (
	validateInput        string
	validateInputFormat  string
	validateInputSchema  string
	validatePartial      bool
	validateReportFields []string
	validateNoTitle      bool
)

func init() {
	validateCmd.Flags().StringVarP(&validateInput, "input", "i", "", "Input file (required)")
	validateCmd.Flags().StringVarP(&validateInputFormat, "input-format", "f", "", "Input format (default from extension)")
	validateCmd.Flags().StringVarP(&validateInputSchema, "input-schema", "s", "", "Input column schema: paperpile, bibm, minimal")
	validateCmd.Flags().BoolVar(&validatePartial, "partial", false, "Skip shape checks; only look for duplicates")
	validateCmd.Flags().StringSliceVar(&validateReportFields, "report-field", nil, "Fields to include in duplicate messages (repeatable)")
	validateCmd.Flags().BoolVar(&validateNoTitle, "no-title-unique", false, "Do not require titles to be unique")
	validateCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Report missing fields, duplicates and misfiled preprints",
	Long: `Report missing required fields, entries sharing a unique key, and
preprint servers recorded as journals.

Exits with code 3 if any diagnostic is reported.

Examples:
  biblio validate -i papers.csv
  biblio validate -i refs.jsonl --report-field title --report-field year --human`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	sch := mustLoadSchema()
	entries := mustLoadEntries(validateInput, validateInputFormat, validateInputSchema)

	opts := validate.DefaultOptions()
	opts.Partial = validatePartial
	opts.ReportFields = splitList(validateReportFields)
	opts.EnforceTitleUniqueness = !validateNoTitle

	diags := validate.Collect(validate.Validate(entries, sch, opts))
	if diags == nil {
		diags = []validate.Diagnostic{}
	}

	if humanOutput {
		for _, d := range diags {
			outputHuman("%s\n", d)
		}
		if len(diags) == 0 {
			outputHuman("%d entries, no problems found\n", len(entries))
		}
	} else if err := outputJSON(diags); err != nil {
		return err
	}

	if len(diags) > 0 {
		os.Exit(ExitDataError)
	}
	return nil
}
