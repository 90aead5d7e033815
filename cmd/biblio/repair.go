package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/biblio/internal/enrich"
)

var (
	repairInput        string
	repairOutput       string
	repairInputFormat  string
	repairOutputFormat string
	repairInputSchema  string
	repairReplace      bool
	repairRules        []string
)

func init() {
	repairCmd.Flags().StringVarP(&repairInput, "input", "i", "", "Input file (required)")
	repairCmd.Flags().StringVarP(&repairOutput, "output", "o", "", "Output file (required)")
	repairCmd.Flags().StringVarP(&repairInputFormat, "input-format", "f", "", "Input format (default from extension)")
	repairCmd.Flags().StringVarP(&repairOutputFormat, "output-format", "O", "", "Output format (default from extension)")
	repairCmd.Flags().StringVarP(&repairInputSchema, "input-schema", "s", "", "Input column schema: paperpile, bibm, minimal")
	repairCmd.Flags().BoolVar(&repairReplace, "replace", false, "Overwrite fields that are already set")
	repairCmd.Flags().StringSliceVar(&repairRules, "rule", nil, "Only apply these rules or passes (repeatable)")
	repairCmd.MarkFlagRequired("input")
	repairCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(repairCmd)
}

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Fill in missing fields derived from other fields",
	Long: `Fill in missing fields derived from other fields.

Rules run in order: doi_from_arxiv, PMC_from_PMID (NCBI lookup), then the
infer_urls and infer_journal passes. Existing values are kept unless
--replace is given.

Examples:
  biblio repair -i papers.csv -o papers.jsonl
  biblio repair -i refs.jsonl -o refs.jsonl --rule doi_from_arxiv --rule infer_journal`,
	RunE: runRepair,
}

func runRepair(cmd *cobra.Command, args []string) error {
	sch := mustLoadSchema()
	entries := mustLoadEntries(repairInput, repairInputFormat, repairInputSchema)

	engine, closeEngine := newEngine(sch)
	defer closeEngine()

	opts := enrich.RepairOptions{Replace: repairReplace, Rules: splitList(repairRules)}
	repaired, err := engine.RepairAll(cmd.Context(), entries, opts, workerCount())
	if err != nil {
		closeEngine()
		if errors.Is(err, enrich.ErrUnknownRule) {
			exitWithError(ExitError, "%v (available: %s)", err, strings.Join(engine.RuleNames(), ", "))
		}
		exitWithError(lookupExitCode(err), "%v", err)
	}

	format, err := writeEntries(repairOutput, repairOutputFormat, repaired, outputOptions{})
	if err != nil {
		exitWithError(ExitError, "writing output: %v", err)
	}

	resp := RepairResponse{
		WriteResponse: WriteResponse{Status: "written", Path: repairOutput, Format: string(format), Entries: len(repaired)},
		Changed:       countChanged(entries, repaired),
	}
	if humanOutput {
		outputHuman("Repaired %d of %d entries, wrote %s\n", resp.Changed, resp.Entries, resp.Path)
		return nil
	}
	return outputJSON(resp)
}
