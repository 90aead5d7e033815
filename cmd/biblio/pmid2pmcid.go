package main

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(pmid2pmcidCmd)
}

var pmid2pmcidCmd = &cobra.Command{
	Use:   "pmid2pmcid PMID...",
	Short: "Look up PubMed Central IDs for PubMed IDs",
	Long: `Look up PubMed Central IDs for PubMed IDs via NCBI E-utilities.

Set NCBI_API_KEY (or ncbi_api_key in the config file) for a higher rate
limit. Results are cached in the configured eutils_cache database.

Examples:
  biblio pmid2pmcid 22368089
  biblio pmid2pmcid 22368089 12345 --human`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPMID2PMCID,
}

func runPMID2PMCID(cmd *cobra.Command, args []string) error {
	client, closeClient := newPMCIDClient()
	defer closeClient()

	results := make([]PMCIDResult, 0, len(args))
	for _, pmid := range args {
		pmcid, err := client.PMCID(cmd.Context(), pmid)
		if err != nil {
			closeClient()
			exitWithError(lookupExitCode(err), "looking up %s: %v", pmid, err)
		}
		results = append(results, PMCIDResult{PMID: pmid, PMCID: pmcid, Found: pmcid != ""})
	}

	if humanOutput {
		for _, r := range results {
			pmcid := r.PMCID
			if !r.Found {
				pmcid = "(none)"
			}
			outputHuman("%s\t%s\n", r.PMID, pmcid)
		}
		return nil
	}
	return outputJSON(results)
}
