package main

import (
	"github.com/spf13/cobra"

	"github.com/matsen/biblio/internal/enrich"
	"github.com/matsen/biblio/internal/schema"
)

func init() {
	rootCmd.AddCommand(rulesCmd)
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List repair rules and passes in evaluation order",
	RunE:  runRules,
}

func runRules(cmd *cobra.Command, args []string) error {
	names := ruleNames(mustLoadSchema())
	if humanOutput {
		for _, n := range names {
			outputHuman("%s\n", n)
		}
		return nil
	}
	return outputJSON(names)
}

// ruleNames lists rules and passes in evaluation order without opening
// the PMCID cache.
func ruleNames(sch *schema.Schema) []string {
	return enrich.New(sch, enrich.WithResolver(offlineResolver{})).RuleNames()
}
