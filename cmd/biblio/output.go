package main

import (
	"fmt"
	"os"

	"github.com/segmentio/encoding/json"
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...any) {
	fmt.Printf(format, args...)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteResponse reports entries written to a file.
type WriteResponse struct {
	Status  string `json:"status"`
	Path    string `json:"path"`
	Format  string `json:"format"`
	Entries int    `json:"entries"`
}

// RepairResponse is the response for the repair command.
type RepairResponse struct {
	WriteResponse
	Changed int `json:"changed"`
}

// MergeResponse is the response for the merge command.
type MergeResponse struct {
	WriteResponse
	Matches     map[string]int `json:"matches"`
	FieldsSet   int            `json:"fields_set"`
	Overwritten int            `json:"overwritten"`
	Conflicts   []string       `json:"conflicts,omitempty"`
}

// PMCIDResult is one row of pmid2pmcid output.
type PMCIDResult struct {
	PMID  string `json:"pmid"`
	PMCID string `json:"pmcid,omitempty"`
	Found bool   `json:"found"`
}
