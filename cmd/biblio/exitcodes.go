package main

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (missing config, invalid schema)
	ExitDataError   = 3 // Data error (malformed input, duplicates, validation failure)
	ExitLookupError = 4 // PMID lookup failed (network, rate limit, bad response)
)
