package main

const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (bad config, not a git repository)
	ExitDataError   = 3 // Data error (API failure, malformed response, store failure)
	ExitAuthError   = 4 // Missing or rejected ADS_API_TOKEN
)
