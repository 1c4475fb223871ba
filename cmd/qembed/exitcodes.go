package main

// Exit codes. The tool is one-shot: every failure, including interruption,
// exits 1 with a one-line message on stderr.
const (
	ExitSuccess = 0
	ExitError   = 1
)
