// Package exitcodes contains the constants representing possible smconcat exit error codes.
package exitcodes

// ExitCode is just a type representing a process exit code for smconcat
type ExitCode uint8

// list of exit codes used by smconcat
const (
	InvalidConfig      ExitCode = 104
	InvalidMapInput    ExitCode = 110
	MapContentMismatch ExitCode = 111
	InvalidPath        ExitCode = 112
	InputNotFound      ExitCode = 113
	OutputFailed       ExitCode = 114
	GoPanic            ExitCode = 115 // this is the exit code of a panic recovered at the top level
)
