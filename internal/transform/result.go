package transform

import "fmt"

// BuildResult maps a source script to its built counterpart. Both paths are relative to
// the project root and use forward slashes.
type BuildResult struct {
	OriginalPath string
	BuiltPath    string
}

// Stage names the step of the per-file sequence that failed.
type Stage string

const (
	StageRead      Stage = "read"
	StageMinify    Stage = "minify"
	StageObfuscate Stage = "obfuscate"
	StageWrite     Stage = "write"
)

// FileError is a failure of one script. It never aborts a batch.
type FileError struct {
	Path  string // root-relative slash path
	Stage Stage
	Err   error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// FileFailure is the report view of a FileError.
type FileFailure = FileError
