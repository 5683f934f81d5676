package coverage

import (
	"fmt"
	"time"
)

// MalformedReportError is returned when a coverage artifact exists but is not
// a well-formed JaCoCo report.
type MalformedReportError struct {
	Source  string // artifact path, empty for in-memory input
	Line    int    // 1-based line of the failure, 0 when unknown
	Offset  int64  // byte offset of the failure, 0 when unknown
	Element string // offending element, when known
	Err     error
}

// Error implements the error interface.
func (e *MalformedReportError) Error() string {
	loc := e.Location()
	if loc != "" {
		return fmt.Sprintf("malformed coverage report at %s: %v", loc, e.Err)
	}
	return fmt.Sprintf("malformed coverage report: %v", e.Err)
}

// Location describes where the failure occurred, e.g. "jacoco.xml:12".
func (e *MalformedReportError) Location() string {
	var loc string
	switch {
	case e.Source != "" && e.Line > 0:
		loc = fmt.Sprintf("%s:%d", e.Source, e.Line)
	case e.Line > 0:
		loc = fmt.Sprintf("line %d", e.Line)
	default:
		loc = e.Source
	}
	if e.Element != "" {
		if loc != "" {
			return loc + " (" + e.Element + ")"
		}
		return e.Element
	}
	return loc
}

// Unwrap returns the underlying error.
func (e *MalformedReportError) Unwrap() error {
	return e.Err
}

// MissingArtifactError is returned when no coverage report exists at the
// expected location. Running the tests again usually fixes it.
type MissingArtifactError struct {
	Path string
}

// Error implements the error interface.
func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("coverage report not found at %s: run the tests first (run_maven_tests)", e.Path)
}

// Location returns the expected artifact path.
func (e *MissingArtifactError) Location() string {
	return e.Path
}

// StaleArtifactError is returned when the report predates the run that
// should have produced it.
type StaleArtifactError struct {
	Path      string
	ModTime   time.Time
	NotBefore time.Time
}

// Error implements the error interface.
func (e *StaleArtifactError) Error() string {
	return fmt.Sprintf("coverage report %s is stale: written %s, expected after %s",
		e.Path, e.ModTime.Format(time.RFC3339), e.NotBefore.Format(time.RFC3339))
}

// Location returns the artifact path.
func (e *StaleArtifactError) Location() string {
	return e.Path
}

// InvalidPatternError is returned for an exclude pattern doublestar cannot parse.
type InvalidPatternError struct {
	Pattern string
}

// Error implements the error interface.
func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid exclude pattern: %q", e.Pattern)
}
