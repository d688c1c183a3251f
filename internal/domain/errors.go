package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is; use errors.As on the typed errors below
// for the offending path and line.
var (
	ErrParse                 = errors.New("malformed line")
	ErrContourHeaderMismatch = errors.New("contour header mismatch")
	ErrInvalidPolygon        = errors.New("invalid polygon")
	ErrEmptyInput            = errors.New("no forecast runs to aggregate")
)

// ParseError reports a line that could not be read as numeric fields.
type ParseError struct {
	Path    string
	Line    int // 1-based; 0 when the problem is not tied to one line
	Content string
	Reason  string
	Err     error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Path, e.Reason)
	if e.Line > 0 {
		msg = fmt.Sprintf("%s:%d: %s (line %q)", e.Path, e.Line, e.Reason, e.Content)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

func (e *ParseError) Unwrap() error { return e.Err }

// ContourHeaderMismatchError reports a boundary file whose header count does
// not match the number of vertex lines that follow it.
type ContourHeaderMismatchError struct {
	Path     string
	Line     int
	Header   string
	Declared int
	Actual   int
}

func (e *ContourHeaderMismatchError) Error() string {
	return fmt.Sprintf("%s:%d: header %q declares %d vertices, file has %d",
		e.Path, e.Line, e.Header, e.Declared, e.Actual)
}

func (e *ContourHeaderMismatchError) Is(target error) bool { return target == ErrContourHeaderMismatch }

// InvalidPolygonError reports an outline too small to enclose any area.
type InvalidPolygonError struct {
	Path     string
	Vertices int
}

func (e *InvalidPolygonError) Error() string {
	path := e.Path
	if path == "" {
		path = "<boundary>"
	}
	return fmt.Sprintf("%s: polygon needs at least 3 vertices, got %d", path, e.Vertices)
}

func (e *InvalidPolygonError) Is(target error) bool { return target == ErrInvalidPolygon }
