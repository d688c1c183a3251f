package domain

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// maxLineBytes bounds a single grid or boundary line.
const maxLineBytes = 1 << 20

// ParseGrid reads a forecast grid, one "<lat> <long> <value>" sample per line,
// preserving file order. path is only used in error messages.
func ParseGrid(r io.Reader, path string) ([]SamplePoint, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var points []SamplePoint
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := sc.Text()
		p, err := parseGridLine(line)
		if err != nil {
			return nil, &ParseError{
				Path:    path,
				Line:    lineNum,
				Content: line,
				Reason:  err.reason,
				Err:     err.err,
			}
		}
		points = append(points, p)
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, longLineError(path, lineNum+1, err)
		}
		return nil, fmt.Errorf("read grid %s: %w", path, err)
	}
	return points, nil
}

// longLineError reports a line the scanner refused to buffer. The content is
// not kept.
func longLineError(path string, line int, err error) *ParseError {
	return &ParseError{
		Path:   path,
		Line:   line,
		Reason: fmt.Sprintf("line exceeds %d bytes", maxLineBytes),
		Err:    err,
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// lineError carries a human reason plus the strconv failure, if any.
type lineError struct {
	reason string
	err    error
}

func parseGridLine(line string) (SamplePoint, *lineError) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return SamplePoint{}, &lineError{reason: fmt.Sprintf("expected 3 fields, got %d", len(fields))}
	}

	var vals [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return SamplePoint{}, &lineError{reason: fmt.Sprintf("field %d is not numeric", i+1), err: err}
		}
		if !finite(v) {
			return SamplePoint{}, &lineError{reason: fmt.Sprintf("field %d is not a finite number", i+1)}
		}
		vals[i] = v
	}
	return SamplePoint{Lat: vals[0], Long: vals[1], Value: vals[2]}, nil
}
