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

// contourLine is a non-empty boundary file line split into trimmed fields.
type contourLine struct {
	num    int
	raw    string
	fields []string
}

// ParseContour reads a .bln-style boundary file into a BoundaryPolygon.
// path is only used in error messages.
func ParseContour(r io.Reader, path string) (BoundaryPolygon, error) {
	lines, err := readContourLines(r, path)
	if err != nil {
		return BoundaryPolygon{}, err
	}
	if len(lines) == 0 {
		return BoundaryPolygon{}, &ParseError{Path: path, Reason: "missing vertex count header"}
	}

	header := lines[0]
	declared, perr := parseVertexCount(header.fields[0])
	if perr != nil {
		return BoundaryPolygon{}, &ParseError{
			Path:    path,
			Line:    header.num,
			Content: header.raw,
			Reason:  perr.reason,
			Err:     perr.err,
		}
	}

	body := lines[1:]
	vertices := make([]Vertex, 0, len(body))
	for _, l := range body {
		v, verr := parseVertex(l.fields)
		if verr != nil {
			return BoundaryPolygon{}, &ParseError{
				Path:    path,
				Line:    l.num,
				Content: l.raw,
				Reason:  verr.reason,
				Err:     verr.err,
			}
		}
		vertices = append(vertices, v)
	}

	if declared != len(vertices) {
		return BoundaryPolygon{}, &ContourHeaderMismatchError{
			Path:     path,
			Line:     header.num,
			Header:   header.raw,
			Declared: declared,
			Actual:   len(vertices),
		}
	}

	polygon, err := NewBoundaryPolygon(vertices)
	if err != nil {
		return BoundaryPolygon{}, &InvalidPolygonError{Path: path, Vertices: len(vertices)}
	}
	return polygon, nil
}

// readContourLines splits every line on commas and drops lines whose first
// field is empty after trimming.
func readContourLines(r io.Reader, path string) ([]contourLine, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var lines []contourLine
	lineNum := 0
	for sc.Scan() {
		lineNum++
		raw := sc.Text()
		fields := strings.Split(strings.TrimSpace(raw), ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		if fields[0] == "" {
			continue
		}
		lines = append(lines, contourLine{num: lineNum, raw: raw, fields: fields})
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, longLineError(path, lineNum+1, err)
		}
		return nil, fmt.Errorf("read contour %s: %w", path, err)
	}
	return lines, nil
}

// parseVertexCount accepts "57" as well as the "57.0" some exporters write.
func parseVertexCount(field string) (int, *lineError) {
	f, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, &lineError{reason: "vertex count is not numeric", err: err}
	}
	if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, &lineError{reason: fmt.Sprintf("vertex count %s is not a non-negative integer", field)}
	}
	return int(f), nil
}

func parseVertex(fields []string) (Vertex, *lineError) {
	if len(fields) < 2 {
		return Vertex{}, &lineError{reason: fmt.Sprintf("expected at least 2 fields, got %d", len(fields))}
	}
	lat, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Vertex{}, &lineError{reason: "latitude is not numeric", err: err}
	}
	long, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Vertex{}, &lineError{reason: "longitude is not numeric", err: err}
	}
	if !finite(lat) || !finite(long) {
		return Vertex{}, &lineError{reason: "vertex coordinates are not finite numbers"}
	}
	return Vertex{Lat: lat, Long: long}, nil
}
