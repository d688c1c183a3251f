package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// BoundaryPolygon is an implicitly closed outline. The zero value has no
// vertices and contains nothing; build one with NewBoundaryPolygon or
// ParseContour.
type BoundaryPolygon struct {
	vertices []Vertex
	bounds   Bounds
}

// Bounds is an axis-aligned bounding box in degrees.
type Bounds struct {
	MinLat, MaxLat   float64
	MinLong, MaxLong float64
}

// Covers reports whether (lat, long) lies within the box, edges included.
func (b Bounds) Covers(lat, long float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && long >= b.MinLong && long <= b.MaxLong
}

// NewBoundaryPolygon copies vertices into a polygon. It fails with
// ErrInvalidPolygon when fewer than three vertices are given.
func NewBoundaryPolygon(vertices []Vertex) (BoundaryPolygon, error) {
	if len(vertices) < 3 {
		return BoundaryPolygon{}, &InvalidPolygonError{Vertices: len(vertices)}
	}

	vs := make([]Vertex, len(vertices))
	copy(vs, vertices)

	b := Bounds{MinLat: vs[0].Lat, MaxLat: vs[0].Lat, MinLong: vs[0].Long, MaxLong: vs[0].Long}
	for _, v := range vs[1:] {
		b.MinLat = min(b.MinLat, v.Lat)
		b.MaxLat = max(b.MaxLat, v.Lat)
		b.MinLong = min(b.MinLong, v.Long)
		b.MaxLong = max(b.MaxLong, v.Long)
	}
	return BoundaryPolygon{vertices: vs, bounds: b}, nil
}

// Len returns the number of vertices.
func (p BoundaryPolygon) Len() int { return len(p.vertices) }

// Vertices returns a copy of the outline in traversal order.
func (p BoundaryPolygon) Vertices() []Vertex {
	out := make([]Vertex, len(p.vertices))
	copy(out, p.vertices)
	return out
}

// Bounds returns the outline's bounding box.
func (p BoundaryPolygon) Bounds() Bounds { return p.bounds }

// Contains reports whether (lat, long) is inside the outline using an
// even-odd ray cast towards increasing longitude. Points on an edge may go
// either way.
func (p BoundaryPolygon) Contains(lat, long float64) bool {
	if len(p.vertices) < 3 || !p.bounds.Covers(lat, long) {
		return false
	}

	inside := false
	vs := p.vertices
	for i, j := 0, len(vs)-1; i < len(vs); j, i = i, i+1 {
		a, b := vs[i], vs[j]
		if (a.Lat > lat) == (b.Lat > lat) {
			continue
		}
		// Longitude where edge a-b crosses the horizontal line through lat.
		crossLong := a.Long + (lat-a.Lat)*(b.Long-a.Long)/(b.Lat-a.Lat)
		if long < crossLong {
			inside = !inside
		}
	}
	return inside
}

// Clip returns the samples inside the outline, in their original order.
// Values are passed through untouched.
func (p BoundaryPolygon) Clip(samples []SamplePoint) []SamplePoint {
	inside := make([]SamplePoint, 0, len(samples)/4)
	for _, s := range samples {
		if p.Contains(s.Lat, s.Long) {
			inside = append(inside, s)
		}
	}
	return inside
}

// Fingerprint is a stable hex digest of the outline, used to invalidate
// cached run results when the boundary file changes.
func (p BoundaryPolygon) Fingerprint() string {
	h := sha256.New()
	var buf [16]byte
	for _, v := range p.vertices {
		binary.BigEndian.PutUint64(buf[:8], math.Float64bits(v.Lat))
		binary.BigEndian.PutUint64(buf[8:], math.Float64bits(v.Long))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil)[:8])
}
