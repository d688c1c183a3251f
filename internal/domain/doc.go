// Package domain models watershed-clipped precipitation forecasts.
//
// # Data Source
//
// Forecast grids come from the ETA 40 km regional model. Each forecast run is
// delivered as one ASCII file per (issuance date, target date) pair; the
// discovery adapter extracts both dates from the file name, e.g.
//
//	ETA40_p010124a030124.dat  →  issued 2024-01-01, valid for 2024-01-03
//
// Dates in file names use DDMMYY.
//
// # Grid Files
//
// One sample per line, three whitespace-separated numbers, no header:
//
//	<lat> <long> <value>
//	-21.80 -44.50 10.3
//
// Values are accumulated precipitation in millimetres and pass through
// unchanged. Any line that does not hold exactly three numeric tokens is a
// [ParseError]; that includes blank lines, which cannot yield three fields.
//
// # Boundary Files
//
// Watershed outlines use the Golden Software .bln layout, comma separated:
//
//	57,0               ← header: vertex count, remaining fields ignored
//	-21.93,-44.62      ← vertex: lat, long, remaining fields ignored
//	...
//
// Lines whose first field is empty are dropped before counting. The header
// count must equal the number of vertex lines exactly, otherwise the file
// fails with [ContourHeaderMismatchError]. The outline is closed implicitly
// (last vertex connects to the first) and must have at least three vertices.
// Self-intersecting outlines are not repaired.
//
// # Containment
//
// A sample is inside the watershed when a ray cast from it crosses the
// outline an odd number of times. Samples lying exactly on an edge may be
// classified either way. A bounding-box check rejects far-away samples before
// the edge walk.
//
// # Accumulation
//
// Each run reduces to the sum of its inside values ([AggregateRun]); a run
// with no inside samples contributes 0. Runs are then stably ordered by
// forecasted date and folded into a running total ([BuildTimeSeries]). An
// empty run set is an error ([ErrEmptyInput]) rather than an empty series.
package domain
