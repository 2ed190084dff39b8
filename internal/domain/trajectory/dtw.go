// Package trajectory scores spatial agreement between two motion streams
// with a banded dynamic-time-warping cost over a sliding window.
//
// Algorithm outline:
//  1. Each call to AddFrame appends one feature vector per stream to two
//     FIFO buffers of capacity W; the buffers stay length-synchronized by
//     construction (a sample goes into both or neither).
//  2. Compute runs a Sakoe-Chiba-banded DTW recurrence over the last n
//     samples of both buffers. Buffer positions serve as both axes: the
//     performer's window aligns against the reference's window, which only
//     works because the lengths are kept equal.
//  3. The accumulated cost is normalized by n so sessions of different
//     lengths remain comparable.
//
// Only two DP rows are kept (rolling storage), so memory is O(W) and each
// call is O(W·B). An optimal path that escapes the band surfaces as an
// infinite cost and is reported as 0 instead of propagating.
package trajectory

import (
	"math"
)

// Default sliding-window configuration constants.
const (
	DefaultWindowSize = 60 // ~1 second at 60 FPS
	DefaultBand       = 8  // Sakoe-Chiba radius, tolerance to lag
)

// SlidingDTW maintains two aligned bounded feature buffers and computes a
// banded alignment cost over them. Not safe for concurrent use; each
// session owns its own instance.
type SlidingDTW struct {
	window int
	band   int

	player [][]float64
	ref    [][]float64
}

// Option applies a configuration option to the SlidingDTW.
type Option func(*SlidingDTW)

// WithWindowSize bounds the number of retained samples per stream.
func WithWindowSize(w int) Option {
	return func(d *SlidingDTW) {
		if w > 0 {
			d.window = w
		}
	}
}

// WithBand sets the Sakoe-Chiba band radius.
func WithBand(b int) Option {
	return func(d *SlidingDTW) {
		if b > 0 {
			d.band = b
		}
	}
}

// NewSlidingDTW creates a sliding-window DTW scorer with configuration
// options.
func NewSlidingDTW(opts ...Option) *SlidingDTW {
	d := &SlidingDTW{
		window: DefaultWindowSize,
		band:   DefaultBand,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Len returns the current buffer length. Both buffers always agree.
func (d *SlidingDTW) Len() int {
	return len(d.player)
}

// Reset clears both buffers.
func (d *SlidingDTW) Reset() {
	d.player = d.player[:0]
	d.ref = d.ref[:0]
}

// AddFrame appends one feature vector per stream. The vectors are truncated
// to their shared dimensionality; a sample with any non-finite component,
// or with no shared components, is dropped entirely so the buffers stay
// length-synchronized. The stored slices are copies; callers may reuse
// their inputs.
func (d *SlidingDTW) AddFrame(playerFeat, refFeat []float64) {
	dim := len(playerFeat)
	if len(refFeat) < dim {
		dim = len(refFeat)
	}
	if dim == 0 {
		return
	}

	pf := make([]float64, dim)
	rf := make([]float64, dim)
	copy(pf, playerFeat[:dim])
	copy(rf, refFeat[:dim])

	if !finite(pf) || !finite(rf) {
		return
	}

	d.player = append(d.player, pf)
	d.ref = append(d.ref, rf)

	if len(d.player) > d.window {
		d.player = d.player[1:]
		d.ref = d.ref[1:]
	}
}

// Compute returns the length-normalized banded DTW cost over the current
// window. An empty window costs 0; a single pair costs its Euclidean
// distance. A non-finite result (path forced outside the band) reports 0.
func (d *SlidingDTW) Compute() float64 {
	n := len(d.player)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return euclidean(d.player[0], d.ref[0])
	}

	inf := math.Inf(1)
	prev := make([]float64, n+1)
	curr := make([]float64, n+1)
	for j := range prev {
		prev[j] = inf
	}
	prev[0] = 0

	for i := 1; i <= n; i++ {
		for j := range curr {
			curr[j] = inf
		}

		jStart := i - d.band
		if jStart < 1 {
			jStart = 1
		}
		jEnd := i + d.band
		if jEnd > n {
			jEnd = n
		}

		for j := jStart; j <= jEnd; j++ {
			cost := euclidean(d.player[i-1], d.ref[j-1])
			curr[j] = cost + min3(
				curr[j-1], // insertion
				prev[j],   // deletion
				prev[j-1], // match
			)
		}

		prev, curr = curr, prev
	}

	out := prev[n] / float64(n)
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0
	}
	return out
}

// Subscore maps a DTW cost to a similarity in [0,1].
func Subscore(cost float64) float64 {
	s := math.Exp(-cost)
	if math.IsNaN(s) {
		return 0
	}
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// euclidean returns the L2 distance between equal-length vectors.
func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// finite reports whether every component of v is a finite number.
func finite(v []float64) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// min3 returns the minimum of three float64 values.
func min3(a, b, c float64) float64 {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}
