// Package quantize reduces a population of colors to a small palette with
// k-means clustering and maps colors onto that palette.
package quantize

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
)

// ErrInvalidArgument is returned when clustering is requested with no clusters.
var ErrInvalidArgument = errors.New("invalid argument")

// respawnProbability is the chance an empty cluster gets a fresh random
// centroid. Otherwise it is dropped for the iteration.
const respawnProbability = 0.25

// Color is an opaque 8-bit RGB triple.
type Color struct {
	R, G, B uint8
}

// Rand is the random source used for initialization and for the empty
// cluster policy. *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

// Quantizer runs k-means over a color population.
type Quantizer struct {
	// K is the number of clusters requested; it must be at least 1.
	K int
	// MaxIterations caps the number of iterations; 0 runs until the
	// centroids stop changing.
	MaxIterations int
	// Rand is the random source. When nil a generator is seeded from the
	// process wide source for each call.
	Rand Rand
}

// Result holds the learned palette.
type Result struct {
	// Palette holds at most K colors. It may be shorter when empty clusters
	// were dropped and never regrown.
	Palette    []Color
	Iterations int
	Converged  bool
}

// KMeans clusters points into at most k colors, iterating until convergence.
func KMeans(k int, points []Color, rng Rand) ([]Color, error) {
	res, err := Quantizer{K: k, Rand: rng}.Train(points)
	if err != nil {
		return nil, err
	}
	return res.Palette, nil
}

// Train clusters points.
//
// Centroids start as uniformly random colors. Each iteration assigns every
// point to its nearest centroid and replaces each centroid with the truncated
// mean of its points. A cluster left without points is, with probability
// 0.25, replaced by a new random color and otherwise dropped, so the result
// is not deterministic unless Rand is. Training stops when an iteration
// produces the same centroid sequence it started from.
func (q Quantizer) Train(points []Color) (Result, error) {
	if q.K < 1 {
		return Result{}, fmt.Errorf("cluster count %d: %w", q.K, ErrInvalidArgument)
	}

	rng := q.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	centroids := make([]Color, q.K)
	for i := range centroids {
		centroids[i] = randomColor(rng)
	}

	clusters := make([]cluster, q.K)
	var res Result
	for q.MaxIterations == 0 || res.Iterations < q.MaxIterations {
		res.Iterations++

		for i := range clusters {
			clusters[i] = cluster{}
		}
		if len(centroids) > 0 {
			for _, p := range points {
				clusters[Index(p, centroids)].add(p)
			}
		}

		next := make([]Color, 0, q.K)
		for _, c := range clusters {
			if c.n > 0 {
				next = append(next, c.mean())
			} else if rng.Float64() < respawnProbability {
				next = append(next, randomColor(rng))
			}
		}

		if slices.Equal(next, centroids) {
			res.Converged = true
			break
		}
		centroids = next
	}

	res.Palette = centroids
	return res, nil
}

// cluster accumulates channel sums for one centroid.
type cluster struct {
	r, g, b uint64
	n       uint64
}

func (c *cluster) add(p Color) {
	c.r += uint64(p.R)
	c.g += uint64(p.G)
	c.b += uint64(p.B)
	c.n++
}

func (c *cluster) mean() Color {
	return Color{
		R: uint8(c.r / c.n),
		G: uint8(c.g / c.n),
		B: uint8(c.b / c.n),
	}
}

func randomColor(rng Rand) Color {
	return Color{
		R: uint8(rng.IntN(256)),
		G: uint8(rng.IntN(256)),
		B: uint8(rng.IntN(256)),
	}
}
