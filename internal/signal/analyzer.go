// Package signal scores how much short-window loudness varies across a track.
package signal

import (
	"errors"
	"fmt"
	"math"
)

// DefaultChunkSize is the number of samples per RMS window.
const DefaultChunkSize = 2048

var (
	// ErrNotComputable marks every outcome where no originality score exists.
	// It is distinct from a computed score of 0.
	ErrNotComputable = errors.New("originality not computable")

	ErrTooShort = errors.New("audio too short for analysis")
	ErrSilent   = errors.New("audio is silent")
	ErrDecode   = errors.New("audio decode failed")
)

// Analyzer computes originality scores from raw audio bytes.
type Analyzer struct {
	ChunkSize int
}

// NewAnalyzer returns an analyzer; a non-positive chunk size selects DefaultChunkSize.
func NewAnalyzer(chunkSize int) *Analyzer {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Analyzer{ChunkSize: chunkSize}
}

// Analyze decodes data and returns its originality score.
// Any failure is reported as an error wrapping ErrNotComputable.
func (a *Analyzer) Analyze(data []byte) (float64, error) {
	samples, err := Decode(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w: %v", ErrNotComputable, ErrDecode, err)
	}
	return Originality(samples, a.ChunkSize)
}

// Originality is the population standard deviation of per-chunk RMS energy divided by
// the largest chunk RMS, clamped to 1 and rounded to 3 decimals. Trailing samples that
// do not fill a chunk are ignored.
func Originality(samples []float64, chunkSize int) (float64, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	rms := ChunkRMS(samples, chunkSize)
	if len(rms) < 2 {
		return 0, fmt.Errorf("%w: %w: %d chunk(s)", ErrNotComputable, ErrTooShort, len(rms))
	}

	var maxRMS, sum float64
	for _, v := range rms {
		sum += v
		if v > maxRMS {
			maxRMS = v
		}
	}
	if maxRMS == 0 {
		return 0, fmt.Errorf("%w: %w", ErrNotComputable, ErrSilent)
	}

	mean := sum / float64(len(rms))
	var variance float64
	for _, v := range rms {
		d := v - mean
		variance += d * d
	}
	std := math.Sqrt(variance / float64(len(rms)))

	score := math.Min(std/maxRMS, 1.0)
	return math.Round(score*1000) / 1000, nil
}

// ChunkRMS returns the root-mean-square energy of each full chunk.
func ChunkRMS(samples []float64, chunkSize int) []float64 {
	n := len(samples) / chunkSize
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		chunk := samples[i*chunkSize : (i+1)*chunkSize]
		var sq float64
		for _, s := range chunk {
			sq += s * s
		}
		out = append(out, math.Sqrt(sq/float64(chunkSize)))
	}
	return out
}
