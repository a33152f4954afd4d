package audio

import (
	"math"
	"sync/atomic"
)

const fullScale = 32768.0

// RMSLevel returns the root-mean-square amplitude of a block of samples
// normalized to [0, 1]. An empty block has level 0.
func RMSLevel(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	level := math.Sqrt(sum/float64(len(samples))) / fullScale
	return math.Max(0, math.Min(1, level))
}

// LevelMeter holds the most recent level estimate. Store and Load never
// block each other; the last write wins.
type LevelMeter struct {
	bits atomic.Uint64
}

// Store overwrites the current level.
func (m *LevelMeter) Store(level float64) {
	m.bits.Store(math.Float64bits(level))
}

// Load returns the current level.
func (m *LevelMeter) Load() float64 {
	return math.Float64frombits(m.bits.Load())
}
