package audio

import (
	"math"
	"sync"
	"testing"
)

func TestRMSLevel(t *testing.T) {
	alternating := make([]int16, 1024)
	for i := range alternating {
		if i%2 == 0 {
			alternating[i] = 32767
		} else {
			alternating[i] = -32767
		}
	}

	tests := []struct {
		name    string
		samples []int16
		want    float64
	}{
		{"empty", nil, 0},
		{"silence", make([]int16, 1024), 0},
		{"full scale alternating", alternating, 32767.0 / 32768.0},
		{"minimum", []int16{-32768, -32768}, 1},
		{"half scale", []int16{16384, -16384}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RMSLevel(tt.samples)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("Expected %f, got %f", tt.want, got)
			}
			if got < 0 || got > 1 {
				t.Errorf("Level %f out of range", got)
			}
		})
	}
}

func TestLevelMeter_ConcurrentAccess(t *testing.T) {
	var m LevelMeter
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			m.Store(float64(i%2) * 0.5)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			if v := m.Load(); v != 0 && v != 0.5 {
				t.Errorf("Torn read: %f", v)
				return
			}
		}
	}()
	wg.Wait()
}
