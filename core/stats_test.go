package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{name: "empty slice", values: nil, want: 0},
		{name: "single value", values: []float64{4.5}, want: 4.5},
		{name: "several values", values: []float64{1, 2, 3, 4}, want: 2.5},
		{name: "negative values", values: []float64{-2, 2}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Mean(tt.values), 1e-12)
		})
	}
}

func TestSampleStdDev(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{name: "empty slice", values: nil, want: 0},
		{name: "single value", values: []float64{7}, want: 0},
		{name: "identical values", values: []float64{3, 3, 3}, want: 0},
		{name: "known spread", values: []float64{1, 2, 3, 4}, want: math.Sqrt(5.0 / 3.0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SampleStdDev(tt.values), 1e-12)
		})
	}
}

func TestSigmoid(t *testing.T) {
	tests := []struct {
		name string
		x    float64
		want float64
	}{
		{name: "zero", x: 0, want: 0.5},
		{name: "moderate positive", x: 2, want: 1 / (1 + math.Exp(-2))},
		{name: "moderate negative", x: -2, want: 1 / (1 + math.Exp(2))},
		{name: "saturates high", x: 36, want: 1},
		{name: "saturates low", x: -36, want: 0},
		{name: "large positive", x: 1e9, want: 1},
		{name: "large negative", x: -1e9, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Sigmoid(tt.x), 1e-12)
		})
	}
}

func FuzzSigmoid(f *testing.F) {
	f.Add(0.0)
	f.Add(35.0)
	f.Add(-35.0)
	f.Add(0.1234)
	f.Add(-700.0)

	f.Fuzz(func(t *testing.T, x float64) {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			t.Skip("undefined outside the reals")
		}
		y := Sigmoid(x)
		assert.GreaterOrEqual(t, y, 0.0)
		assert.LessOrEqual(t, y, 1.0)
		assert.InDelta(t, 1.0, Sigmoid(x)+Sigmoid(-x), 1e-9)
	})
}
