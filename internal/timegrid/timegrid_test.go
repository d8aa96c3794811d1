package timegrid

import (
	"errors"
	"math"
	"testing"

	"github.com/seenimoa/lmmarrears/pkg/models"
)

func TestNewUniform(t *testing.T) {
	g, err := NewUniform(0.1, 16)
	if err != nil {
		t.Fatalf("NewUniform() error: %v", err)
	}
	if g.Len() != 161 {
		t.Errorf("Len: got %d, want 161", g.Len())
	}
	if g.NumberOfSteps() != 160 {
		t.Errorf("NumberOfSteps: got %d, want 160", g.NumberOfSteps())
	}
	if g.Time(0) != 0 {
		t.Errorf("Time(0): got %v, want 0", g.Time(0))
	}
	if math.Abs(g.Horizon()-16) > Tolerance {
		t.Errorf("Horizon: got %v, want 16", g.Horizon())
	}
	for i := 1; i < g.Len(); i++ {
		if g.Time(i) <= g.Time(i-1) {
			t.Fatalf("grid not strictly increasing at %d", i)
		}
	}
}

func TestNewUniformRejectsMalformedGrids(t *testing.T) {
	tests := []struct {
		name          string
		step, horizon float64
	}{
		{"zero step", 0, 1},
		{"negative step", -0.1, 1},
		{"zero horizon", 0.1, 0},
		{"not a multiple", 0.3, 1},
		{"NaN step", math.NaN(), 1},
		{"infinite horizon", 0.1, math.Inf(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUniform(tt.step, tt.horizon)
			if !errors.Is(err, models.ErrConfiguration) {
				t.Errorf("got %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestIndexOf(t *testing.T) {
	g, _ := NewUniform(0.1, 2)
	tests := []struct {
		time float64
		want int
	}{
		{0, 0},
		{0.3, 3},
		{0.5, 5},
		{1.7, 17},
		{2.0, 20},
		{0.35, -1},
		{-0.1, -1},
		{2.1, -1},
	}
	for _, tt := range tests {
		if got := g.IndexOf(tt.time); got != tt.want {
			t.Errorf("IndexOf(%v): got %d, want %d", tt.time, got, tt.want)
		}
	}
}

func TestPrecedingIndex(t *testing.T) {
	g, _ := NewUniform(0.5, 3)
	tests := []struct {
		time float64
		want int
	}{
		{-1, -1},
		{0, 0},
		{0.49, 0},
		{0.5, 1},
		{1.75, 3},
		{3, 6},
		{10, 6},
	}
	for _, tt := range tests {
		if got := g.PrecedingIndex(tt.time); got != tt.want {
			t.Errorf("PrecedingIndex(%v): got %d, want %d", tt.time, got, tt.want)
		}
	}
}

func TestContains(t *testing.T) {
	fine, _ := NewUniform(0.1, 4)
	coarse, _ := NewUniform(0.5, 4)
	odd, _ := NewUniform(0.25, 4)

	if !fine.Contains(coarse) {
		t.Error("0.1 grid should contain 0.5 grid")
	}
	if fine.Contains(odd) {
		t.Error("0.1 grid should not contain 0.25 grid")
	}
}

func TestTimesIsCopy(t *testing.T) {
	g, _ := NewUniform(1, 3)
	ts := g.Times()
	ts[1] = 42
	if g.Time(1) != 1 {
		t.Error("Times() must not expose internal storage")
	}
}
