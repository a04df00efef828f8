package noise

import (
	"math"
	"testing"
)

func checkRange01(t *testing.T, name string, v float64) {
	t.Helper()
	if math.IsNaN(v) || v < 0 || v >= 1 {
		t.Errorf("%s out of [0,1): %v", name, v)
	}
}

func sampleDifference(t *testing.T, a, b Source) float64 {
	t.Helper()
	different := 0
	samples := 0
	for y := 0; y < 50; y++ {
		for x := 0; x < 50; x++ {
			samples++
			if a.At(float64(x)*0.13, float64(y)*0.13) != b.At(float64(x)*0.13, float64(y)*0.13) {
				different++
			}
		}
	}
	return float64(different) / float64(samples)
}

func TestEvalDeterminism(t *testing.T) {
	for i := 0; i < 1000; i++ {
		x := float64(i)*0.137 - 60.0
		y := float64(i)*0.291 - 40.0
		a := Eval(x, y, 42)
		b := Eval(x, y, 42)
		if a != b {
			t.Fatalf("Eval not deterministic at (%v,%v): %v != %v", x, y, a, b)
		}
	}
}

func TestEvalRange(t *testing.T) {
	seeds := []int64{0, 1, -1, 42, 1 << 40, -9999}
	for _, seed := range seeds {
		for y := -30; y < 30; y++ {
			for x := -30; x < 30; x++ {
				v := Eval(float64(x)*0.37, float64(y)*0.59, seed)
				checkRange01(t, "Eval", v)
			}
		}
	}
}

func TestEvalSeedVariation(t *testing.T) {
	ratio := sampleDifference(t, NewValueSource(1), NewValueSource(2))
	if ratio < 0.8 {
		t.Errorf("different seeds should produce mostly different noise, only %.0f%% of samples differ", ratio*100)
	}
}

func TestEvalContinuity(t *testing.T) {
	// The field must be continuous, including across the x=0 lattice line
	// where Floor switches sign.
	const eps = 1e-4
	points := [][2]float64{{0.5, 0.5}, {-0.0001, 3.7}, {12.999, -4.001}, {-7.5, -7.5}}
	for _, p := range points {
		base := Eval(p[0], p[1], 7)
		dx := Eval(p[0]+eps, p[1], 7)
		dy := Eval(p[0], p[1]+eps, 7)
		if math.Abs(dx-base) > 0.01 || math.Abs(dy-base) > 0.01 {
			t.Errorf("field discontinuous near (%v,%v): base=%v dx=%v dy=%v", p[0], p[1], base, dx, dy)
		}
	}
}

func TestValueSourceMatchesEval(t *testing.T) {
	src := NewValueSource(99)
	for i := 0; i < 100; i++ {
		x := float64(i) * 0.21
		y := float64(i) * 0.17
		if src.At(x, y) != Eval(x, y, 99) {
			t.Fatalf("ValueSource.At diverges from Eval at (%v,%v)", x, y)
		}
	}
}

func TestFBM(t *testing.T) {
	src := NewValueSource(5)
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			v := FBM(src, float64(x)*0.11, float64(y)*0.11, 4, 2.0, 0.5)
			checkRange01(t, "FBM", v)
		}
	}

	a := FBM(src, 3.2, 1.7, 4, 2.0, 0.5)
	b := FBM(src, 3.2, 1.7, 4, 2.0, 0.5)
	if a != b {
		t.Errorf("FBM not deterministic: %v != %v", a, b)
	}

	// Zero or negative octave counts fall back to a single octave.
	if got := FBM(src, 3.2, 1.7, 0, 2.0, 0.5); got != src.At(3.2, 1.7) {
		t.Errorf("FBM with 0 octaves should equal a single octave, got %v", got)
	}
}

func TestPerlinSource(t *testing.T) {
	src := NewPerlinSource(1234)
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			v := src.At(float64(x)*0.093, float64(y)*0.071)
			checkRange01(t, "PerlinSource.At", v)
		}
	}

	again := NewPerlinSource(1234)
	if src.At(1.5, 2.5) != again.At(1.5, 2.5) {
		t.Error("same seed should produce the same perlin noise")
	}

	ratio := sampleDifference(t, NewPerlinSource(1), NewPerlinSource(2))
	if ratio < 0.8 {
		t.Errorf("different perlin seeds should produce mostly different noise, only %.0f%% of samples differ", ratio*100)
	}
}
