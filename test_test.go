package variant

import (
	"math"
	"math/rand"
	"strconv"
	"testing"
)

func nan() float64 {
	return math.NaN()
}

// randomWeights returns n non-negative weights summing up to 1.0.
func randomWeights(r *rand.Rand, n int) []float64 {
	ws := make([]float64, n)
	var total float64
	for i := range ws {
		if r.Intn(10) == 0 {
			continue // Some zero weights.
		}
		ws[i] = r.Float64()
		total += ws[i]
	}
	if total == 0 {
		ws[0] = 1
		total = 1
	}
	for i := range ws {
		ws[i] /= total
	}
	return ws
}

func mustNew(t testing.TB, c Config) *Assigner {
	t.Helper()
	a, err := New(c)
	if err != nil {
		t.Fatalf("can't create assigner: %v", err)
	}
	return a
}

// getDistribution assigns numGet sequential identifiers and returns share of
// each variant.
func getDistribution(t testing.TB, a *Assigner, numGet int) []float64 {
	t.Helper()
	tmp := make([]int, a.NumVariants())
	for i := 0; i < numGet; i++ {
		v, err := a.Assign(strconv.Itoa(i))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tmp[v]++
	}
	act := make([]float64, len(tmp))
	for i, num := range tmp {
		act[i] = float64(num) / float64(numGet)
	}
	return act
}

func assertDistribution(t testing.TB, act, exp []float64, prec float64) {
	t.Helper()
	if len(act) != len(exp) {
		t.Fatalf("unexpected number of variants: %d; want %d", len(act), len(exp))
	}
	for i := range act {
		diff := act[i] - exp[i]
		if math.Abs(diff) > prec {
			t.Errorf(
				"unexpected share of variant #%d: %.4f; want %.4f "+
					"(±%.4f, diff is %+.4f)",
				i, act[i], exp[i], prec, diff,
			)
		}
	}
}
