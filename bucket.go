package variant

import (
	"fmt"
	"math"
	"sort"
)

// Limits on the number of weights (and thus variants) in a single
// configuration.
const (
	MinVariants = 2
	MaxVariants = 100
)

// Weight sum tolerance band. Weights are usually typed by humans, so exact
// equality to 1.0 is not required.
const (
	minWeightSum = 0.99
	maxWeightSum = 1.01
)

// Bucketer splits [0, size) table into contiguous ranges, one per variant.
// Bucketer is immutable and safe for concurrent use.
type Bucketer struct {
	size uint32

	// boundaries[i] is an exclusive upper bound of the i-th variant range.
	// It is non-decreasing and its last element is always equal to size.
	boundaries []uint32
}

// NewBucketer validates weights and builds boundary table for them.
func NewBucketer(weights []float64, tableSize int) (*Bucketer, error) {
	size, err := checkTableSize(tableSize)
	if err != nil {
		return nil, err
	}
	if err := checkWeights(weights); err != nil {
		return nil, err
	}
	b := &Bucketer{
		size:       size,
		boundaries: buildBoundaries(weights, size),
	}
	if debug {
		b.mustBeConsistent()
	}
	return b, nil
}

func (b *Bucketer) mustBeConsistent() {
	var prev uint32
	for i, x := range b.boundaries {
		if x < prev || x > b.size {
			panic(fmt.Sprintf(
				"variant: internal error: boundary #%d is %d; previous is %d; table size is %d",
				i, x, prev, b.size,
			))
		}
		prev = x
	}
	if prev != b.size {
		panic(fmt.Sprintf(
			"variant: internal error: last boundary is %d; table size is %d",
			prev, b.size,
		))
	}
}

// VariantOf returns ordinal of variant owning table index i.
func (b *Bucketer) VariantOf(i uint32) (uint32, error) {
	if i >= b.size {
		return 0, fmt.Errorf("%w: index %d; table size %d", ErrOutOfRange, i, b.size)
	}
	// Search for the first boundary strictly greater than i. Zero-weight
	// variants share boundary with their predecessor and are skipped.
	n := sort.Search(len(b.boundaries), func(j int) bool {
		return b.boundaries[j] > i
	})
	return uint32(n), nil
}

// Boundaries returns a copy of the boundary table.
func (b *Bucketer) Boundaries() []uint32 {
	ret := make([]uint32, len(b.boundaries))
	copy(ret, b.boundaries)
	return ret
}

// NumVariants returns number of variants.
func (b *Bucketer) NumVariants() int {
	return len(b.boundaries)
}

// TableSize returns size of the table.
func (b *Bucketer) TableSize() uint32 {
	return b.size
}

func checkWeights(ws []float64) error {
	if n := len(ws); n < MinVariants || n > MaxVariants {
		return fmt.Errorf(
			"%w: need from %d to %d weights (got %d)",
			ErrInvalidWeights, MinVariants, MaxVariants, n,
		)
	}
	var (
		total   float64
		nonZero bool
	)
	for i, w := range ws {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: weight #%d is not a finite number", ErrInvalidWeights, i)
		}
		if w < 0 {
			return fmt.Errorf("%w: weight #%d is negative (%g)", ErrInvalidWeights, i, w)
		}
		if w > 0 {
			nonZero = true
		}
		total += w
	}
	if !nonZero {
		return fmt.Errorf("%w: at least one weight must be positive", ErrInvalidWeights)
	}
	if total < minWeightSum || total > maxWeightSum {
		return fmt.Errorf("%w: weights must sum to 1.0 (got %.6f)", ErrInvalidWeights, total)
	}
	return nil
}

// buildBoundaries expects weights to be validated.
func buildBoundaries(ws []float64, size uint32) []uint32 {
	var (
		bs  = make([]uint32, len(ws))
		cum float64
	)
	for i, w := range ws {
		cum += w
		// Conversion truncates toward zero. Sum of weights may slightly
		// exceed 1.0, so clamp to the table size.
		x := uint64(cum * float64(size))
		if x > uint64(size) {
			x = uint64(size)
		}
		bs[i] = uint32(x)
	}
	// Floating point sum may fall short of 1.0 and leave some indices
	// without owner; the last variant takes them.
	bs[len(bs)-1] = size
	return bs
}
