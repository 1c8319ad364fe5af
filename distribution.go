package variant

import (
	"fmt"
	"math"
	"math/bits"
	"strings"
)

// Distribution selects the way hash value is mapped onto table index.
type Distribution uint8

const (
	// Modulus maps hash h to h mod N.
	Modulus Distribution = iota + 1

	// MAD maps hash h to ((A*h + B) mod P) mod N. It decorrelates table
	// index from low bits of the hash and is the recommended method.
	MAD
)

// Default multiply-add-divide constants.
const (
	DefaultMADPrime      = 2147483647 // 2^31-1, Mersenne prime.
	DefaultMADMultiplier = 2654435761 // Golden ratio multiplier.
	DefaultMADIncrement  = 1103515245 // LCG constant.
)

var distributionNames = [...]string{
	Modulus: "modulus",
	MAD:     "mad",
}

// Distributions returns all supported distribution methods.
func Distributions() []Distribution {
	return []Distribution{Modulus, MAD}
}

// ParseDistribution parses case-insensitive distribution method name.
func ParseDistribution(s string) (Distribution, error) {
	switch strings.ToLower(s) {
	case "modulus":
		return Modulus, nil
	case "mad":
		return MAD, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedDistribution, s)
}

func (d Distribution) valid() bool {
	return d == Modulus || d == MAD
}

func (d Distribution) String() string {
	if !d.valid() {
		return fmt.Sprintf("Distribution(%d)", uint8(d))
	}
	return distributionNames[d]
}

func (d Distribution) MarshalText() ([]byte, error) {
	if !d.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedDistribution, uint8(d))
	}
	return []byte(d.String()), nil
}

func (d *Distribution) UnmarshalText(p []byte) error {
	x, err := ParseDistribution(string(p))
	if err != nil {
		return err
	}
	*d = x
	return nil
}

// MADParams holds custom multiply-add-divide parameters.
type MADParams struct {
	// A is a multiplier. It must not be zero.
	A uint64
	// B is an increment.
	B uint64
	// P is a modulus. If P is zero, then DefaultMADPrime is used.
	P uint64
}

// DefaultMADParams returns default multiply-add-divide parameters.
func DefaultMADParams() MADParams {
	return MADParams{
		A: DefaultMADMultiplier,
		B: DefaultMADIncrement,
		P: DefaultMADPrime,
	}
}

func (p MADParams) validate() error {
	if p.A == 0 {
		return fmt.Errorf("%w: mad multiplier must not be zero", ErrInvalidParameter)
	}
	return nil
}

func (p MADParams) prime() uint64 {
	if p.P == 0 {
		return DefaultMADPrime
	}
	return p.P
}

// apply returns (A*h + B) mod P using 128-bit intermediate arithmetic.
func (p MADParams) apply(h uint32) uint64 {
	hi, lo := bits.Mul64(p.A, uint64(h))
	lo, carry := bits.Add64(lo, p.B, 0)
	// A*h is less than 2^96 so hi can't overflow here.
	hi += carry
	return bits.Rem64(hi, lo, p.prime())
}

// Distributor maps hash values onto [0, size) table indices.
// Distributor is immutable and safe for concurrent use.
type Distributor struct {
	method Distribution
	size   uint32
	params MADParams
}

// NewDistributor returns distributor for the given method and table size.
// Params are used only by the MAD method; nil params means defaults.
func NewDistributor(m Distribution, tableSize int, params *MADParams) (*Distributor, error) {
	if !m.valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDistribution, m)
	}
	size, err := checkTableSize(tableSize)
	if err != nil {
		return nil, err
	}
	d := &Distributor{
		method: m,
		size:   size,
		params: DefaultMADParams(),
	}
	if params != nil {
		if err := params.validate(); err != nil {
			return nil, err
		}
		d.params = *params
		d.params.P = params.prime()
	}
	return d, nil
}

// Method returns distribution method.
func (d *Distributor) Method() Distribution {
	return d.method
}

// Params returns effective multiply-add-divide parameters.
func (d *Distributor) Params() MADParams {
	return d.params
}

// Distribute returns table index for the hash value h.
func (d *Distributor) Distribute(h uint32) uint32 {
	switch d.method {
	case Modulus:
		return h % d.size
	case MAD:
		return uint32(d.params.apply(h) % uint64(d.size))
	}
	panic(fmt.Sprintf("variant: internal error: unexpected distribution %s", d.method))
}

func checkTableSize(n int) (uint32, error) {
	if n <= 0 {
		return 0, fmt.Errorf("%w: must be positive (got %d)", ErrInvalidTableSize, n)
	}
	if uint64(n) > math.MaxUint32 {
		return 0, fmt.Errorf("%w: must not exceed %d (got %d)", ErrInvalidTableSize, uint32(math.MaxUint32), n)
	}
	return uint32(n), nil
}
