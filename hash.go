package variant

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"

	xxh32 "github.com/OneOfOne/xxhash"
	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"
	"github.com/zeebo/xxh3"
)

// Algorithm selects hash function used to turn seed and identifier into a
// 32-bit value.
type Algorithm uint8

const (
	MD5 Algorithm = iota + 1
	SHA256
	Murmur32
	XXHash32
	XXH3
)

// separator joins seed and identifier for algorithms which hash them
// together.
const separator = ":"

var algorithmNames = [...]string{
	MD5:      "md5",
	SHA256:   "sha256",
	Murmur32: "murmur32",
	XXHash32: "xxhash32",
	XXH3:     "xxh3_64",
}

// Algorithms returns all supported algorithms in their canonical order.
func Algorithms() []Algorithm {
	return []Algorithm{MD5, SHA256, Murmur32, XXHash32, XXH3}
}

// ParseAlgorithm parses case-insensitive algorithm name. Besides canonical
// names it accepts "xxhash" and "xxh3" aliases.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(s) {
	case "md5":
		return MD5, nil
	case "sha256":
		return SHA256, nil
	case "murmur32":
		return Murmur32, nil
	case "xxhash32", "xxhash":
		return XXHash32, nil
	case "xxh3_64", "xxh3":
		return XXH3, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, s)
}

func (a Algorithm) valid() bool {
	return a >= MD5 && a <= XXH3
}

func (a Algorithm) String() string {
	if !a.valid() {
		return fmt.Sprintf("Algorithm(%d)", uint8(a))
	}
	return algorithmNames[a]
}

func (a Algorithm) MarshalText() ([]byte, error) {
	if !a.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedAlgorithm, uint8(a))
	}
	return []byte(a.String()), nil
}

func (a *Algorithm) UnmarshalText(p []byte) error {
	x, err := ParseAlgorithm(string(p))
	if err != nil {
		return err
	}
	*a = x
	return nil
}

// Hasher hashes identifiers together with experiment seed.
// Hasher is immutable and safe for concurrent use.
type Hasher struct {
	algorithm Algorithm
	seed      string

	// seed31 and seed63 are numeric seeds derived from string seed. They are
	// used by algorithms accepting numeric seed parameter.
	seed31 uint32
	seed63 uint64
}

// NewHasher returns hasher for the given seed and algorithm.
func NewHasher(seed string, a Algorithm) (*Hasher, error) {
	if !a.valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, a)
	}
	d := xxhash.Sum64String(seed)
	return &Hasher{
		algorithm: a,
		seed:      seed,
		seed31:    uint32(d % (1 << 31)),
		seed63:    d % (1 << 63),
	}, nil
}

// Algorithm returns hasher's algorithm.
func (h *Hasher) Algorithm() Algorithm {
	return h.algorithm
}

// Hash returns 32-bit hash of identifier.
//
// Digest algorithms (md5 and sha256) as well as xxhash32 and xxh3_64 hash
// the "seed:identifier" string. Murmur32 hashes identifier alone and mixes
// the seed in through its numeric seed parameter only. This must never
// change: any change here reassigns every identifier ever assigned.
func (h *Hasher) Hash(identifier string) uint32 {
	switch h.algorithm {
	case MD5:
		sum := md5.Sum([]byte(h.seed + separator + identifier))
		return binary.BigEndian.Uint32(sum[:4])

	case SHA256:
		sum := sha256.Sum256([]byte(h.seed + separator + identifier))
		return binary.BigEndian.Uint32(sum[:4])

	case Murmur32:
		return murmur3.Sum32WithSeed([]byte(identifier), h.seed31)

	case XXHash32:
		return xxh32.Checksum32S([]byte(h.seed+separator+identifier), h.seed31)

	case XXH3:
		return uint32(xxh3.HashStringSeed(h.seed+separator+identifier, h.seed63))
	}
	panic(fmt.Sprintf("variant: internal error: unexpected algorithm %s", h.algorithm))
}
