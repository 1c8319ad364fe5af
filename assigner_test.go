package variant

import (
	"fmt"
	"math"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type distCase struct {
	name    string
	weights []float64
	size    int
	prec    float64
}

var distCases = []distCase{
	{
		name:    "half",
		weights: []float64{0.5, 0.5},
		size:    10000,
		prec:    0.01,
	},
	{
		name:    "three",
		weights: []float64{0.5, 0.3, 0.2},
		size:    10000,
		prec:    0.01,
	},
	{
		name:    "skewed",
		weights: []float64{0.9, 0.1},
		size:    100,
		prec:    0.01,
	},
	{
		name:    "zero",
		weights: []float64{0.25, 0, 0.75},
		size:    1000,
		prec:    0.01,
	},
	{
		name:    "five",
		weights: []float64{0.2, 0.2, 0.2, 0.2, 0.2},
		size:    1000000,
		prec:    0.01,
	},
}

// TestAssignerDistribution tests that shares of variants converge to their
// weights for every algorithm and distribution method.
func TestAssignerDistribution(t *testing.T) {
	for _, test := range distCases {
		for _, alg := range Algorithms() {
			for _, dist := range Distributions() {
				name := fmt.Sprintf("%s/%s/%s", test.name, alg, dist)
				t.Run(name, func(t *testing.T) {
					a := mustNew(t, Config{
						Seed:         "distribution-test",
						Weights:      test.weights,
						TableSize:    test.size,
						Algorithm:    alg,
						Distribution: dist,
					})
					act := getDistribution(t, a, 1e5)
					assertDistribution(t, act, test.weights, test.prec)
				})
			}
		}
	}
}

func TestAssignerDeterministic(t *testing.T) {
	for _, alg := range Algorithms() {
		for _, dist := range Distributions() {
			t.Run(alg.String()+"/"+dist.String(), func(t *testing.T) {
				c := Config{
					Seed:         "determinism",
					Weights:      []float64{0.5, 0.3, 0.2},
					TableSize:    10000,
					Algorithm:    alg,
					Distribution: dist,
				}
				a0 := mustNew(t, c)
				a1 := mustNew(t, c)
				for i := 0; i < 1000; i++ {
					id := "user" + strconv.Itoa(i)
					d0, err := a0.AssignWithDetails(id)
					require.NoError(t, err)
					d1, err := a0.AssignWithDetails(id)
					require.NoError(t, err)
					d2, err := a1.AssignWithDetails(id)
					require.NoError(t, err)
					require.Equal(t, d0, d1)
					require.Equal(t, d0, d2)
				}
			})
		}
	}
}

// TestAssignerSeedSensitivity tests that seed takes part in the assignment,
// so that changing it reassigns a meaningful share of identifiers.
func TestAssignerSeedSensitivity(t *testing.T) {
	const n = 10000
	for _, alg := range Algorithms() {
		for _, dist := range Distributions() {
			t.Run(alg.String()+"/"+dist.String(), func(t *testing.T) {
				c := Config{
					Weights:      []float64{0.5, 0.5},
					TableSize:    10000,
					Algorithm:    alg,
					Distribution: dist,
				}
				c.Seed = "experiment-a"
				a0 := mustNew(t, c)
				c.Seed = "experiment-b"
				a1 := mustNew(t, c)

				var moved int
				for i := 0; i < n; i++ {
					id := strconv.Itoa(i)
					v0, err := a0.Assign(id)
					require.NoError(t, err)
					v1, err := a1.Assign(id)
					require.NoError(t, err)
					if v0 != v1 {
						moved++
					}
				}
				// Independent assignments disagree in half of cases.
				require.InDelta(t, 0.5, float64(moved)/n, 0.05)
			})
		}
	}
}

func TestAssignerDetails(t *testing.T) {
	for _, test := range []struct {
		algorithm    Algorithm
		distribution Distribution
		identifier   string
		hash         uint32
		index        uint32
		variant      uint32
	}{
		{MD5, MAD, "user123", 4184080408, 4662, 0},
		{MD5, MAD, "user1", 653686168, 654, 0},
		{MD5, MAD, "abc-def-ghi", 290125913, 8588, 1},
		{MD5, Modulus, "user123", 4184080408, 408, 0},
		{SHA256, MAD, "user123", 3056649725, 1019, 0},
		{SHA256, Modulus, "user1", 3787082379, 2379, 0},
		{SHA256, Modulus, "abc-def-ghi", 105614030, 4030, 0},
		{Murmur32, MAD, "user123", 832771735, 8843, 1},
		{Murmur32, Modulus, "user1", 3100594477, 4477, 0},
		{XXHash32, MAD, "user1", 3435222486, 1238, 0},
		{XXHash32, Modulus, "abc-def-ghi", 929993546, 3546, 0},
		{XXH3, MAD, "abc-def-ghi", 3030690259, 8001, 1},
		{XXH3, Modulus, "user123", 368903142, 3142, 0},
	} {
		name := fmt.Sprintf("%s/%s/%s", test.algorithm, test.distribution, test.identifier)
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			a := mustNew(t, Config{
				Seed:         "homepage-test",
				Weights:      []float64{0.5, 0.5},
				TableSize:    10000,
				Algorithm:    test.algorithm,
				Distribution: test.distribution,
			})
			d, err := a.AssignWithDetails(test.identifier)
			require.NoError(err)
			require.Equal(Details{
				Identifier: test.identifier,
				Hash:       test.hash,
				Index:      test.index,
				Variant:    test.variant,
			}, d)

			v, err := a.Assign(test.identifier)
			require.NoError(err)
			require.Equal(test.variant, v)
		})
	}
}

func TestAssignerBoundaryEdges(t *testing.T) {
	require := require.New(t)

	a := mustNew(t, Config{
		Seed:         "edges",
		Weights:      []float64{0.5, 0.5},
		TableSize:    100,
		Algorithm:    MD5,
		Distribution: Modulus,
	})
	require.Equal([]uint32{50, 100}, a.Boundaries())
	require.Equal(2, a.NumVariants())

	// Boundaries() returns a copy.
	a.Boundaries()[0] = 0
	require.Equal([]uint32{50, 100}, a.Boundaries())
}

func TestAssignerZeroWeightNeverAssigned(t *testing.T) {
	for _, alg := range Algorithms() {
		a := mustNew(t, Config{
			Seed:         "zero",
			Weights:      []float64{1.0, 0.0},
			TableSize:    100,
			Algorithm:    alg,
			Distribution: MAD,
		})
		require.Equal(t, []uint32{100, 100}, a.Boundaries())
		for i := 0; i < 10000; i++ {
			v, err := a.Assign(strconv.Itoa(i))
			require.NoError(t, err)
			require.Equal(t, uint32(0), v)
		}
	}
}

func TestNewErrors(t *testing.T) {
	valid := Config{
		Seed:         "errors",
		Weights:      []float64{0.5, 0.5},
		TableSize:    100,
		Algorithm:    MD5,
		Distribution: MAD,
	}
	for _, test := range []struct {
		name   string
		modify func(*Config)
		err    error
	}{
		{
			name:   "sum",
			modify: func(c *Config) { c.Weights = []float64{0.5, 0.6} },
			err:    ErrInvalidWeights,
		},
		{
			name:   "negative",
			modify: func(c *Config) { c.Weights = []float64{-0.1, 1.1} },
			err:    ErrInvalidWeights,
		},
		{
			name:   "empty",
			modify: func(c *Config) { c.Weights = nil },
			err:    ErrInvalidWeights,
		},
		{
			name:   "infinite",
			modify: func(c *Config) { c.Weights = []float64{math.Inf(1), 0} },
			err:    ErrInvalidWeights,
		},
		{
			name:   "table size",
			modify: func(c *Config) { c.TableSize = 0 },
			err:    ErrInvalidTableSize,
		},
		{
			name:   "algorithm",
			modify: func(c *Config) { c.Algorithm = 0 },
			err:    ErrUnsupportedAlgorithm,
		},
		{
			name:   "distribution",
			modify: func(c *Config) { c.Distribution = 42 },
			err:    ErrUnsupportedDistribution,
		},
		{
			name:   "mad multiplier",
			modify: func(c *Config) { c.MAD = &MADParams{A: 0, B: 1} },
			err:    ErrInvalidParameter,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			c := valid.clone()
			test.modify(&c)
			a, err := New(c)
			require.ErrorIs(err, test.err)
			require.True(IsConfigError(err))
			require.Nil(a)
		})
	}
}

func TestNewIgnoresMADParamsForModulus(t *testing.T) {
	a, err := New(Config{
		Seed:         "modulus",
		Weights:      []float64{0.5, 0.5},
		TableSize:    100,
		Algorithm:    MD5,
		Distribution: Modulus,
		MAD:          &MADParams{},
	})
	require.NoError(t, err)
	require.NotNil(t, a)
}

func TestAssignerCustomMAD(t *testing.T) {
	require := require.New(t)

	base := Config{
		Seed:         "custom",
		Weights:      []float64{0.5, 0.5},
		TableSize:    1000,
		Algorithm:    SHA256,
		Distribution: MAD,
	}
	a0 := mustNew(t, base)

	withDefaults := base
	p := DefaultMADParams()
	withDefaults.MAD = &p
	a1 := mustNew(t, withDefaults)

	custom := base
	custom.MAD = &MADParams{A: 48271, B: 11}
	a2 := mustNew(t, custom)

	var differ bool
	for i := 0; i < 100; i++ {
		id := strconv.Itoa(i)
		d0, err := a0.AssignWithDetails(id)
		require.NoError(err)
		d1, err := a1.AssignWithDetails(id)
		require.NoError(err)
		d2, err := a2.AssignWithDetails(id)
		require.NoError(err)

		require.Equal(d0, d1)
		require.Equal(d0.Hash, d2.Hash)
		require.Equal(uint32((48271*uint64(d2.Hash)+11)%DefaultMADPrime%1000), d2.Index)
		if d0.Index != d2.Index {
			differ = true
		}
	}
	require.True(differ)
}

func TestAssignerConfigIsolation(t *testing.T) {
	require := require.New(t)

	ws := []float64{0.5, 0.5}
	p := &MADParams{A: 7, B: 3}
	a := mustNew(t, Config{
		Seed:         "isolation",
		Weights:      ws,
		TableSize:    100,
		Algorithm:    MD5,
		Distribution: MAD,
		MAD:          p,
	})
	ws[0], ws[1] = 1, 0
	p.A = 0

	c := a.Config()
	require.Equal([]float64{0.5, 0.5}, c.Weights)
	require.Equal(uint64(7), c.MAD.A)
	require.Equal([]uint32{50, 100}, a.Boundaries())

	c.Weights[0] = 42
	require.Equal([]float64{0.5, 0.5}, a.Config().Weights)
}

func TestAssignerConcurrency(t *testing.T) {
	a := mustNew(t, Config{
		Seed:         "concurrency",
		Weights:      []float64{0.2, 0.3, 0.5},
		TableSize:    10000,
		Algorithm:    XXH3,
		Distribution: MAD,
	})
	exp := make([]uint32, 1000)
	for i := range exp {
		v, err := a.Assign(strconv.Itoa(i))
		require.NoError(t, err)
		exp[i] = v
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for n := 0; n < 8; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range exp {
				v, err := a.Assign(strconv.Itoa(i))
				if err != nil {
					errs <- err
					return
				}
				if v != exp[i] {
					errs <- fmt.Errorf("identifier %d: variant %d; want %d", i, v, exp[i])
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

func TestConfigWithDefaults(t *testing.T) {
	require := require.New(t)

	c := Config{Seed: "s", Weights: []float64{0.5, 0.5}}.WithDefaults()
	require.Equal(DefaultAlgorithm, c.Algorithm)
	require.Equal(DefaultDistribution, c.Distribution)
	require.Equal(DefaultTableSize, c.TableSize)

	c = Config{TableSize: 100, Algorithm: XXH3, Distribution: Modulus}.WithDefaults()
	require.Equal(XXH3, c.Algorithm)
	require.Equal(Modulus, c.Distribution)
	require.Equal(100, c.TableSize)
}

func TestAssignerTrace(t *testing.T) {
	require := require.New(t)

	a := mustNew(t, Config{
		Seed:         "homepage-test",
		Weights:      []float64{0.5, 0.5},
		TableSize:    10000,
		Algorithm:    MD5,
		Distribution: MAD,
	})
	var calls []string
	a.trace = a.trace.Compose(traceAssigner{
		OnAssign: func(id string) traceAssign {
			calls = append(calls, "assign:"+id)
			return traceAssign{
				OnHash: func(h uint32) {
					calls = append(calls, "hash:"+strconv.FormatUint(uint64(h), 10))
				},
				OnDistribute: func(i uint32) {
					calls = append(calls, "index:"+strconv.FormatUint(uint64(i), 10))
				},
				OnDone: func(v uint32, err error) {
					require.NoError(err)
					calls = append(calls, "variant:"+strconv.FormatUint(uint64(v), 10))
				},
			}
		},
	})
	_, err := a.Assign("user123")
	require.NoError(err)
	require.Equal([]string{
		"assign:user123",
		"hash:4184080408",
		"index:4662",
		"variant:0",
	}, calls)
}
