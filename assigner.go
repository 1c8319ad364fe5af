package variant

// Defaults used by Config.WithDefaults.
const (
	DefaultTableSize    = 10000
	DefaultAlgorithm    = MD5
	DefaultDistribution = MAD
)

// Config is a full identity of experiment's assignment rule. Two assigners
// built from equal configs assign every identifier equally.
type Config struct {
	// Seed names the experiment.
	Seed string

	// Weights holds variant proportions. Position i is a weight of i-th
	// variant. Weights must be non-negative and sum up to 1.0 (±0.01).
	Weights []float64

	// TableSize is a size of the table used to approximate weights. The
	// higher this number, the more precise weights are approximated.
	TableSize int

	Algorithm    Algorithm
	Distribution Distribution

	// MAD holds optional custom parameters for the MAD distribution method.
	// It is ignored for other methods.
	MAD *MADParams
}

// WithDefaults returns a copy of c with zero algorithm, distribution and
// table size replaced by their defaults.
func (c Config) WithDefaults() Config {
	if c.Algorithm == 0 {
		c.Algorithm = DefaultAlgorithm
	}
	if c.Distribution == 0 {
		c.Distribution = DefaultDistribution
	}
	if c.TableSize == 0 {
		c.TableSize = DefaultTableSize
	}
	return c
}

func (c Config) clone() Config {
	ws := make([]float64, len(c.Weights))
	copy(ws, c.Weights)
	c.Weights = ws
	if c.MAD != nil {
		p := *c.MAD
		c.MAD = &p
	}
	return c
}

// Details holds intermediate values of a single assignment.
type Details struct {
	Identifier string
	Hash       uint32
	Index      uint32
	Variant    uint32
}

// Assigner assigns identifiers to variants.
// It is immutable and goroutine safe.
type Assigner struct {
	config Config

	hasher      *Hasher
	distributor *Distributor
	bucketer    *Bucketer

	trace traceAssigner
}

// New validates c and returns an assigner for it.
// Any configuration error is returned here; per-identifier calls on the
// returned assigner never fail because of configuration.
func New(c Config) (*Assigner, error) {
	c = c.clone()

	bucketer, err := NewBucketer(c.Weights, c.TableSize)
	if err != nil {
		return nil, err
	}
	hasher, err := NewHasher(c.Seed, c.Algorithm)
	if err != nil {
		return nil, err
	}
	var params *MADParams
	if c.Distribution == MAD {
		params = c.MAD
	}
	distributor, err := NewDistributor(c.Distribution, c.TableSize, params)
	if err != nil {
		return nil, err
	}
	a := &Assigner{
		config:      c,
		hasher:      hasher,
		distributor: distributor,
		bucketer:    bucketer,
	}
	setupAssignerTrace(a)

	return a, nil
}

// Assign returns ordinal of the variant for identifier.
// Any string is a valid identifier. Non-nil error means internal
// inconsistency and wraps ErrOutOfRange.
func (a *Assigner) Assign(identifier string) (uint32, error) {
	d, err := a.AssignWithDetails(identifier)
	if err != nil {
		return 0, err
	}
	return d.Variant, nil
}

// AssignWithDetails is like Assign but also returns intermediate values.
func (a *Assigner) AssignWithDetails(identifier string) (d Details, err error) {
	trace := a.trace.onAssign(identifier)
	defer func() {
		trace.onDone(d.Variant, err)
	}()

	d.Identifier = identifier
	d.Hash = a.hasher.Hash(identifier)
	trace.onHash(d.Hash)

	d.Index = a.distributor.Distribute(d.Hash)
	trace.onDistribute(d.Index)

	d.Variant, err = a.bucketer.VariantOf(d.Index)
	if err != nil {
		return Details{}, err
	}
	return d, nil
}

// Boundaries returns variant boundaries within the table. Variant i owns
// indices from Boundaries()[i-1] (or zero) up to Boundaries()[i] exclusive.
func (a *Assigner) Boundaries() []uint32 {
	return a.bucketer.Boundaries()
}

// NumVariants returns number of variants.
func (a *Assigner) NumVariants() int {
	return a.bucketer.NumVariants()
}

// Config returns a copy of assigner's configuration.
func (a *Assigner) Config() Config {
	return a.config.clone()
}
