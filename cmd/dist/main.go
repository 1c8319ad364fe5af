package main

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/gobwas/avl"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/gobwas/variant"
)

func main() {
	var (
		p      int       // Number of goroutines.
		n      int       // Number of identifiers.
		seed   string    // Experiment seed.
		ws     []float64 // Variant weights.
		sizes  []int     // Table sizes.
		algs   []string  // Algorithm names.
		dists  []string  // Distribution method names.
		csv    bool
		prefix string

		verbose bool
		silent  bool
	)
	flag.IntVar(&p,
		"parallelism", runtime.NumCPU(),
		"number of concurrent processors",
	)
	flag.IntVar(&n,
		"objects", 1e5,
		"number of sequential identifiers to assign",
	)
	flag.StringVar(&seed,
		"seed", "dist",
		"experiment seed",
	)
	flag.StringVar(&prefix,
		"prefix", "",
		"prefix prepended to every identifier",
	)
	flag.Float64SliceVar(&ws,
		"weights", []float64{0.5, 0.5},
		"comma-separated list of variant weights",
	)
	flag.IntSliceVar(&sizes,
		"sizes", []int{100, variant.DefaultTableSize},
		"comma-separated list of table sizes",
	)
	flag.StringSliceVar(&algs,
		"algorithms", nil,
		"comma-separated list of hash algorithms (all if empty)",
	)
	flag.StringSliceVar(&dists,
		"distributions", nil,
		"comma-separated list of distribution methods (all if empty)",
	)
	flag.BoolVarP(&verbose,
		"verbose", "v", false,
		"be verbose",
	)
	flag.BoolVarP(&silent,
		"silent", "s", false,
		"be silent",
	)
	flag.BoolVar(&csv,
		"csv", true,
		"print csv to standard output",
	)
	flag.Parse()

	log := zap.NewNop()
	if verbose {
		var err error
		if log, err = zap.NewDevelopment(); err != nil {
			panic(err)
		}
	}
	defer func() { _ = log.Sync() }()

	printf := func(f string, args ...interface{}) {
		if silent {
			return
		}
		fmt.Fprintf(os.Stderr, f, args...)
	}

	algorithms, err := parseAlgorithms(algs)
	if err != nil {
		fatal(err)
	}
	distributions, err := parseDistributions(dists)
	if err != nil {
		fatal(err)
	}

	// Prepare list of jobs. We use tree to autofix duplicate table sizes (if
	// any) and to keep them sorted.
	var jobs avl.Tree
	for _, size := range sizes {
		for _, a := range algorithms {
			for _, d := range distributions {
				c := variant.Config{
					Seed:         seed,
					Weights:      ws,
					TableSize:    size,
					Algorithm:    a,
					Distribution: d,
				}
				if _, err := variant.New(c); err != nil {
					fatal(err)
				}
				jobs, _ = jobs.Insert(job{config: c})
			}
		}
	}
	log.Debug("jobs are ready", zap.Int("count", jobs.Size()))

	t := process(jobs, p, func(j job) result {
		r := measure(j, n, prefix)
		log.Debug("measured",
			zap.Stringer("algorithm", j.config.Algorithm),
			zap.Stringer("distribution", j.config.Distribution),
			zap.Int("table_size", j.config.TableSize),
			zap.Float64("max_diff", r.maxDiff),
			zap.Float64("chi2", r.chi2),
			zap.Duration("latency", r.latency),
		)
		return r
	}, func(n int) {
		printf(".")
		if n%80 == 0 {
			total := jobs.Size()
			printf(
				"%d/%d(%.1f%%)\n",
				n, total,
				float64(n)/float64(total)*100, // Progress percentage.
			)
		}
	})
	printf("\n")

	tw := tabwriter.NewWriter(os.Stdout, 2, 2, 2, ' ', 0)
	if csv {
		fmt.Fprintf(tw, "size,\talgorithm,\tdistribution,\tmaxdiff%%,\tchi2,\tns/op\n")
	}
	t.InOrder(func(x avl.Item) bool {
		r := x.(result)
		if csv {
			fmt.Fprintf(tw,
				"%d,\t%s,\t%s,\t%.4f,\t%.2f,\t%.1f\n",
				r.config.TableSize,
				r.config.Algorithm,
				r.config.Distribution,
				r.maxDiff*100,
				r.chi2,
				float64(r.latency.Nanoseconds())/float64(n),
			)
		}
		return true
	})
	tw.Flush()

	printf("OK\n")
}

// process runs fn for every job using p goroutines and returns results
// ordered as jobs are. Non-positive p means a single goroutine.
func process(jobs avl.Tree, p int, fn func(job) result, progress func(int)) avl.Tree {
	if p < 1 {
		p = 1
	}
	var (
		work    = make(chan job)
		stop    = make(chan struct{})
		done    = make(chan struct{}, p)
		results = make(chan result, 1)
	)
	for i := 0; i < p; i++ {
		go func() {
			defer func() {
				done <- struct{}{}
			}()
			for {
				var j job
				select {
				case <-stop:
					return
				case j = <-work:
					// Process below.
				}
				results <- fn(j)
			}
		}()
	}

	go func() {
		jobs.InOrder(func(x avl.Item) bool {
			select {
			case <-stop:
				return false
			case work <- x.(job):
				return true
			}
		})
		close(stop)
		for i := 0; i < p; i++ {
			<-done
		}
		close(results)
	}()

	var t avl.Tree
	for r := range results {
		t, _ = t.Insert(r)
		if progress != nil {
			progress(t.Size())
		}
	}
	return t
}

type job struct {
	config variant.Config
}

func (j job) Compare(x avl.Item) int {
	return compareConfig(j.config, x.(job).config)
}

type result struct {
	job
	maxDiff float64 // Max absolute difference between share and weight.
	chi2    float64 // Pearson's chi-squared statistic.
	latency time.Duration
}

func (r result) Compare(x avl.Item) int {
	return compareConfig(r.config, x.(result).config)
}

func compareConfig(c0, c1 variant.Config) int {
	if x := c0.TableSize - c1.TableSize; x != 0 {
		return x
	}
	if x := int(c0.Algorithm) - int(c1.Algorithm); x != 0 {
		return x
	}
	return int(c0.Distribution) - int(c1.Distribution)
}

func measure(j job, n int, prefix string) result {
	a, err := variant.New(j.config)
	if err != nil {
		panic(fmt.Sprintf("variant: internal error: config was checked: %v", err))
	}
	counts := make([]int, a.NumVariants())
	start := time.Now()
	for i := 0; i < n; i++ {
		v, err := a.Assign(prefix + strconv.Itoa(i))
		if err != nil {
			panic(err)
		}
		counts[v]++
	}
	latency := time.Since(start)

	r := result{
		job:     j,
		latency: latency,
	}
	for i, c := range counts {
		w := j.config.Weights[i]
		share := float64(c) / float64(n)
		r.maxDiff = math.Max(r.maxDiff, math.Abs(share-w))
		if exp := w * float64(n); exp > 0 {
			r.chi2 += math.Pow(float64(c)-exp, 2) / exp
		}
	}
	return r
}

func parseAlgorithms(names []string) ([]variant.Algorithm, error) {
	if len(names) == 0 {
		return variant.Algorithms(), nil
	}
	ret := make([]variant.Algorithm, len(names))
	for i, s := range names {
		a, err := variant.ParseAlgorithm(s)
		if err != nil {
			return nil, err
		}
		ret[i] = a
	}
	return ret, nil
}

func parseDistributions(names []string) ([]variant.Distribution, error) {
	if len(names) == 0 {
		return variant.Distributions(), nil
	}
	ret := make([]variant.Distribution, len(names))
	for i, s := range names {
		d, err := variant.ParseDistribution(s)
		if err != nil {
			return nil, err
		}
		ret[i] = d
	}
	return ret, nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "dist: %v\n", err)
	os.Exit(1)
}
