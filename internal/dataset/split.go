package dataset

import (
	"cmp"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/config"
	perr "github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/errors"
)

// Split modes
const (
	ModeSequential = "sequential"
	ModeShuffled   = "shuffled"
	ModeStratified = "stratified"
)

// RatioTolerance is how far the ratios may sum from 1
const RatioTolerance = 1e-6

// second PCG word, fixed so a seed alone determines the permutation
const pcgStream = 0x9e3779b97f4a7c15

type splitOpts struct {
	mode string
	seed uint64
	key  string
}

// SplitOption selects how Split orders records before cutting
type SplitOption func(*splitOpts)

// Sequential cuts contiguous blocks in dataset order (the default)
func Sequential() SplitOption {
	return func(o *splitOpts) { o.mode = ModeSequential }
}

// Shuffled permutes the records with a PCG source seeded by seed before cutting
func Shuffled(seed uint64) SplitOption {
	return func(o *splitOpts) { o.mode, o.seed = ModeShuffled, seed }
}

// Stratified cuts every value of the metadata key separately so each part keeps
// the class proportions. Records lacking the key form one more stratum.
func Stratified(key string, seed uint64) SplitOption {
	return func(o *splitOpts) { o.mode, o.seed, o.key = ModeStratified, seed, key }
}

// Split partitions the dataset into len(ratios) disjoint views over the same
// store. Every record lands in exactly one part.
func (d *Dataset) Split(ratios []float64, opts ...SplitOption) ([]*Dataset, error) {
	if err := checkRatios(ratios); err != nil {
		return nil, perr.WithOp(err, "dataset.Split")
	}
	o := splitOpts{mode: ModeSequential}
	for _, fn := range opts {
		fn(&o)
	}

	var parts [][]int
	switch o.mode {
	case ModeSequential:
		parts = cut(slices.Clone(d.pos), sizes(ratios, len(d.pos)))
	case ModeShuffled:
		rng := newRand(o.seed)
		pos := slices.Clone(d.pos)
		shuffle(rng, pos)
		parts = cut(pos, sizes(ratios, len(pos)))
	case ModeStratified:
		if o.key == "" {
			return nil, perr.WithOp(perr.WithField(perr.InvalidConfigf("stratified split needs a metadata key"), "key"), "dataset.Split")
		}
		parts = d.stratify(ratios, o.key, newRand(o.seed))
	default:
		return nil, perr.WithOp(perr.InvalidConfigf("unknown split mode %q", o.mode), "dataset.Split")
	}

	out := make([]*Dataset, len(parts))
	counts := make([]int, len(parts))
	for i, p := range parts {
		out[i] = d.view(p)
		counts[i] = len(p)
	}
	d.log.Debug().Str("mode", o.mode).Floats64("ratios", ratios).Ints("sizes", counts).Msg("split")
	return out, nil
}

func checkRatios(ratios []float64) error {
	if len(ratios) == 0 {
		return perr.InvalidRatiof("no ratios given")
	}
	sum := 0.0
	for i, r := range ratios {
		if math.IsNaN(r) || math.IsInf(r, 0) || r < 0 {
			return perr.WithField(perr.InvalidRatiof("ratio %v must be a finite number >= 0", r), fmt.Sprintf("ratios[%d]", i))
		}
		sum += r
	}
	if math.Abs(sum-1) > RatioTolerance {
		return perr.InvalidRatiof("ratios sum to %v, want 1", sum)
	}
	return nil
}

// sizes turns ratios into part sizes summing to n: floor first, then one extra
// to the parts with the largest fractional remainder, lower index on ties.
func sizes(ratios []float64, n int) []int {
	sum := 0.0
	for _, r := range ratios {
		sum += r
	}
	type rem struct {
		i int
		f float64
	}
	out := make([]int, len(ratios))
	rems := make([]rem, len(ratios))
	total := 0
	for i, r := range ratios {
		exact := r / sum * float64(n)
		fl := math.Floor(exact)
		out[i] = int(fl)
		total += out[i]
		rems[i] = rem{i: i, f: exact - fl}
	}
	slices.SortStableFunc(rems, func(a, b rem) int { return cmp.Compare(b.f, a.f) })
	for k := 0; total < n; k++ {
		out[rems[k%len(rems)].i]++
		total++
	}
	// float error can overshoot by one; take it back from the largest part
	for total > n {
		out[slices.Index(out, slices.Max(out))]--
		total--
	}
	return out
}

func cut(pos []int, sz []int) [][]int {
	parts := make([][]int, len(sz))
	at := 0
	for i, s := range sz {
		parts[i] = pos[at : at+s : at+s]
		at += s
	}
	return parts
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^pcgStream))
}

func shuffle(rng *rand.Rand, pos []int) {
	rng.Shuffle(len(pos), func(i, j int) { pos[i], pos[j] = pos[j], pos[i] })
}

func (d *Dataset) stratify(ratios []float64, key string, rng *rand.Rand) [][]int {
	type stratum struct {
		pos []int
	}
	var order []string
	strata := map[string]*stratum{}
	missing := &stratum{}
	for _, p := range d.pos {
		v, ok := d.st.recs[p].Metadata.Get(key)
		if !ok {
			missing.pos = append(missing.pos, p)
			continue
		}
		k := ClassName(v)
		s, seen := strata[k]
		if !seen {
			s = &stratum{}
			strata[k] = s
			order = append(order, k)
		}
		s.pos = append(s.pos, p)
	}

	all := make([]*stratum, 0, len(order)+1)
	for _, k := range order {
		all = append(all, strata[k])
	}
	if len(missing.pos) > 0 {
		all = append(all, missing)
	}

	parts := make([][]int, len(ratios))
	for _, s := range all {
		shuffle(rng, s.pos)
		for i, chunk := range cut(s.pos, sizes(ratios, len(s.pos))) {
			parts[i] = append(parts[i], chunk...)
		}
	}
	for i := range parts {
		if parts[i] == nil {
			parts[i] = []int{}
		}
		shuffle(rng, parts[i])
	}
	return parts
}

// Plan is a split described by configuration
type Plan struct {
	Ratios []float64
	Mode   string
	Seed   uint64
	Key    string
}

// DefaultRatios is the train/validation/test split used when none is configured
var DefaultRatios = []float64{0.8, 0.1, 0.1}

// PlanFromEnv reads RATIOS, MODE, SEED and STRATIFY_KEY under c's prefix
func PlanFromEnv(c config.Conf) Plan {
	return Plan{
		Ratios: c.MayFloats("RATIOS", slices.Clone(DefaultRatios)),
		Mode:   c.MayEnum("MODE", ModeSequential, ModeSequential, ModeShuffled, ModeStratified),
		Seed:   c.MayUint64("SEED", 0),
		Key:    c.MayString("STRATIFY_KEY", ""),
	}
}

// Options converts the plan into split options
func (p Plan) Options() []SplitOption {
	switch p.Mode {
	case ModeShuffled:
		return []SplitOption{Shuffled(p.Seed)}
	case ModeStratified:
		return []SplitOption{Stratified(p.Key, p.Seed)}
	default:
		return []SplitOption{Sequential()}
	}
}

// SplitPlan runs Split with the plan's ratios and mode
func (d *Dataset) SplitPlan(p Plan) ([]*Dataset, error) {
	return d.Split(p.Ratios, p.Options()...)
}
