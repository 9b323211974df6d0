package dataset

import (
	"math"
	"slices"
	"testing"

	"github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/config"
	perr "github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/errors"
	kit "github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/testkit"
)

func TestSizes(t *testing.T) {
	tests := []struct {
		name   string
		ratios []float64
		n      int
		want   []int
	}{
		{name: "even", ratios: []float64{0.5, 0.5}, n: 10, want: []int{5, 5}},
		{name: "train val test", ratios: []float64{0.8, 0.1, 0.1}, n: 10, want: []int{8, 1, 1}},
		{name: "remainder to largest fraction", ratios: []float64{0.6, 0.4}, n: 3, want: []int{2, 1}},
		{name: "ties go to lower index", ratios: []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, n: 4, want: []int{2, 1, 1}},
		{name: "zero part", ratios: []float64{0, 1}, n: 3, want: []int{0, 3}},
		{name: "empty", ratios: []float64{0.5, 0.5}, n: 0, want: []int{0, 0}},
		{name: "single", ratios: []float64{1}, n: 7, want: []int{7}},
		{name: "fewer records than parts", ratios: []float64{0.6, 0.2, 0.2}, n: 1, want: []int{1, 0, 0}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := sizes(tc.ratios, tc.n); !slices.Equal(got, tc.want) {
				t.Fatalf("sizes(%v, %d) = %v, want %v", tc.ratios, tc.n, got, tc.want)
			}
		})
	}
}

func TestSplit_InvalidRatios(t *testing.T) {
	d := mustNew(t, numbered(4))
	tests := []struct {
		name   string
		ratios []float64
		field  string
	}{
		{name: "none", ratios: nil},
		{name: "negative", ratios: []float64{1.5, -0.5}, field: "ratios[1]"},
		{name: "nan", ratios: []float64{math.NaN(), 1}, field: "ratios[0]"},
		{name: "inf", ratios: []float64{math.Inf(1)}, field: "ratios[0]"},
		{name: "short", ratios: []float64{0.5, 0.4}},
		{name: "long", ratios: []float64{0.6, 0.6}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := d.Split(tc.ratios)
			kit.MustCode(t, err, perr.ErrorCodeInvalidRatio)
			if e, _ := perr.As(err); tc.field != "" && e.Field() != tc.field {
				t.Fatalf("field = %q, want %q", e.Field(), tc.field)
			}
		})
	}

	if _, err := d.Split([]float64{0.5, 0.5 + 5e-7}); err != nil {
		t.Fatalf("sum within tolerance rejected: %v", err)
	}
}

func TestSplit_Sequential(t *testing.T) {
	d := mustNew(t, numbered(10))
	parts, err := d.Split([]float64{0.8, 0.1, 0.1})
	if err != nil {
		t.Fatalf("Split err = %v", err)
	}
	want := [][]string{
		{"acto-0", "acto-1", "acto-2", "acto-3", "acto-4", "acto-5", "acto-6", "acto-7"},
		{"acto-8"},
		{"acto-9"},
	}
	for i, p := range parts {
		if !slices.Equal(p.IDs(), want[i]) {
			t.Fatalf("part %d = %v", i, p.IDs())
		}
	}
	if r, err := parts[2].Get("acto-9"); err != nil || r.Text != "texto 9" {
		t.Fatalf("part lookup = %+v, %v", r, err)
	}
	if _, err := parts[1].Get("acto-0"); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("part resolves foreign id: %v", err)
	}
	if parts[0].st != d.st {
		t.Fatalf("parts should share the store")
	}
}

func TestSplit_ShuffledHalves(t *testing.T) {
	d := mustNew(t, numbered(10))
	before := d.IDs()
	a, err := d.Split([]float64{0.5, 0.5}, Shuffled(42))
	if err != nil {
		t.Fatalf("Split err = %v", err)
	}
	b, _ := d.Split([]float64{0.5, 0.5}, Shuffled(42))

	if a[0].Len() != 5 || a[1].Len() != 5 {
		t.Fatalf("sizes = %d + %d", a[0].Len(), a[1].Len())
	}
	for i := range a {
		if !slices.Equal(a[i].IDs(), b[i].IDs()) {
			t.Fatalf("same seed differs: %v vs %v", a[i].IDs(), b[i].IDs())
		}
	}
	union := append(a[0].IDs(), a[1].IDs()...)
	slices.Sort(union)
	all := d.IDs()
	slices.Sort(all)
	if !slices.Equal(union, all) {
		t.Fatalf("union = %v", union)
	}
	if slices.Equal(append(a[0].IDs(), a[1].IDs()...), d.IDs()) {
		t.Fatalf("shuffle kept load order")
	}

	c, _ := d.Split([]float64{0.5, 0.5}, Shuffled(7))
	if slices.Equal(a[0].IDs(), c[0].IDs()) && slices.Equal(a[1].IDs(), c[1].IDs()) {
		t.Fatalf("different seeds gave the same split")
	}
	if !slices.Equal(d.IDs(), before) {
		t.Fatalf("split reordered the parent: %v", d.IDs())
	}
}

func TestSplit_Stratified(t *testing.T) {
	recs := numbered(20, "decreto", "decreto", "decreto", "resolucion")
	recs = append(recs, rec("sin-1", "sin"), rec("sin-2", "sin"))
	d := mustNew(t, recs)

	parts, err := d.Split([]float64{0.5, 0.5}, Stratified("categoria", 3))
	if err != nil {
		t.Fatalf("Split err = %v", err)
	}
	// 15 decreto, 5 resolucion, 2 without categoria
	want := []map[string]int{
		{"decreto": 8, "resolucion": 3},
		{"decreto": 7, "resolucion": 2},
	}
	for i, p := range parts {
		c := p.CountBy("categoria")
		if c["decreto"] != want[i]["decreto"] || c["resolucion"] != want[i]["resolucion"] {
			t.Fatalf("part %d counts = %v", i, c)
		}
	}
	if parts[0].Len() != 12 || parts[1].Len() != 10 {
		t.Fatalf("sizes = %d + %d", parts[0].Len(), parts[1].Len())
	}
	if parts[0].Has("sin-1") == parts[1].Has("sin-1") || parts[0].Has("sin-2") == parts[1].Has("sin-2") {
		t.Fatalf("records without the key misplaced")
	}

	again, _ := d.Split([]float64{0.5, 0.5}, Stratified("categoria", 3))
	if !slices.Equal(parts[0].IDs(), again[0].IDs()) {
		t.Fatalf("stratified split not deterministic")
	}

	_, err = d.Split([]float64{1}, Stratified("", 1))
	kit.MustCode(t, err, perr.ErrorCodeInvalidConfig)
}

func TestSplit_EmptyDataset(t *testing.T) {
	parts, err := mustNew(t, nil).Split([]float64{0.7, 0.3}, Shuffled(1))
	if err != nil {
		t.Fatalf("Split err = %v", err)
	}
	if len(parts) != 2 || parts[0].Len() != 0 || parts[1].Len() != 0 {
		t.Fatalf("parts = %+v", parts)
	}
}

func TestPlanFromEnv(t *testing.T) {
	p := PlanFromEnv(config.New().Prefix("ACTOS_SPLIT_"))
	if !slices.Equal(p.Ratios, DefaultRatios) || p.Mode != ModeSequential {
		t.Fatalf("default plan = %+v", p)
	}

	t.Setenv("ACTOS_SPLIT_RATIOS", "0.5, 0.5")
	t.Setenv("ACTOS_SPLIT_MODE", "shuffled")
	t.Setenv("ACTOS_SPLIT_SEED", "42")
	p = PlanFromEnv(config.New().Prefix("ACTOS_SPLIT_"))
	if !slices.Equal(p.Ratios, []float64{0.5, 0.5}) || p.Mode != ModeShuffled || p.Seed != 42 {
		t.Fatalf("plan = %+v", p)
	}

	d := mustNew(t, numbered(10))
	viaPlan, err := d.SplitPlan(p)
	if err != nil {
		t.Fatalf("SplitPlan err = %v", err)
	}
	direct, _ := d.Split([]float64{0.5, 0.5}, Shuffled(42))
	if !slices.Equal(viaPlan[0].IDs(), direct[0].IDs()) {
		t.Fatalf("plan split differs from direct split")
	}

	t.Setenv("ACTOS_SPLIT_MODE", "random")
	kit.MustPanic(t, func() { PlanFromEnv(config.New().Prefix("ACTOS_SPLIT_")) })
}
