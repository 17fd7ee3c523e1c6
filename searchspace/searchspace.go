// Package searchspace models the space of candidate experiments a
// recommender can draw from.
//
// A SearchSpace is a composite of an optional discrete part (an enumerated
// candidate table with per-row bookkeeping flags) and an optional
// continuous part (box-bounded numeric parameters). Recommenders dispatch
// on the composite's Type.
package searchspace

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/thalesfsp/bed/errors"
	"github.com/thalesfsp/bed/frame"
)

// Type discriminates the shape of a search space.
type Type string

const (
	// TypeDiscrete marks a space with only an enumerated candidate set.
	TypeDiscrete Type = "DISCRETE"

	// TypeContinuous marks a space with only box-bounded parameters.
	TypeContinuous Type = "CONTINUOUS"

	// TypeHybrid marks a space with both parts.
	TypeHybrid Type = "HYBRID"
)

//////
// Metadata.
//////

// Flags are the per-row bookkeeping bits of a discrete candidate.
type Flags struct {
	// WasMeasured is set for rows whose experiment has been run.
	WasMeasured bool

	// WasRecommended is set for rows a recommender has already returned.
	WasRecommended bool

	// DontRecommend excludes a row from recommendation permanently.
	DontRecommend bool
}

// Metadata holds the mutable per-row flags of a discrete search space,
// keyed by row label. It is mutated in place through the Mark methods;
// callers must serialize access.
type Metadata struct {
	flags map[int]*Flags
	index []int
}

// NewMetadata creates all-false metadata for the given row labels.
func NewMetadata(index []int) *Metadata {
	flags := make(map[int]*Flags, len(index))
	for _, l := range index {
		flags[l] = &Flags{}
	}
	return &Metadata{flags: flags, index: append([]int(nil), index...)}
}

// Flags returns the flags of a row label, or nil if unknown.
func (m *Metadata) Flags(label int) *Flags { return m.flags[label] }

// MarkRecommended sets WasRecommended on exactly the given labels. This is
// the explicit apply step after a successful selection.
func (m *Metadata) MarkRecommended(labels []int) error {
	return m.mark(labels, func(f *Flags) { f.WasRecommended = true })
}

// MarkMeasured sets WasMeasured on exactly the given labels.
func (m *Metadata) MarkMeasured(labels []int) error {
	return m.mark(labels, func(f *Flags) { f.WasMeasured = true })
}

// SetDontRecommend sets DontRecommend on exactly the given labels.
func (m *Metadata) SetDontRecommend(labels []int) error {
	return m.mark(labels, func(f *Flags) { f.DontRecommend = true })
}

func (m *Metadata) mark(labels []int, set func(*Flags)) error {
	// Validate all labels before mutating anything.
	for _, l := range labels {
		if _, ok := m.flags[l]; !ok {
			return errors.New(errors.Validation, "metadata has no row with label %d", l)
		}
	}
	for _, l := range labels {
		set(m.flags[l])
	}
	return nil
}

//////
// Discrete part.
//////

// Discrete is the enumerated part of a search space. Every row label in
// the computational representation has a matching row in the experimental
// representation and in the metadata.
type Discrete struct {
	compRep *frame.Numeric
	expRep  *frame.Records
	meta    *Metadata
}

// NewDiscrete assembles a discrete search space part. The two tables must
// share their row index.
func NewDiscrete(expRep *frame.Records, compRep *frame.Numeric) (*Discrete, error) {
	ei, ci := expRep.Index(), compRep.Index()
	if len(ei) != len(ci) {
		return nil, errors.New(errors.Validation,
			"experimental and computational representations must have the same index (%d vs %d rows)",
			len(ei), len(ci))
	}
	for i := range ei {
		if ei[i] != ci[i] {
			return nil, errors.New(errors.Validation,
				"experimental and computational representations disagree at position %d (%d vs %d)",
				i, ei[i], ci[i])
		}
	}

	return &Discrete{
		compRep: compRep,
		expRep:  expRep,
		meta:    NewMetadata(ci),
	}, nil
}

// CompRep returns the numeric feature table.
func (d *Discrete) CompRep() *frame.Numeric { return d.compRep }

// ExpRep returns the human-facing table.
func (d *Discrete) ExpRep() *frame.Records { return d.expRep }

// Metadata returns the mutable per-row flags.
func (d *Discrete) Metadata() *Metadata { return d.meta }

// GetCandidates returns the experimental and computational rows still
// available for recommendation. Rows flagged DontRecommend are always
// excluded; WasRecommended rows are excluded unless allowRepeated and
// WasMeasured rows are excluded unless allowMeasured.
func (d *Discrete) GetCandidates(allowRepeated, allowMeasured bool) (*frame.Records, *frame.Numeric, error) {
	var keep []int
	for _, label := range d.compRep.Index() {
		f := d.meta.Flags(label)
		switch {
		case f.DontRecommend:
		case f.WasRecommended && !allowRepeated:
		case f.WasMeasured && !allowMeasured:
		default:
			keep = append(keep, label)
		}
	}

	exp, err := d.expRep.Loc(keep)
	if err != nil {
		return nil, nil, err
	}
	comp, err := d.compRep.Loc(keep)
	if err != nil {
		return nil, nil, err
	}

	return exp, comp, nil
}

//////
// Continuous part.
//////

// Parameter is a box-bounded continuous parameter.
type Parameter struct {
	Name string
	Min  float64
	Max  float64
}

// Continuous is the box-bounded part of a search space.
type Continuous struct {
	params []Parameter
}

// NewContinuous assembles a continuous search space part.
func NewContinuous(params []Parameter) (*Continuous, error) {
	for _, p := range params {
		if p.Max < p.Min {
			return nil, errors.New(errors.Validation,
				"parameter %q has inverted bounds [%v, %v]", p.Name, p.Min, p.Max)
		}
	}
	return &Continuous{params: append([]Parameter(nil), params...)}, nil
}

// Empty reports whether the part has no parameters.
func (c *Continuous) Empty() bool { return c == nil || len(c.params) == 0 }

// Parameters returns the parameter definitions.
func (c *Continuous) Parameters() []Parameter { return c.params }

// SamplesRandom draws n uniform random points within the box bounds.
func (c *Continuous) SamplesRandom(n int, rng *rand.Rand) (*frame.Numeric, error) {
	if n <= 0 {
		return nil, errors.New(errors.Validation, "sample count must be positive, got %d", n)
	}

	cols := make([]string, len(c.params))
	for i, p := range c.params {
		cols[i] = p.Name
	}

	data := mat.NewDense(n, len(c.params), nil)
	for i := 0; i < n; i++ {
		for j, p := range c.params {
			data.Set(i, j, p.Min+rng.Float64()*(p.Max-p.Min))
		}
	}

	return frame.NewNumeric(cols, data)
}

//////
// Composite.
//////

// SearchSpace is the composite of an optional discrete and an optional
// continuous part. At least one part must be present.
type SearchSpace struct {
	discrete   *Discrete
	continuous *Continuous
}

// New assembles a search space from its parts. Either may be nil.
func New(discrete *Discrete, continuous *Continuous) (*SearchSpace, error) {
	if discrete == nil && (continuous == nil || continuous.Empty()) {
		return nil, errors.New(errors.Validation, "search space needs a discrete or a continuous part")
	}
	return &SearchSpace{discrete: discrete, continuous: continuous}, nil
}

// Discrete returns the discrete part, or nil.
func (s *SearchSpace) Discrete() *Discrete { return s.discrete }

// Continuous returns the continuous part, or nil.
func (s *SearchSpace) Continuous() *Continuous { return s.continuous }

// HasContinuous reports whether a non-empty continuous part is present.
func (s *SearchSpace) HasContinuous() bool {
	return s.continuous != nil && !s.continuous.Empty()
}

// Type returns the shape of the search space.
func (s *SearchSpace) Type() Type {
	switch {
	case s.discrete != nil && s.HasContinuous():
		return TypeHybrid
	case s.discrete != nil:
		return TypeDiscrete
	default:
		return TypeContinuous
	}
}
