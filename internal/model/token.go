// Package model defines the data structures for option regression runs.
package model

import (
	"sort"
	"strings"
)

// Token is an atomic build/compiler option, including any directly attached
// value (e.g. "-O2", "-I./includes"). Identity is exact string equality.
type Token string

// Sequence is an ordered list of tokens representing one full configuration.
// Duplicates are permitted and preserved.
type Sequence []Token

// Strings converts the sequence to a plain string slice.
func (s Sequence) Strings() []string {
	out := make([]string, len(s))
	for i, t := range s {
		out[i] = string(t)
	}

	return out
}

// Join concatenates the sequence with the given separator.
func (s Sequence) Join(sep string) string {
	return strings.Join(s.Strings(), sep)
}

// Origin identifies which configuration contributed a difference token.
type Origin string

// Available Origin values.
const (
	OriginBaseline Origin = "baseline"
	OriginTarget   Origin = "target"
)

// Unit is one atomic step of the minimization search: a distinct token text
// together with the side it came from. Textually identical tokens collapse
// into a single unit, so removing a unit removes every occurrence.
type Unit struct {
	Token  Token  `yaml:"token"`
	Origin Origin `yaml:"origin"`
}

// DifferenceSet partitions two tokenized configurations into the tokens they
// share and the tokens present on exactly one side. Ordering is first-seen
// order per side. Shared tokens form the fixed context of every trial.
type DifferenceSet struct {
	Common       Sequence
	OnlyBaseline Sequence
	OnlyTarget   Sequence
}

// Empty reports whether the two configurations had no differing tokens.
func (d DifferenceSet) Empty() bool {
	return len(d.OnlyBaseline) == 0 && len(d.OnlyTarget) == 0
}

// Units returns the minimization units of the difference set: one unit per
// distinct differing token text, baseline-side units first, each side in
// first-seen order.
func (d DifferenceSet) Units() []Unit {
	seen := make(map[Token]struct{})

	units := make([]Unit, 0, len(d.OnlyBaseline)+len(d.OnlyTarget))

	for _, t := range d.OnlyBaseline {
		if _, ok := seen[t]; ok {
			continue
		}

		seen[t] = struct{}{}
		units = append(units, Unit{Token: t, Origin: OriginBaseline})
	}

	for _, t := range d.OnlyTarget {
		if _, ok := seen[t]; ok {
			continue
		}

		seen[t] = struct{}{}
		units = append(units, Unit{Token: t, Origin: OriginTarget})
	}

	return units
}

// Apply materializes the trial configuration for a chosen subset of units.
// The result is the fixed common context, plus every baseline-only token
// whose unit is not in the subset, plus every target-only token whose unit
// is. The empty subset therefore reproduces the baseline configuration and
// the full subset reproduces the target configuration.
func (d DifferenceSet) Apply(subset Subset) Sequence {
	chosen := make(map[Token]struct{}, len(subset))
	for _, u := range subset {
		chosen[u.Token] = struct{}{}
	}

	out := make(Sequence, 0, len(d.Common)+len(d.OnlyBaseline)+len(d.OnlyTarget))
	out = append(out, d.Common...)

	for _, t := range d.OnlyBaseline {
		if _, ok := chosen[t]; !ok {
			out = append(out, t)
		}
	}

	for _, t := range d.OnlyTarget {
		if _, ok := chosen[t]; ok {
			out = append(out, t)
		}
	}

	return out
}

// Subset is a chosen set of difference units under test. The zero value is
// the empty subset (the baseline pole).
type Subset []Unit

// subsetKeySep separates tokens inside a canonical subset key. A unit
// separator keeps keys unambiguous for tokens containing spaces.
const subsetKeySep = "\x1f"

// Key returns the canonical cache key for the subset: the distinct token
// texts, sorted and joined. Subset ordering is not part of its identity.
func (s Subset) Key() string {
	texts := make([]string, len(s))
	for i, u := range s {
		texts[i] = string(u.Token)
	}

	sort.Strings(texts)

	return strings.Join(texts, subsetKeySep)
}

// Tokens returns the subset's tokens in subset order.
func (s Subset) Tokens() Sequence {
	out := make(Sequence, len(s))
	for i, u := range s {
		out[i] = u.Token
	}

	return out
}

// Describe renders the subset for diagnostics and reports.
func (s Subset) Describe() string {
	if len(s) == 0 {
		return "(baseline)"
	}

	return s.Tokens().Join(" ")
}
