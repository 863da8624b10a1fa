package domain

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	m "github.com/mouse-blink/culprit/internal/model"
)

func prefixed(prefix string, names []string) m.Sequence {
	seq := make(m.Sequence, 0, len(names))
	for _, n := range names {
		seq = append(seq, m.Token("-"+prefix+n))
	}

	return seq
}

func sequencesEqual(a, b m.Sequence) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

func TestDiff_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("disjoint inputs partition fully by origin", prop.ForAll(
		func(base, tgt []string) bool {
			bseq := prefixed("b", base)
			tseq := prefixed("t", tgt)

			diff := Diff(bseq, tseq)

			return len(diff.Common) == 0 &&
				sequencesEqual(diff.OnlyBaseline, bseq) &&
				sequencesEqual(diff.OnlyTarget, tseq)
		},
		gen.SliceOf(gen.Identifier()),
		gen.SliceOf(gen.Identifier()),
	))

	properties.Property("differencing is idempotent", prop.ForAll(
		func(base, tgt []string) bool {
			bseq := prefixed("x", base)
			tseq := prefixed("x", tgt)

			first := Diff(bseq, tseq)
			second := Diff(bseq, tseq)

			return sequencesEqual(first.Common, second.Common) &&
				sequencesEqual(first.OnlyBaseline, second.OnlyBaseline) &&
				sequencesEqual(first.OnlyTarget, second.OnlyTarget)
		},
		gen.SliceOf(gen.Identifier()),
		gen.SliceOf(gen.Identifier()),
	))

	properties.Property("identical inputs have an empty difference", prop.ForAll(
		func(names []string) bool {
			seq := prefixed("s", names)

			return Diff(seq, seq).Empty()
		},
		gen.SliceOf(gen.Identifier()),
	))

	properties.TestingRun(t)
}
