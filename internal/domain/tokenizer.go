// Package domain implements the option regression engine: tokenizing and
// differencing option strings, rendering trial commands, and searching for a
// minimal failure-inducing option subset.
package domain

import (
	"github.com/google/shlex"

	m "github.com/mouse-blink/culprit/internal/model"
)

// Tokenizer splits a raw option string into an ordered token sequence.
type Tokenizer interface {
	Tokenize(raw string) (m.Sequence, error)
}

type shellTokenizer struct{}

// NewTokenizer constructs the default tokenizer. Tokens split on whitespace
// only; shell-style quoting keeps a flag and its attached value atomic, so
// `-Wl,-z,now` and `"-DNAME=a b"` each stay one token.
func NewTokenizer() Tokenizer {
	return &shellTokenizer{}
}

// Tokenize splits raw into tokens. Malformed quoting is reported as a
// configuration error so it surfaces before any trial executes.
func (t *shellTokenizer) Tokenize(raw string) (m.Sequence, error) {
	fields, err := shlex.Split(raw)
	if err != nil {
		return nil, configf("malformed quoting in option string %q: %v", raw, err)
	}

	seq := make(m.Sequence, 0, len(fields))
	for _, f := range fields {
		seq = append(seq, m.Token(f))
	}

	return seq, nil
}
