package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	m "github.com/mouse-blink/culprit/internal/model"
)

func TestNewRenderer_RequiresPlaceholder(t *testing.T) {
	_, err := NewRenderer("make test", "{}", " ")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrConfiguration))
}

func TestNewRenderer_RejectsFormatWithoutPlaceholder(t *testing.T) {
	_, err := NewRenderer("make {}", "--flag", " ")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrConfiguration))
}

func TestRenderer_DefaultIdentityFormat(t *testing.T) {
	r, err := NewRenderer("gcc {} -o test test.c", "", "")
	require.NoError(t, err)

	rendered := r.Render(m.Sequence{"-O2", "-fno-inline"})
	require.Equal(t, "gcc -O2 -fno-inline -o test test.c", rendered)
}

func TestRenderer_CustomFormatAndSeparator(t *testing.T) {
	r, err := NewRenderer("run {}", "--opt={}", ",")
	require.NoError(t, err)

	rendered := r.Render(m.Sequence{"-a", "-b"})
	require.Equal(t, "run --opt=-a,--opt=-b", rendered)
}

func TestRenderer_SubstitutesEveryPlaceholder(t *testing.T) {
	r, err := NewRenderer("build {} ; check {}", "{}", " ")
	require.NoError(t, err)

	rendered := r.Render(m.Sequence{"-x"})
	require.Equal(t, "build -x ; check -x", rendered)
}

func TestRenderer_SegmentsSplitAtSemicolon(t *testing.T) {
	r, err := NewRenderer("make CFLAGS={} ; ./test", "{}", " ")
	require.NoError(t, err)

	segments, err := r.Segments(m.Sequence{"-O2"})
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"make", "CFLAGS=-O2"},
		{"./test"},
	}, segments)
}

func TestRenderer_SingleSegment(t *testing.T) {
	r, err := NewRenderer("./oracle.sh {}", "{}", " ")
	require.NoError(t, err)

	segments, err := r.Segments(m.Sequence{"-fno-gcse"})
	require.NoError(t, err)
	require.Equal(t, [][]string{{"./oracle.sh", "-fno-gcse"}}, segments)
}

func TestRenderer_QuotedTemplateStaysAtomic(t *testing.T) {
	r, err := NewRenderer(`sh -c "exit 0" ; echo {}`, "{}", " ")
	require.NoError(t, err)

	segments, err := r.Segments(m.Sequence{"-a"})
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"sh", "-c", "exit 0"},
		{"echo", "-a"},
	}, segments)
}

func TestRenderer_EmptyCommandIsConfigurationError(t *testing.T) {
	r, err := NewRenderer("{}", "{}", " ")
	require.NoError(t, err)

	_, err = r.Segments(m.Sequence{})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrConfiguration))
}

func TestRenderer_ValidateRejectsBrokenQuoting(t *testing.T) {
	r, err := NewRenderer("sh -c '{}", "{}", " ")
	require.NoError(t, err)

	err = r.Validate(m.Sequence{"-O2"})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrConfiguration))
}
