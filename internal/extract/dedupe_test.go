package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPartialRatio(t *testing.T) {
	t.Parallel()

	require.Equal(t, 100, PartialRatio("Obama", "Barack Obama"))
	require.Equal(t, 100, PartialRatio("Barack Obama", "Obama"))
	require.Equal(t, 100, PartialRatio("Johnson", "Johnson"))
	require.Equal(t, 0, PartialRatio("", "Johnson"))
	require.Less(t, PartialRatio("Paris", "London"), 50)
	require.Equal(t, 80, PartialRatio("Smyth", "John Smith"))
}

func TestDedupeDropsShorterSimilarName(t *testing.T) {
	t.Parallel()

	in := []string{"Obama", "Barack Obama", "Angela Merkel"}
	out := Dedupe(in, 90)

	require.Equal(t, []string{"Barack Obama", "Angela Merkel"}, out)
	require.Equal(t, []string{"Obama", "Barack Obama", "Angela Merkel"}, in)
}

func TestDedupeRespectsRatio(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"Smyth", "John Smith"}, Dedupe([]string{"Smyth", "John Smith"}, 90))
	require.Equal(t, []string{"John Smith"}, Dedupe([]string{"Smyth", "John Smith"}, 80))
}

func TestDedupeRemovesRepeatsAndBlanks(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"NATO"}, Dedupe([]string{"NATO", "", "NATO"}, 90))
	require.Empty(t, Dedupe(nil, 90))
}
