package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chenaaron3/huffleshuffle-engine/internal/card"
)

func cards(t *testing.T, codes ...string) []card.Card {
	t.Helper()
	out, err := card.ParseAll(codes)
	require.NoError(t, err)
	return out
}

func TestSolveCategories(t *testing.T) {
	tests := []struct {
		name     string
		codes    []string
		category Category
	}{
		{"royal flush", []string{"As", "Ks", "Qs", "Js", "Ts"}, RoyalFlush},
		{"straight flush", []string{"9s", "8s", "7s", "6s", "5s"}, StraightFlush},
		{"wheel straight flush", []string{"As", "2s", "3s", "4s", "5s"}, StraightFlush},
		{"four of a kind", []string{"As", "Ah", "Ad", "Ac", "5s"}, FourOfAKind},
		{"full house", []string{"As", "Ah", "Ad", "5c", "5s"}, FullHouse},
		{"flush", []string{"As", "Js", "9s", "6s", "3s"}, Flush},
		{"straight", []string{"9s", "8h", "7d", "6c", "5s"}, Straight},
		{"wheel straight", []string{"As", "2h", "3d", "4c", "5s"}, Straight},
		{"three of a kind", []string{"As", "Ah", "Ad", "9c", "5s"}, ThreeOfAKind},
		{"two pair", []string{"As", "Ah", "9d", "9c", "5s"}, TwoPair},
		{"pair", []string{"As", "Ah", "9d", "7c", "5s"}, Pair},
		{"high card", []string{"As", "Jh", "9d", "7c", "5s"}, HighCard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval, err := Solve(cards(t, tt.codes...))
			require.NoError(t, err)
			assert.Equal(t, tt.category, eval.Category)
			assert.Len(t, eval.WinningFive, 5)
			assert.NotEmpty(t, eval.Name)
		})
	}
}

func TestSolveInputValidation(t *testing.T) {
	_, err := Solve(cards(t, "As", "Ks", "Qs", "Js"))
	assert.Error(t, err, "too few cards")

	_, err = Solve(cards(t, "As", "Ks", "Qs", "Js", "Ts", "9s", "8s", "7s"))
	assert.Error(t, err, "too many cards")

	_, err = Solve(cards(t, "As", "As", "Qs", "Js", "Ts"))
	assert.Error(t, err, "duplicate card")
}

func TestBestFiveFromSeven(t *testing.T) {
	// Hole cards AsKs with a board giving a spade flush; the winning five must
	// be exactly the spades.
	eval, err := Solve(cards(t, "As", "Ks", "Qs", "Js", "9s", "2h", "3d"))
	require.NoError(t, err)
	assert.Equal(t, Flush, eval.Category)

	want := map[string]bool{"As": true, "Ks": true, "Qs": true, "Js": true, "9s": true}
	for _, c := range eval.WinningFive {
		assert.True(t, want[c.String()], "unexpected card %s in winning five", c)
	}
}

func TestCompareKickers(t *testing.T) {
	high, err := Solve(cards(t, "As", "Ah", "Kd", "7c", "5s"))
	require.NoError(t, err)
	low, err := Solve(cards(t, "Ad", "Ac", "Qd", "7h", "5d"))
	require.NoError(t, err)
	assert.Equal(t, 1, Compare(high, low))
	assert.Equal(t, -1, Compare(low, high))
}

func TestWinnersTie(t *testing.T) {
	// Board plays for both: the shared straight on the board ties.
	board := []string{"9s", "8h", "7d", "6c", "5s"}
	a, err := Solve(cards(t, append([]string{"2s", "3h"}, board...)...))
	require.NoError(t, err)
	b, err := Solve(cards(t, append([]string{"2d", "3c"}, board...)...))
	require.NoError(t, err)
	c, err := Solve(cards(t, append([]string{"Ts", "2h"}, board...)...))
	require.NoError(t, err)

	winners := Winners([]Evaluation{a, b, c})
	assert.Equal(t, []int{2}, winners, "ten-high straight beats the board straight")

	winners = Winners([]Evaluation{a, b})
	assert.Equal(t, []int{0, 1}, winners)
}

func TestWinnersSingle(t *testing.T) {
	a, err := Solve(cards(t, "As", "Ah", "Kd", "7c", "5s"))
	require.NoError(t, err)
	assert.Equal(t, []int{0}, Winners([]Evaluation{a}))
}
