// Package evaluator ranks 5-7 card poker hands and selects winners.
//
// Ranking is delegated to chehsunliu/poker, whose evaluator returns a single
// ordinal score encoding both the hand category and every kicker (lower is
// stronger). The score is a total order, so two hands tie exactly when their
// scores are equal.
package evaluator

import (
	"fmt"

	"github.com/chehsunliu/poker"

	"github.com/chenaaron3/huffleshuffle-engine/internal/card"
)

// Category is the hand class, ascending in strength
type Category int

const (
	HighCard Category = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

// String returns the display name of the category
func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Unknown"
	}
}

// Evaluation is the result of ranking a 5-7 card hand
type Evaluation struct {
	Category    Category
	Score       int32 // ordinal from chehsunliu/poker, lower is stronger
	WinningFive []card.Card
	Name        string
}

// royalFlushScore is the best possible chehsunliu ordinal (A-high straight flush).
const royalFlushScore = 1

func toLibCard(c card.Card) poker.Card {
	return poker.NewCard(c.String())
}

func categoryFromScore(score int32) Category {
	switch poker.RankClass(score) {
	case 1:
		if score == royalFlushScore {
			return RoyalFlush
		}
		return StraightFlush
	case 2:
		return FourOfAKind
	case 3:
		return FullHouse
	case 4:
		return Flush
	case 5:
		return Straight
	case 6:
		return ThreeOfAKind
	case 7:
		return TwoPair
	case 8:
		return Pair
	default:
		return HighCard
	}
}

// Solve evaluates 5 to 7 distinct cards and returns the best five-card hand.
func Solve(cards []card.Card) (Evaluation, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return Evaluation{}, fmt.Errorf("evaluate: want 5-7 cards, got %d", len(cards))
	}
	seen := make(map[string]bool, len(cards))
	for _, c := range cards {
		code := c.String()
		if seen[code] {
			return Evaluation{}, fmt.Errorf("evaluate: duplicate card %s", code)
		}
		seen[code] = true
	}

	libCards := make([]poker.Card, len(cards))
	for i, c := range cards {
		libCards[i] = toLibCard(c)
	}
	score := poker.Evaluate(libCards)

	return Evaluation{
		Category:    categoryFromScore(score),
		Score:       score,
		WinningFive: bestFive(cards, score),
		Name:        poker.RankString(score),
	}, nil
}

// bestFive finds the five cards whose evaluation matches the best score for
// the full hand. For exactly five cards there is nothing to search.
func bestFive(cards []card.Card, best int32) []card.Card {
	if len(cards) == 5 {
		out := make([]card.Card, 5)
		copy(out, cards)
		return out
	}
	var found []card.Card
	combo := make([]card.Card, 5)
	libCombo := make([]poker.Card, 5)
	var walk func(start, depth int) bool
	walk = func(start, depth int) bool {
		if depth == 5 {
			for i, c := range combo {
				libCombo[i] = toLibCard(c)
			}
			if poker.Evaluate(libCombo) == best {
				found = make([]card.Card, 5)
				copy(found, combo)
				return true
			}
			return false
		}
		for i := start; i <= len(cards)-(5-depth); i++ {
			combo[depth] = cards[i]
			if walk(i+1, depth+1) {
				return true
			}
		}
		return false
	}
	walk(0, 0)
	return found
}

// Compare orders two evaluations: negative if a is weaker than b, zero on a
// tie, positive if a is stronger.
func Compare(a, b Evaluation) int {
	switch {
	case a.Score > b.Score: // higher ordinal = weaker
		return -1
	case a.Score < b.Score:
		return 1
	default:
		return 0
	}
}

// Winners returns the indices of the strongest evaluations, preserving input
// order. The result is non-empty for non-empty input.
func Winners(evals []Evaluation) []int {
	var winners []int
	for i, e := range evals {
		if len(winners) == 0 {
			winners = []int{i}
			continue
		}
		switch Compare(e, evals[winners[0]]) {
		case 1:
			winners = []int{i}
		case 0:
			winners = append(winners, i)
		}
	}
	return winners
}
