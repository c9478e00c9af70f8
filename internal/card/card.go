// Package card defines the two-character card code used on the wire and in
// persisted state: "{rank}{suit}" with rank in 23456789TJQKA and suit in shdc.
package card

import "fmt"

// FaceDown is the presentation sentinel used when a snapshot redacts another
// player's hole cards. It is never stored in engine state.
const FaceDown = "FD"

// Suit represents a card suit
type Suit byte

const (
	Spades   Suit = 's'
	Hearts   Suit = 'h'
	Diamonds Suit = 'd'
	Clubs    Suit = 'c'
)

// String returns the single-character suit code
func (s Suit) String() string {
	return string(byte(s))
}

// Rank represents a card rank, Two through Ace
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

var rankChars = map[Rank]byte{
	Two: '2', Three: '3', Four: '4', Five: '5', Six: '6', Seven: '7',
	Eight: '8', Nine: '9', Ten: 'T', Jack: 'J', Queen: 'Q', King: 'K', Ace: 'A',
}

// String returns the single-character rank code
func (r Rank) String() string {
	if c, ok := rankChars[r]; ok {
		return string(c)
	}
	return "?"
}

// Card is a parsed card code
type Card struct {
	Rank Rank
	Suit Suit
}

// String returns the two-character code, e.g. "As" or "Td"
func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// New creates a card from rank and suit
func New(rank Rank, suit Suit) Card {
	return Card{Rank: rank, Suit: suit}
}

func rankFromChar(b byte) (Rank, bool) {
	switch b {
	case '2', '3', '4', '5', '6', '7', '8', '9':
		return Rank(b - '0'), true
	case 'T':
		return Ten, true
	case 'J':
		return Jack, true
	case 'Q':
		return Queen, true
	case 'K':
		return King, true
	case 'A':
		return Ace, true
	}
	return 0, false
}

func suitFromChar(b byte) (Suit, bool) {
	switch b {
	case 's', 'h', 'd', 'c':
		return Suit(b), true
	}
	return 0, false
}

// Parse decodes a two-character card code. The FD sentinel is rejected here:
// redacted cards only exist in outbound snapshots.
func Parse(code string) (Card, error) {
	if len(code) != 2 {
		return Card{}, fmt.Errorf("card code %q: want 2 characters", code)
	}
	rank, ok := rankFromChar(code[0])
	if !ok {
		return Card{}, fmt.Errorf("card code %q: invalid rank %q", code, code[0])
	}
	suit, ok := suitFromChar(code[1])
	if !ok {
		return Card{}, fmt.Errorf("card code %q: invalid suit %q", code, code[1])
	}
	return Card{Rank: rank, Suit: suit}, nil
}

// Valid reports whether code is a well-formed card code
func Valid(code string) bool {
	_, err := Parse(code)
	return err == nil
}

// ParseAll decodes a slice of card codes
func ParseAll(codes []string) ([]Card, error) {
	cards := make([]Card, len(codes))
	for i, code := range codes {
		c, err := Parse(code)
		if err != nil {
			return nil, err
		}
		cards[i] = c
	}
	return cards, nil
}

// Codes formats a slice of cards back to their two-character codes
func Codes(cards []Card) []string {
	codes := make([]string, len(cards))
	for i, c := range cards {
		codes[i] = c.String()
	}
	return codes
}
