package domain

import (
	"errors"
	"fmt"
)

// Rank is a card rank ordered by base strength: Two is lowest, Ace is highest
// among the standard ranks, then the two joker ranks.
type Rank int32

const (
	RankTwo Rank = iota
	RankThree
	RankFour
	RankFive
	RankSix
	RankSeven
	RankEight
	RankNine
	RankTen
	RankJack
	RankQueen
	RankKing
	RankAce
	RankSmallJoker
	RankBigJoker
)

// Suit identifies one of the four standard suits or the joker pseudo-suit.
type Suit int32

const (
	SuitSpades Suit = iota
	SuitHearts
	SuitDiamonds
	SuitClubs
	SuitJoker
)

// Hierarchical values of the cards that outrank every trump-suit card.
const (
	valueBigJoker      = 31
	valueSmallJoker    = 30
	valueTrumpRankSuit = 29
	valueTrumpRankOnly = 28
)

const (
	numRanks = 13
	numSuits = 4

	smallJokerNum = 52
	bigJokerNum   = 53

	// NumCardIdentities is the count of distinct card identities, jokers included.
	NumCardIdentities = 54
)

// ErrInvalidCard is returned when a rank/suit pair or card number does not
// describe a real card.
var ErrInvalidCard = errors.New("invalid card")

var rankNames = [...]string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A", "Small Joker", "Big Joker"}

var suitNames = [...]string{"Spades", "Hearts", "Diamonds", "Clubs", "Joker"}

func (r Rank) String() string {
	if r < 0 || int(r) >= len(rankNames) {
		return fmt.Sprintf("Rank(%d)", int32(r))
	}
	return rankNames[r]
}

func (s Suit) String() string {
	if s < 0 || int(s) >= len(suitNames) {
		return fmt.Sprintf("Suit(%d)", int32(s))
	}
	return suitNames[s]
}

// TrumpContext is the round-scoped (trump rank, trump suit) pair. A card's
// effective suit and hierarchical value only have meaning relative to one,
// so it is always passed explicitly and never cached across rounds.
type TrumpContext struct {
	Rank Rank
	Suit Suit
}

// Card is an immutable card identity. Equality is by card number: two Aces of
// Spades from different physical decks are the same Card value.
type Card struct {
	num int32
}

// NewCard constructs a card from a rank and suit pair.
func NewCard(r Rank, s Suit) (Card, error) {
	switch {
	case s == SuitJoker:
		if r == RankSmallJoker {
			return Card{smallJokerNum}, nil
		}
		if r == RankBigJoker {
			return Card{bigJokerNum}, nil
		}
		return Card{}, fmt.Errorf("%w: joker suit with rank %v", ErrInvalidCard, r)
	case r == RankSmallJoker || r == RankBigJoker:
		return Card{}, fmt.Errorf("%w: joker rank %v with suit %v", ErrInvalidCard, r, s)
	case r < 0 || r >= numRanks || s < 0 || s >= numSuits:
		return Card{}, fmt.Errorf("%w: rank %d suit %d", ErrInvalidCard, int32(r), int32(s))
	}
	return Card{int32(s)*numRanks + int32(r)}, nil
}

// CardFromNum constructs a card from its wire number in [0,53].
func CardFromNum(n int32) (Card, error) {
	if n < 0 || n >= NumCardIdentities {
		return Card{}, fmt.Errorf("%w: card number %d", ErrInvalidCard, n)
	}
	return Card{n}, nil
}

// MustCard is CardFromNum for statically known numbers; it panics on bad input.
func MustCard(n int32) Card {
	c, err := CardFromNum(n)
	if err != nil {
		panic(err)
	}
	return c
}

// Num returns the card's wire number.
func (c Card) Num() int32 { return c.num }

// Rank returns the card's rank; jokers report their joker rank.
func (c Card) Rank() Rank {
	switch c.num {
	case smallJokerNum:
		return RankSmallJoker
	case bigJokerNum:
		return RankBigJoker
	}
	return Rank(c.num % numRanks)
}

// Suit returns the card's printed suit; jokers report SuitJoker.
func (c Card) Suit() Suit {
	if c.IsJoker() {
		return SuitJoker
	}
	return Suit(c.num / numRanks)
}

// IsJoker reports whether the card is either joker.
func (c Card) IsJoker() bool {
	return c.num == smallJokerNum || c.num == bigJokerNum
}

// Points returns the card's point value: 10 for Kings and Tens, 5 for Fives.
func (c Card) Points() int {
	switch c.Rank() {
	case RankKing, RankTen:
		return 10
	case RankFive:
		return 5
	}
	return 0
}

// IsTrump reports whether the card belongs to the trump suit under tc,
// counting jokers and all trump-rank cards.
func (c Card) IsTrump(tc TrumpContext) bool {
	return c.IsJoker() || c.Rank() == tc.Rank || c.Suit() == tc.Suit
}

// EffectiveSuit returns the suit the card plays as under tc: jokers and
// trump-rank cards play as the trump suit.
func (c Card) EffectiveSuit(tc TrumpContext) Suit {
	if c.IsJoker() || c.Rank() == tc.Rank {
		return tc.Suit
	}
	return c.Suit()
}

// HierarchicalValue returns the card's strength under tc. Jokers sit on top,
// then the trump-rank card of the trump suit, then off-suit trump-rank cards,
// then the trump suit, then everything else by plain rank.
func (c Card) HierarchicalValue(tc TrumpContext) int {
	switch {
	case c.num == bigJokerNum:
		return valueBigJoker
	case c.num == smallJokerNum:
		return valueSmallJoker
	case c.Rank() == tc.Rank && c.Suit() == tc.Suit:
		return valueTrumpRankSuit
	case c.Rank() == tc.Rank:
		return valueTrumpRankOnly
	case c.Suit() == tc.Suit:
		return numRanks + int(c.Rank())
	}
	return int(c.Rank())
}

func (c Card) String() string {
	if c.IsJoker() {
		return c.Rank().String()
	}
	return fmt.Sprintf("%v of %v", c.Rank(), c.Suit())
}

// NextCallRank moves a progression rank by the given number of steps, which
// may be negative, wrapping Ace and Two around to each other.
func NextCallRank(r Rank, steps int) Rank {
	if r < 0 || r >= numRanks {
		return r
	}
	next := (int(r) + steps) % numRanks
	if next < 0 {
		next += numRanks
	}
	return Rank(next)
}
