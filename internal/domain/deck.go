package domain

import "math/rand"

// Deck is a multiset of cards consumed destructively by dealing and kitty
// extraction. A deck is built fresh every round and never reused.
type Deck struct {
	cards CardList
}

// NewDeck builds numDecks full 52-card decks, each with both jokers when
// withJokers is set.
func NewDeck(numDecks int, withJokers bool) *Deck {
	per := 52
	if withJokers {
		per = 54
	}
	cards := make(CardList, 0, numDecks*per)
	for d := 0; d < numDecks; d++ {
		for n := int32(0); n < 52; n++ {
			cards = append(cards, Card{n})
		}
		if withJokers {
			cards = append(cards, Card{smallJokerNum}, Card{bigJokerNum})
		}
	}
	return &Deck{cards: cards}
}

// Size returns the number of cards remaining in the deck.
func (d *Deck) Size() int { return len(d.cards) }

// Shuffle applies a uniform random permutation.
func (d *Deck) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// KittySize returns the kitty size for the given table: the remainder after
// even dealing, or a full numPlayers cards when the deck divides evenly.
func (d *Deck) KittySize(numPlayers int) int {
	k := len(d.cards) % numPlayers
	if k == 0 {
		k = numPlayers
	}
	return k
}

// DrawKitty removes the kitty from the deck: KittySize cards drawn uniformly
// at random without replacement. An all-joker kitty is degenerate (no suit
// could ever be flipped from it) and is redrawn entirely.
func (d *Deck) DrawKitty(numPlayers int, rng *rand.Rand) CardList {
	size := d.KittySize(numPlayers)
	for {
		picked := rng.Perm(len(d.cards))[:size]
		kitty := make(CardList, 0, size)
		allJokers := true
		for _, idx := range picked {
			c := d.cards[idx]
			kitty = append(kitty, c)
			if !c.IsJoker() {
				allJokers = false
			}
		}
		if allJokers && size < len(d.cards) {
			continue
		}
		d.cards = d.cards.Remove(kitty)
		return kitty
	}
}

// Deal distributes the remaining deck round-robin across numHands hands until
// the deck is exhausted; hand sizes differ by at most one.
func (d *Deck) Deal(numHands int) []CardList {
	hands := make([]CardList, numHands)
	for i, c := range d.cards {
		h := i % numHands
		hands[h] = append(hands[h], c)
	}
	d.cards = nil
	return hands
}
