package domain

import (
	"math/rand"
	"testing"
)

func TestNewDeckSize(t *testing.T) {
	tests := []struct {
		name       string
		numDecks   int
		withJokers bool
		size       int
	}{
		{name: "One deck no jokers", numDecks: 1, withJokers: false, size: 52},
		{name: "One deck with jokers", numDecks: 1, withJokers: true, size: 54},
		{name: "Three decks with jokers", numDecks: 3, withJokers: true, size: 162},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewDeck(tt.numDecks, tt.withJokers).Size(); got != tt.size {
				t.Errorf("Size() = %d, want %d", got, tt.size)
			}
		})
	}
}

func TestDealBalanced(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for players := 2; players <= 8; players++ {
		deck := NewDeck(max(players/2, 1), true)
		deck.Shuffle(rng)
		total := deck.Size()
		kitty := deck.DrawKitty(players, rng)
		hands := deck.Deal(players)

		dealt := len(kitty)
		minHand, maxHand := total, 0
		for _, h := range hands {
			dealt += len(h)
			if len(h) < minHand {
				minHand = len(h)
			}
			if len(h) > maxHand {
				maxHand = len(h)
			}
		}
		if dealt != total {
			t.Errorf("%d players: dealt %d cards, deck had %d", players, dealt, total)
		}
		if maxHand-minHand > 1 {
			t.Errorf("%d players: hand sizes range %d..%d", players, minHand, maxHand)
		}
	}
}

func TestKittySize(t *testing.T) {
	deck := NewDeck(2, true) // 108 cards
	if got := deck.KittySize(5); got != 3 {
		t.Errorf("108 cards, 5 players: kitty %d, want 3", got)
	}
	if got := deck.KittySize(4); got != 4 {
		t.Errorf("108 cards, 4 players: kitty %d, want 4 (even split draws a full round)", got)
	}
}

func TestKittyNeverAllJokers(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	// Many small draws from a joker-heavy deck to exercise the redraw path.
	for i := 0; i < 200; i++ {
		deck := NewDeck(4, true)
		kitty := deck.DrawKitty(43, rng) // 216 % 43 = 1: single-card kitty
		allJokers := true
		for _, c := range kitty {
			if !c.IsJoker() {
				allJokers = false
			}
		}
		if allJokers {
			t.Fatalf("draw %d produced an all-joker kitty %v", i, kitty)
		}
	}
}
