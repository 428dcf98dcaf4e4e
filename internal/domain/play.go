package domain

import (
	"fmt"
	"sort"
)

// playGroup is a run of identical cards within a play.
type playGroup struct {
	card  Card
	size  int
	value int
}

// Play is an immutable verdict over a submitted card list: its tuple
// structure, trash-ness, legality, and hierarchical value, all computed once
// at construction against the trump context and the trick's base play.
type Play struct {
	cards     CardList
	groups    []playGroup
	structure []int // group sizes, sorted descending

	trash  bool
	legal  bool
	desync bool
	reason string
	value  int
}

// Cards returns the cards the play was built from.
func (p *Play) Cards() CardList { return p.cards }

// Size returns the number of cards in the play.
func (p *Play) Size() int { return len(p.cards) }

// Legal reports the legality verdict.
func (p *Play) Legal() bool { return p.legal }

// Desync reports whether the play referenced cards the player does not hold.
// That should be impossible for a well-behaved client and indicates the
// client's view has diverged from authoritative state.
func (p *Play) Desync() bool { return p.desync }

// Reason returns the human-readable rejection reason for an illegal play.
func (p *Play) Reason() string { return p.reason }

// Trash reports whether the play cannot win the trick.
func (p *Play) Trash() bool { return p.trash }

// Value returns the play's hierarchical value: the lowest group's value for a
// structure-matching play, 0 for trash.
func (p *Play) Value() int { return p.value }

// EffectiveSuit returns the effective suit of the play's lowest group.
func (p *Play) EffectiveSuit(tc TrumpContext) Suit {
	if len(p.groups) == 0 {
		return SuitJoker
	}
	return p.groups[0].card.EffectiveSuit(tc)
}

// EvaluatePlay judges cards as a play by hand under tc. base is the trick's
// base play, or nil when this play would open the trick. The returned Play is
// never mutated afterwards; re-evaluate instead of editing.
func EvaluatePlay(cards CardList, tc TrumpContext, base *Play, hand CardList) *Play {
	p := &Play{cards: cards.Clone()}
	p.groupCards(tc)
	p.trash = p.isTrash(tc, base)
	p.judge(tc, base, hand)
	if p.trash {
		p.value = 0
	} else if len(p.groups) > 0 {
		p.value = p.groups[0].value
	}
	return p
}

// groupCards collapses the cards into identical-card groups sorted ascending
// by hierarchical value and records the group-size structure.
func (p *Play) groupCards(tc TrumpContext) {
	byCard := p.cards.groupByCard()
	p.groups = make([]playGroup, 0, len(byCard))
	for c, n := range byCard {
		p.groups = append(p.groups, playGroup{card: c, size: n, value: c.HierarchicalValue(tc)})
	}
	sort.Slice(p.groups, func(i, j int) bool {
		if p.groups[i].value != p.groups[j].value {
			return p.groups[i].value < p.groups[j].value
		}
		return p.groups[i].card.Num() < p.groups[j].card.Num()
	})
	p.structure = make([]int, len(p.groups))
	for i, g := range p.groups {
		p.structure[i] = g.size
	}
	sort.Sort(sort.Reverse(sort.IntSlice(p.structure)))
}

// isTrash decides whether the play can contend for the trick. The base play
// never is; anything else must mirror the base's structure, answer its suit
// (or trump it), and consist of consecutive same-suit groups.
func (p *Play) isTrash(tc TrumpContext, base *Play) bool {
	if base == nil {
		return false
	}
	if len(p.cards) != base.Size() || !structureEqual(p.structure, base.structure) {
		return true
	}
	suit := p.EffectiveSuit(tc)
	if suit != base.EffectiveSuit(tc) && suit != tc.Suit {
		return true
	}
	for i := 1; i < len(p.groups); i++ {
		if p.groups[i].card.EffectiveSuit(tc) != p.groups[i-1].card.EffectiveSuit(tc) {
			return true
		}
		if p.groups[i].value != p.groups[i-1].value+1 {
			return true
		}
	}
	return false
}

// judge fills in the legality verdict and reason.
func (p *Play) judge(tc TrumpContext, base *Play, hand CardList) {
	if len(p.cards) == 0 {
		p.reason = "a play must contain at least one card"
		return
	}
	if base != nil && len(p.cards) != base.Size() {
		p.reason = fmt.Sprintf("play must contain exactly %d cards", base.Size())
		return
	}
	if !hand.ContainsAll(p.cards) {
		p.desync = true
		p.reason = "play contains cards you do not hold"
		return
	}
	if p.trash {
		// base != nil here: the opening play of a trick is never trash.
		if ok, reason := p.maxTupleCompliant(tc, base, hand); !ok {
			p.reason = reason
			return
		}
	} else if base != nil {
		baseSuit := base.EffectiveSuit(tc)
		if p.EffectiveSuit(tc) == tc.Suit && baseSuit != tc.Suit {
			if hand.CountInSuit(baseSuit, tc) > 0 {
				p.reason = fmt.Sprintf("you must follow %v while you still hold it", baseSuit)
				return
			}
		}
	}
	p.legal = true
}

// maxTupleCompliant enforces the follow rule for trash plays: for every tuple
// size the base demands, in descending order, a player holding a same-suit
// group that large must surrender one rather than a weaker subdivision.
func (p *Play) maxTupleCompliant(tc TrumpContext, base *Play, hand CardList) (bool, string) {
	baseSuit := base.EffectiveSuit(tc)
	handSizes := suitGroupSizes(hand, baseSuit, tc)
	playSizes := suitGroupSizes(p.cards, baseSuit, tc)

	required := base.structure // already sorted descending
	for _, want := range required {
		if !takeGroup(handSizes, want) {
			continue
		}
		if !takeGroup(playSizes, want) {
			return false, fmt.Sprintf("you hold a %d-tuple of %v and must play it", want, baseSuit)
		}
	}
	return true, ""
}

// suitGroupSizes returns the identical-card group sizes of cards whose
// effective suit matches s, sorted descending.
func suitGroupSizes(cards CardList, s Suit, tc TrumpContext) []int {
	inSuit := make(CardList, 0, len(cards))
	for _, c := range cards {
		if c.EffectiveSuit(tc) == s {
			inSuit = append(inSuit, c)
		}
	}
	byCard := inSuit.groupByCard()
	sizes := make([]int, 0, len(byCard))
	for _, n := range byCard {
		sizes = append(sizes, n)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(sizes)))
	return sizes
}

// takeGroup consumes `want` cards from the largest group of at least that
// size, reporting whether one existed.
func takeGroup(sizes []int, want int) bool {
	for i, n := range sizes {
		if n >= want {
			sizes[i] = n - want
			sort.Sort(sort.Reverse(sort.IntSlice(sizes)))
			return true
		}
	}
	return false
}

func structureEqual(a, b []int) bool {
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

// Beats reports whether p wins over other, the current leading play of the
// trick. Trash never beats anything; otherwise strictly greater value wins.
func (p *Play) Beats(other *Play) bool {
	if p.trash {
		return false
	}
	return p.value > other.value
}
