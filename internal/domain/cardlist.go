package domain

import "sort"

// CardList is an ordered multiset of cards. Hands, kitties, plays, and point
// piles are all CardLists; a card lives in exactly one of them at a time.
type CardList []Card

// Nums returns the wire numbers of the cards in order.
func (cl CardList) Nums() []int32 {
	out := make([]int32, len(cl))
	for i, c := range cl {
		out[i] = c.Num()
	}
	return out
}

// CardsFromNums converts a slice of wire numbers into a CardList, rejecting
// the whole slice on the first invalid number.
func CardsFromNums(nums []int32) (CardList, error) {
	out := make(CardList, 0, len(nums))
	for _, n := range nums {
		c, err := CardFromNum(n)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Points returns the summed point value of the list.
func (cl CardList) Points() int {
	total := 0
	for _, c := range cl {
		total += c.Points()
	}
	return total
}

// Count returns how many copies of c the list holds.
func (cl CardList) Count(c Card) int {
	n := 0
	for _, have := range cl {
		if have == c {
			n++
		}
	}
	return n
}

// Contains reports whether at least one copy of c is present.
func (cl CardList) Contains(c Card) bool {
	return cl.Count(c) > 0
}

// ContainsAll reports whether cl holds every card of sub, counting copies.
func (cl CardList) ContainsAll(sub CardList) bool {
	need := make(map[Card]int, len(sub))
	for _, c := range sub {
		need[c]++
	}
	for c, n := range need {
		if cl.Count(c) < n {
			return false
		}
	}
	return true
}

// Remove deletes one copy of each card in sub from cl and returns the
// remainder. Cards not present are ignored; validate with ContainsAll first.
func (cl CardList) Remove(sub CardList) CardList {
	drop := make(map[Card]int, len(sub))
	for _, c := range sub {
		drop[c]++
	}
	out := make(CardList, 0, len(cl))
	for _, c := range cl {
		if drop[c] > 0 {
			drop[c]--
			continue
		}
		out = append(out, c)
	}
	return out
}

// Clone returns an independent copy of the list.
func (cl CardList) Clone() CardList {
	out := make(CardList, len(cl))
	copy(out, cl)
	return out
}

// CountInSuit returns how many cards of the list play as the given effective
// suit under tc.
func (cl CardList) CountInSuit(s Suit, tc TrumpContext) int {
	n := 0
	for _, c := range cl {
		if c.EffectiveSuit(tc) == s {
			n++
		}
	}
	return n
}

// Sort orders the list ascending by hierarchical value under tc, breaking
// ties by card number for determinism.
func (cl CardList) Sort(tc TrumpContext) {
	sort.Slice(cl, func(i, j int) bool {
		vi, vj := cl[i].HierarchicalValue(tc), cl[j].HierarchicalValue(tc)
		if vi != vj {
			return vi < vj
		}
		return cl[i].Num() < cl[j].Num()
	})
}

// groupByCard collapses the list into one entry per distinct card identity.
func (cl CardList) groupByCard() map[Card]int {
	groups := make(map[Card]int, len(cl))
	for _, c := range cl {
		groups[c]++
	}
	return groups
}
