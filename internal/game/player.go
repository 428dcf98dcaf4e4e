package game

import (
	"sync"

	"shengji/internal/domain"
	"shengji/internal/session"
)

// Team is a player's allegiance for the current round. Everyone except the
// caller starts undecided; friend-card plays and the end of the friend hunt
// sort the rest.
type Team int32

const (
	NoTeam Team = iota
	// Keepers is the caller's team, defending the point target.
	Keepers
	// Collectors try to gather enough points to beat the target.
	Collectors
)

func (t Team) String() string {
	switch t {
	case Keepers:
		return "KEEPERS"
	case Collectors:
		return "COLLECTORS"
	}
	return "NO_TEAM"
}

// Player joins a connection session with game identity and per-round state.
// The session owns I/O; everything else here is owned by the round while one
// is running, except during the call races where units touch it through the
// locked accessors.
type Player struct {
	Sess *session.Session

	mu             sync.Mutex
	num            int
	name           string
	callRank       domain.Rank
	callRankOffset int

	// Round-scoped, reset at the top of every round.
	hand       domain.CardList
	pointCards domain.CardList
	play       *domain.Play
	team       Team
}

// NewPlayer seats a session with the given number. New players start their
// rank progression at Two.
func NewPlayer(sess *session.Session, num int, name string) *Player {
	return &Player{Sess: sess, num: num, name: name, callRank: domain.RankTwo}
}

func (p *Player) Num() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.num
}

// SetNum reassigns the seat number when the roster is squashed after removals.
func (p *Player) SetNum(n int) {
	p.mu.Lock()
	p.num = n
	p.mu.Unlock()
}

func (p *Player) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

func (p *Player) SetName(name string) {
	p.mu.Lock()
	p.name = name
	p.mu.Unlock()
}

// CallRank returns the rank the player is eligible to call: the progression
// rank plus any host adjustment, wrapped Ace to Two. The two components are
// tracked separately so host adjustments survive rank advances.
func (p *Player) CallRank() domain.Rank {
	p.mu.Lock()
	defer p.mu.Unlock()
	return domain.NextCallRank(p.callRank, p.callRankOffset)
}

// AdvanceCallRank moves the progression rank forward after a won round.
func (p *Player) AdvanceCallRank(steps int) {
	p.mu.Lock()
	p.callRank = domain.NextCallRank(p.callRank, steps)
	p.mu.Unlock()
}

// AdjustRankOffset applies a host-initiated rank correction.
func (p *Player) AdjustRankOffset(delta int) {
	p.mu.Lock()
	p.callRankOffset += delta
	p.mu.Unlock()
}

// ResetRound clears all round-scoped state before a deal.
func (p *Player) ResetRound() {
	p.mu.Lock()
	p.hand = nil
	p.pointCards = nil
	p.play = nil
	p.team = NoTeam
	p.mu.Unlock()
}

func (p *Player) Hand() domain.CardList {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hand
}

func (p *Player) SetHand(hand domain.CardList) {
	p.mu.Lock()
	p.hand = hand
	p.mu.Unlock()
}

// AddToHand is used when the caller absorbs the kitty.
func (p *Player) AddToHand(cards domain.CardList) {
	p.mu.Lock()
	p.hand = append(p.hand, cards...)
	p.mu.Unlock()
}

// RemoveFromHand deletes the given cards (one copy each) from the hand.
func (p *Player) RemoveFromHand(cards domain.CardList) {
	p.mu.Lock()
	p.hand = p.hand.Remove(cards)
	p.mu.Unlock()
}

func (p *Player) HandSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.hand)
}

func (p *Player) Team() Team {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.team
}

func (p *Player) SetTeam(t Team) {
	p.mu.Lock()
	p.team = t
	p.mu.Unlock()
}

// AddPointCards credits trick point cards to the player's personal pile.
func (p *Player) AddPointCards(cards domain.CardList) {
	p.mu.Lock()
	p.pointCards = append(p.pointCards, cards...)
	p.mu.Unlock()
}

// TakePointCards empties the personal pile and returns it, for transfer to
// the collected pool or forfeiture on a team flip.
func (p *Player) TakePointCards() domain.CardList {
	p.mu.Lock()
	defer p.mu.Unlock()
	taken := p.pointCards
	p.pointCards = nil
	return taken
}

func (p *Player) SetPlay(play *domain.Play) {
	p.mu.Lock()
	p.play = play
	p.mu.Unlock()
}

func (p *Player) Play() *domain.Play {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.play
}
