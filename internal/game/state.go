package game

import "shengji/internal/domain"

// RoundState is the single source of truth for one round. Exactly one lives
// per server process; it is fully reset at the top of each round. Outside the
// call races only the orchestrator goroutine touches it.
type RoundState struct {
	NumDecks       int
	PointsNeeded   int
	NumFriendCards int

	Trump domain.TrumpContext

	Kitty domain.CardList
	// FriendCards holds the not-yet-claimed friend designations; claimed
	// instances are removed as they are played.
	FriendCards domain.CardList
	// CollectedPoints is the collectors' shared point pile.
	CollectedPoints domain.CardList

	Caller         *Player
	TurnPlayer     *Player
	LeadingPlayer  *Player
	StartingPlayer *Player

	BasePlay    *domain.Play
	LeadingPlay *domain.Play
	// PointCardsInTrick pools the point cards surrendered during the
	// current trick until its winner is known.
	PointCardsInTrick domain.CardList

	TricksPlayed int
	// FinalLeadWidth is the size of the most recent trick's winning play,
	// which multiplies the kitty points at scoring time.
	FinalLeadWidth int

	Running bool
}

// resetTrick clears per-trick fields between tricks.
func (rs *RoundState) resetTrick() {
	rs.BasePlay = nil
	rs.LeadingPlay = nil
	rs.LeadingPlayer = nil
	rs.TurnPlayer = nil
	rs.PointCardsInTrick = nil
}
