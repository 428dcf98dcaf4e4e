package game

import (
	"fmt"

	"shengji/internal/domain"
	"shengji/internal/protocol"
)

// playTrick drives one trick: each seat in order from the starting player
// submits a play, retrying until legal, and the highest play takes the
// trick's point cards.
func (r *Round) playTrick() error {
	st := r.state
	st.resetTrick()

	start := r.seatIndex(st.StartingPlayer)
	if start < 0 {
		return fmt.Errorf("%w: no starting player at trick start", ErrFatal)
	}

	for i := 0; i < len(r.players); i++ {
		p := r.players[(start+i)%len(r.players)]
		st.TurnPlayer = p
		r.broadcast(protocol.New(protocol.ServerMakePlay).SetInt("player", int64(p.Num())))
		if err := r.awaitPlay(p); err != nil {
			return err
		}
	}

	winner := st.LeadingPlayer
	if winner == nil || st.LeadingPlay == nil {
		return fmt.Errorf("%w: trick finished with no leading player", ErrFatal)
	}

	pool := st.PointCardsInTrick
	switch winner.Team() {
	case Collectors:
		st.CollectedPoints = append(st.CollectedPoints, pool...)
	case NoTeam:
		winner.AddPointCards(pool)
	case Keepers:
		// Keepers deny points by winning; the pool is simply discarded.
	}

	r.broadcast(protocol.New(protocol.ServerTrickWon).
		SetInt("player", int64(winner.Num())).
		SetInt("points", int64(pool.Points())))

	st.StartingPlayer = winner
	st.FinalLeadWidth = st.LeadingPlay.Size()
	st.TricksPlayed++
	for _, p := range r.players {
		p.SetPlay(nil)
	}
	return nil
}

// awaitPlay loops on one player's queue until an accepting play arrives, then
// commits it: cards leave the hand, point cards join the trick pool, and the
// base play and trick leadership are updated.
func (r *Round) awaitPlay(p *Player) error {
	st := r.state
	for {
		msg, err := r.waitTurn(p)
		if err != nil {
			return err
		}
		if msg.Code != protocol.ClientPlay {
			r.rejectPlay(p, "expected PLAY", false)
			continue
		}
		nums, err := msg.GetInts("cards")
		if err != nil {
			r.rejectPlay(p, err.Error(), false)
			continue
		}
		cards, err := domain.CardsFromNums(nums)
		if err != nil {
			r.rejectPlay(p, err.Error(), false)
			continue
		}

		play := domain.EvaluatePlay(cards, st.Trump, st.BasePlay, p.Hand())
		if !play.Legal() {
			if play.Desync() {
				// A client referencing cards it does not hold means its
				// view has diverged from authoritative state.
				r.log.Errorw("desynchronized client play",
					"player", p.Name(), "cards", cards.Nums())
			}
			r.rejectPlay(p, play.Reason(), play.Desync())
			continue
		}

		p.RemoveFromHand(cards)
		p.SetPlay(play)
		for _, c := range cards {
			if c.Points() > 0 {
				st.PointCardsInTrick = append(st.PointCardsInTrick, c)
			}
		}

		if st.BasePlay == nil {
			st.BasePlay = play
			st.LeadingPlay = play
			st.LeadingPlayer = p
		} else if play.Beats(st.LeadingPlay) {
			st.LeadingPlay = play
			st.LeadingPlayer = p
		}

		r.claimFriendCards(p, cards)

		r.broadcast(protocol.New(protocol.ServerPlayMade).
			SetInt("player", int64(p.Num())).
			SetInts("cards", cards.Nums()).
			SetBool("trash", play.Trash()))
		return nil
	}
}

func (r *Round) rejectPlay(p *Player, reason string, desync bool) {
	msg := protocol.New(protocol.ServerInvalidPlay).SetString("reason", reason)
	if desync {
		msg.SetBool("desync", true)
	}
	_ = p.Sess.Send(msg)
}

// claimFriendCards converts the player to the caller's team when their play
// uses up an unclaimed friend card. The flip forfeits any personal point
// pile, and once the last friend card is claimed everyone still undecided
// joins the collectors.
func (r *Round) claimFriendCards(p *Player, cards domain.CardList) {
	st := r.state
	if p == st.Caller || len(st.FriendCards) == 0 {
		return
	}

	claimed := false
	for _, c := range cards {
		if st.FriendCards.Contains(c) {
			st.FriendCards = st.FriendCards.Remove(domain.CardList{c})
			claimed = true
		}
	}
	if !claimed {
		return
	}

	if p.Team() != Keepers {
		p.TakePointCards() // forfeited to the floor, not transferred
		p.SetTeam(Keepers)
		r.broadcast(protocol.New(protocol.ServerTeamFlipped).
			SetInt("player", int64(p.Num())).
			SetInt("team", int64(Keepers)))
	}

	if len(st.FriendCards) == 0 {
		r.assignCollectors()
	}
}

// assignCollectors flips every still-undecided player to the collectors,
// moving their personal point piles into the shared collected pool.
func (r *Round) assignCollectors() {
	st := r.state
	for _, p := range r.players {
		if p.Team() != NoTeam {
			continue
		}
		p.SetTeam(Collectors)
		st.CollectedPoints = append(st.CollectedPoints, p.TakePointCards()...)
		r.broadcast(protocol.New(protocol.ServerTeamFlipped).
			SetInt("player", int64(p.Num())).
			SetInt("team", int64(Collectors)))
	}
}

func (r *Round) seatIndex(p *Player) int {
	for i, q := range r.players {
		if q == p {
			return i
		}
	}
	return -1
}
