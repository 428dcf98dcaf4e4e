package game

import (
	"errors"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"shengji/internal/domain"
	"shengji/internal/protocol"
	"shengji/internal/session"
)

// ErrFatal marks an internal invariant violation. The round cannot continue
// in a possibly corrupt state; the controller broadcasts a fatal error and
// shuts the session down instead of limping on.
var ErrFatal = errors.New("fatal round error")

// Round drives one complete round for a fixed seating of players:
// deal, call race (with redeal loop), kitty exchange, friend cards, the
// trick loop, and scoring.
type Round struct {
	log        *zap.SugaredLogger
	rng        *rand.Rand
	players    []*Player
	withJokers bool
	state      *RoundState
}

// NewRound prepares a round over the given players in seat order.
func NewRound(players []*Player, withJokers bool, rng *rand.Rand, log *zap.SugaredLogger) *Round {
	return &Round{log: log, rng: rng, players: players, withJokers: withJokers}
}

// State exposes the live round state; the controller reads it for fatal
// error reporting and tests inspect it directly.
func (r *Round) State() *RoundState { return r.state }

// Run plays the round to completion. It returns nil on a scored round,
// an error wrapping session.ErrDisconnected when a player drop aborted it,
// or an error wrapping ErrFatal on an invariant violation.
func (r *Round) Run() error {
	r.state = &RoundState{Running: true}
	defer func() { r.state.Running = false }()

	var winning *call
	for winning == nil {
		r.deal()
		r.log.Infow("round dealt",
			"decks", r.state.NumDecks,
			"pointsNeeded", r.state.PointsNeeded,
			"kitty", len(r.state.Kitty))

		won, err := r.callRace()
		if err != nil {
			return err
		}
		if won == nil {
			won, err = r.kittyFlipRace()
			if err != nil {
				return err
			}
		}
		if won == nil {
			// Nobody wanted the round even off the kitty; redeal.
			r.broadcast(protocol.New(protocol.ServerNoOneCalled))
			r.log.Infow("no call won, redealing")
			continue
		}
		winning = won
	}

	r.applyCall(winning)
	if err := r.kittyExchange(); err != nil {
		return err
	}
	if err := r.friendCardExchange(); err != nil {
		return err
	}

	for r.handsRemain() {
		if err := r.playTrick(); err != nil {
			return err
		}
	}

	return r.score()
}

// deal sizes the deck and point target from the table size, shuffles,
// extracts the kitty, and deals the remainder evenly.
func (r *Round) deal() {
	st := r.state
	n := len(r.players)
	st.NumDecks = max(n/2, 1)
	st.PointsNeeded = 40 * st.NumDecks
	st.NumFriendCards = max(n/2-1, 0)
	st.Kitty = nil
	st.FriendCards = nil
	st.CollectedPoints = nil
	st.Caller = nil
	st.StartingPlayer = nil
	st.TricksPlayed = 0
	st.FinalLeadWidth = 0
	st.resetTrick()

	for _, p := range r.players {
		p.ResetRound()
	}

	deck := domain.NewDeck(st.NumDecks, r.withJokers)
	deck.Shuffle(r.rng)
	st.Kitty = deck.DrawKitty(n, r.rng)
	hands := deck.Deal(n)
	for i, p := range r.players {
		hands[i].Sort(st.Trump)
		p.SetHand(hands[i])
	}

	r.broadcast(protocol.New(protocol.ServerRoundStarted).
		SetInt("decks", int64(st.NumDecks)).
		SetInt("points_needed", int64(st.PointsNeeded)).
		SetInt("friend_cards", int64(st.NumFriendCards)).
		SetInt("kitty_size", int64(len(st.Kitty))))
	for _, p := range r.players {
		_ = p.Sess.Send(protocol.New(protocol.ServerHandDealt).
			SetInts("cards", p.Hand().Nums()))
	}
}

// applyCall locks in the race result: the trump context for the round, the
// caller, and the caller's team anchor.
func (r *Round) applyCall(c *call) {
	st := r.state
	st.Trump = domain.TrumpContext{Rank: c.player.CallRank(), Suit: c.card.Suit()}
	st.Caller = c.player
	st.StartingPlayer = c.player
	c.player.SetTeam(Keepers)

	r.log.Infow("call won",
		"player", c.player.Name(),
		"trumpRank", st.Trump.Rank,
		"trumpSuit", st.Trump.Suit)
	r.broadcast(protocol.New(protocol.ServerCallWon).
		SetInt("player", int64(c.player.Num())).
		SetInt("card", int64(c.card.Num())).
		SetInt("trump_rank", int64(st.Trump.Rank)).
		SetInt("trump_suit", int64(st.Trump.Suit)))
}

// kittyExchange hands the kitty to the caller and loops until they return
// exactly as many cards as they took.
func (r *Round) kittyExchange() error {
	st := r.state
	caller := st.Caller
	size := len(st.Kitty)

	caller.AddToHand(st.Kitty)
	if err := caller.Sess.Send(protocol.New(protocol.ServerSendKitty).
		SetInts("cards", st.Kitty.Nums()).
		SetInt("count", int64(size))); err != nil {
		return fmt.Errorf("caller unreachable for kitty: %w", err)
	}

	for {
		msg, err := r.waitTurn(caller)
		if err != nil {
			return err
		}
		if msg.Code != protocol.ClientKitty {
			r.rejectKitty(caller, "expected KITTY")
			continue
		}
		nums, err := msg.GetInts("cards")
		if err != nil {
			r.rejectKitty(caller, err.Error())
			continue
		}
		cards, err := domain.CardsFromNums(nums)
		if err != nil {
			r.rejectKitty(caller, err.Error())
			continue
		}
		if len(cards) != size {
			r.rejectKitty(caller, fmt.Sprintf("must return exactly %d cards", size))
			continue
		}
		if !caller.Hand().ContainsAll(cards) {
			r.rejectKitty(caller, "you do not hold all of those cards")
			continue
		}

		caller.RemoveFromHand(cards)
		st.Kitty = cards
		return caller.Sess.Send(protocol.New(protocol.ServerSuccessfulKitty))
	}
}

func (r *Round) rejectKitty(p *Player, reason string) {
	_ = p.Sess.Send(protocol.New(protocol.ServerInvalidKitty).SetString("reason", reason))
}

// friendCardExchange has the caller designate the friend cards for the
// round. With no friend cards to hunt, teams are settled immediately.
func (r *Round) friendCardExchange() error {
	st := r.state
	if st.NumFriendCards == 0 {
		r.assignCollectors()
		return nil
	}

	caller := st.Caller
	if err := caller.Sess.Send(protocol.New(protocol.ServerSendFriendCards).
		SetInt("count", int64(st.NumFriendCards))); err != nil {
		return fmt.Errorf("caller unreachable for friend cards: %w", err)
	}

	for {
		msg, err := r.waitTurn(caller)
		if err != nil {
			return err
		}
		if msg.Code != protocol.ClientFriendCards {
			r.rejectFriendCards(caller, "expected FRIEND_CARDS")
			continue
		}
		nums, err := msg.GetInts("cards")
		if err != nil {
			r.rejectFriendCards(caller, err.Error())
			continue
		}
		cards, err := domain.CardsFromNums(nums)
		if err != nil {
			r.rejectFriendCards(caller, err.Error())
			continue
		}
		if len(cards) != st.NumFriendCards {
			r.rejectFriendCards(caller, fmt.Sprintf("must designate exactly %d cards", st.NumFriendCards))
			continue
		}

		st.FriendCards = cards
		r.broadcast(protocol.New(protocol.ServerFriendCardsSet).
			SetInts("cards", cards.Nums()))
		return nil
	}
}

func (r *Round) rejectFriendCards(p *Player, reason string) {
	_ = p.Sess.Send(protocol.New(protocol.ServerInvalidFriendCards).SetString("reason", reason))
}

// handsRemain reports whether another trick can start. By deal symmetry all
// hands empty on the same trick, so one empty hand ends the round.
func (r *Round) handsRemain() bool {
	for _, p := range r.players {
		if p.HandSize() == 0 {
			return false
		}
	}
	return true
}

// score settles the round: kitty points scale with the width of the final
// winning play, the collectors win on reaching the target, and every
// winning-team player's call rank advances.
func (r *Round) score() error {
	st := r.state
	if st.StartingPlayer == nil {
		return fmt.Errorf("%w: no final trick winner at scoring", ErrFatal)
	}

	kittyPoints := st.Kitty.Points()
	total := kittyPoints*(st.FinalLeadWidth+1) + st.CollectedPoints.Points()

	winners := Keepers
	if total >= st.PointsNeeded {
		winners = Collectors
	}
	diff := total - st.PointsNeeded
	if diff < 0 {
		diff = -diff
	}
	rankIncrease := diff/(st.PointsNeeded/2) + 1

	for _, p := range r.players {
		if p.Team() == winners {
			p.AdvanceCallRank(rankIncrease)
		}
	}

	msg := protocol.New(protocol.ServerRoundEnded).
		SetInt("winning_team", int64(winners)).
		SetInt("total_points", int64(total)).
		SetInt("points_needed", int64(st.PointsNeeded)).
		SetInt("rank_increase", int64(rankIncrease))
	ranks := make([]int32, len(r.players))
	for i, p := range r.players {
		ranks[i] = int32(p.CallRank())
	}
	msg.SetInts("call_ranks", ranks)
	r.broadcast(msg)

	r.log.Infow("round scored",
		"winners", winners,
		"total", total,
		"needed", st.PointsNeeded,
		"rankIncrease", rankIncrease)
	return nil
}

// broadcast sends one message to every seated player. Individual send
// failures are ignored here; the dead session's close callback raises the
// disconnect through the blocking receive path.
func (r *Round) broadcast(msg *protocol.Message) {
	for _, p := range r.players {
		_ = p.Sess.Send(msg)
	}
}

// waitTurn blocks on one player's queue during turn-based phases. Interrupts
// only reach this path when the controller is unwinding a disconnect, so
// they surface as a disconnect abort.
func (r *Round) waitTurn(p *Player) (*protocol.Message, error) {
	msg, err := p.Sess.WaitForPacket()
	if err != nil {
		if errors.Is(err, session.ErrInterrupted) {
			return nil, fmt.Errorf("round interrupted: %w", session.ErrDisconnected)
		}
		return nil, fmt.Errorf("%s: %w", p.Name(), err)
	}
	return msg, nil
}
