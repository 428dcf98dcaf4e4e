package game

import (
	"errors"
	"fmt"
	"sync"

	"shengji/internal/domain"
	"shengji/internal/protocol"
	"shengji/internal/session"
)

// call is a winning claim from a trump-establishing race: the card shown, and
// how many identical copies backed it.
type call struct {
	player *Player
	card   domain.Card
	order  int
}

// callBoard is the shared leader state of a race. One coarse lock guards it;
// every unit validates and updates under that lock.
type callBoard struct {
	mu     sync.Mutex
	leader *call
}

func (b *callBoard) current() *call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.leader
}

// raceEvent is a unit's notification to the race coordinator: either a leader
// change (exited false) or the unit's termination.
type raceEvent struct {
	player *Player
	err    error
	exited bool
}

// callRace runs the trump-calling race: one unit per seated player, all
// receiving concurrently, first-strongest claim wins. Returns nil when no one
// called. A disconnect aborts the whole race.
func (r *Round) callRace() (*call, error) {
	board := &callBoard{}
	events := make(chan raceEvent, len(r.players)*4)
	active := make(map[*Player]bool, len(r.players))

	r.broadcast(protocol.New(protocol.ServerMakeCall))
	for _, p := range r.players {
		active[p] = true
		go r.callUnit(p, board, events)
	}

	winner, err := r.superviseRace(board, events, active, false)
	r.drainAll()
	if err != nil {
		return nil, err
	}
	return winner, nil
}

// superviseRace consumes unit events until every unit has terminated. When
// all units but the current leader's are done (or, in winnerTakesAll mode, as
// soon as a leader exists) the stragglers are cancelled cooperatively via
// interrupts. A disconnect aborts the race and cancels everyone.
func (r *Round) superviseRace(board *callBoard, events <-chan raceEvent, active map[*Player]bool, winnerTakesAll bool) (*call, error) {
	var abortErr error
	interrupted := map[*Player]bool{}

	for len(active) > 0 {
		ev := <-events
		if ev.exited {
			delete(active, ev.player)
			if errors.Is(ev.err, session.ErrDisconnected) && abortErr == nil {
				abortErr = fmt.Errorf("%s left during the call race: %w", ev.player.Name(), session.ErrDisconnected)
			}
		}

		if abortErr != nil {
			for p := range active {
				if !interrupted[p] {
					interrupted[p] = true
					p.Sess.Interrupt()
				}
			}
			continue
		}

		leader := board.current()
		switch {
		case winnerTakesAll && leader != nil:
			// First claim wins outright; nobody left to outbid it.
			for p := range active {
				if p != leader.player && !interrupted[p] {
					interrupted[p] = true
					p.Sess.Interrupt()
				}
			}
		case leader != nil && len(active) == 1 && active[leader.player]:
			// Only the leader is still racing; no one can outbid them.
			if !interrupted[leader.player] {
				interrupted[leader.player] = true
				leader.player.Sess.Interrupt()
			}
		}
	}

	if abortErr != nil {
		return nil, abortErr
	}
	return board.current(), nil
}

// callUnit serves one player for the duration of the call race. It loops on
// the player's queue: claims update the shared board, a retraction ends the
// unit unless the player currently leads, and interrupt/disconnect pills end
// it from outside.
func (r *Round) callUnit(p *Player, board *callBoard, events chan<- raceEvent) {
	for {
		msg, err := p.Sess.WaitForPacket()
		if err != nil {
			events <- raceEvent{player: p, err: err, exited: true}
			return
		}
		switch msg.Code {
		case protocol.ClientNoCall:
			board.mu.Lock()
			leading := board.leader != nil && board.leader.player == p
			board.mu.Unlock()
			if leading {
				// Retracting while leading is rejected silently; the
				// call stays active and so does this unit.
				continue
			}
			r.broadcast(protocol.New(protocol.ServerCallRetracted).SetInt("player", int64(p.Num())))
			events <- raceEvent{player: p, exited: true}
			return
		case protocol.ClientCall:
			if r.handleCall(p, msg, board) {
				events <- raceEvent{player: p}
			}
		default:
			r.rejectCall(p, "expected CALL or NO_CALL during the call race")
		}
	}
}

// handleCall validates one claim against the board and installs it as the new
// leader when it wins, reporting whether the board changed.
func (r *Round) handleCall(p *Player, msg *protocol.Message, board *callBoard) bool {
	cardNum, err := msg.GetInt("card")
	if err != nil {
		r.rejectCall(p, err.Error())
		return false
	}
	order, err := msg.GetInt("order")
	if err != nil {
		r.rejectCall(p, err.Error())
		return false
	}
	card, err := domain.CardFromNum(int32(cardNum))
	if err != nil {
		r.rejectCall(p, err.Error())
		return false
	}
	switch {
	case card.IsJoker():
		r.rejectCall(p, "jokers cannot be called")
		return false
	case card.Rank() != p.CallRank():
		r.rejectCall(p, fmt.Sprintf("you may only call at rank %v", p.CallRank()))
		return false
	case order < 1 || p.Hand().Count(card) < int(order):
		r.rejectCall(p, fmt.Sprintf("you do not hold %d copies of %v", order, card))
		return false
	}

	board.mu.Lock()
	if board.leader != nil && int(order) <= board.leader.order {
		leading := board.leader.order
		board.mu.Unlock()
		r.rejectCall(p, fmt.Sprintf("a call of order %d already leads", leading))
		return false
	}
	board.leader = &call{player: p, card: card, order: int(order)}
	board.mu.Unlock()

	r.broadcast(protocol.New(protocol.ServerCallMade).
		SetInt("player", int64(p.Num())).
		SetInt("card", int64(card.Num())).
		SetInt("order", order))
	return true
}

func (r *Round) rejectCall(p *Player, reason string) {
	_ = p.Sess.Send(protocol.New(protocol.ServerInvalidCall).SetString("reason", reason))
}

// kittyFlipRace is the fallback when nobody called: kitty cards are revealed
// one at a time and players race to claim each. The first claim on a card
// wins outright. Jokers carry no suit and are skipped. Returns nil when the
// kitty is exhausted unclaimed, which forces a redeal.
func (r *Round) kittyFlipRace() (*call, error) {
	for _, flipped := range r.state.Kitty {
		if flipped.IsJoker() {
			continue
		}
		winner, err := r.flipPosition(flipped)
		if err != nil {
			return nil, err
		}
		if winner != nil {
			return winner, nil
		}
	}
	return nil, nil
}

// flipPosition races one revealed kitty card. Every player either claims it
// or declines with NO_CALL; the position ends on the first claim or once
// everyone has declined.
func (r *Round) flipPosition(flipped domain.Card) (*call, error) {
	board := &callBoard{}
	events := make(chan raceEvent, len(r.players)*4)
	active := make(map[*Player]bool, len(r.players))

	r.broadcast(protocol.New(protocol.ServerKittyFlip).SetInt("card", int64(flipped.Num())))
	for _, p := range r.players {
		active[p] = true
		go r.flipUnit(p, flipped, board, events)
	}

	winner, err := r.superviseRace(board, events, active, true)
	r.drainAll()
	if err != nil {
		return nil, err
	}
	return winner, nil
}

// flipUnit serves one player for one kitty-flip position.
func (r *Round) flipUnit(p *Player, flipped domain.Card, board *callBoard, events chan<- raceEvent) {
	for {
		msg, err := p.Sess.WaitForPacket()
		if err != nil {
			events <- raceEvent{player: p, err: err, exited: true}
			return
		}
		switch msg.Code {
		case protocol.ClientNoCall:
			events <- raceEvent{player: p, exited: true}
			return
		case protocol.ClientCall:
			board.mu.Lock()
			if board.leader != nil {
				board.mu.Unlock()
				r.rejectCall(p, fmt.Sprintf("%v was already claimed", flipped))
				continue
			}
			board.leader = &call{player: p, card: flipped, order: 1}
			board.mu.Unlock()
			r.broadcast(protocol.New(protocol.ServerCallMade).
				SetInt("player", int64(p.Num())).
				SetInt("card", int64(flipped.Num())).
				SetInt("order", 1))
			events <- raceEvent{player: p, exited: true}
			return
		default:
			r.rejectCall(p, "expected CALL or NO_CALL during the kitty flip")
		}
	}
}

// drainAll clears any interrupt still pending on a player's session so no
// stale cancellation signal leaks into the next phase.
func (r *Round) drainAll() {
	for _, p := range r.players {
		p.Sess.DrainInterrupts()
	}
}
