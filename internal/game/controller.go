package game

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"go.uber.org/zap"

	"shengji/internal/protocol"
	"shengji/internal/session"
)

// Options configures a game session controller.
type Options struct {
	MinPlayers int
	MaxPlayers int
	WithJokers bool
	Rng        *rand.Rand
}

// Controller owns the single game session of the process: it seats incoming
// connections, answers lobby/administrative traffic through session
// intercepts, and drives at most one round at a time.
type Controller struct {
	log        *zap.SugaredLogger
	rng        *rand.Rand
	minPlayers int
	maxPlayers int
	withJokers bool

	mu           sync.Mutex
	players      []*Player
	roundRunning bool

	start chan struct{}
	done  chan struct{}
}

// NewController builds a controller; call Run on its own goroutine.
func NewController(opts Options, log *zap.SugaredLogger) *Controller {
	return &Controller{
		log:        log,
		rng:        opts.Rng,
		minPlayers: opts.MinPlayers,
		maxPlayers: opts.MaxPlayers,
		withJokers: opts.WithJokers,
		start:      make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Done is closed when the session has terminated fatally.
func (c *Controller) Done() <-chan struct{} { return c.done }

// AddConnection seats a new transport as a player. Connections beyond the
// table limit, or arriving mid-round, are turned away.
func (c *Controller) AddConnection(tr session.Transport) {
	sess := session.New(tr, c.log)

	c.mu.Lock()
	if len(c.players) >= c.maxPlayers || c.roundRunning {
		c.mu.Unlock()
		c.log.Infow("turning away connection", "players", len(c.players))
		_ = tr.Close()
		return
	}
	num := len(c.players)
	p := NewPlayer(sess, num, fmt.Sprintf("Player %d", num+1))
	c.players = append(c.players, p)
	c.mu.Unlock()

	sess.SetIntercept(c.interceptFor(p))
	sess.OnClose(func(*session.Session) { c.handleDisconnect(p) })
	sess.Start()

	_ = sess.Send(protocol.New(protocol.ServerWelcome).
		SetInt("player", int64(p.Num())).
		SetBool("host", p.Num() == 0))
	c.broadcast(protocol.New(protocol.ServerPlayerJoined).
		SetInt("player", int64(p.Num())).
		SetString("name", p.Name()))
	c.broadcastRoster()
	c.log.Infow("player joined", "player", p.Num(), "session", sess.ID())
}

// Run is the controller's steady-state loop: wait for a start request, drive
// one round, return to the lobby. It exits only on a fatal round error.
func (c *Controller) Run() {
	defer close(c.done)
	for range c.start {
		players := c.beginRound()
		if players == nil {
			continue
		}

		round := NewRound(players, c.withJokers, c.rng, c.log)
		err := round.Run()

		c.mu.Lock()
		c.roundRunning = false
		c.mu.Unlock()

		switch {
		case err == nil:
			c.log.Infow("round complete")
		case errors.Is(err, session.ErrDisconnected):
			c.log.Infow("round aborted by disconnect", "err", err)
			c.broadcast(protocol.New(protocol.ServerPlayerDisconnected).
				SetString("reason", "round aborted: a player disconnected"))
		case errors.Is(err, ErrFatal):
			// Never continue a round in a possibly corrupt state.
			c.log.Errorw("fatal round error", "err", err)
			c.broadcast(protocol.New(protocol.ServerFatalError).
				SetString("reason", err.Error()))
			c.shutdown()
			return
		default:
			c.log.Errorw("unexpected round error", "err", err)
		}
	}
}

// beginRound snapshots the seating if a round may start, marking the session
// in-round. Returns nil when the start request is stale.
func (c *Controller) beginRound() []*Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.roundRunning || len(c.players) < c.minPlayers {
		return nil
	}
	c.roundRunning = true
	players := make([]*Player, len(c.players))
	copy(players, c.players)
	return players
}

// interceptFor builds the administrative intercept for one player. These
// codes are answered on the session's read goroutine and never enter the
// gameplay queue.
func (c *Controller) interceptFor(p *Player) session.InterceptFunc {
	return func(msg *protocol.Message) bool {
		switch msg.Code {
		case protocol.ClientPing:
			_ = p.Sess.Send(protocol.New(protocol.ServerPing))
		case protocol.ClientName:
			c.handleName(p, msg)
		case protocol.ClientStartRound:
			c.handleStart(p)
		case protocol.ClientSetRank:
			c.handleSetRank(p, msg)
		case protocol.ClientShufflePlayers:
			c.handleShuffle(p)
		default:
			return false
		}
		return true
	}
}

func (c *Controller) handleName(p *Player, msg *protocol.Message) {
	name, err := msg.GetString("name")
	if err != nil || name == "" {
		c.reject(p, "a non-empty name is required")
		return
	}
	p.SetName(name)
	c.broadcast(protocol.New(protocol.ServerNameChanged).
		SetInt("player", int64(p.Num())).
		SetString("name", name))
	c.broadcastRoster()
}

func (c *Controller) handleStart(p *Player) {
	c.mu.Lock()
	isHost := len(c.players) > 0 && c.players[0] == p
	enough := len(c.players) >= c.minPlayers
	running := c.roundRunning
	c.mu.Unlock()

	switch {
	case !isHost:
		c.reject(p, "only the host may start a round")
	case running:
		c.reject(p, "a round is already in progress")
	case !enough:
		c.reject(p, fmt.Sprintf("need at least %d players", c.minPlayers))
	default:
		select {
		case c.start <- struct{}{}:
		default:
		}
	}
}

func (c *Controller) handleSetRank(p *Player, msg *protocol.Message) {
	c.mu.Lock()
	isHost := len(c.players) > 0 && c.players[0] == p
	running := c.roundRunning
	c.mu.Unlock()
	if !isHost || running {
		c.reject(p, "rank adjustments are host-only lobby commands")
		return
	}

	targetNum, err := msg.GetInt("player")
	if err != nil {
		c.reject(p, err.Error())
		return
	}
	delta, err := msg.GetInt("delta")
	if err != nil {
		c.reject(p, err.Error())
		return
	}
	target := c.playerByNum(int(targetNum))
	if target == nil {
		c.reject(p, fmt.Sprintf("no player %d", targetNum))
		return
	}

	target.AdjustRankOffset(int(delta))
	c.broadcast(protocol.New(protocol.ServerRankChanged).
		SetInt("player", int64(target.Num())).
		SetInt("rank", int64(target.CallRank())))
	c.broadcastRoster()
}

func (c *Controller) handleShuffle(p *Player) {
	c.mu.Lock()
	isHost := len(c.players) > 0 && c.players[0] == p
	if !isHost || c.roundRunning {
		c.mu.Unlock()
		c.reject(p, "shuffling seats is a host-only lobby command")
		return
	}
	c.rng.Shuffle(len(c.players), func(i, j int) {
		c.players[i], c.players[j] = c.players[j], c.players[i]
	})
	for i, q := range c.players {
		q.SetNum(i)
	}
	c.mu.Unlock()

	c.broadcast(protocol.New(protocol.ServerPlayersShuffled))
	c.broadcastRoster()
}

func (c *Controller) reject(p *Player, reason string) {
	_ = p.Sess.Send(protocol.New(protocol.ServerInvalidRequest).SetString("reason", reason))
}

// handleDisconnect prunes a dead player, squashes seat numbers contiguous,
// and wakes every blocked waiter so an in-flight round can unwind.
func (c *Controller) handleDisconnect(p *Player) {
	c.mu.Lock()
	idx := -1
	for i, q := range c.players {
		if q == p {
			idx = i
			break
		}
	}
	if idx >= 0 {
		c.players = append(c.players[:idx], c.players[idx+1:]...)
		for i, q := range c.players {
			q.SetNum(i)
		}
	}
	running := c.roundRunning
	remaining := make([]*Player, len(c.players))
	copy(remaining, c.players)
	c.mu.Unlock()

	if idx < 0 {
		return
	}
	c.log.Infow("player left", "name", p.Name(), "midRound", running)
	c.broadcast(protocol.New(protocol.ServerPlayerLeft).
		SetString("name", p.Name()))
	c.broadcastRoster()

	if running {
		for _, q := range remaining {
			q.Sess.Interrupt()
		}
	}
}

func (c *Controller) playerByNum(num int) *Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	if num < 0 || num >= len(c.players) {
		return nil
	}
	return c.players[num]
}

// broadcastRoster sends the full seating to everyone: seat order, names, and
// the rank each player would call at.
func (c *Controller) broadcastRoster() {
	c.mu.Lock()
	names := make([]string, len(c.players))
	ranks := make([]int32, len(c.players))
	for i, q := range c.players {
		names[i] = q.Name()
		ranks[i] = int32(q.CallRank())
	}
	c.mu.Unlock()

	c.broadcast(protocol.New(protocol.ServerRoster).
		SetStrings("names", names).
		SetInts("ranks", ranks))
}

func (c *Controller) broadcast(msg *protocol.Message) {
	c.mu.Lock()
	players := make([]*Player, len(c.players))
	copy(players, c.players)
	c.mu.Unlock()
	for _, q := range players {
		_ = q.Sess.Send(msg)
	}
}

// shutdown closes every session after a fatal error.
func (c *Controller) shutdown() {
	c.mu.Lock()
	players := make([]*Player, len(c.players))
	copy(players, c.players)
	c.mu.Unlock()
	for _, q := range players {
		q.Sess.Close()
	}
}
