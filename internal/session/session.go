package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shengji/internal/protocol"
)

var (
	// ErrDisconnected is observed by senders and waiters once the underlying
	// connection is gone.
	ErrDisconnected = errors.New("player disconnected")
	// ErrInterrupted is observed by a waiter whose blocking wait was woken so
	// control can return to the orchestrator.
	ErrInterrupted = errors.New("wait interrupted")
	// ErrTimeout is observed by a bounded wait that saw no packet in time.
	ErrTimeout = errors.New("wait timed out")
)

const inboxSize = 64

// packet is one inbox entry: either a decoded message or a poison-pill error.
type packet struct {
	msg *protocol.Message
	err error
}

// InterceptFunc inspects an inbound message before it reaches the gameplay
// queue. Returning true consumes the message. This is the seam between
// out-of-round administrative traffic and in-round gameplay traffic.
type InterceptFunc func(*protocol.Message) bool

// Session owns all I/O for one connected player: a serialized outbound send
// path and an inbound queue fed by a dedicated read pump. Disconnects are
// injected into the queue as a poison pill; interrupts travel out-of-band on
// their own signal channel so a full inbox can never swallow one.
type Session struct {
	id  uuid.UUID
	log *zap.SugaredLogger
	tr  Transport

	sendMu sync.Mutex
	closed bool

	inbox     chan packet
	interrupt chan struct{}
	dead      chan struct{}

	interceptMu sync.RWMutex
	intercept   InterceptFunc

	closeOnce sync.Once
	onClose   func(*Session)
}

// New wraps a transport in a session. Call Start after installing hooks.
func New(tr Transport, log *zap.SugaredLogger) *Session {
	return &Session{
		id:        uuid.New(),
		log:       log,
		tr:        tr,
		inbox:     make(chan packet, inboxSize),
		interrupt: make(chan struct{}, 1),
		dead:      make(chan struct{}),
	}
}

// ID returns the session's stable connection identity.
func (s *Session) ID() uuid.UUID { return s.id }

// SetIntercept installs the administrative intercept hook. Safe to swap at
// any time; nil removes it.
func (s *Session) SetIntercept(f InterceptFunc) {
	s.interceptMu.Lock()
	s.intercept = f
	s.interceptMu.Unlock()
}

// OnClose registers a callback fired exactly once when the read pump exits.
// Must be set before Start.
func (s *Session) OnClose(f func(*Session)) { s.onClose = f }

// Start launches the read pump.
func (s *Session) Start() {
	go s.readPump()
}

func (s *Session) readPump() {
	defer s.shutdown()

	for {
		payload, err := s.tr.ReadPayload()
		if err != nil {
			return
		}
		msg, err := protocol.Decode(payload)
		if err != nil {
			// Undecodable bytes mean the stream itself can no longer be
			// trusted; drop the connection rather than guess at framing.
			s.log.Warnw("dropping undecodable client", "session", s.id, "err", err)
			return
		}

		s.interceptMu.RLock()
		intercept := s.intercept
		s.interceptMu.RUnlock()
		if intercept != nil && intercept(msg) {
			continue
		}

		select {
		case s.inbox <- packet{msg: msg}:
		case <-s.dead:
			return
		}
	}
}

// shutdown marks the session dead, injects the disconnect pill, and fires the
// close callback once.
func (s *Session) shutdown() {
	s.closeOnce.Do(func() {
		s.sendMu.Lock()
		s.closed = true
		s.sendMu.Unlock()
		s.tr.Close()

		select {
		case s.inbox <- packet{err: ErrDisconnected}:
		default:
		}
		close(s.dead)

		if s.onClose != nil {
			s.onClose(s)
		}
	})
}

// Close tears the session down from the server side.
func (s *Session) Close() {
	s.tr.Close()
	s.shutdown()
}

// Closed reports whether the session is dead.
func (s *Session) Closed() bool {
	select {
	case <-s.dead:
		return true
	default:
		return false
	}
}

// Send serializes and writes one message. Concurrent callers are serialized;
// a dead connection yields ErrDisconnected.
func (s *Session) Send(msg *protocol.Message) error {
	payload, err := msg.Encode()
	if err != nil {
		return err
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.closed {
		return ErrDisconnected
	}
	if err := s.tr.WritePayload(payload); err != nil {
		s.closed = true
		return ErrDisconnected
	}
	return nil
}

// Interrupt wakes a blocked WaitForPacket with ErrInterrupted. The signal is
// level-triggered and carried outside the inbox: it stays pending however
// deep the message backlog is, and repeated calls collapse into one.
func (s *Session) Interrupt() {
	select {
	case s.interrupt <- struct{}{}:
	default:
	}
}

// WaitForPacket blocks until a message, a disconnect, or an interrupt.
func (s *Session) WaitForPacket() (*protocol.Message, error) {
	return s.wait(nil)
}

// WaitForPacketTimeout is WaitForPacket with an upper bound, returning
// ErrTimeout when it elapses.
func (s *Session) WaitForPacketTimeout(d time.Duration) (*protocol.Message, error) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	return s.wait(timer.C)
}

func (s *Session) wait(timeout <-chan time.Time) (*protocol.Message, error) {
	// Queued packets take priority over the control signals so messages that
	// arrived before a disconnect or interrupt are still delivered in order.
	select {
	case p := <-s.inbox:
		return p.msg, p.err
	default:
	}
	select {
	case p := <-s.inbox:
		return p.msg, p.err
	case <-s.interrupt:
		return nil, ErrInterrupted
	case <-s.dead:
		return nil, ErrDisconnected
	case <-timeout:
		return nil, ErrTimeout
	}
}

// DrainInterrupts discards a stale interrupt left pending after a race phase
// converges, so it cannot leak into the next phase. Queued messages are
// untouched.
func (s *Session) DrainInterrupts() {
	select {
	case <-s.interrupt:
	default:
	}
}
