package session

import (
	"errors"
	"net"
	"testing"
	"time"

	"go.uber.org/zap"

	"shengji/internal/protocol"
)

// pipeSession returns a started session and the client end of its pipe.
func pipeSession(t *testing.T) (*Session, net.Conn) {
	t.Helper()
	serverEnd, clientEnd := net.Pipe()
	s := New(NewFrameTransport(serverEnd), zap.NewNop().Sugar())
	s.Start()
	t.Cleanup(func() {
		s.Close()
		clientEnd.Close()
	})
	return s, clientEnd
}

func clientSend(t *testing.T, conn net.Conn, msg *protocol.Message) {
	t.Helper()
	payload, err := msg.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if err := protocol.WriteFrame(conn, payload); err != nil {
		t.Fatal(err)
	}
}

func clientRead(t *testing.T, conn net.Conn) *protocol.Message {
	t.Helper()
	payload, err := protocol.ReadFrame(conn)
	if err != nil {
		t.Fatal(err)
	}
	msg, err := protocol.Decode(payload)
	if err != nil {
		t.Fatal(err)
	}
	return msg
}

func TestWaitForPacketDelivers(t *testing.T) {
	s, client := pipeSession(t)

	clientSend(t, client, protocol.New(protocol.ClientPlay).SetInts("cards", []int32{3}))

	msg, err := s.WaitForPacket()
	if err != nil {
		t.Fatal(err)
	}
	if msg.Code != protocol.ClientPlay {
		t.Errorf("code = %v, want PLAY", msg.Code)
	}
}

func TestSendReachesClient(t *testing.T) {
	s, client := pipeSession(t)

	done := make(chan *protocol.Message, 1)
	go func() { done <- clientRead(t, client) }()

	if err := s.Send(protocol.New(protocol.ServerRoundStarted).SetInt("decks", 2)); err != nil {
		t.Fatal(err)
	}
	msg := <-done
	if msg.Code != protocol.ServerRoundStarted {
		t.Errorf("code = %v, want ROUND_STARTED", msg.Code)
	}
}

func TestDisconnectPoisonsWaiters(t *testing.T) {
	s, client := pipeSession(t)

	errc := make(chan error, 1)
	go func() {
		_, err := s.WaitForPacket()
		errc <- err
	}()

	client.Close()

	select {
	case err := <-errc:
		if !errors.Is(err, ErrDisconnected) {
			t.Errorf("err = %v, want ErrDisconnected", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never woke after disconnect")
	}

	if err := s.Send(protocol.New(protocol.ServerPing)); !errors.Is(err, ErrDisconnected) {
		t.Errorf("Send after disconnect = %v, want ErrDisconnected", err)
	}
}

func TestInterruptWakesWaiter(t *testing.T) {
	s, _ := pipeSession(t)

	errc := make(chan error, 1)
	go func() {
		_, err := s.WaitForPacket()
		errc <- err
	}()

	// Give the waiter a moment to block, then wake it.
	time.Sleep(20 * time.Millisecond)
	s.Interrupt()

	select {
	case err := <-errc:
		if !errors.Is(err, ErrInterrupted) {
			t.Errorf("err = %v, want ErrInterrupted", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never woke after interrupt")
	}
}

func TestWaitTimeout(t *testing.T) {
	s, _ := pipeSession(t)

	_, err := s.WaitForPacketTimeout(30 * time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
}

func TestDrainInterruptsKeepsMessages(t *testing.T) {
	s, client := pipeSession(t)

	clientSend(t, client, protocol.New(protocol.ClientCall).SetInt("order", 1))
	// Wait until the pump has queued the real message, then leave a stale
	// interrupt pending.
	deadline := time.Now().Add(2 * time.Second)
	for len(s.inbox) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Interrupt()
	s.Interrupt()

	s.DrainInterrupts()

	msg, err := s.WaitForPacketTimeout(time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Code != protocol.ClientCall {
		t.Errorf("code = %v, want CALL", msg.Code)
	}
	if _, err := s.WaitForPacketTimeout(30 * time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Errorf("expected empty inbox after drain, got %v", err)
	}
}

func TestInterruptSurvivesFullInbox(t *testing.T) {
	s, client := pipeSession(t)

	// Fill the inbox to capacity before interrupting. The cancellation must
	// still be observed once the backlog is consumed.
	for i := 0; i < inboxSize; i++ {
		clientSend(t, client, protocol.New(protocol.ClientPing))
	}
	deadline := time.Now().Add(2 * time.Second)
	for len(s.inbox) < inboxSize && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if len(s.inbox) != inboxSize {
		t.Fatalf("inbox filled to %d of %d", len(s.inbox), inboxSize)
	}

	s.Interrupt()

	for i := 0; i < inboxSize; i++ {
		if _, err := s.WaitForPacketTimeout(time.Second); err != nil {
			t.Fatalf("backlog message %d: %v", i, err)
		}
	}
	if _, err := s.WaitForPacketTimeout(time.Second); !errors.Is(err, ErrInterrupted) {
		t.Errorf("err after backlog = %v, want ErrInterrupted", err)
	}
}

func TestQueuedMessageDeliveredBeforePendingInterrupt(t *testing.T) {
	s, client := pipeSession(t)

	s.Interrupt()
	clientSend(t, client, protocol.New(protocol.ClientCall).SetInt("order", 1))
	deadline := time.Now().Add(2 * time.Second)
	for len(s.inbox) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	// A queued message is delivered ahead of a pending interrupt.
	msg, err := s.WaitForPacket()
	if err != nil {
		t.Fatal(err)
	}
	if msg.Code != protocol.ClientCall {
		t.Errorf("code = %v, want CALL", msg.Code)
	}
	if _, err := s.WaitForPacketTimeout(time.Second); !errors.Is(err, ErrInterrupted) {
		t.Errorf("err = %v, want ErrInterrupted", err)
	}
}

func TestInterceptShortCircuits(t *testing.T) {
	s, client := pipeSession(t)

	intercepted := make(chan protocol.Code, 1)
	s.SetIntercept(func(m *protocol.Message) bool {
		if m.Code == protocol.ClientName {
			intercepted <- m.Code
			return true
		}
		return false
	})

	clientSend(t, client, protocol.New(protocol.ClientName).SetString("name", "sam"))
	clientSend(t, client, protocol.New(protocol.ClientPlay).SetInts("cards", []int32{1}))

	msg, err := s.WaitForPacket()
	if err != nil {
		t.Fatal(err)
	}
	if msg.Code != protocol.ClientPlay {
		t.Errorf("queue saw %v, want PLAY only", msg.Code)
	}
	select {
	case <-intercepted:
	case <-time.After(2 * time.Second):
		t.Fatal("intercept hook never ran")
	}
}
