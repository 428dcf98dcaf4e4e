package game

import (
	"math/rand"
	"net"
	"testing"
	"time"

	"go.uber.org/zap"

	"shengji/internal/domain"
	"shengji/internal/protocol"
	"shengji/internal/session"
)

// testClient is the thin-client end of an in-memory connection. A pump
// goroutine keeps draining server traffic so broadcasts never block the
// engine under test.
type testClient struct {
	t    *testing.T
	conn net.Conn
	msgs chan *protocol.Message
}

func newTestClient(t *testing.T, conn net.Conn) *testClient {
	tc := &testClient{t: t, conn: conn, msgs: make(chan *protocol.Message, 256)}
	go tc.pump()
	t.Cleanup(func() { conn.Close() })
	return tc
}

func (tc *testClient) pump() {
	for {
		payload, err := protocol.ReadFrame(tc.conn)
		if err != nil {
			close(tc.msgs)
			return
		}
		msg, err := protocol.Decode(payload)
		if err != nil {
			close(tc.msgs)
			return
		}
		tc.msgs <- msg
	}
}

func (tc *testClient) send(msg *protocol.Message) {
	tc.t.Helper()
	payload, err := msg.Encode()
	if err != nil {
		tc.t.Fatal(err)
	}
	if err := protocol.WriteFrame(tc.conn, payload); err != nil {
		tc.t.Fatalf("client write: %v", err)
	}
}

// await discards messages until one with the given code arrives.
func (tc *testClient) await(code protocol.Code) *protocol.Message {
	tc.t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case msg, ok := <-tc.msgs:
			if !ok {
				tc.t.Fatalf("connection closed while awaiting %v", code)
			}
			if msg.Code == code {
				return msg
			}
		case <-deadline:
			tc.t.Fatalf("timed out awaiting %v", code)
		}
	}
}

// newPipedPlayer seats a player over an in-memory pipe and returns its
// scripted client end.
func newPipedPlayer(t *testing.T, num int, name string) (*Player, *testClient) {
	t.Helper()
	serverEnd, clientEnd := net.Pipe()
	tc := newTestClient(t, clientEnd)
	sess := session.New(session.NewFrameTransport(serverEnd), zap.NewNop().Sugar())
	sess.Start()
	t.Cleanup(func() { sess.Close() })
	return NewPlayer(sess, num, name), tc
}

// newTestRound builds a round over n piped players with a fresh empty state.
func newTestRound(t *testing.T, n int) (*Round, []*Player, []*testClient) {
	t.Helper()
	players := make([]*Player, n)
	clients := make([]*testClient, n)
	for i := range players {
		players[i], clients[i] = newPipedPlayer(t, i, names[i])
	}
	r := NewRound(players, true, rand.New(rand.NewSource(11)), zap.NewNop().Sugar())
	r.state = &RoundState{Running: true}
	return r, players, clients
}

var names = []string{"ana", "bo", "cy", "dee", "ed", "fay", "gus", "hal"}

func mustCards(t *testing.T, nums ...int32) domain.CardList {
	t.Helper()
	cards, err := domain.CardsFromNums(nums)
	if err != nil {
		t.Fatal(err)
	}
	return cards
}
